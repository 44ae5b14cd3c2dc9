package srs

import (
	"math"
	"time"
)

// Scheduler computes the next persisted schedule for a card from a rating.
// It is a pure function of (card snapshot, rating, settings, now): persisting
// the card and appending the review-log entry happen in the caller, atomically.
type Scheduler struct{}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// ScheduleReview dispatches a review to the learning-step machine when the
// deck has learning steps enabled, and straight to SM-2 otherwise.
func (s *Scheduler) ScheduleReview(state CardState, rating Rating, settings Settings, now time.Time) Result {
	var result Result
	if settings.LearningStepsEnabled {
		result = s.scheduleWithSteps(state, rating, settings, now)
	} else {
		result = scheduleSM2(state, rating, now)
		result.Algorithm, result.Data = resolveAlgorithm(settings.Algorithm, result.Data)
	}

	if !rating.IsValid() {
		if result.Data == nil {
			result.Data = Data{}
		}
		result.Data["rating_fallback"] = true
	}

	return result
}

func (s *Scheduler) scheduleWithSteps(state CardState, rating Rating, settings Settings, now time.Time) Result {
	switch state.phase() {
	case phaseRelearning:
		return s.relearningStep(state, rating, settings, now)
	case phaseLearning, phaseNew:
		return s.learningStep(state, rating, settings, now)
	default:
		return s.reviewWithSteps(state, rating, settings, now)
	}
}

// learningStep handles a card in the learning phase (or a brand-new card).
func (s *Scheduler) learningStep(state CardState, rating Rating, settings Settings, now time.Time) Result {
	steps := settings.learningStepsOrDefault()
	current := state.stepIndex()

	switch rating {
	case RatingAgain:
		return s.stepResult(state, now, steps, 0, state.ease(), state.Lapses, false)

	case RatingHard:
		idx := max(0, current-1)
		ease := math.Max(minEase, state.ease()-0.15)
		return s.stepResult(state, now, steps, idx, ease, state.Lapses, false)

	case RatingEasy:
		return s.graduate(state, settings, now, true)

	default:
		// Good, and the documented default for unknown ratings. A brand-new
		// card stays at step 0 on its first good: the first exposure gets one
		// extra step before advancing.
		idx := current + 1
		if state.phase() == phaseNew && current == 0 {
			idx = 0
		}
		if idx >= len(steps) {
			return s.graduate(state, settings, now, false)
		}
		return s.stepResult(state, now, steps, idx, state.ease(), state.Lapses, false)
	}
}

// relearningStep handles a lapsed card working through relearning steps.
func (s *Scheduler) relearningStep(state CardState, rating Rating, settings Settings, now time.Time) Result {
	steps := settings.relearningStepsOrDefault()
	current := state.stepIndex()

	switch rating {
	case RatingAgain:
		// Failing a relearning step counts as another lapse.
		ease := math.Max(minEase, state.ease()-0.20)
		return s.stepResult(state, now, steps, 0, ease, state.Lapses+1, true)

	case RatingHard:
		idx := max(0, current-1)
		ease := math.Max(minEase, state.ease()-0.15)
		return s.stepResult(state, now, steps, idx, ease, state.Lapses, true)

	case RatingEasy:
		return s.graduate(state, settings, now, true)

	default:
		idx := current + 1
		if idx >= len(steps) {
			return s.graduate(state, settings, now, false)
		}
		return s.stepResult(state, now, steps, idx, state.ease(), state.Lapses, true)
	}
}

// reviewWithSteps delegates a review-phase card to SM-2, then routes a lapse
// back into relearning at step 0 so step tracking picks it up.
func (s *Scheduler) reviewWithSteps(state CardState, rating Rating, settings Settings, now time.Time) Result {
	result := scheduleSM2(state, rating, now)
	result.Algorithm, result.Data = resolveAlgorithm(settings.Algorithm, result.Data)

	if QualityFromRating(rating) < 3 {
		result.IsRelearning = true
		result.StepIndex = intPtr(0)
	}

	return result
}

// stepResult builds the result for a non-graduating step transition.
// Learning results keep interval 0; relearning results keep interval 1.
func (s *Scheduler) stepResult(state CardState, now time.Time, steps []string, idx int, ease float64, lapses int, relearning bool) Result {
	def := "1m"
	if relearning {
		def = "10m"
	}

	minutes, ok := parseStep(stepAt(steps, idx, def))
	data := Data{"interval_minutes": minutes}
	if !ok {
		data["step_fallback"] = true
	}

	interval := 0
	studyState := StateLearning
	if relearning {
		interval = 1
		studyState = StateRelearning
	}

	return Result{
		DueAt:        now.Add(time.Duration(minutes) * time.Minute),
		Interval:     interval,
		Ease:         round2(ease),
		Repetitions:  0,
		Lapses:       lapses,
		StudyState:   studyState,
		IsLearning:   !relearning,
		IsRelearning: relearning,
		StepIndex:    intPtr(idx),
		ReviewedAt:   now,
		Algorithm:    AlgorithmSM2,
		Data:         data,
	}
}

// graduate moves a card out of learning/relearning into the review phase.
// Easy graduation starts at four days and earns an ease bonus; good
// graduation starts at one day with ease untouched.
func (s *Scheduler) graduate(state CardState, settings Settings, now time.Time, easy bool) Result {
	ease := state.ease()
	interval := 1
	if easy {
		interval = 4
		ease = math.Min(maxGraduateEase, ease+0.15)
	}

	result := Result{
		DueAt:       now.AddDate(0, 0, interval),
		Interval:    interval,
		Ease:        round2(ease),
		Repetitions: 1,
		Lapses:      state.Lapses,
		StudyState:  StateReview,
		ReviewedAt:  now,
		Data:        Data{},
	}
	result.Algorithm, result.Data = resolveAlgorithm(settings.Algorithm, result.Data)

	return result
}
