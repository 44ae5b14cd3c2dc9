package srs

import (
	"testing"
	"time"
)

func stepSettings() Settings {
	s := DefaultSettings()
	s.LearningStepsEnabled = true
	return s
}

func TestNewCardFirstGoodStaysAtStepZero(t *testing.T) {
	s := NewScheduler()
	state := CardState{} // brand new, never studied

	result := s.ScheduleReview(state, RatingGood, stepSettings(), testNow)

	if !result.IsLearning {
		t.Error("expected card to stay in learning")
	}
	if result.StepIndex == nil || *result.StepIndex != 0 {
		t.Errorf("step index = %v, want 0", result.StepIndex)
	}
	if result.StudyState != StateLearning {
		t.Errorf("study state = %q, want %q", result.StudyState, StateLearning)
	}

	// A second consecutive good advances past the carve-out.
	next := CardState{
		StudyState: StateLearning,
		IsLearning: true,
		StepIndex:  result.StepIndex,
		Ease:       result.Ease,
	}
	second := s.ScheduleReview(next, RatingGood, stepSettings(), testNow)
	if second.StepIndex == nil || *second.StepIndex != 1 {
		t.Errorf("second good step index = %v, want 1", second.StepIndex)
	}
}

func TestLearningAgainResetsToStepZero(t *testing.T) {
	s := NewScheduler()
	state := CardState{
		StudyState: StateLearning,
		IsLearning: true,
		StepIndex:  intPtr(2),
		Ease:       2.5,
	}

	result := s.ScheduleReview(state, RatingAgain, stepSettings(), testNow)

	if result.StepIndex == nil || *result.StepIndex != 0 {
		t.Errorf("step index = %v, want 0", result.StepIndex)
	}
	if result.Ease != 2.5 {
		t.Errorf("ease = %v, want unchanged 2.5", result.Ease)
	}
	if result.Lapses != 0 {
		t.Errorf("lapses = %d, want 0 (learning again is not a lapse)", result.Lapses)
	}
	if want := testNow.Add(time.Minute); !result.DueAt.Equal(want) {
		t.Errorf("due at = %v, want %v", result.DueAt, want)
	}
	if minutes, ok := result.Data.IntervalMinutes(); !ok || minutes != 1 {
		t.Errorf("interval_minutes = %d (%v), want 1", minutes, ok)
	}
}

func TestLearningHardStepsBack(t *testing.T) {
	s := NewScheduler()
	state := CardState{
		StudyState: StateLearning,
		IsLearning: true,
		StepIndex:  intPtr(2),
		Ease:       2.5,
	}

	result := s.ScheduleReview(state, RatingHard, stepSettings(), testNow)

	if result.StepIndex == nil || *result.StepIndex != 1 {
		t.Errorf("step index = %v, want 1", result.StepIndex)
	}
	if result.Ease != 2.35 {
		t.Errorf("ease = %v, want 2.35", result.Ease)
	}

	// Hard at step 0 stays at step 0 and floors the ease.
	state.StepIndex = intPtr(0)
	state.Ease = 1.35
	result = s.ScheduleReview(state, RatingHard, stepSettings(), testNow)
	if result.StepIndex == nil || *result.StepIndex != 0 {
		t.Errorf("step index = %v, want 0", result.StepIndex)
	}
	if result.Ease != minEase {
		t.Errorf("ease = %v, want floor %v", result.Ease, minEase)
	}
}

func TestLearningGoodGraduatesAtFinalStep(t *testing.T) {
	s := NewScheduler()
	state := CardState{
		StudyState: StateLearning,
		IsLearning: true,
		StepIndex:  intPtr(2), // last of 1m/10m/1d
		Ease:       2.5,
	}

	result := s.ScheduleReview(state, RatingGood, stepSettings(), testNow)

	if result.IsLearning || result.IsRelearning {
		t.Error("expected graduation to clear phase flags")
	}
	if result.StepIndex != nil {
		t.Errorf("step index = %v, want nil", *result.StepIndex)
	}
	if result.StudyState != StateReview {
		t.Errorf("study state = %q, want %q", result.StudyState, StateReview)
	}
	if result.Interval != 1 {
		t.Errorf("interval = %d, want 1", result.Interval)
	}
	if result.Repetitions != 1 {
		t.Errorf("repetitions = %d, want 1", result.Repetitions)
	}
	if result.Ease != 2.5 {
		t.Errorf("ease = %v, want unchanged 2.5 on good graduation", result.Ease)
	}
}

func TestEasyGraduatesImmediately(t *testing.T) {
	s := NewScheduler()

	for _, state := range []CardState{
		{StudyState: StateLearning, IsLearning: true, StepIndex: intPtr(0), Ease: 2.5},
		{StudyState: StateRelearning, IsRelearning: true, StepIndex: intPtr(0), Ease: 2.5, Lapses: 2},
	} {
		result := s.ScheduleReview(state, RatingEasy, stepSettings(), testNow)

		if result.StudyState != StateReview {
			t.Errorf("study state = %q, want %q", result.StudyState, StateReview)
		}
		if result.Interval != 4 {
			t.Errorf("interval = %d, want 4", result.Interval)
		}
		if result.Ease != 2.65 {
			t.Errorf("ease = %v, want 2.65", result.Ease)
		}
		if result.Lapses != state.Lapses {
			t.Errorf("lapses = %d, want %d", result.Lapses, state.Lapses)
		}
	}

	// The easy bonus is capped at 2.70.
	high := CardState{StudyState: StateLearning, IsLearning: true, StepIndex: intPtr(1), Ease: 2.68}
	result := s.ScheduleReview(high, RatingEasy, stepSettings(), testNow)
	if result.Ease != maxGraduateEase {
		t.Errorf("ease = %v, want cap %v", result.Ease, maxGraduateEase)
	}
}

func TestRelearningAgainCountsLapse(t *testing.T) {
	s := NewScheduler()
	state := CardState{
		StudyState:   StateRelearning,
		IsRelearning: true,
		StepIndex:    intPtr(0),
		Ease:         2.5,
		Lapses:       1,
	}

	result := s.ScheduleReview(state, RatingAgain, stepSettings(), testNow)

	if !result.IsRelearning {
		t.Error("expected card to stay in relearning")
	}
	if result.StepIndex == nil || *result.StepIndex != 0 {
		t.Errorf("step index = %v, want 0", result.StepIndex)
	}
	if result.Lapses != 2 {
		t.Errorf("lapses = %d, want 2", result.Lapses)
	}
	if result.Ease != 2.30 {
		t.Errorf("ease = %v, want 2.30", result.Ease)
	}
	if want := testNow.Add(10 * time.Minute); !result.DueAt.Equal(want) {
		t.Errorf("due at = %v, want %v", result.DueAt, want)
	}
}

func TestRelearningGoodGraduates(t *testing.T) {
	s := NewScheduler()
	state := CardState{
		StudyState:   StateRelearning,
		IsRelearning: true,
		StepIndex:    intPtr(0), // last of the single 10m step
		Ease:         2.1,
		Lapses:       3,
	}

	result := s.ScheduleReview(state, RatingGood, stepSettings(), testNow)

	if result.StudyState != StateReview {
		t.Errorf("study state = %q, want %q", result.StudyState, StateReview)
	}
	if result.Interval != 1 {
		t.Errorf("interval = %d, want 1", result.Interval)
	}
	if result.Lapses != 3 {
		t.Errorf("lapses = %d, want preserved 3", result.Lapses)
	}
}

func TestReviewAgainRoutesIntoRelearning(t *testing.T) {
	s := NewScheduler()
	state := reviewState(2.5, 10, 3, 0)

	result := s.ScheduleReview(state, RatingAgain, stepSettings(), testNow)

	if !result.IsRelearning {
		t.Error("expected relearning after a review lapse")
	}
	if result.IsLearning {
		t.Error("is_learning must stay false")
	}
	if result.StepIndex == nil || *result.StepIndex != 0 {
		t.Errorf("step index = %v, want 0", result.StepIndex)
	}
	if result.StudyState != StateRelearning {
		t.Errorf("study state = %q, want %q", result.StudyState, StateRelearning)
	}
	if result.Lapses != 1 {
		t.Errorf("lapses = %d, want 1", result.Lapses)
	}
}

func TestReviewGoodWithStepsStaysReview(t *testing.T) {
	s := NewScheduler()
	state := reviewState(2.5, 6, 2, 0)

	result := s.ScheduleReview(state, RatingGood, stepSettings(), testNow)

	if result.IsLearning || result.IsRelearning {
		t.Error("expected no phase flags on a passing review")
	}
	if result.StepIndex != nil {
		t.Errorf("step index = %v, want nil", *result.StepIndex)
	}
	if result.Interval != 15 {
		t.Errorf("interval = %d, want 15", result.Interval)
	}
}

func TestFSRSRequestFallsBackToSM2(t *testing.T) {
	s := NewScheduler()
	settings := Settings{Algorithm: AlgorithmFSRS}

	result := s.ScheduleReview(reviewState(2.5, 6, 2, 0), RatingGood, settings, testNow)

	if result.Algorithm != AlgorithmFSRS {
		t.Errorf("algorithm tag = %q, want %q", result.Algorithm, AlgorithmFSRS)
	}
	if result.Data["algorithm_used"] != AlgorithmSM2 {
		t.Errorf("algorithm_used = %v, want %q", result.Data["algorithm_used"], AlgorithmSM2)
	}
	if result.Data["fallback"] != true {
		t.Error("expected fallback marker in result data")
	}
}

func TestUnknownAlgorithmCoercedToSM2(t *testing.T) {
	s := NewScheduler()
	settings := Settings{Algorithm: "quantum"}

	result := s.ScheduleReview(reviewState(2.5, 6, 2, 0), RatingGood, settings, testNow)

	if result.Algorithm != AlgorithmSM2 {
		t.Errorf("algorithm tag = %q, want %q", result.Algorithm, AlgorithmSM2)
	}
	if result.Data["fallback"] != true {
		t.Error("expected fallback marker in result data")
	}
}

func TestUnknownRatingFallsBackToGood(t *testing.T) {
	s := NewScheduler()

	// Steps disabled: behaves exactly like good, plus a marker.
	plain := s.ScheduleReview(reviewState(2.5, 1, 1, 0), Rating("excellent"), Settings{Algorithm: AlgorithmSM2}, testNow)
	good := s.ScheduleReview(reviewState(2.5, 1, 1, 0), RatingGood, Settings{Algorithm: AlgorithmSM2}, testNow)
	if plain.Interval != good.Interval || plain.Ease != good.Ease {
		t.Errorf("unknown rating diverged from good: %+v vs %+v", plain, good)
	}
	if plain.Data["rating_fallback"] != true {
		t.Error("expected rating_fallback marker")
	}

	// Steps enabled: the good handler runs, with the marker.
	state := CardState{StudyState: StateLearning, IsLearning: true, StepIndex: intPtr(1), Ease: 2.5}
	stepped := s.ScheduleReview(state, Rating("excellent"), stepSettings(), testNow)
	if stepped.StepIndex == nil || *stepped.StepIndex != 2 {
		t.Errorf("step index = %v, want 2", stepped.StepIndex)
	}
	if stepped.Data["rating_fallback"] != true {
		t.Error("expected rating_fallback marker")
	}
}

func TestMalformedStepMarksFallback(t *testing.T) {
	s := NewScheduler()
	settings := stepSettings()
	settings.LearningSteps = []string{"nonsense", "10m", "1d"}

	state := CardState{StudyState: StateLearning, IsLearning: true, StepIndex: intPtr(1), Ease: 2.5}
	result := s.ScheduleReview(state, RatingAgain, settings, testNow)

	if minutes, ok := result.Data.IntervalMinutes(); !ok || minutes != 1 {
		t.Errorf("interval_minutes = %d (%v), want 1", minutes, ok)
	}
	if result.Data["step_fallback"] != true {
		t.Error("expected step_fallback marker")
	}
	if want := testNow.Add(time.Minute); !result.DueAt.Equal(want) {
		t.Errorf("due at = %v, want %v", result.DueAt, want)
	}
}

func TestStepResultsCarrySubDayInterval(t *testing.T) {
	s := NewScheduler()
	state := CardState{StudyState: StateLearning, IsLearning: true, StepIndex: intPtr(0), Ease: 2.5}

	result := s.ScheduleReview(state, RatingGood, stepSettings(), testNow)

	if result.StepIndex == nil || *result.StepIndex != 1 {
		t.Fatalf("step index = %v, want 1", result.StepIndex)
	}
	if minutes, ok := result.Data.IntervalMinutes(); !ok || minutes != 10 {
		t.Errorf("interval_minutes = %d (%v), want 10", minutes, ok)
	}
	if result.Interval != 0 {
		t.Errorf("interval = %d, want 0 while learning", result.Interval)
	}
	if result.Algorithm != AlgorithmSM2 {
		t.Errorf("algorithm = %q, want %q", result.Algorithm, AlgorithmSM2)
	}
}
