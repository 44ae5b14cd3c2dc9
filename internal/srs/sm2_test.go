package srs

import (
	"math"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func reviewState(ease float64, interval, repetitions, lapses int) CardState {
	return CardState{
		StudyState:  StateReview,
		Interval:    interval,
		Ease:        ease,
		Repetitions: repetitions,
		Lapses:      lapses,
	}
}

func TestSM2AgainLapses(t *testing.T) {
	s := NewScheduler()
	state := reviewState(2.5, 10, 3, 0)

	result := s.ScheduleReview(state, RatingAgain, Settings{Algorithm: AlgorithmSM2}, testNow)

	if result.StudyState != StateRelearning {
		t.Errorf("study state = %q, want %q", result.StudyState, StateRelearning)
	}
	if result.Interval != 1 {
		t.Errorf("interval = %d, want 1", result.Interval)
	}
	if result.Repetitions != 0 {
		t.Errorf("repetitions = %d, want 0", result.Repetitions)
	}
	if result.Lapses != 1 {
		t.Errorf("lapses = %d, want 1", result.Lapses)
	}
	// 2.5 + (0.1 - 5*(0.08 + 5*0.02)) = 1.70
	if result.Ease != 1.70 {
		t.Errorf("ease = %v, want 1.70", result.Ease)
	}
	if want := testNow.AddDate(0, 0, 1); !result.DueAt.Equal(want) {
		t.Errorf("due at = %v, want %v", result.DueAt, want)
	}
}

func TestSM2GoodProgression(t *testing.T) {
	s := NewScheduler()
	settings := Settings{Algorithm: AlgorithmSM2}

	tests := []struct {
		name         string
		state        CardState
		wantInterval int
		wantReps     int
	}{
		{"first good", reviewState(2.5, 0, 0, 0), 1, 1},
		{"second good", reviewState(2.5, 1, 1, 0), 6, 2},
		// Good keeps ease at 2.5, so the third interval is round(6*2.5).
		{"third good", reviewState(2.5, 6, 2, 0), 15, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.ScheduleReview(tt.state, RatingGood, settings, testNow)
			if result.StudyState != StateReview {
				t.Errorf("study state = %q, want %q", result.StudyState, StateReview)
			}
			if result.Interval != tt.wantInterval {
				t.Errorf("interval = %d, want %d", result.Interval, tt.wantInterval)
			}
			if result.Repetitions != tt.wantReps {
				t.Errorf("repetitions = %d, want %d", result.Repetitions, tt.wantReps)
			}
		})
	}
}

func TestSM2EaseAdjustments(t *testing.T) {
	s := NewScheduler()
	settings := Settings{Algorithm: AlgorithmSM2}

	tests := []struct {
		rating   Rating
		wantEase float64
	}{
		{RatingAgain, 1.70}, // -0.80
		{RatingHard, 2.36},  // -0.14
		{RatingGood, 2.50},  // unchanged
		{RatingEasy, 2.60},  // +0.10
	}

	for _, tt := range tests {
		result := s.ScheduleReview(reviewState(2.5, 6, 2, 0), tt.rating, settings, testNow)
		if result.Ease != tt.wantEase {
			t.Errorf("ease after %q = %v, want %v", tt.rating, result.Ease, tt.wantEase)
		}
	}
}

func TestEaseNeverBelowFloor(t *testing.T) {
	s := NewScheduler()
	ratings := []Rating{RatingAgain, RatingHard, RatingGood, RatingEasy, Rating("bogus")}

	for _, stepsEnabled := range []bool{false, true} {
		settings := Settings{Algorithm: AlgorithmSM2, LearningStepsEnabled: stepsEnabled}
		for ease := 1.30; ease <= 3.0; ease += 0.05 {
			for _, rating := range ratings {
				for _, state := range []CardState{
					reviewState(ease, 10, 3, 0),
					{StudyState: StateLearning, IsLearning: true, StepIndex: intPtr(1), Ease: ease},
					{StudyState: StateRelearning, IsRelearning: true, StepIndex: intPtr(0), Ease: ease},
					{Ease: ease},
				} {
					result := s.ScheduleReview(state, rating, settings, testNow)
					if result.Ease < minEase {
						t.Fatalf("ease %v below floor (start %v, rating %q, steps %v)",
							result.Ease, ease, rating, stepsEnabled)
					}
				}
			}
		}
	}
}

func TestSM2IntervalFloor(t *testing.T) {
	s := NewScheduler()
	// Hard at minimum ease: round(1*1.30) = 1, never below one day.
	result := s.ScheduleReview(reviewState(1.30, 1, 5, 2), RatingHard, Settings{Algorithm: AlgorithmSM2}, testNow)
	if result.Interval < 1 {
		t.Errorf("interval = %d, want >= 1", result.Interval)
	}
}

func TestSM2Deterministic(t *testing.T) {
	s := NewScheduler()
	settings := Settings{Algorithm: AlgorithmSM2}
	state := reviewState(2.17, 13, 4, 2)

	first := s.ScheduleReview(state, RatingGood, settings, testNow)
	second := s.ScheduleReview(state, RatingGood, settings, testNow)

	if first.Interval != second.Interval || first.Ease != second.Ease ||
		first.Repetitions != second.Repetitions || !first.DueAt.Equal(second.DueAt) {
		t.Errorf("identical inputs diverged: %+v vs %+v", first, second)
	}

	if math.Abs(first.Ease-second.Ease) != 0 {
		t.Errorf("ease not reproducible: %v vs %v", first.Ease, second.Ease)
	}
}
