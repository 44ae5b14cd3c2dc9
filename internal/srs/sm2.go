package srs

import (
	"math"
	"time"
)

const (
	defaultEase = 2.50
	minEase     = 1.30

	// maxGraduateEase caps the ease bonus on an easy graduation.
	maxGraduateEase = 2.70
)

// scheduleSM2 applies the canonical SM-2 update to a card snapshot. The ease
// adjustment happens before the pass/fail branch, so a lapse still degrades
// ease, and the floor is enforced on every update.
func scheduleSM2(state CardState, rating Rating, now time.Time) Result {
	quality := QualityFromRating(rating)

	ease := state.ease()
	ease += 0.1 - float64(5-quality)*(0.08+float64(5-quality)*0.02)
	ease = math.Max(minEase, ease)

	repetitions := state.Repetitions
	interval := state.Interval
	lapses := state.Lapses

	var studyState string
	if quality < 3 {
		repetitions = 0
		interval = 1
		lapses++
		studyState = StateRelearning
	} else {
		repetitions++
		studyState = StateReview

		switch repetitions {
		case 1:
			interval = 1
		case 2:
			interval = 6
		default:
			interval = int(math.Max(1, math.Round(float64(interval)*ease)))
		}
	}

	return Result{
		DueAt:       now.AddDate(0, 0, interval),
		Interval:    interval,
		Ease:        round2(ease),
		Repetitions: repetitions,
		Lapses:      lapses,
		StudyState:  studyState,
		ReviewedAt:  now,
		Data:        Data{},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
