package srs

import "time"

// Data carries algorithm-specific extras of a scheduling result, persisted on
// the review-log entry. Keys used by this package:
//
//	interval_minutes  sub-day step length, consumed by the session spacing
//	algorithm_used    actual algorithm when the requested one fell back
//	fallback          true when an unimplemented algorithm was requested
//	rating_fallback   true when an unknown rating defaulted to "good"
//	step_fallback     true when a malformed step string defaulted to 1m
type Data map[string]any

// IntervalMinutes returns the sub-day step length recorded on the result, if
// any. It tolerates the int/float64 split that a JSON round trip introduces.
func (d Data) IntervalMinutes() (int, bool) {
	v, ok := d["interval_minutes"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// Result is the full new persisted-field set produced by one review. The
// caller is responsible for applying it to the card and appending the
// review-log entry in a single transaction.
type Result struct {
	DueAt        time.Time
	Interval     int
	Ease         float64
	Repetitions  int
	Lapses       int
	StudyState   string
	IsLearning   bool
	IsRelearning bool
	StepIndex    *int
	ReviewedAt   time.Time
	Algorithm    string
	Data         Data
}

func intPtr(v int) *int { return &v }
