package srs

import "time"

// Study state values persisted on a card. An empty state means the card has
// never been studied.
const (
	StateNew        = "new"
	StateLearning   = "learning"
	StateRelearning = "relearning"
	StateReview     = "review"
)

// CardState is the scheduling snapshot of a card as persisted by storage.
// The scheduler reads it and returns a Result; it never mutates the card.
type CardState struct {
	StudyState   string
	IsLearning   bool
	IsRelearning bool
	StepIndex    *int
	DueAt        *time.Time
	Interval     int
	Ease         float64
	Repetitions  int
	Lapses       int
}

func (cs CardState) ease() float64 {
	if cs.Ease <= 0 {
		return defaultEase
	}
	return cs.Ease
}

func (cs CardState) stepIndex() int {
	if cs.StepIndex == nil {
		return 0
	}
	return *cs.StepIndex
}

// phaseKind is the internal tagged representation of the persisted phase
// triple (study_state, is_learning, is_relearning). Converting once at the
// boundary keeps the mutual-exclusion invariant out of every transition.
type phaseKind int

const (
	phaseNew phaseKind = iota
	phaseLearning
	phaseRelearning
	phaseReview
)

func (cs CardState) phase() phaseKind {
	switch {
	case cs.IsRelearning:
		return phaseRelearning
	case cs.IsLearning:
		return phaseLearning
	case cs.StudyState == "" || cs.StudyState == StateNew:
		return phaseNew
	default:
		return phaseReview
	}
}
