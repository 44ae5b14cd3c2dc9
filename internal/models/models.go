package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/flashcards-srs/internal/srs"
)

type CardStatus string

const (
	CardStatusProposed CardStatus = "proposed"
	CardStatusApproved CardStatus = "approved"
	CardStatusArchived CardStatus = "archived"
)

type Card struct {
	ID                string     `db:"id"`
	UserID            int64      `db:"user_id"`
	DeckID            string     `db:"deck_id"`
	Status            CardStatus `db:"status"`
	Front             string     `db:"front"`
	Back              string     `db:"back"`
	Tags              StringList `db:"tags"`
	Extra             JSONMap    `db:"extra"`
	StudyState        *string    `db:"study_state"`
	LearningStepIndex *int       `db:"learning_step_index"`
	IsLearning        bool       `db:"is_learning"`
	IsRelearning      bool       `db:"is_relearning"`
	DueAt             *time.Time `db:"due_at"`
	LastReviewedAt    *time.Time `db:"last_reviewed_at"`
	Interval          int        `db:"interval_days"`
	Ease              float64    `db:"ease"`
	Repetitions       int        `db:"repetitions"`
	Lapses            int        `db:"lapses"`
	CreatedAt         time.Time  `db:"created_at"`
}

// SchedulingState extracts the scheduler's view of the card.
func (c *Card) SchedulingState() srs.CardState {
	state := srs.CardState{
		IsLearning:   c.IsLearning,
		IsRelearning: c.IsRelearning,
		StepIndex:    c.LearningStepIndex,
		DueAt:        c.DueAt,
		Interval:     c.Interval,
		Ease:         c.Ease,
		Repetitions:  c.Repetitions,
		Lapses:       c.Lapses,
	}
	if c.StudyState != nil {
		state.StudyState = *c.StudyState
	}
	return state
}

// ApplyResult writes a scheduling result back onto the card fields.
func (c *Card) ApplyResult(result srs.Result) {
	studyState := result.StudyState
	c.StudyState = &studyState
	c.LearningStepIndex = result.StepIndex
	c.IsLearning = result.IsLearning
	c.IsRelearning = result.IsRelearning
	dueAt := result.DueAt
	c.DueAt = &dueAt
	reviewedAt := result.ReviewedAt
	c.LastReviewedAt = &reviewedAt
	c.Interval = result.Interval
	c.Ease = result.Ease
	c.Repetitions = result.Repetitions
	c.Lapses = result.Lapses
}

type Deck struct {
	ID            string       `db:"id"`
	UserID        int64        `db:"user_id"`
	ParentID      *string      `db:"parent_id"`
	Name          string       `db:"name"`
	Description   string       `db:"description"`
	StudySettings srs.Settings `db:"study_settings"`
	CreatedAt     time.Time    `db:"created_at"`
}

type DeckCount struct {
	DeckID    string `db:"deck_id"`
	CardCount int    `db:"card_count"`
}

type CardReview struct {
	ID         string    `db:"id"`
	UserID     int64     `db:"user_id"`
	CardID     string    `db:"card_id"`
	Rating     string    `db:"rating"`
	Interval   int       `db:"interval_days"`
	Ease       float64   `db:"ease"`
	ReviewedAt time.Time `db:"reviewed_at"`
	Algorithm  string    `db:"algorithm"`
	DueAt      time.Time `db:"due_at"`
	Data       JSONMap   `db:"data"`
	CreatedAt  time.Time `db:"created_at"`
}

// JSONMap stores an arbitrary object in a jsonb column.
type JSONMap map[string]any

func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("scan json map: unexpected type %T", src)
	}
	return json.Unmarshal(raw, m)
}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// StringList stores a list of strings in a jsonb column.
type StringList []string

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("scan string list: unexpected type %T", src)
	}
	return json.Unmarshal(raw, l)
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}
