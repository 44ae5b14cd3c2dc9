package srs

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Supported study directions.
const (
	DirectionFront  = "front"
	DirectionBack   = "back"
	DirectionRandom = "random"
)

// Settings are the per-deck study settings, stored as JSON on the deck row
// and consumed read-only by the scheduler and the session queue.
type Settings struct {
	Algorithm            string   `json:"algorithm" validate:"oneof=sm2 fsrs"`
	Direction            string   `json:"direction" validate:"oneof=front back random"`
	MaxReviewsPerSession int      `json:"max_reviews_per_session" validate:"min=1,max=200"`
	MaxNewPerSession     int      `json:"max_new_per_session" validate:"min=1,max=200"`
	LearningStepsEnabled bool     `json:"learning_steps_enabled"`
	LearningSteps        []string `json:"learning_steps"`
	RelearningSteps      []string `json:"relearning_steps"`
	AgainDelayCards      int      `json:"again_delay_cards" validate:"min=0,max=50"`
}

// DefaultSettings returns the settings applied to decks that have not saved
// any study settings yet.
func DefaultSettings() Settings {
	return Settings{
		Algorithm:            AlgorithmSM2,
		Direction:            DirectionFront,
		MaxReviewsPerSession: 50,
		MaxNewPerSession:     20,
		LearningStepsEnabled: false,
		LearningSteps:        []string{"1m", "10m", "1d"},
		RelearningSteps:      []string{"10m"},
		AgainDelayCards:      0,
	}
}

var settingsValidator = validator.New()

// Validate checks the settings against their constraints before they are
// persisted. Reading never validates; stored settings are merged over
// defaults instead.
func (s Settings) Validate() error {
	if err := settingsValidator.Struct(s); err != nil {
		return fmt.Errorf("validate study settings: %w", err)
	}
	return nil
}

func (s Settings) learningStepsOrDefault() []string {
	if len(s.LearningSteps) > 0 {
		return s.LearningSteps
	}
	return []string{"1m", "10m", "1d"}
}

func (s Settings) relearningStepsOrDefault() []string {
	if len(s.RelearningSteps) > 0 {
		return s.RelearningSteps
	}
	return []string{"10m"}
}

// Scan implements sql.Scanner. Stored settings are unmarshalled over the
// defaults so rows written before a settings key existed keep working.
func (s *Settings) Scan(src any) error {
	*s = DefaultSettings()

	if src == nil {
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan study settings: unsupported type %T", src)
	}

	if len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, s); err != nil {
		return fmt.Errorf("scan study settings: %w", err)
	}

	return nil
}

// Value implements driver.Valuer.
func (s Settings) Value() (driver.Value, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal study settings: %w", err)
	}
	return raw, nil
}
