package srs

import (
	"slices"
	"testing"
)

func TestParseStepInterval(t *testing.T) {
	tests := []struct {
		step string
		want int
	}{
		{"1m", 1},
		{"10m", 10},
		{"10h", 600},
		{"1d", 1440},
		{"2d", 2880},
		{"10M", 10},
		{"1D", 1440},
		{" 10m ", 10},
		{"garbage", 1},
		{"", 1},
		{"m", 1},
		{"10", 1},
		{"10w", 1},
		{"-5m", 1},
	}

	for _, tt := range tests {
		if got := ParseStepInterval(tt.step); got != tt.want {
			t.Errorf("ParseStepInterval(%q) = %d, want %d", tt.step, got, tt.want)
		}
	}
}

func TestParseStepOkFlag(t *testing.T) {
	if _, ok := parseStep("10m"); !ok {
		t.Error("parseStep(10m) reported a fallback")
	}
	if minutes, ok := parseStep("bogus"); ok || minutes != 1 {
		t.Errorf("parseStep(bogus) = (%d, %v), want (1, false)", minutes, ok)
	}
}

func TestParseStepsString(t *testing.T) {
	got := ParseStepsString("1m, 10m, junk, 1d")
	want := []string{"1m", "10m", "1d"}
	if !slices.Equal(got, want) {
		t.Errorf("ParseStepsString = %v, want %v", got, want)
	}

	if got := ParseStepsString("  "); got != nil {
		t.Errorf("ParseStepsString(blank) = %v, want nil", got)
	}
}

func TestQualityFromRating(t *testing.T) {
	tests := []struct {
		rating Rating
		want   int
	}{
		{RatingAgain, 0},
		{RatingHard, 3},
		{RatingGood, 4},
		{RatingEasy, 5},
		// The default-to-good arm is silent but intentional; pin it down.
		{Rating("perfect"), 4},
		{Rating(""), 4},
	}

	for _, tt := range tests {
		if got := QualityFromRating(tt.rating); got != tt.want {
			t.Errorf("QualityFromRating(%q) = %d, want %d", tt.rating, got, tt.want)
		}
	}
}
