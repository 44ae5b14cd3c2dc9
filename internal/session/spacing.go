package session

import (
	"math"

	"github.com/yourusername/flashcards-srs/internal/srs"
)

// spacingPosition computes how many cards ahead a requeued card should be
// inserted. Low ease pulls the card closer; repeated same-rating showings
// within one session push it further out.
func spacingPosition(rating srs.Rating, result srs.Result, repeatCount int) int {
	base := baseSpacing(rating)
	if minutes, ok := result.Data.IntervalMinutes(); ok && minutes > 0 && minutes < 60 {
		base = tightSpacing(rating)
	}

	difficultyFactor := math.Max(0.8, 1+math.Max(0, 2.5-result.Ease))
	repeatFactor := 1 + 0.4*float64(repeatCount)

	pos := int(math.Round(float64(base) * repeatFactor / difficultyFactor))
	if pos < 1 {
		pos = 1
	}
	return pos
}

func baseSpacing(rating srs.Rating) int {
	switch rating {
	case srs.RatingAgain:
		return 1
	case srs.RatingHard:
		return 4
	case srs.RatingGood:
		return 7
	default:
		return 10
	}
}

// tightSpacing applies when the card's next step is due within the hour.
func tightSpacing(rating srs.Rating) int {
	switch rating {
	case srs.RatingAgain:
		return 1
	case srs.RatingHard:
		return 2
	case srs.RatingGood:
		return 4
	default:
		return 7
	}
}
