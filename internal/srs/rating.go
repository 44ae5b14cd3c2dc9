package srs

// Rating is the user's assessment of recall quality for one review.
type Rating string

const (
	RatingAgain Rating = "again"
	RatingHard  Rating = "hard"
	RatingGood  Rating = "good"
	RatingEasy  Rating = "easy"
)

// IsValid reports whether r is one of the four known ratings.
func (r Rating) IsValid() bool {
	switch r {
	case RatingAgain, RatingHard, RatingGood, RatingEasy:
		return true
	}
	return false
}

// QualityFromRating maps a rating to its SM-2 quality score. Anything outside
// the known set scores as "good"; the scheduler marks that fallback in the
// result data so it stays observable.
func QualityFromRating(rating Rating) int {
	switch rating {
	case RatingAgain:
		return 0
	case RatingHard:
		return 3
	case RatingGood:
		return 4
	case RatingEasy:
		return 5
	default:
		return 4
	}
}
