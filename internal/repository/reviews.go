package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yourusername/flashcards-srs/internal/models"
	"github.com/yourusername/flashcards-srs/pkg/utils"
)

// CreateCardReview appends to the review log. Entries are immutable; there
// is deliberately no update or delete counterpart.
func (r *Postgres) CreateCardReview(ctx context.Context, review *models.CardReview) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = utils.NowUTC()
	}

	query := r.psql.Insert("card_reviews").
		Columns("id", "user_id", "card_id", "rating", "interval_days", "ease", "reviewed_at", "algorithm", "due_at", "data", "created_at").
		Values(review.ID, review.UserID, review.CardID, review.Rating, review.Interval, review.Ease, review.ReviewedAt, review.Algorithm, review.DueAt, review.Data, review.CreatedAt)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d, card_id: %s): %w", review.UserID, review.CardID, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("create card review (user_id: %d, card_id: %s): %w", review.UserID, review.CardID, err)
	}
	return nil
}

func (r *Postgres) RecentReviews(ctx context.Context, userID int64, limit int) ([]*models.CardReview, error) {
	query := `
		SELECT id, user_id, card_id, rating, interval_days, ease, reviewed_at, algorithm, due_at, data, created_at
		FROM card_reviews
		WHERE user_id = $1
		ORDER BY reviewed_at DESC
		LIMIT $2
	`

	var reviews []*models.CardReview
	err := r.SelectContext(ctx, &reviews, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent reviews (user_id: %d): %w", userID, err)
	}

	return reviews, nil
}
