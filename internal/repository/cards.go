package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/yourusername/flashcards-srs/internal/models"
	"github.com/yourusername/flashcards-srs/pkg/utils"
)

const cardColumns = "id, user_id, deck_id, status, front, back, tags, extra, study_state, learning_step_index, is_learning, is_relearning, due_at, last_reviewed_at, interval_days, ease, repetitions, lapses, created_at"

func (r *Postgres) CreateCard(ctx context.Context, card *models.Card) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = utils.NowUTC()
	}

	query := r.psql.Insert("cards").
		Columns("id", "user_id", "deck_id", "status", "front", "back", "tags", "extra",
			"study_state", "learning_step_index", "is_learning", "is_relearning",
			"due_at", "last_reviewed_at", "interval_days", "ease", "repetitions", "lapses", "created_at").
		Values(card.ID, card.UserID, card.DeckID, card.Status, card.Front, card.Back, card.Tags, card.Extra,
			card.StudyState, card.LearningStepIndex, card.IsLearning, card.IsRelearning,
			card.DueAt, card.LastReviewedAt, card.Interval, card.Ease, card.Repetitions, card.Lapses, card.CreatedAt)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d, deck_id: %s): %w", card.UserID, card.DeckID, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("create card (user_id: %d, deck_id: %s): %w", card.UserID, card.DeckID, err)
	}
	return nil
}

func (r *Postgres) GetCard(ctx context.Context, userID int64, cardID string) (*models.Card, error) {
	query := fmt.Sprintf(`SELECT %s FROM cards WHERE user_id = $1 AND id = $2`, cardColumns)

	var card models.Card
	err := r.GetContext(ctx, &card, query, userID, cardID)
	if err != nil {
		return nil, fmt.Errorf("get card (user_id: %d, card_id: %s): %w", userID, cardID, err)
	}

	return &card, nil
}

// DueCards returns approved cards due at or before now. A NULL due_at means
// the card was never scheduled and counts as immediately due, sorting first.
func (r *Postgres) DueCards(ctx context.Context, userID int64, deckID string, now time.Time, limit int, exclude []string) ([]*models.Card, error) {
	query := r.psql.Select(cardColumns).
		From("cards").
		Where(squirrel.Eq{"user_id": userID, "status": models.CardStatusApproved}).
		Where(squirrel.Or{
			squirrel.Eq{"due_at": nil},
			squirrel.LtOrEq{"due_at": now},
		}).
		OrderBy("due_at ASC NULLS FIRST", "created_at ASC").
		Limit(uint64(limit))

	if deckID != "" {
		query = query.Where(squirrel.Eq{"deck_id": deckID})
	}
	if len(exclude) > 0 {
		query = query.Where(squirrel.NotEq{"id": exclude})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query (user_id: %d, deck_id: %s): %w", userID, deckID, err)
	}

	var cards []*models.Card
	err = r.SelectContext(ctx, &cards, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query due cards (user_id: %d, deck_id: %s): %w", userID, deckID, err)
	}

	return cards, nil
}

// RecentCards returns cards reviewed since the cutoff, most recent first.
func (r *Postgres) RecentCards(ctx context.Context, userID int64, deckID string, since time.Time, limit int, exclude []string) ([]*models.Card, error) {
	query := r.psql.Select(cardColumns).
		From("cards").
		Where(squirrel.Eq{"user_id": userID, "status": models.CardStatusApproved}).
		Where(squirrel.GtOrEq{"last_reviewed_at": since}).
		OrderBy("last_reviewed_at DESC").
		Limit(uint64(limit))

	if deckID != "" {
		query = query.Where(squirrel.Eq{"deck_id": deckID})
	}
	if len(exclude) > 0 {
		query = query.Where(squirrel.NotEq{"id": exclude})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query (user_id: %d, deck_id: %s): %w", userID, deckID, err)
	}

	var cards []*models.Card
	err = r.SelectContext(ctx, &cards, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent cards (user_id: %d, deck_id: %s): %w", userID, deckID, err)
	}

	return cards, nil
}

// NewCards returns unreviewed cards, proposed ones included, oldest first.
func (r *Postgres) NewCards(ctx context.Context, userID int64, deckID string, limit int, exclude []string) ([]*models.Card, error) {
	query := r.psql.Select(cardColumns).
		From("cards").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.NotEq{"status": models.CardStatusArchived}).
		Where(squirrel.Eq{"last_reviewed_at": nil}).
		OrderBy("created_at ASC").
		Limit(uint64(limit))

	if deckID != "" {
		query = query.Where(squirrel.Eq{"deck_id": deckID})
	}
	if len(exclude) > 0 {
		query = query.Where(squirrel.NotEq{"id": exclude})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query (user_id: %d, deck_id: %s): %w", userID, deckID, err)
	}

	var cards []*models.Card
	err = r.SelectContext(ctx, &cards, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query new cards (user_id: %d, deck_id: %s): %w", userID, deckID, err)
	}

	return cards, nil
}

func (r *Postgres) UpdateCardSchedule(ctx context.Context, card *models.Card) error {
	query := r.psql.Update("cards").
		Set("study_state", card.StudyState).
		Set("learning_step_index", card.LearningStepIndex).
		Set("is_learning", card.IsLearning).
		Set("is_relearning", card.IsRelearning).
		Set("due_at", card.DueAt).
		Set("last_reviewed_at", card.LastReviewedAt).
		Set("interval_days", card.Interval).
		Set("ease", card.Ease).
		Set("repetitions", card.Repetitions).
		Set("lapses", card.Lapses).
		Where("user_id = ? AND id = ?", card.UserID, card.ID)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d, card_id: %s): %w", card.UserID, card.ID, err)
	}

	res, err := r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update card schedule (user_id: %d, card_id: %s): %w", card.UserID, card.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update card schedule (user_id: %d, card_id: %s): card not found", card.UserID, card.ID)
	}
	return nil
}

// PromoteCard moves a proposed card into the live scheduler.
func (r *Postgres) PromoteCard(ctx context.Context, userID int64, cardID string) error {
	query := r.psql.Update("cards").
		Set("status", models.CardStatusApproved).
		Where("user_id = ? AND id = ? AND status = ?", userID, cardID, models.CardStatusProposed)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d, card_id: %s): %w", userID, cardID, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("promote card (user_id: %d, card_id: %s): %w", userID, cardID, err)
	}
	return nil
}
