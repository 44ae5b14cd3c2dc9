package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yourusername/flashcards-srs/internal/models"
	"github.com/yourusername/flashcards-srs/internal/srs"
	"github.com/yourusername/flashcards-srs/pkg/utils"
)

func (r *Postgres) CreateDeck(ctx context.Context, deck *models.Deck) error {
	if deck.ID == "" {
		deck.ID = uuid.NewString()
	}
	if deck.CreatedAt.IsZero() {
		deck.CreatedAt = utils.NowUTC()
	}

	query := r.psql.Insert("decks").
		Columns("id", "user_id", "parent_id", "name", "description", "study_settings", "created_at").
		Values(deck.ID, deck.UserID, deck.ParentID, deck.Name, deck.Description, deck.StudySettings, deck.CreatedAt)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d, name: %s): %w", deck.UserID, deck.Name, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("create deck (user_id: %d, name: %s): %w", deck.UserID, deck.Name, err)
	}
	return nil
}

func (r *Postgres) GetDeck(ctx context.Context, userID int64, deckID string) (*models.Deck, error) {
	query := `
		SELECT id, user_id, parent_id, name, description, study_settings, created_at
		FROM decks
		WHERE user_id = $1 AND id = $2
	`

	var deck models.Deck
	err := r.GetContext(ctx, &deck, query, userID, deckID)
	if err != nil {
		return nil, fmt.Errorf("get deck (user_id: %d, deck_id: %s): %w", userID, deckID, err)
	}

	return &deck, nil
}

func (r *Postgres) ListDecks(ctx context.Context, userID int64) ([]*models.Deck, error) {
	query := `
		SELECT id, user_id, parent_id, name, description, study_settings, created_at
		FROM decks
		WHERE user_id = $1
		ORDER BY name ASC
	`

	var decks []*models.Deck
	err := r.SelectContext(ctx, &decks, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list decks (user_id: %d): %w", userID, err)
	}

	return decks, nil
}

func (r *Postgres) UpdateDeckSettings(ctx context.Context, userID int64, deckID string, settings srs.Settings) error {
	query := r.psql.Update("decks").
		Set("study_settings", settings).
		Where("user_id = ? AND id = ?", userID, deckID)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d, deck_id: %s): %w", userID, deckID, err)
	}

	res, err := r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update deck settings (user_id: %d, deck_id: %s): %w", userID, deckID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update deck settings (user_id: %d, deck_id: %s): deck not found", userID, deckID)
	}
	return nil
}

// FindOrCreateDeck looks a deck up by name and creates it when missing.
// Inside a transaction the created deck is visible to subsequent calls.
func (r *Postgres) FindOrCreateDeck(ctx context.Context, userID int64, name, description string) (*models.Deck, error) {
	query := `
		SELECT id, user_id, parent_id, name, description, study_settings, created_at
		FROM decks
		WHERE user_id = $1 AND parent_id IS NULL AND name = $2
	`

	var deck models.Deck
	err := r.GetContext(ctx, &deck, query, userID, name)
	if err == nil {
		return &deck, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find deck (user_id: %d, name: %s): %w", userID, name, err)
	}

	deck = models.Deck{
		UserID:        userID,
		Name:          name,
		Description:   description,
		StudySettings: srs.DefaultSettings(),
	}
	if err := r.CreateDeck(ctx, &deck); err != nil {
		return nil, err
	}
	return &deck, nil
}

func (r *Postgres) DeckCardCounts(ctx context.Context, userID int64) ([]models.DeckCount, error) {
	query := `
		SELECT deck_id, COUNT(*) AS card_count
		FROM cards
		WHERE user_id = $1
		GROUP BY deck_id
	`

	var counts []models.DeckCount
	err := r.SelectContext(ctx, &counts, query, userID)
	if err != nil {
		return nil, fmt.Errorf("count cards per deck (user_id: %d): %w", userID, err)
	}

	return counts, nil
}
