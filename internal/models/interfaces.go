package models

import (
	"context"
	"time"

	"github.com/yourusername/flashcards-srs/internal/session"
	"github.com/yourusername/flashcards-srs/internal/srs"
)

type Repository interface {
	CreateDeck(ctx context.Context, deck *Deck) error
	GetDeck(ctx context.Context, userID int64, deckID string) (*Deck, error)
	ListDecks(ctx context.Context, userID int64) ([]*Deck, error)
	UpdateDeckSettings(ctx context.Context, userID int64, deckID string, settings srs.Settings) error
	FindOrCreateDeck(ctx context.Context, userID int64, name, description string) (*Deck, error)
	DeckCardCounts(ctx context.Context, userID int64) ([]DeckCount, error)
	RunInTx(ctx context.Context, fn func(Repository) error) error

	CreateCard(ctx context.Context, card *Card) error
	GetCard(ctx context.Context, userID int64, cardID string) (*Card, error)
	DueCards(ctx context.Context, userID int64, deckID string, now time.Time, limit int, exclude []string) ([]*Card, error)
	RecentCards(ctx context.Context, userID int64, deckID string, since time.Time, limit int, exclude []string) ([]*Card, error)
	NewCards(ctx context.Context, userID int64, deckID string, limit int, exclude []string) ([]*Card, error)
	UpdateCardSchedule(ctx context.Context, card *Card) error
	PromoteCard(ctx context.Context, userID int64, cardID string) error

	CreateCardReview(ctx context.Context, review *CardReview) error
	RecentReviews(ctx context.Context, userID int64, limit int) ([]*CardReview, error)
}

type Service interface {
	StartSession(ctx context.Context, userID int64, deckID string, mode session.Mode) (*session.Manager, error)
	GetCard(ctx context.Context, userID int64, cardID string) (*Card, error)
	RecordReview(ctx context.Context, userID int64, cardID string, rating srs.Rating) (*srs.Result, error)
	MarkLearned(ctx context.Context, userID int64, cardID string) error

	ListDecks(ctx context.Context, userID int64) ([]*Deck, error)
	UpdateStudySettings(ctx context.Context, userID int64, deckID string, settings srs.Settings) error
	IngestCards(ctx context.Context, userID int64) (int, error)
	RecentReviews(ctx context.Context, userID int64, limit int) ([]*CardReview, error)
}
