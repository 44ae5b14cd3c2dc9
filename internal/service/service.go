package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/flashcards-srs/internal/deck"
	"github.com/yourusername/flashcards-srs/internal/models"
	"github.com/yourusername/flashcards-srs/internal/session"
	"github.com/yourusername/flashcards-srs/internal/srs"
	"github.com/yourusername/flashcards-srs/pkg/ingestion"
	"github.com/yourusername/flashcards-srs/pkg/utils"
	"go.uber.org/zap"
)

const recapWindow = 7 * 24 * time.Hour

// Ingester is the content ingestion collaborator. It drafts card candidates
// from the user's source material; it never touches scheduling state.
type Ingester interface {
	GenerateCards(ctx context.Context, userID int64) ([]ingestion.CardCandidate, error)
}

type Service struct {
	repo      models.Repository
	ingest    Ingester
	scheduler *srs.Scheduler
	now       func() time.Time
}

func NewService(repo models.Repository, ingest Ingester) *Service {
	return &Service{
		repo:      repo,
		ingest:    ingest,
		scheduler: srs.NewScheduler(),
		now:       time.Now,
	}
}

/// cardSource adapts the repository to the session queue's view: ordered ID
// lists per mode.
type cardSource struct {
	repo models.Repository
	now  func() time.Time
}

func (c cardSource) DueCardIDs(ctx context.Context, userID int64, deckID string, limit int, exclude []string) ([]string, error) {
	// Comparing due_at against a minute-truncated now keeps the due set stable
	// across repeated queries within the same minute.
	cards, err := c.repo.DueCards(ctx, userID, deckID, utils.TruncateToMinutes(c.now()), limit, exclude)
	if err != nil {
		return nil, err
	}
	return cardIDs(cards), nil
}

func (c cardSource) RecentCardIDs(ctx context.Context, userID int64, deckID string, limit int, exclude []string) ([]string, error) {
	cards, err := c.repo.RecentCards(ctx, userID, deckID, c.now().Add(-recapWindow), limit, exclude)
	if err != nil {
		return nil, err
	}
	return cardIDs(cards), nil
}

func (c cardSource) NewCardIDs(ctx context.Context, userID int64, deckID string, limit int, exclude []string) ([]string, error) {
	cards, err := c.repo.NewCards(ctx, userID, deckID, limit, exclude)
	if err != nil {
		return nil, err
	}
	return cardIDs(cards), nil
}

func cardIDs(cards []*models.Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

func (s *Service) StartSession(ctx context.Context, userID int64, deckID string, mode session.Mode) (*session.Manager, error) {
	settings, err := s.deckSettings(ctx, userID, deckID)
	if err != nil {
		return nil, err
	}

	mgr := session.NewManager(cardSource{repo: s.repo, now: s.now}, settings, userID, deckID, mode)
	if err := mgr.Build(ctx); err != nil {
		return nil, fmt.Errorf("build %s session (user_id: %d, deck_id: %s): %w", mode, userID, deckID, err)
	}
	return mgr, nil
}

func (s *Service) deckSettings(ctx context.Context, userID int64, deckID string) (srs.Settings, error) {
	if deckID == "" {
		return srs.DefaultSettings(), nil
	}
	d, err := s.repo.GetDeck(ctx, userID, deckID)
	if err != nil {
		return srs.Settings{}, fmt.Errorf("load deck settings (user_id: %d, deck_id: %s): %w", userID, deckID, err)
	}
	return d.StudySettings, nil
}

func (s *Service) GetCard(ctx context.Context, userID int64, cardID string) (*models.Card, error) {
	return s.repo.GetCard(ctx, userID, cardID)
}

// RecordReview computes the card's next schedule and persists the new card
// state together with its review-log entry in one transaction.
func (s *Service) RecordReview(ctx context.Context, userID int64, cardID string, rating srs.Rating) (*srs.Result, error) {
	card, err := s.repo.GetCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}

	settings, err := s.deckSettings(ctx, userID, card.DeckID)
	if err != nil {
		return nil, err
	}

	result := s.scheduler.ScheduleReview(card.SchedulingState(), rating, settings, s.now())

	if err := s.persistReview(ctx, card, rating, result, false); err != nil {
		return nil, err
	}
	return &result, nil
}

// MarkLearned records a first Good review for a card in the learn flow and
// promotes it out of the proposed state in the same transaction.
func (s *Service) MarkLearned(ctx context.Context, userID int64, cardID string) error {
	card, err := s.repo.GetCard(ctx, userID, cardID)
	if err != nil {
		return err
	}

	settings, err := s.deckSettings(ctx, userID, card.DeckID)
	if err != nil {
		return err
	}

	result := s.scheduler.ScheduleReview(card.SchedulingState(), srs.RatingGood, settings, s.now())

	promote := card.Status == models.CardStatusProposed
	return s.persistReview(ctx, card, srs.RatingGood, result, promote)
}

func (s *Service) persistReview(ctx context.Context, card *models.Card, rating srs.Rating, result srs.Result, promote bool) error {
	card.ApplyResult(result)

	review := &models.CardReview{
		UserID:     card.UserID,
		CardID:     card.ID,
		Rating:     string(rating),
		Interval:   result.Interval,
		Ease:       result.Ease,
		ReviewedAt: result.ReviewedAt,
		Algorithm:  result.Algorithm,
		DueAt:      result.DueAt,
		Data:       models.JSONMap(result.Data),
	}

	err := s.repo.RunInTx(ctx, func(tx models.Repository) error {
		if err := tx.UpdateCardSchedule(ctx, card); err != nil {
			return err
		}
		if err := tx.CreateCardReview(ctx, review); err != nil {
			return err
		}
		if promote {
			return tx.PromoteCard(ctx, card.UserID, card.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist review (user_id: %d, card_id: %s, rating: %s): %w", card.UserID, card.ID, rating, err)
	}

	if promote {
		card.Status = models.CardStatusApproved
	}
	return nil
}

func (s *Service) ListDecks(ctx context.Context, userID int64) ([]*models.Deck, error) {
	return s.repo.ListDecks(ctx, userID)
}

func (s *Service) RecentReviews(ctx context.Context, userID int64, limit int) ([]*models.CardReview, error) {
	return s.repo.RecentReviews(ctx, userID, limit)
}

func (s *Service) UpdateStudySettings(ctx context.Context, userID int64, deckID string, settings srs.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("validate study settings (user_id: %d, deck_id: %s): %w", userID, deckID, err)
	}
	return s.repo.UpdateDeckSettings(ctx, userID, deckID, settings)
}

// deckCreator exposes transactional deck creation to the balancer so a deck
// created for one candidate is visible to the rest of the same pass.
type deckCreator struct {
	repo models.Repository
}

func (d deckCreator) FindOrCreateDeck(ctx context.Context, userID int64, name, description string) (deck.Info, error) {
	created, err := d.repo.FindOrCreateDeck(ctx, userID, name, description)
	if err != nil {
		return deck.Info{}, err
	}
	return deck.Info{ID: created.ID, Name: created.Name}, nil
}

// IngestCards pulls drafted candidates from the ingestion collaborator,
// balances them across decks and stores them as proposed cards. Ingestion is
// at-least-once; duplicate batches produce duplicate proposals that the user
// curates away.
func (s *Service) IngestCards(ctx context.Context, userID int64) (int, error) {
	candidates, err := s.ingest.GenerateCards(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("generate cards (user_id: %d): %w", userID, err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	err = s.repo.RunInTx(ctx, func(tx models.Repository) error {
		decks, err := tx.ListDecks(ctx, userID)
		if err != nil {
			return err
		}
		counts, err := tx.DeckCardCounts(ctx, userID)
		if err != nil {
			return err
		}

		assigned, err := deck.NewBalancer(deckCreator{repo: tx}).
			Assign(ctx, userID, balancerCandidates(candidates), deckInfos(decks, counts))
		if err != nil {
			return err
		}

		for i, c := range candidates {
			card := &models.Card{
				UserID: userID,
				DeckID: assigned[i],
				Status: models.CardStatusProposed,
				Front:  c.Front,
				Back:   c.Back,
				Tags:   c.Tags,
				Extra:  candidateExtra(c),
				Ease:   0,
			}
			if err := tx.CreateCard(ctx, card); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store ingested cards (user_id: %d, count: %d): %w", userID, len(candidates), err)
	}

	zap.S().Infow("ingested card candidates", "user_id", userID, "count", len(candidates))
	return len(candidates), nil
}

func balancerCandidates(candidates []ingestion.CardCandidate) []deck.Candidate {
	out := make([]deck.Candidate, len(candidates))
	for i, c := range candidates {
		out[i] = deck.Candidate{
			Front:            c.Front,
			Back:             c.Back,
			Tags:             c.Tags,
			PageIndex:        c.PageIndex,
			ProposedDeckID:   c.DeckID,
			ProposedDeckName: c.NewDeckName,
		}
	}
	return out
}

func deckInfos(decks []*models.Deck, counts []models.DeckCount) []deck.Info {
	byDeck := make(map[string]int, len(counts))
	for _, c := range counts {
		byDeck[c.DeckID] = c.CardCount
	}

	infos := make([]deck.Info, len(decks))
	for i, d := range decks {
		infos[i] = deck.Info{ID: d.ID, Name: d.Name, CardCount: byDeck[d.ID]}
	}
	return infos
}

func candidateExtra(c ingestion.CardCandidate) models.JSONMap {
	if c.PageIndex == nil {
		return nil
	}
	return models.JSONMap{"page_index": *c.PageIndex}
}
