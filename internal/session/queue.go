package session

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/yourusername/flashcards-srs/internal/srs"
)

type Mode string

const (
	ModeDue   Mode = "due"
	ModeRecap Mode = "recap"
	ModeLearn Mode = "learn"
)

// Entry is one queued card. Reversed is fixed at enqueue time and never
// re-rolled on display.
type Entry struct {
	CardID   string
	Reversed bool
}

// CardSource provides card IDs for queue composition, already ordered the
// way each mode expects them.
type CardSource interface {
	DueCardIDs(ctx context.Context, userID int64, deckID string, limit int, exclude []string) ([]string, error)
	RecentCardIDs(ctx context.Context, userID int64, deckID string, limit int, exclude []string) ([]string, error)
	NewCardIDs(ctx context.Context, userID int64, deckID string, limit int, exclude []string) ([]string, error)
}

// Manager owns the ordered queue of one study session. It is single-writer
// and holds no persistent state; requeue decisions never touch due dates.
type Manager struct {
	source   CardSource
	settings srs.Settings
	userID   int64
	deckID   string
	mode     Mode

	queue   []Entry
	seen    map[string]bool
	repeats map[string]map[srs.Rating]int
	rng     *rand.Rand
}

func NewManager(source CardSource, settings srs.Settings, userID int64, deckID string, mode Mode) *Manager {
	return &Manager{
		source:   source,
		settings: settings,
		userID:   userID,
		deckID:   deckID,
		mode:     mode,
		seen:     make(map[string]bool),
		repeats:  make(map[string]map[srs.Rating]int),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Build fills the queue from scratch according to the session mode.
func (m *Manager) Build(ctx context.Context) error {
	m.queue = m.queue[:0]
	clear(m.seen)
	_, err := m.fill(ctx)
	return err
}

// Extend appends more cards, skipping everything already enqueued this
// session. Returns the number of cards added.
func (m *Manager) Extend(ctx context.Context) (int, error) {
	return m.fill(ctx)
}

func (m *Manager) fill(ctx context.Context) (int, error) {
	limit := m.settings.MaxReviewsPerSession
	exclude := make([]string, 0, len(m.seen))
	for id := range m.seen {
		exclude = append(exclude, id)
	}

	var (
		ids []string
		err error
	)
	switch m.mode {
	case ModeRecap:
		ids, err = m.source.RecentCardIDs(ctx, m.userID, m.deckID, limit, exclude)
	case ModeLearn:
		limit = m.settings.MaxNewPerSession
		ids, err = m.source.NewCardIDs(ctx, m.userID, m.deckID, limit, exclude)
	default:
		ids, err = m.source.DueCardIDs(ctx, m.userID, m.deckID, limit, exclude)
	}
	if err != nil {
		return 0, fmt.Errorf("load %s cards (deck: %s): %w", m.mode, m.deckID, err)
	}

	added := 0
	for _, id := range ids {
		if m.seen[id] {
			continue
		}
		m.seen[id] = true
		m.queue = append(m.queue, Entry{CardID: id, Reversed: m.reversed()})
		added++
	}
	return added, nil
}

func (m *Manager) reversed() bool {
	switch m.settings.Direction {
	case srs.DirectionBack:
		return true
	case srs.DirectionRandom:
		return m.rng.Intn(2) == 1
	default:
		return false
	}
}

// Current returns the front entry without removing it.
func (m *Manager) Current() (Entry, bool) {
	if len(m.queue) == 0 {
		return Entry{}, false
	}
	return m.queue[0], true
}

// Advance drops the front entry without requeueing it.
func (m *Manager) Advance() {
	if len(m.queue) > 0 {
		m.queue = m.queue[1:]
	}
}

func (m *Manager) Len() int {
	return len(m.queue)
}

func (m *Manager) Remaining() []Entry {
	out := make([]Entry, len(m.queue))
	copy(out, m.queue)
	return out
}

// OnRated drops the just-rated card from the queue front and, depending on
// the rating and the scheduling result, splices it back in further down.
// The per-card-per-rating repeat counter only grows when a card is actually
// requeued, and only after its position was computed from the old count.
func (m *Manager) OnRated(cardID string, rating srs.Rating, result srs.Result) {
	var entry Entry
	if front, ok := m.Current(); ok && front.CardID == cardID {
		entry = front
		m.queue = m.queue[1:]
	} else {
		entry = Entry{CardID: cardID}
	}

	if !m.shouldRequeue(rating, result) {
		return
	}

	pos := m.requeuePosition(cardID, rating, result)
	if pos > len(m.queue) {
		pos = len(m.queue)
	}
	m.queue = append(m.queue, Entry{})
	copy(m.queue[pos+1:], m.queue[pos:])
	m.queue[pos] = entry

	m.bumpRepeat(cardID, rating)
}

func (m *Manager) shouldRequeue(rating srs.Rating, result srs.Result) bool {
	if rating == srs.RatingEasy {
		return false
	}
	if !m.settings.LearningStepsEnabled {
		return rating == srs.RatingAgain || rating == srs.RatingHard || rating == srs.RatingGood
	}
	if rating == srs.RatingAgain {
		return true
	}
	return result.IsLearning || result.IsRelearning
}

func (m *Manager) requeuePosition(cardID string, rating srs.Rating, result srs.Result) int {
	// With steps enabled the configured delay alone places an again card; a
	// zero delay puts it right back at the front of the queue.
	if m.settings.LearningStepsEnabled && rating == srs.RatingAgain {
		return m.settings.AgainDelayCards
	}
	return spacingPosition(rating, result, m.repeatCount(cardID, rating))
}

func (m *Manager) repeatCount(cardID string, rating srs.Rating) int {
	return m.repeats[cardID][rating]
}

func (m *Manager) bumpRepeat(cardID string, rating srs.Rating) {
	if m.repeats[cardID] == nil {
		m.repeats[cardID] = make(map[srs.Rating]int)
	}
	m.repeats[cardID][rating]++
}
