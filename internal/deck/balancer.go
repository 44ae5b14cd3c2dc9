package deck

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
)

const (
	inboxDeckName        = "Inbox"
	inboxDescription     = "Default deck for new cards."
	suggestedDescription = "Suggested deck."
)

var genericDeckNames = []string{"inbox", "new deck", "deck", "misc", "general", "other", "untitled"}

// Candidate is one newly generated card awaiting a deck assignment. The
// proposal fields come from the content suggestion collaborator and may
// name a deck that does not exist yet.
type Candidate struct {
	Front            string
	Back             string
	Tags             []string
	PageIndex        *int
	ProposedDeckID   string
	ProposedDeckName string
}

// Info is a deck snapshot with its current card count.
type Info struct {
	ID        string
	Name      string
	CardCount int
}

// Creator persists decks suggested mid-pass. Implementations must be
// read-your-writes so a deck created for one candidate is reusable by the
// next.
type Creator interface {
	FindOrCreateDeck(ctx context.Context, userID int64, name, description string) (Info, error)
}

type Balancer struct {
	creator Creator
}

func NewBalancer(creator Creator) *Balancer {
	return &Balancer{creator: creator}
}

// Assign picks a deck ID for every candidate: resolve proposals, force
// candidates sharing a source page into one deck, then rebalance so no deck
// grows past 125% of the even share.
func (b *Balancer) Assign(ctx context.Context, userID int64, candidates []Candidate, decks []Info) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	if len(decks) == 0 {
		inbox, err := b.creator.FindOrCreateDeck(ctx, userID, inboxDeckName, inboxDescription)
		if err != nil {
			return nil, fmt.Errorf("create default deck (user: %d): %w", userID, err)
		}
		assigned := make([]string, len(candidates))
		for i := range assigned {
			assigned[i] = inbox.ID
		}
		return assigned, nil
	}

	state := newPassState(decks)

	assigned, err := b.resolveProposals(ctx, userID, candidates, state)
	if err != nil {
		return nil, err
	}
	if err := b.normalizeByPage(ctx, userID, candidates, assigned, state); err != nil {
		return nil, err
	}
	return state.balance(assigned, len(candidates)), nil
}

// passState tracks the deck working set across one assignment pass,
// including decks created mid-pass.
type passState struct {
	decks  []Info
	counts map[string]int
	byID   map[string]Info
}

func newPassState(decks []Info) *passState {
	eligible := make([]Info, 0, len(decks))
	for _, d := range decks {
		if !isGenericDeckName(d.Name) {
			eligible = append(eligible, d)
		}
	}
	if len(eligible) == 0 {
		eligible = append(eligible, decks...)
	}

	s := &passState{
		counts: make(map[string]int, len(eligible)),
		byID:   make(map[string]Info, len(eligible)),
	}
	for _, d := range eligible {
		s.add(d)
	}
	return s
}

func (s *passState) add(d Info) {
	if _, ok := s.byID[d.ID]; ok {
		return
	}
	s.decks = append(s.decks, d)
	s.counts[d.ID] = d.CardCount
	s.byID[d.ID] = d
}

func (s *passState) hasNonGeneric() bool {
	for _, d := range s.decks {
		if !isGenericDeckName(d.Name) {
			return true
		}
	}
	return false
}

// smallest returns the deck with the fewest cards counting this pass's
// running additions, preferring non-generic decks, ties broken by listing
// order.
func (s *passState) smallest(distribution map[string]int) string {
	candidates := make([]Info, 0, len(s.decks))
	for _, d := range s.decks {
		if !isGenericDeckName(d.Name) {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		candidates = s.decks
	}

	smallestID := candidates[0].ID
	smallestTotal := math.MaxInt
	for _, d := range candidates {
		total := s.counts[d.ID] + distribution[d.ID]
		if total < smallestTotal {
			smallestTotal = total
			smallestID = d.ID
		}
	}
	return smallestID
}

func (b *Balancer) resolveProposals(ctx context.Context, userID int64, candidates []Candidate, state *passState) ([]string, error) {
	assigned := make([]string, len(candidates))
	for i, c := range candidates {
		id, err := b.resolveOne(ctx, userID, c, state)
		if err != nil {
			return nil, err
		}
		assigned[i] = id
	}
	return assigned, nil
}

func (b *Balancer) resolveOne(ctx context.Context, userID int64, c Candidate, state *passState) (string, error) {
	if d, ok := state.byID[c.ProposedDeckID]; ok && !isGenericDeckName(d.Name) {
		return d.ID, nil
	}

	if name := normalizeNewDeckName(c.ProposedDeckName); name != "" {
		return b.createDeck(ctx, userID, name, state)
	}

	if !state.hasNonGeneric() {
		if name := deriveDeckName(c); name != "" {
			return b.createDeck(ctx, userID, name, state)
		}
	}

	return state.smallest(nil), nil
}

func (b *Balancer) createDeck(ctx context.Context, userID int64, name string, state *passState) (string, error) {
	d, err := b.creator.FindOrCreateDeck(ctx, userID, name, suggestedDescription)
	if err != nil {
		return "", fmt.Errorf("create suggested deck %q (user: %d): %w", name, userID, err)
	}
	state.add(d)
	return d.ID, nil
}

// normalizeByPage forces every candidate group sharing a source page index
// into one deck, picked by majority vote with generic decks ignored.
// Topical cohesion beats individual balancing.
func (b *Balancer) normalizeByPage(ctx context.Context, userID int64, candidates []Candidate, assigned []string, state *passState) error {
	groups := make(map[int][]int)
	for i, c := range candidates {
		if c.PageIndex != nil {
			groups[*c.PageIndex] = append(groups[*c.PageIndex], i)
		}
	}

	for _, indexes := range groups {
		if len(indexes) < 2 {
			continue
		}

		votes := make(map[string]int)
		for _, i := range indexes {
			votes[assigned[i]]++
		}

		chosen := ""
		best := 0
		for _, i := range indexes {
			id := assigned[i]
			d, ok := state.byID[id]
			if !ok || isGenericDeckName(d.Name) {
				continue
			}
			if votes[id] > best {
				best = votes[id]
				chosen = id
			}
		}

		if chosen == "" {
			if name := deriveDeckName(candidates[indexes[0]]); name != "" {
				id, err := b.createDeck(ctx, userID, name, state)
				if err != nil {
					return err
				}
				chosen = id
			} else if state.hasNonGeneric() {
				chosen = state.smallest(nil)
			}
		}

		if chosen != "" {
			for _, i := range indexes {
				assigned[i] = chosen
			}
		}
	}
	return nil
}

// balance caps every deck at 125% of the even per-deck share and redirects
// overflow to the running smallest deck.
func (s *passState) balance(assigned []string, newTotal int) []string {
	existingTotal := 0
	for _, d := range s.decks {
		existingTotal += s.counts[d.ID]
	}
	target := int(math.Ceil(float64(existingTotal+newTotal) / float64(len(s.decks))))
	maxTotal := int(math.Ceil(float64(target) * 1.25))

	distribution := make(map[string]int, len(s.decks))
	balanced := make([]string, len(assigned))
	for i, deckID := range assigned {
		if s.counts[deckID]+distribution[deckID]+1 > maxTotal {
			deckID = s.smallest(distribution)
		}
		balanced[i] = deckID
		distribution[deckID]++
	}
	return balanced
}

var (
	separatorPattern  = regexp.MustCompile(`[_-]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

func isGenericDeckName(name string) bool {
	normalized := strings.ToLower(strings.TrimSpace(whitespacePattern.ReplaceAllString(name, " ")))
	for _, g := range genericDeckNames {
		if normalized == g {
			return true
		}
	}
	return false
}

// normalizeNewDeckName rejects empty and generic proposals, keeping the
// original casing otherwise.
func normalizeNewDeckName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || isGenericDeckName(trimmed) {
		return ""
	}
	return trimmed
}

// deriveDeckName builds a deck title from the candidate's first tag, or
// failing that from the leading words of its back text.
func deriveDeckName(c Candidate) string {
	if len(c.Tags) > 0 {
		clean := separatorPattern.ReplaceAllString(c.Tags[0], " ")
		clean = strings.TrimSpace(whitespacePattern.ReplaceAllString(clean, " "))
		if clean != "" {
			return normalizeNewDeckName(titleCase(clean))
		}
	}

	var words []string
	for _, w := range strings.Fields(strings.ToLower(c.Back)) {
		if len(w) > 2 {
			words = append(words, w)
		}
		if len(words) == 3 {
			break
		}
	}
	if len(words) == 0 {
		return ""
	}
	return normalizeNewDeckName(titleCase(strings.Join(words, " ")))
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
