package ingestion

// CardCandidate is a drafted card produced by the ingestion service. Deck
// fields are proposals only; the deck balancer makes the final assignment.
type CardCandidate struct {
	Front       string   `json:"front"`
	Back        string   `json:"back"`
	Tags        []string `json:"tags"`
	PageIndex   *int     `json:"page_index,omitempty"`
	DeckID      string   `json:"deck_id,omitempty"`
	NewDeckName string   `json:"new_deck_name,omitempty"`
}

type generateRequest struct {
	UserID int64 `json:"user_id"`
}

type generateResponse struct {
	Cards []CardCandidate `json:"cards"`
}
