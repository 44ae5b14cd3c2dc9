package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// Client talks to the content ingestion service, which drafts card
// candidates from the user's uploaded material. Requests are authorized via
// client credentials; the service is retryable at-least-once.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL, clientID, clientSecret, tokenURL string) *Client {
	creds := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}

	httpClient := creds.Client(context.Background())
	httpClient.Timeout = 60 * time.Second

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (c *Client) GenerateCards(ctx context.Context, userID int64) ([]CardCandidate, error) {
	url := fmt.Sprintf("%s/v1/cards/generate", c.baseURL)

	var response generateResponse
	if err := c.makeRequest(ctx, url, generateRequest{UserID: userID}, &response); err != nil {
		return nil, fmt.Errorf("generate cards (user_id: %d): %w", userID, err)
	}

	return response.Cards, nil
}

func (c *Client) makeRequest(ctx context.Context, url string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request (url: %s): %w", url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request (url: %s): %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request (url: %s): %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed (url: %s, status: %d): %s", url, resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response (url: %s): %w", url, err)
	}

	return nil
}
