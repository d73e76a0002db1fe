// Package questionclient is the HTTP client for the question-bank
// collaborator: GET {pool_url}/{category}/{difficulty}/ returns the
// question assigned to a room on first connect.
package questionclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cs3219-g21/roommanager/internal/models"
)

// Client fetches a question from the question-bank pool endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func New(baseURL string) *Client {
	return &Client{httpClient: &http.Client{Timeout: 10 * time.Second}, baseURL: baseURL}
}

// Fetch performs GET {baseURL}/{category}/{difficulty}/ and decodes the
// question payload. A non-2xx response or unreachable collaborator is an
// upstream error at this layer; the caller maps it to a client error so
// the UI can retry.
func (c *Client) Fetch(ctx context.Context, category, difficulty string) (models.Question, error) {
	url := fmt.Sprintf("%s/%s/%s/", c.baseURL, category, difficulty)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Question{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Question{}, fmt.Errorf("questionclient: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return models.Question{}, fmt.Errorf("questionclient: %s returned status %d", url, resp.StatusCode)
	}
	var q models.Question
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return models.Question{}, fmt.Errorf("questionclient: decode failed: %w", err)
	}
	return q, nil
}
