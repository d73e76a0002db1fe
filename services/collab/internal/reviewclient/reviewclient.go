// Package reviewclient is the HTTP client for the review/history
// collaborator: the completed attempt is POSTed there when a room is
// terminated.
package reviewclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cs3219-g21/roommanager/internal/models"
)

// Client submits completed attempts to the review collaborator.
type Client struct {
	httpClient *http.Client
	url        string
}

func New(url string) *Client {
	return &Client{httpClient: &http.Client{Timeout: 10 * time.Second}, url: url}
}

// Submit POSTs the attempt. Failures are logged by the caller and never
// block the local terminate state transition.
func (c *Client) Submit(ctx context.Context, submission models.ReviewSubmission) error {
	body, err := json.Marshal(submission)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reviewclient: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("reviewclient: %s returned status %d", c.url, resp.StatusCode)
	}
	return nil
}
