// Package notifyclient implements domain.Notifier: a plain net/http POST
// to the sibling service's update_user_stats endpoint. No HTTP client
// library appears anywhere in the teacher or the rest of the retrieved
// pack, so this follows that texture rather than introducing one.
package notifyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pp-server/pp-server/internal/domain"
)

const notifyTimeout = 10 * time.Second

// Client posts coalesced UpdateUserTask batches to the sibling service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// New builds a Client. baseURL is the sibling service's root, e.g.
// "http://stats-service:8081".
func New(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: notifyTimeout},
		log:        log.With().Str("component", "notifyclient").Logger(),
	}
}

// NotifyUpdateUsers POSTs the batch to api/v1/update_user_stats.
func (c *Client) NotifyUpdateUsers(ctx context.Context, tasks []domain.UpdateUserTask) error {
	body, err := json.Marshal(tasks)
	if err != nil {
		return err
	}

	url := c.baseURL + "/api/v1/update_user_stats"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("update_user_stats returned status %d", resp.StatusCode)
	}

	c.log.Debug().Int("players", len(tasks)).Msg("notified sibling service")
	return nil
}

var _ domain.Notifier = (*Client)(nil)
