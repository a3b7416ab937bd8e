package publish

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookPoster announces published posts by POSTing JSON to a configured
// webhook. It is strictly best-effort; callers ignore its failures beyond
// logging.
type WebhookPoster struct {
	url        string
	httpClient *http.Client
}

// NewWebhookPoster creates a poster for url.
func NewWebhookPoster(url string) *WebhookPoster {
	return &WebhookPoster{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Post sends the announcement payload.
func (w *WebhookPoster) Post(postID int, title, excerpt string) error {
	payload, err := json.Marshal(map[string]any{
		"post_id": postID,
		"title":   title,
		"excerpt": excerpt,
	})
	if err != nil {
		return fmt.Errorf("marshaling social payload: %w", err)
	}

	resp, err := w.httpClient.Post(w.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("posting to social webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("social webhook returned %d", resp.StatusCode)
	}
	return nil
}
