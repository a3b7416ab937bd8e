package pipeline

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/matthewxmurphy/creatornewsdesk/internal/store"
)

// Stats counts what one pipeline run did.
type Stats struct {
	Fetched   int `json:"fetched"`
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Published int `json:"published"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Status is the run state written to the status file and pushed to the
// dashboard. Timestamps are RFC 3339 strings so the file stays readable.
type Status struct {
	Running   bool   `json:"running"`
	RunID     string `json:"run_id"`
	Started   string `json:"started"`
	Completed string `json:"completed"`
	Stats     Stats  `json:"stats"`
	LastPost  string `json:"last_post"`
	LastError string `json:"last_error"`
}

// Reporter persists run status to the status file and, when a dashboard URL
// is configured, pushes it there. Both sides are best-effort: status
// reporting must never fail a run.
type Reporter struct {
	path         string
	dashboardURL string
	httpClient   *http.Client
}

// NewReporter creates a reporter. dashboardURL may be empty.
func NewReporter(path, dashboardURL string) *Reporter {
	return &Reporter{
		path:         path,
		dashboardURL: dashboardURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Report writes status to disk and pushes it to the dashboard.
func (r *Reporter) Report(status *Status) {
	if err := store.Save(r.path, status); err != nil {
		log.Printf("✗ Writing status file: %v", err)
	}
	r.push(status)
}

func (r *Reporter) push(status *Status) {
	if r.dashboardURL == "" {
		return
	}

	payload, err := json.Marshal(status)
	if err != nil {
		return
	}

	url := strings.TrimRight(r.dashboardURL, "/") + "/api/status"
	resp, err := r.httpClient.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("→ Dashboard push skipped: %v", err)
		return
	}
	resp.Body.Close()
}
