package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matthewxmurphy/creatornewsdesk/internal/pipeline"
	"github.com/matthewxmurphy/creatornewsdesk/internal/store"
)

func testServer(t *testing.T, runPipeline func()) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	s := New(filepath.Join(dir, "status.json"), filepath.Join(dir, "config.json"), runPipeline)
	return s, dir
}

func TestStatusDefaultWhenMissing(t *testing.T) {
	s, _ := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status pipeline.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if status.Running {
		t.Error("default status reports running")
	}
	if status.RunID != "" {
		t.Errorf("default RunID = %q, want empty", status.RunID)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	s, _ := testServer(t, nil)
	router := s.Routes()

	pushed := pipeline.Status{
		Running: true,
		RunID:   "run-1",
		Stats:   pipeline.Stats{Fetched: 12, Created: 3},
	}
	body, _ := json.Marshal(pushed)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", strings.NewReader(string(body))))
	if rec.Code != http.StatusOK {
		t.Fatalf("push status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var got pipeline.Status
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.RunID != "run-1" || got.Stats.Fetched != 12 || got.Stats.Created != 3 {
		t.Errorf("got %+v, want the pushed status back", got)
	}
}

func TestStatusPushRejectsGarbage(t *testing.T) {
	s, _ := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", strings.NewReader("not json")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestConfigEmptyWhenMissing(t *testing.T) {
	s, _ := testServer(t, nil)

	for _, path := range []string{"/api/config", "/config.json"} {
		rec := httptest.NewRecorder()
		s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
		if strings.TrimSpace(rec.Body.String()) != "{}" {
			t.Errorf("GET %s body = %q, want {}", path, rec.Body.String())
		}
	}
}

func TestSaveConfig(t *testing.T) {
	s, dir := testServer(t, nil)
	router := s.Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/save-config",
		strings.NewReader(`{"publish_mode":"draft","hourly_cap":4}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var saved map[string]any
	if err := store.Load(filepath.Join(dir, "config.json"), &saved); err != nil {
		t.Fatalf("loading saved config: %v", err)
	}
	if saved["publish_mode"] != "draft" {
		t.Errorf("saved publish_mode = %v, want draft", saved["publish_mode"])
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config.json", nil))
	if !strings.Contains(rec.Body.String(), "publish_mode") {
		t.Errorf("GET /config.json = %q, want saved config", rec.Body.String())
	}
}

func TestSaveConfigRejectsInvalidJSON(t *testing.T) {
	s, dir := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/save-config", strings.NewReader("{broken")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); !os.IsNotExist(err) {
		t.Error("invalid payload must not touch the config file")
	}
}

func TestRunPipelineTriggersOnce(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	runs := 0

	s, _ := testServer(t, func() {
		mu.Lock()
		runs++
		mu.Unlock()
		close(started)
		<-release
	})
	router := s.Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/run-pipeline", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first trigger = %d, want 200", rec.Code)
	}

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("pipeline run never started")
	}

	// Second trigger while the first run is still going.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/run-pipeline", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("second trigger = %d, want 409", rec.Code)
	}

	close(release)

	mu.Lock()
	defer mu.Unlock()
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}

func TestRunPipelineWithoutRunner(t *testing.T) {
	s, _ := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/run-pipeline", nil))

	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}
