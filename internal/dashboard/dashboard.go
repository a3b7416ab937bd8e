// Package dashboard exposes pipeline status and configuration over HTTP
// for the operator dashboard.
package dashboard

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matthewxmurphy/creatornewsdesk/internal/pipeline"
	"github.com/matthewxmurphy/creatornewsdesk/internal/store"
)

// Server serves the dashboard API. It reads the same flat JSON files the
// pipeline writes; there is no shared in-process state with a run.
type Server struct {
	statusPath string
	configPath string

	// runPipeline starts one pipeline run; nil disables the trigger
	// endpoint. The server guards against concurrent runs itself.
	runPipeline func()

	mu      sync.Mutex
	running bool
}

// New creates a dashboard server over the given state files.
func New(statusPath, configPath string, runPipeline func()) *Server {
	return &Server{
		statusPath:  statusPath,
		configPath:  configPath,
		runPipeline: runPipeline,
	}
}

// Routes builds the chi router for the API.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/status", s.handleStatus)
	r.Post("/api/status", s.handleStatusPush)
	r.Get("/api/config", s.handleConfig)
	r.Get("/config.json", s.handleConfig)
	r.Post("/api/save-config", s.handleSaveConfig)
	r.Post("/api/run-pipeline", s.handleRunPipeline)

	return r
}

// handleStatus returns the persisted run status, or a zero-value default
// when no run has happened yet.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status pipeline.Status
	store.Load(s.statusPath, &status)
	writeJSON(w, http.StatusOK, status)
}

// handleStatusPush accepts a status update from a running pipeline.
func (s *Server) handleStatusPush(w http.ResponseWriter, r *http.Request) {
	var status pipeline.Status
	if err := json.NewDecoder(r.Body).Decode(&status); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := store.Save(s.statusPath, status); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleConfig serves the raw configuration file, or an empty object when
// none exists yet.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	data, err := os.ReadFile(s.configPath)
	if err != nil {
		w.Write([]byte("{}"))
		return
	}
	w.Write(data)
}

// handleSaveConfig validates and writes a new configuration file. The body
// must be a JSON object; anything else is rejected before touching disk.
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var cfg map[string]any
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := store.Save(s.configPath, cfg); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// handleRunPipeline starts one background run. A second trigger while a run
// is active is refused rather than queued; the pipeline assumes a single
// writer over its state files.
func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	if s.runPipeline == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "pipeline trigger not configured"})
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"status": "already_running"})
		return
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()
		s.runPipeline()
	}()

	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("✗ Encoding response: %v", err)
	}
}
