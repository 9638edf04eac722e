// Package server provides the local HTTP status and control API for the
// Nightwatchman posture monitor.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/seniorcare/nightwatchman/internal/capture"
	"github.com/seniorcare/nightwatchman/internal/command"
	"github.com/seniorcare/nightwatchman/internal/engine"
	"github.com/seniorcare/nightwatchman/internal/store"
)

// Config holds the server configuration.
type Config struct {
	Engine *engine.Engine
	Store  *store.Store
	Camera capture.Camera
	Logger *zap.Logger
}

// Server represents the HTTP API of the monitor.
type Server struct {
	config Config
	mux    *http.ServeMux
	hub    *StateHub
	start  time.Time
	log    *zap.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		hub:    NewStateHub(log),
		start:  time.Now(),
		log:    log,
	}
	s.setupRoutes()
	return s
}

// Hub returns the WebSocket state hub, for the pipeline to push updates into.
func (s *Server) Hub() *StateHub {
	return s.hub
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/command", s.handleCommand)
	s.mux.Handle("/api/state", s.hub)

	if s.config.Store != nil {
		s.mux.HandleFunc("/api/events", s.handleEvents)
	}

	// Live camera view for positioning the device over the bed.
	if s.config.Camera != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Camera))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// statusResponse is the JSON shape of /api/status.
type statusResponse struct {
	SystemState        string  `json:"system_state"`
	PostureState       string  `json:"posture_state"`
	Category           string  `json:"category,omitempty"`
	AlertCount         int     `json:"alert_count"`
	AngleDeg           float64 `json:"angle_deg"`
	VerticalDiff       float64 `json:"vertical_diff"`
	MetricsReady       bool    `json:"metrics_ready"`
	PersistenceElapsed string  `json:"persistence_elapsed,omitempty"`
	CooldownRemaining  string  `json:"cooldown_remaining,omitempty"`
	BeginProgress      float64 `json:"begin_progress"`
	PauseProgress      float64 `json:"pause_progress"`
}

// handleStatus handles GET requests to /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.config.Engine.Snapshot(time.Now())
	resp := statusResponse{
		SystemState:   string(snap.SystemState),
		PostureState:  string(snap.PostureState),
		Category:      string(snap.Category),
		AlertCount:    snap.AlertCount,
		AngleDeg:      snap.Metrics.AngleDeg,
		VerticalDiff:  snap.Metrics.VerticalDiff,
		MetricsReady:  snap.MetricsReady,
		BeginProgress: snap.BeginProgress,
		PauseProgress: snap.PauseProgress,
	}
	if snap.PersistenceElapsed > 0 {
		resp.PersistenceElapsed = snap.PersistenceElapsed.String()
	}
	if snap.CooldownRemaining > 0 {
		resp.CooldownRemaining = snap.CooldownRemaining.String()
	}
	writeJSON(w, resp)
}

// commandRequest is the JSON body of POST /api/command.
type commandRequest struct {
	Command string `json:"command"`
}

// handleCommand handles POST requests to /api/command. The command is queued
// and arbitrated on the next tick, so acceptance here only means the command
// word was recognized.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := s.config.Engine.EnqueueRemote(command.Kind(req.Command), time.Now()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]any{"queued": req.Command})
}

// handleEvents handles GET requests to /api/events. The type query parameter
// selects the log: system, posture, alerts, or rejected.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			http.Error(w, "Limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		limit = n
	}

	events := s.config.Store.Events()
	var (
		payload any
		err     error
	)
	switch r.URL.Query().Get("type") {
	case "system", "":
		payload, err = events.RecentSystemTransitions(limit)
	case "posture":
		payload, err = events.RecentPostureTransitions(limit)
	case "alerts":
		payload, err = events.RecentAlerts(limit)
	case "rejected":
		payload, err = events.RecentRejectedCommands(limit)
	default:
		http.Error(w, "Unknown event type", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.log.Error("querying event log", zap.Error(err))
		http.Error(w, "Failed to query events", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"events": payload})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
