// Package server provides the status HTTP server for the drawing kiosk.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mirantes/lienzo/internal/canvas"
)

// State is the kiosk snapshot reported at /api/state.
type State struct {
	Mode           string `json:"mode"`
	Color          string `json:"color"`
	Strokes        int    `json:"strokes"`
	Cursor         int    `json:"cursor"`
	Session        string `json:"session"`
	VoiceBackend   string `json:"voice_backend"`
	RobotConnected bool   `json:"robot_connected"`
	LastTranscript string `json:"last_transcript,omitempty"`
}

// StateProvider supplies the current kiosk state.
type StateProvider interface {
	State() State
}

// Speaker narrates text submitted through the API.
type Speaker interface {
	Say(text string)
}

// SessionLister lists saved drawing sessions.
type SessionLister interface {
	ListSessions() ([]canvas.SessionInfo, error)
}

// Config holds the server collaborators. Nil collaborators disable their
// endpoints.
type Config struct {
	State    StateProvider
	Voice    Speaker
	Sessions SessionLister
	Events   *EventHub
	Logger   *zap.Logger
}

// Server represents the kiosk status HTTP server.
type Server struct {
	config Config
	logger *zap.Logger
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	s := &Server{
		config: config,
		logger: config.Logger,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.State != nil {
		s.mux.HandleFunc("/api/state", s.handleState)
	}
	if s.config.Sessions != nil {
		s.mux.HandleFunc("/api/sessions", s.handleSessions)
	}
	if s.config.Voice != nil {
		s.mux.HandleFunc("/api/speak", s.handleSpeak)
	}
	if s.config.Events != nil {
		s.mux.Handle("/api/events", s.config.Events)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.config.State.State())
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions, err := s.config.Sessions.ListSessions()
	if err != nil {
		s.logger.Error("listing sessions", zap.Error(err))
		http.Error(w, "Failed to list sessions", http.StatusInternalServerError)
		return
	}

	type sessionJSON struct {
		Name      string    `json:"name"`
		Path      string    `json:"path"`
		Timestamp time.Time `json:"timestamp"`
		Autosave  bool      `json:"autosave"`
	}
	out := make([]sessionJSON, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionJSON{
			Name:      sess.Name,
			Path:      sess.Path,
			Timestamp: sess.Timestamp,
			Autosave:  sess.Autosave,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.config.Voice.Say(req.Text)
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"status": "queued"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
