// Package control serves the agent's local control surface: status,
// the launch-at-login toggle, quit, and metrics.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/szaher/radiosnooze/internal/indicator"
	"github.com/szaher/radiosnooze/internal/radio"
)

// RadioStater reports the last commanded radio state.
type RadioStater interface {
	State() radio.State
}

// LoginItem is the launch-at-login setting.
type LoginItem interface {
	IsEnabled() (bool, error)
	Set(enabled bool) error
	Toggle() (bool, error)
}

// AutostartRequest is the PUT /v1/autostart body, also used as the
// response of both autostart routes.
type AutostartRequest struct {
	LaunchAtLogin bool `json:"launch_at_login"`
}

// Status is the /v1/status response body.
type Status struct {
	RadioState    string                 `json:"radio_state"`
	Indicator     indicator.Presentation `json:"indicator"`
	LaunchAtLogin bool                   `json:"launch_at_login"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
}

// Server is the control HTTP server.
type Server struct {
	radio     RadioStater
	indicator *indicator.Indicator
	login     LoginItem
	metrics   http.Handler
	quit      func()

	mux       *http.ServeMux
	server    *http.Server
	logger    *slog.Logger
	startTime time.Time
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics mounts a metrics handler at /metrics.
func WithMetrics(h http.Handler) ServerOption {
	return func(s *Server) { s.metrics = h }
}

// WithQuit sets the function POST /v1/quit calls.
func WithQuit(quit func()) ServerOption {
	return func(s *Server) { s.quit = quit }
}

// NewServer creates a new control server.
func NewServer(r RadioStater, ind *indicator.Indicator, login LoginItem, opts ...ServerOption) *Server {
	s := &Server{
		radio:     r,
		indicator: ind,
		login:     login,
		logger:    slog.Default(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("POST /v1/autostart/toggle", s.handleToggleAutostart)
	mux.HandleFunc("PUT /v1/autostart", s.handleSetAutostart)
	mux.HandleFunc("POST /v1/quit", s.handleQuit)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	s.mux = mux
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler for use with httptest or custom servers.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("control server listening", "addr", l.Addr().String())
	err := s.server.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	// The entry can change behind the agent's back, so the indicator's
	// check mark follows what is on disk.
	enabled, err := s.login.IsEnabled()
	if err != nil {
		s.logger.Warn("reading launch-at-login state", "error", err)
	} else {
		s.indicator.SetLaunchAtLogin(enabled)
	}
	writeJSON(w, http.StatusOK, Status{
		RadioState:    s.radio.State().String(),
		Indicator:     s.indicator.Snapshot(),
		LaunchAtLogin: enabled,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleToggleAutostart(w http.ResponseWriter, _ *http.Request) {
	enabled, err := s.login.Toggle()
	if err != nil {
		s.logger.Error("toggling launch at login", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.indicator.SetLaunchAtLogin(enabled)
	s.logger.Info("launch at login toggled", "enabled", enabled)
	writeJSON(w, http.StatusOK, AutostartRequest{LaunchAtLogin: enabled})
}

func (s *Server) handleSetAutostart(w http.ResponseWriter, r *http.Request) {
	var req AutostartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.login.Set(req.LaunchAtLogin); err != nil {
		s.logger.Error("setting launch at login", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.indicator.SetLaunchAtLogin(req.LaunchAtLogin)
	s.logger.Info("launch at login set", "enabled", req.LaunchAtLogin)
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleQuit(w http.ResponseWriter, _ *http.Request) {
	if s.quit == nil {
		writeError(w, http.StatusNotImplemented, "quit not supported")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
	s.logger.Info("quit requested")
	s.quit()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
