// Package rpc exposes a small HTTP control surface over a running
// bootstrap.Monitor: pausing and resuming individual monitors and
// forcing a declarative-config reload, per SPEC_FULL.md §7's control
// surface. Routing uses github.com/gorilla/mux, a teacher dependency
// otherwise unused anywhere in the module (see DESIGN.md).
package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var log = zap.NewNop().Sugar()

// SetLogger installs the package-wide sugared logger.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		log = l
	}
}

// MonitorControl is the subset of bootstrap.Monitor the control surface
// depends on, kept narrow so it can be exercised with a fake in tests.
type MonitorControl interface {
	Pause(monitorName string) error
	Resume(monitorName string) error
	ReloadConfig() error
}

// Server is the HTTP control surface for a running Monitor.
type Server struct {
	monitor MonitorControl
	router  *mux.Router
}

// NewServer builds the control surface's router, wiring routes to monitor.
func NewServer(monitor MonitorControl) *Server {
	s := &Server{monitor: monitor, router: mux.NewRouter()}

	s.router.HandleFunc("/monitors/{name}/pause", s.handlePause).Methods(http.MethodPost)
	s.router.HandleFunc("/monitors/{name}/resume", s.handleResume).Methods(http.MethodPost)
	s.router.HandleFunc("/config/reload", s.handleReload).Methods(http.MethodPost)

	return s
}

// ServeHTTP lets Server be used directly as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.monitor.Pause(name); err != nil {
		log.Errorw("rpc: pause failed", "monitor", name, "error", err)
		writeJSON(w, http.StatusNotFound, statusResponse{Status: "error", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.monitor.Resume(name); err != nil {
		log.Errorw("rpc: resume failed", "monitor", name, "error", err)
		writeJSON(w, http.StatusNotFound, statusResponse{Status: "error", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "resumed"})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.monitor.ReloadConfig(); err != nil {
		log.Errorw("rpc: reload failed", "error", err)
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "reloaded"})
}

func writeJSON(w http.ResponseWriter, code int, body statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
