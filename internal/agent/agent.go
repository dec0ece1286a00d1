// Package agent exposes the sync engine over HTTP for the browser
// extension. The surface is intentionally small: configure the root,
// submit a change, read status.
package agent

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stylebridge/cssync"
)

// Server bridges HTTP requests from the extension to the sync service.
type Server struct {
	svc    *cssync.Service
	logger *slog.Logger
}

// NewServer wires a server around an existing service.
func NewServer(svc *cssync.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, logger: logger}
}

// Router builds the chi router for the agent endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP registers the agent endpoints on an existing router.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Post("/api/v1/configure", s.handleConfigure)
	r.Post("/api/v1/changes", s.handleChange)
	r.Get("/api/v1/status", s.handleStatus)
}

type configureRequest struct {
	RootPath       string            `json:"rootPath"`
	DomainMappings map[string]string `json:"domainMappings,omitempty"`
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := s.svc.Configure(cssync.Config{
		RootPath:       req.RootPath,
		DomainMappings: req.DomainMappings,
	}); err != nil {
		s.logger.Error("configure failed", "root", req.RootPath, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleChange(w http.ResponseWriter, r *http.Request) {
	var ev cssync.ChangeEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	// Apply through the serial queue so concurrent HTTP requests can never
	// interleave file writes.
	result := <-s.svc.Enqueue(ev)
	if !result.Success {
		s.logger.Warn("change rejected", "selector", ev.Selector, "error", result.Error)
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	s.logger.Info("change applied",
		"file", result.File, "selector", result.Selector, "created", result.Created)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, cssync.PatchResult{Success: false, Error: msg})
}
