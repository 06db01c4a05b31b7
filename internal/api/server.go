// Package api is the thin HTTP boundary over the run guard: a
// fire-and-forget start endpoint and a poll-friendly status endpoint.
// Authentication, upload handling and the admin UI live in front of this
// service and are out of scope here.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/KaTsUAfk/Admin-Panel/internal/config"
	"github.com/KaTsUAfk/Admin-Panel/internal/guard"
)

// Server wires the guard into HTTP handlers.
type Server struct {
	guard *guard.Guard
	log   zerolog.Logger
}

// NewServer creates the HTTP surface for the given guard.
func NewServer(g *guard.Guard, logger zerolog.Logger) *Server {
	return &Server{guard: g, log: logger}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/videos", func(r chi.Router) {
		// Pipeline starts are expensive; a stuck client retry loop must not
		// hammer the guard.
		r.With(httprate.LimitByIP(10, time.Minute)).
			Post("/process/{city}", s.handleProcess)
		r.Get("/status", s.handleStatus)
	})

	return r
}

type processResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// statusResponse mirrors the polling contract the admin UI drives its
// progress indicator with.
type statusResponse struct {
	Status      string `json:"status"`
	IsRunning   bool   `json:"isRunning"`
	Progress    int    `json:"progress"`
	CurrentStep string `json:"currentStep"`
	City        string `json:"city,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")

	err := s.guard.Start(city)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, processResponse{
			Success: true,
			Message: "video processing started",
		})
	case errors.Is(err, guard.ErrAlreadyRunning):
		writeJSON(w, http.StatusConflict, processResponse{
			Success: false,
			Message: "a pipeline run is already in progress",
		})
	case errors.Is(err, config.ErrUnknownCity):
		writeJSON(w, http.StatusNotFound, processResponse{
			Success: false,
			Message: "unknown city: " + city,
		})
	default:
		s.log.Error().Err(err).Str("city", city).Msg("start request failed")
		writeJSON(w, http.StatusInternalServerError, processResponse{
			Success: false,
			Message: "internal error",
		})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.guard.Status()

	status := "idle"
	if snap.IsRunning {
		status = "running"
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:      status,
		IsRunning:   snap.IsRunning,
		Progress:    snap.Progress,
		CurrentStep: snap.CurrentStep,
		City:        snap.City,
		Error:       snap.LastError,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
