// Package api exposes the ledger over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bizflow/ledger"
	"bizflow/service"
)

// Server is the HTTP API server.
type Server struct {
	ledgerSvc      service.LedgerService
	gameSvc        service.GameService
	defaults       Defaults
	metricsEnabled bool
}

// Defaults defines the board settings used when a create request omits them.
type Defaults struct {
	InitialCapital int64
	StartBonus     int64
	InterestRate   float64
}

// NewServer creates a new API server.
func NewServer(ledgerSvc service.LedgerService, gameSvc service.GameService) *Server {
	return &Server{
		ledgerSvc: ledgerSvc,
		gameSvc:   gameSvc,
		defaults: Defaults{
			InitialCapital: 15000,
			StartBonus:     2000,
			InterestRate:   0.10,
		},
	}
}

// SetDefaults overrides the game creation defaults, wired from configuration.
func (s *Server) SetDefaults(d Defaults) { s.defaults = d }

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/games", func(r chi.Router) {
		r.Post("/", s.handleCreateGame)
		r.Route("/{gameID}", func(r chi.Router) {
			r.Get("/", s.handleGetGame)
			r.Put("/settings", s.handleUpdateSettings)
			r.Get("/players", s.handleListPlayers)
			r.Get("/transactions", s.handleGameHistory)
			r.Post("/transactions", s.handleSubmitTransaction)
			r.Post("/transactions/{entryID}/undo", s.handleUndo)
			r.Route("/players/{playerID}", func(r chi.Router) {
				r.Get("/transactions", s.handlePlayerHistory)
				r.Post("/pass-start", s.handlePassStart)
			})
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeServiceError maps domain errors to HTTP statuses. Rejections are the
// caller's fault; conflicts past the retry cap ask the caller to resubmit.
func writeServiceError(w http.ResponseWriter, err error) {
	var playerNotFound *ledger.PlayerNotFoundError
	var entryNotFound *ledger.EntryNotFoundError

	switch {
	case errors.Is(err, service.ErrGameNotFound),
		errors.As(err, &playerNotFound),
		errors.As(err, &entryNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotBanker):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrStoreConflict):
		writeError(w, http.StatusConflict, "the game state changed concurrently, please retry")
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case ledger.IsRejection(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
