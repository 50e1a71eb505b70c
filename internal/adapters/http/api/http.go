// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/lineup/pkg/logger"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PlayerDependencies
	MatchDependencies
	HistoryDependencies
	ShareDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	playersHandler *PlayersHandler
	matchesHandler *MatchesHandler
	historyHandler *HistoryHandler
	sharesHandler  *SharesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		playersHandler: NewPlayersHandler(deps),
		matchesHandler: NewMatchesHandler(deps),
		historyHandler: NewHistoryHandler(deps),
		sharesHandler:  NewSharesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /players", MetricsMiddleware(s.playersHandler.HandleList, "players"))
	mux.HandleFunc("POST /players", MetricsMiddleware(s.playersHandler.HandleCreate, "players"))
	mux.HandleFunc("GET /players/{id}", MetricsMiddleware(s.playersHandler.HandleGet, "player"))
	mux.HandleFunc("PUT /players/{id}", MetricsMiddleware(s.playersHandler.HandleUpdate, "player"))
	mux.HandleFunc("DELETE /players/{id}", MetricsMiddleware(s.playersHandler.HandleDelete, "player"))

	mux.HandleFunc("POST /matches", MetricsMiddleware(s.matchesHandler.HandleGenerate, "matches"))

	mux.HandleFunc("GET /history", MetricsMiddleware(s.historyHandler.HandleList, "history"))
	mux.HandleFunc("POST /history", MetricsMiddleware(s.historyHandler.HandleSave, "history"))
	mux.HandleFunc("GET /history/{id}", MetricsMiddleware(s.historyHandler.HandleGet, "history_entry"))
	mux.HandleFunc("PUT /history/{id}", MetricsMiddleware(s.historyHandler.HandleUpdate, "history_entry"))
	mux.HandleFunc("DELETE /history/{id}", MetricsMiddleware(s.historyHandler.HandleDelete, "history_entry"))

	mux.HandleFunc("POST /shares", MetricsMiddleware(s.sharesHandler.HandleCreate, "shares"))
	mux.HandleFunc("GET /shares/{id}", MetricsMiddleware(s.sharesHandler.HandleGet, "share"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status its kind maps to. Server-side failures
// are logged.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var opErr *OpError
	if !errors.As(err, &opErr) {
		err = Wrap(op, err)
	}
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Named("api").Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

// decode reads a single JSON value from the request body. Failures are
// bad requests attributed to op.
func decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return NewKind(op, ErrEmptyBody)
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
