package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/araddon/dateparse"

	service "github.com/okian/lineup/internal/app"
	"github.com/okian/lineup/internal/domain/model"
)

// HistoryDependencies defines the match history operations.
type HistoryDependencies interface {
	SaveMatch(ctx context.Context, m model.SavedMatch) (service.SaveResult, error)
	UpdateMatch(ctx context.Context, id string, m model.SavedMatch) (model.SavedMatch, error)
	GetMatch(ctx context.Context, id string) (model.SavedMatch, error)
	DeleteMatch(ctx context.Context, id string) error
	ListHistory(ctx context.Context, f model.HistoryFilter) ([]model.SavedMatch, error)
}

// HistoryHandler handles match history requests.
type HistoryHandler struct {
	deps HistoryDependencies
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies) *HistoryHandler {
	return &HistoryHandler{deps: deps}
}

// HandleList handles GET /history[?since=&limit=]. since accepts any
// common date or time layout.
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_history"
	f, err := parseHistoryFilter(r, op)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	matches, err := h.deps.ListHistory(r.Context(), f)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func parseHistoryFilter(r *http.Request, op string) (model.HistoryFilter, error) {
	var f model.HistoryFilter
	q := r.URL.Query()
	if s := q.Get("since"); s != "" {
		t, err := dateparse.ParseAny(s)
		if err != nil {
			return f, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid since %q: %w", s, err))
		}
		f.Since = t
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return f, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid limit %q", s))
		}
		f.Limit = n
	}
	return f, nil
}

// HandleSave handles POST /history. The save is acknowledged before it is
// written: 202 when queued, 200 when the id was already accepted.
func (h *HistoryHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_match"
	var m model.SavedMatch
	if err := decode(w, r, op, &m); err != nil {
		fail(w, r, op, err)
		return
	}
	ack, err := h.deps.SaveMatch(r.Context(), m)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	status := http.StatusAccepted
	if ack.Status == service.SaveStatusDuplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, ack)
}

// HandleGet handles GET /history/{id}.
func (h *HistoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	m, err := h.deps.GetMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, "api.get_match", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleUpdate handles PUT /history/{id}.
func (h *HistoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_match"
	var m model.SavedMatch
	if err := decode(w, r, op, &m); err != nil {
		fail(w, r, op, err)
		return
	}
	updated, err := h.deps.UpdateMatch(r.Context(), r.PathValue("id"), m)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleDelete handles DELETE /history/{id}.
func (h *HistoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteMatch(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, "api.delete_match", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
