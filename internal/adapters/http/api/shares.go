package api

import (
	"context"
	"net/http"

	"github.com/okian/lineup/internal/domain/balance"
)

// ShareDependencies defines the match sharing operations.
type ShareDependencies interface {
	ShareMatch(ctx context.Context, r balance.MatchResult) (string, error)
	GetShare(ctx context.Context, id string) (balance.MatchResult, error)
}

// SharesHandler handles shared match requests.
type SharesHandler struct {
	deps ShareDependencies
}

// NewSharesHandler creates a new shares handler.
func NewSharesHandler(deps ShareDependencies) *SharesHandler {
	return &SharesHandler{deps: deps}
}

type shareResponse struct {
	ID string `json:"id"`
}

// HandleCreate handles POST /shares.
func (h *SharesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.share_match"
	var res balance.MatchResult
	if err := decode(w, r, op, &res); err != nil {
		fail(w, r, op, err)
		return
	}
	id, err := h.deps.ShareMatch(r.Context(), res)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, shareResponse{ID: id})
}

// HandleGet handles GET /shares/{id}.
func (h *SharesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.GetShare(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, "api.get_share", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
