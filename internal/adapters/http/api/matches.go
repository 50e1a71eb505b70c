package api

import (
	"context"
	"net/http"

	service "github.com/okian/lineup/internal/app"
	"github.com/okian/lineup/internal/domain/balance"
)

// MatchDependencies defines the balancing operation.
type MatchDependencies interface {
	GenerateMatch(ctx context.Context, req service.MatchRequest) (balance.MatchResult, error)
}

// MatchesHandler handles match generation requests.
type MatchesHandler struct {
	deps MatchDependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// HandleGenerate handles POST /matches.
func (h *MatchesHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	const op = "api.generate_match"
	var req service.MatchRequest
	if err := decode(w, r, op, &req); err != nil {
		fail(w, r, op, err)
		return
	}
	res, err := h.deps.GenerateMatch(r.Context(), req)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
