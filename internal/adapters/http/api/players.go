package api

import (
	"context"
	"net/http"

	"github.com/okian/lineup/internal/domain/player"
)

// PlayerDependencies defines the roster operations the handlers need.
type PlayerDependencies interface {
	CreatePlayer(ctx context.Context, raw player.RawPlayer) (player.Player, error)
	UpdatePlayer(ctx context.Context, id string, raw player.RawPlayer) (player.Player, error)
	GetPlayer(ctx context.Context, id string) (player.Player, error)
	DeletePlayer(ctx context.Context, id string) error
	ListPlayers(ctx context.Context, query string) ([]player.Player, error)
}

// PlayersHandler handles roster requests.
type PlayersHandler struct {
	deps PlayerDependencies
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps PlayerDependencies) *PlayersHandler {
	return &PlayersHandler{deps: deps}
}

// HandleList handles GET /players[?q=name].
func (h *PlayersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	players, err := h.deps.ListPlayers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		fail(w, r, "api.list_players", err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// HandleCreate handles POST /players.
func (h *PlayersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_player"
	var raw player.RawPlayer
	if err := decode(w, r, op, &raw); err != nil {
		fail(w, r, op, err)
		return
	}
	p, err := h.deps.CreatePlayer(r.Context(), raw)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleGet handles GET /players/{id}.
func (h *PlayersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.GetPlayer(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, "api.get_player", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleUpdate handles PUT /players/{id}.
func (h *PlayersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_player"
	var raw player.RawPlayer
	if err := decode(w, r, op, &raw); err != nil {
		fail(w, r, op, err)
		return
	}
	p, err := h.deps.UpdatePlayer(r.Context(), r.PathValue("id"), raw)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleDelete handles DELETE /players/{id}.
func (h *PlayersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeletePlayer(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, "api.delete_player", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
