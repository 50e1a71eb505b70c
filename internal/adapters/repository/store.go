// Package repository defines the roster, history and share stores and their
// in-memory implementations.
package repository

import (
	"context"
	"time"

	"github.com/okian/lineup/internal/domain/balance"
	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/internal/domain/player"
)

// RosterStore keeps the players a user can pick from.
type RosterStore interface {
	// List returns every player, most recently created first.
	List(ctx context.Context) ([]player.Player, error)
	// Get returns ErrNotFound if id is unknown.
	Get(ctx context.Context, id string) (player.Player, error)
	// Create adds a new player. Returns ErrConflict if the id is taken.
	Create(ctx context.Context, p player.Player) error
	// Put creates the player or replaces the one with the same id.
	Put(ctx context.Context, p player.Player) error
	// Delete returns ErrNotFound if id is unknown.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// HistoryStore keeps saved matches.
type HistoryStore interface {
	// Save stores a new match. Returns ErrConflict if the id is taken.
	Save(ctx context.Context, m model.SavedMatch) error
	// Update replaces an existing match. Returns ErrNotFound if unknown.
	Update(ctx context.Context, m model.SavedMatch) error
	Get(ctx context.Context, id string) (model.SavedMatch, error)
	// List returns matches newest first, narrowed by f.
	List(ctx context.Context, f model.HistoryFilter) ([]model.SavedMatch, error)
	Delete(ctx context.Context, id string) error
	// DeleteBefore removes matches older than cutoff and reports how many.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
	Count(ctx context.Context) (int, error)
}

// ShareStore publishes match results under a generated id.
type ShareStore interface {
	Put(ctx context.Context, r balance.MatchResult) (string, error)
	// Get returns ErrNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (balance.MatchResult, error)
}

// Expirer is implemented by share stores that need expired entries removed
// by a background job. Stores with native expiry (redis) do not.
type Expirer interface {
	PurgeExpired(ctx context.Context) (int, error)
}
