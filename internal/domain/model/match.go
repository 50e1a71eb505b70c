// Package model contains records passed between the service layers.
package model

import (
	"time"

	"github.com/okian/lineup/internal/domain/balance"
)

// SavedMatch is a balancing result kept in the match history. The id and
// timestamp belong to the caller; the engine never generates them.
type SavedMatch struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	balance.MatchResult
}

// PlayerCount returns how many players took part in the match.
func (m SavedMatch) PlayerCount() int {
	return len(m.TeamA.Players) + len(m.TeamB.Players)
}

// HistoryFilter narrows a history listing. Zero values mean no bound.
type HistoryFilter struct {
	Since time.Time
	Limit int
}
