package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/lineup/internal/domain/balance"
	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/internal/domain/player"
	"github.com/okian/lineup/pkg/logger"
	"github.com/okian/lineup/pkg/metrics"
)

// Save outcomes reported to clients.
const (
	SaveStatusAccepted  = "accepted"
	SaveStatusDuplicate = "duplicate"
)

// SaveResult acknowledges an asynchronous history save.
type SaveResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SaveMatch accepts a match for asynchronous persistence. A repeated id is
// acknowledged as a duplicate without being queued again. When the queue is
// full the id is forgotten so the client may retry.
func (s *Service) SaveMatch(ctx context.Context, m model.SavedMatch) (SaveResult, error) {
	s.mu.RLock()
	started, d, q := s.started, s.deduper, s.queue
	s.mu.RUnlock()
	if !started {
		return SaveResult{}, ErrNotStarted
	}

	if m.ID == "" {
		m.ID = s.newID()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now().UTC()
	}
	m, err := recompute(m)
	if err != nil {
		return SaveResult{}, err
	}

	if d.SeenAndRecord(ctx, m.ID) {
		metrics.RecordHistorySave(metrics.SaveDuplicate)
		return SaveResult{ID: m.ID, Status: SaveStatusDuplicate}, nil
	}
	if err := q.Enqueue(ctx, m); err != nil {
		d.Unrecord(ctx, m.ID)
		metrics.RecordHistorySave(metrics.SaveRejected)
		s.log().Warn(ctx, "history save rejected",
			logger.String("match_id", m.ID), logger.Error(err))
		return SaveResult{}, fmt.Errorf("%w: %v", ErrBackpressure, err)
	}
	metrics.RecordHistorySave(metrics.SaveEnqueued)
	return SaveResult{ID: m.ID, Status: SaveStatusAccepted}, nil
}

// UpdateMatch replaces a stored match. Team totals and the skill difference
// are recomputed from the submitted players, and an omitted timestamp keeps
// the stored one.
func (s *Service) UpdateMatch(ctx context.Context, id string, m model.SavedMatch) (model.SavedMatch, error) {
	if m.ID != "" && m.ID != id {
		return model.SavedMatch{}, fmt.Errorf("%w: body id %q does not match %q", ErrInvalidRequest, m.ID, id)
	}
	m.ID = id

	existing, err := s.history.Get(ctx, id)
	if err != nil {
		return model.SavedMatch{}, err
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = existing.Timestamp
	}
	if m, err = recompute(m); err != nil {
		return model.SavedMatch{}, err
	}
	if err := s.history.Update(ctx, m); err != nil {
		return model.SavedMatch{}, err
	}
	return m, nil
}

// GetMatch returns one stored match.
func (s *Service) GetMatch(ctx context.Context, id string) (model.SavedMatch, error) {
	return s.history.Get(ctx, id)
}

// DeleteMatch removes a stored match.
func (s *Service) DeleteMatch(ctx context.Context, id string) error {
	return s.history.Delete(ctx, id)
}

// ListHistory returns stored matches newest first. The limit defaults to,
// and is capped at, the configured maximum.
func (s *Service) ListHistory(ctx context.Context, f model.HistoryFilter) ([]model.SavedMatch, error) {
	if f.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", ErrInvalidRequest)
	}
	if f.Limit == 0 || f.Limit > s.maxHistoryLimit {
		f.Limit = s.maxHistoryLimit
	}
	return s.history.List(ctx, f)
}

// PruneHistory deletes matches older than retention and returns how many
// were removed.
func (s *Service) PruneHistory(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-retention)
	n, err := s.history.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.RecordHistoryPruned(n)
	if n > 0 {
		s.log().Info(ctx, "history pruned", logger.Int("removed", n), logger.String("cutoff", cutoff.Format(time.RFC3339)))
	}
	return n, nil
}

// recompute refreshes every player's derived fields, validates them and
// rebuilds both team summaries.
func recompute(m model.SavedMatch) (model.SavedMatch, error) {
	if m.PlayerCount() == 0 {
		return m, fmt.Errorf("%w: match has no players", ErrInvalidRequest)
	}
	r := m.MatchResult.Clone()
	for _, team := range [][]player.Player{r.TeamA.Players, r.TeamB.Players} {
		for i := range team {
			team[i].Refresh()
			if err := team[i].Validate(); err != nil {
				return m, errors.Join(ErrInvalidRequest, err)
			}
		}
	}

	nameA, nameB := r.TeamA.Name, r.TeamB.Name
	if nameA == "" {
		nameA = balance.DefaultTeamA
	}
	if nameB == "" {
		nameB = balance.DefaultTeamB
	}
	a := balance.CalculateTeamStats(nonNil(r.TeamA.Players), nameA)
	b := balance.CalculateTeamStats(nonNil(r.TeamB.Players), nameB)
	m.MatchResult = balance.MatchResult{
		TeamA:           a,
		TeamB:           b,
		SkillDifference: player.Round(math.Abs(a.TotalSkill-b.TotalSkill), 2),
	}
	return m, nil
}

func nonNil(ps []player.Player) []player.Player {
	if ps == nil {
		return []player.Player{}
	}
	return ps
}
