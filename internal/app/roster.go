package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/okian/lineup/internal/adapters/repository"
	"github.com/okian/lineup/internal/domain/player"
	"github.com/okian/lineup/pkg/logger"
	"github.com/okian/lineup/pkg/metrics"
)

// CreatePlayer normalizes raw and adds it to the roster. A missing id is
// generated; an id already on the roster is a conflict.
func (s *Service) CreatePlayer(ctx context.Context, raw player.RawPlayer) (player.Player, error) {
	if raw.ID == "" {
		raw.ID = s.newID()
	}
	p, err := player.Normalize(raw)
	if err != nil {
		return player.Player{}, err
	}

	p.CreatedAt = s.now().UTC()
	p.UpdatedAt = p.CreatedAt
	if err := s.roster.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return player.Player{}, fmt.Errorf("player %s: %w", p.ID, repository.ErrConflict)
		}
		return player.Player{}, err
	}
	s.refreshRosterGauge(ctx)
	s.log().Debug(ctx, "player created", logger.String("player_id", p.ID), logger.Float64("skill", p.Skill))
	return p, nil
}

// UpdatePlayer replaces an existing roster entry, keeping its creation time.
func (s *Service) UpdatePlayer(ctx context.Context, id string, raw player.RawPlayer) (player.Player, error) {
	if raw.ID != "" && raw.ID != id {
		return player.Player{}, fmt.Errorf("%w: body id %q does not match %q", ErrInvalidRequest, raw.ID, id)
	}
	raw.ID = id
	p, err := player.Normalize(raw)
	if err != nil {
		return player.Player{}, err
	}

	existing, err := s.roster.Get(ctx, id)
	if err != nil {
		return player.Player{}, err
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.now().UTC()
	if err := s.roster.Put(ctx, p); err != nil {
		return player.Player{}, err
	}
	return p, nil
}

// GetPlayer returns one roster entry.
func (s *Service) GetPlayer(ctx context.Context, id string) (player.Player, error) {
	return s.roster.Get(ctx, id)
}

// DeletePlayer removes a roster entry.
func (s *Service) DeletePlayer(ctx context.Context, id string) error {
	if err := s.roster.Delete(ctx, id); err != nil {
		return err
	}
	s.refreshRosterGauge(ctx)
	return nil
}

// ListPlayers returns the roster newest first. A non-empty query keeps only
// names that fuzzily match it, closest match first.
func (s *Service) ListPlayers(ctx context.Context, query string) ([]player.Player, error) {
	all, err := s.roster.List(ctx)
	if err != nil {
		return nil, err
	}
	if all == nil {
		all = []player.Player{}
	}
	if query == "" {
		return all, nil
	}

	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name
	}
	ranks := fuzzy.RankFindNormalizedFold(query, names)
	slices.SortStableFunc(ranks, func(a, b fuzzy.Rank) int {
		if a.Distance != b.Distance {
			return a.Distance - b.Distance
		}
		return a.OriginalIndex - b.OriginalIndex
	})

	out := make([]player.Player, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, all[r.OriginalIndex])
	}
	return out, nil
}

func (s *Service) refreshRosterGauge(ctx context.Context) {
	n, err := s.roster.Count(ctx)
	if err != nil {
		s.log().Warn(ctx, "roster count failed", logger.Error(err))
		return
	}
	metrics.UpdateRosterSize(n)
}
