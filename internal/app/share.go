package service

import (
	"context"
	"fmt"

	"github.com/okian/lineup/internal/adapters/repository"
	"github.com/okian/lineup/internal/domain/balance"
	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/pkg/logger"
	"github.com/okian/lineup/pkg/metrics"
)

// ShareMatch stores a result under a fresh public id.
func (s *Service) ShareMatch(ctx context.Context, r balance.MatchResult) (string, error) {
	m, err := recompute(model.SavedMatch{MatchResult: r})
	if err != nil {
		return "", err
	}
	id, err := s.shares.Put(ctx, m.MatchResult)
	if err != nil {
		return "", fmt.Errorf("share match: %w", err)
	}
	metrics.RecordShareCreated()
	s.log().Debug(ctx, "match shared", logger.String("share_id", id))
	return id, nil
}

// GetShare returns a shared result. Expired shares are not found.
func (s *Service) GetShare(ctx context.Context, id string) (balance.MatchResult, error) {
	return s.shares.Get(ctx, id)
}

// PurgeExpiredShares drops expired shares from stores that do not expire
// them natively.
func (s *Service) PurgeExpiredShares(ctx context.Context) (int, error) {
	e, ok := s.shares.(repository.Expirer)
	if !ok {
		return 0, nil
	}
	n, err := e.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log().Info(ctx, "expired shares purged", logger.Int("removed", n))
	}
	return n, nil
}
