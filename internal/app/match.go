package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/lineup/internal/domain/balance"
	"github.com/okian/lineup/internal/domain/player"
	"github.com/okian/lineup/pkg/logger"
	"github.com/okian/lineup/pkg/metrics"
)

// MatchRequest selects the pool for one balancing run. Roster players are
// named by id; guests are passed inline and never stored.
type MatchRequest struct {
	PlayerIDs  []string           `json:"player_ids,omitempty"`
	Players    []player.RawPlayer `json:"players,omitempty"`
	UseStamina bool               `json:"use_stamina"`
	TeamAName  string             `json:"team_a_name,omitempty"`
	TeamBName  string             `json:"team_b_name,omitempty"`
}

// GenerateMatch resolves the requested pool and splits it into two teams.
func (s *Service) GenerateMatch(ctx context.Context, req MatchRequest) (balance.MatchResult, error) {
	pool, err := s.resolvePool(ctx, req)
	if err != nil {
		return balance.MatchResult{}, err
	}
	if len(pool) < s.minPlayers {
		return balance.MatchResult{}, fmt.Errorf("%w: need at least %d players, got %d",
			ErrInvalidRequest, s.minPlayers, len(pool))
	}

	teamA, teamB := s.teamA, s.teamB
	if req.TeamAName != "" {
		teamA = req.TeamAName
	}
	if req.TeamBName != "" {
		teamB = req.TeamBName
	}

	start := time.Now()
	result := balance.Generate(pool, req.UseStamina, balance.WithTeamNames(teamA, teamB))
	latency := time.Since(start)

	metrics.RecordMatchGenerated(req.UseStamina, len(pool), result.SkillDifference,
		float64(latency.Microseconds())/1000)
	s.log().Debug(ctx, "match generated",
		logger.Int("players", len(pool)),
		logger.Bool("use_stamina", req.UseStamina),
		logger.Float64("skill_difference", result.SkillDifference),
		logger.Duration("latency", latency),
	)
	return result, nil
}

// resolvePool looks up roster ids in request order, then appends guests.
// A player may appear only once.
func (s *Service) resolvePool(ctx context.Context, req MatchRequest) ([]player.Player, error) {
	pool := make([]player.Player, 0, len(req.PlayerIDs)+len(req.Players))
	seen := make(map[string]struct{}, cap(pool))

	add := func(p player.Player) error {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: player %q listed twice", ErrInvalidRequest, p.ID)
		}
		seen[p.ID] = struct{}{}
		pool = append(pool, p)
		return nil
	}

	for _, id := range req.PlayerIDs {
		p, err := s.roster.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("player %s: %w", id, err)
		}
		if err := add(p); err != nil {
			return nil, err
		}
	}
	for _, raw := range req.Players {
		if raw.ID == "" {
			raw.ID = s.newID()
		}
		p, err := player.Normalize(raw)
		if err != nil {
			return nil, err
		}
		if err := add(p); err != nil {
			return nil, err
		}
	}
	return pool, nil
}
