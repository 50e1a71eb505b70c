package simulate

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	service "github.com/okian/lineup/internal/app"
	"github.com/okian/lineup/internal/domain/balance"
	"github.com/okian/lineup/internal/domain/player"
	"github.com/okian/lineup/pkg/logger"
)

// Defaults applied to zero config fields.
const (
	DefaultPlayers = 40
	DefaultRounds  = 200
	DefaultMinPool = 2
	DefaultTimeout = 30 * time.Second
)

func (c *Config) applyDefaults() {
	if c.Players <= 0 {
		c.Players = DefaultPlayers
	}
	if c.Rounds <= 0 {
		c.Rounds = DefaultRounds
	}
	if c.MinPool <= 0 {
		c.MinPool = DefaultMinPool
	}
	if c.MaxPool <= 0 || c.MaxPool > c.Players {
		c.MaxPool = c.Players
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU() * 2
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
	}
}

// round is one planned match request.
type round struct {
	ids        []string
	useStamina bool
}

// runner carries the state of one simulation.
type runner struct {
	cfg    Config
	client *httpClient
	gen    *generator
	log    logger.Logger

	mu     sync.Mutex
	stats  *Stats
	roster map[string]player.Player
}

// Run executes a complete simulation against cfg.BaseURL. It returns an
// error when the service is unreachable or any result breaks a guarantee.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	cfg.applyDefaults()
	r := &runner{
		cfg:    cfg,
		client: newHTTPClient(cfg.BaseURL, cfg.Timeout),
		gen:    newGenerator(cfg.Seed),
		log:    logger.Get().Named("simulate"),
		stats:  &Stats{StartTime: time.Now()},
		roster: make(map[string]player.Player, cfg.Players),
	}

	r.log.Info(ctx, "starting lineup simulation",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed),
	)

	if err := r.checkServiceHealth(ctx); err != nil {
		return r.stats, fmt.Errorf("service health check failed: %w", err)
	}
	if err := r.seedRoster(ctx); err != nil {
		return r.stats, fmt.Errorf("roster seeding failed: %w", err)
	}
	if err := r.playRounds(ctx); err != nil {
		return r.stats, fmt.Errorf("match requests failed: %w", err)
	}
	if cfg.Cleanup {
		if err := r.cleanup(ctx); err != nil {
			r.log.Warn(ctx, "failed to remove seeded players", logger.Error(err))
		}
	}

	r.stats.Duration = time.Since(r.stats.StartTime)
	r.displayFinalStats(ctx)

	if r.stats.Violations > 0 {
		return r.stats, fmt.Errorf("%d of %d matches failed verification: %w",
			r.stats.Violations, r.stats.MatchesChecked, r.stats.FirstViolation)
	}
	return r.stats, nil
}

func (r *runner) checkServiceHealth(ctx context.Context) error {
	return r.client.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, nil)
}

// seedRoster creates the random players concurrently.
func (r *runner) seedRoster(ctx context.Context) error {
	raws := r.gen.players(r.cfg.Players)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, raw := range raws {
		g.Go(func() error {
			var p player.Player
			if err := r.client.do(ctx, http.MethodPost, "/players", raw, http.StatusCreated, &p); err != nil {
				return err
			}
			r.mu.Lock()
			r.roster[p.ID] = p
			r.stats.PlayersCreated++
			r.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	r.log.Info(ctx, "roster seeded", logger.Int("players", len(r.roster)))
	return nil
}

// plan draws every round up front so the random sequence does not depend
// on request scheduling.
func (r *runner) plan() []round {
	ids := slices.Sorted(maps.Keys(r.roster))

	rounds := make([]round, r.cfg.Rounds)
	for i := range rounds {
		rounds[i] = round{
			ids:        r.gen.pool(ids, r.cfg.MinPool, r.cfg.MaxPool),
			useStamina: i%2 == 1,
		}
	}
	return rounds
}

// playRounds requests every planned match concurrently and verifies each.
func (r *runner) playRounds(ctx context.Context) error {
	rounds := r.plan()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, rd := range rounds {
		g.Go(func() error {
			var res balance.MatchResult
			req := service.MatchRequest{PlayerIDs: rd.ids, UseStamina: rd.useStamina}
			if err := r.client.do(ctx, http.MethodPost, "/matches", req, http.StatusOK, &res); err != nil {
				return fmt.Errorf("round %d: %w", i, err)
			}
			r.check(ctx, i, rd, res)
			return nil
		})
	}
	return g.Wait()
}

func (r *runner) check(ctx context.Context, i int, rd round, res balance.MatchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool := make([]player.Player, len(rd.ids))
	for j, id := range rd.ids {
		pool[j] = r.roster[id]
	}
	err := Verify(pool, res)

	r.stats.MatchesChecked++
	if rd.useStamina {
		r.stats.StaminaMatches++
	}
	r.stats.TotalSkillDiff += res.SkillDifference
	r.stats.MaxSkillDiff = max(r.stats.MaxSkillDiff, res.SkillDifference)
	if err != nil {
		r.stats.Violations++
		if r.stats.FirstViolation == nil {
			r.stats.FirstViolation = fmt.Errorf("round %d: %w", i, err)
		}
		r.log.Error(ctx, "match failed verification", logger.Int("round", i), logger.Error(err))
		return
	}
	if r.cfg.Verbose {
		r.log.Info(ctx, "match verified",
			logger.Int("round", i),
			logger.Int("players", len(rd.ids)),
			logger.Bool("use_stamina", rd.useStamina),
			logger.Float64("skill_difference", res.SkillDifference),
		)
	}
}

// cleanup deletes every seeded player.
func (r *runner) cleanup(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for id := range r.roster {
		g.Go(func() error {
			return r.client.do(ctx, http.MethodDelete, "/players/"+id, nil, http.StatusNoContent, nil)
		})
	}
	return g.Wait()
}

func (r *runner) displayFinalStats(ctx context.Context) {
	s := r.stats
	r.log.Info(ctx, "simulation finished",
		logger.Int64("players_created", s.PlayersCreated),
		logger.Int64("matches_checked", s.MatchesChecked),
		logger.Int64("stamina_matches", s.StaminaMatches),
		logger.Int64("violations", s.Violations),
		logger.Float64("mean_skill_difference", s.MeanSkillDiff()),
		logger.Float64("max_skill_difference", s.MaxSkillDiff),
		logger.Duration("duration", s.Duration),
	)
}
