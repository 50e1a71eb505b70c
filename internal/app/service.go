// Package service wires the balancing engine to the roster, history and
// share stores and implements the operations the HTTP API exposes.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/lineup/internal/adapters/mq/queue"
	"github.com/okian/lineup/internal/adapters/mq/worker"
	"github.com/okian/lineup/internal/adapters/repository"
	"github.com/okian/lineup/internal/domain/balance"
	"github.com/okian/lineup/internal/domain/dedupe"
	"github.com/okian/lineup/pkg/logger"
	"github.com/okian/lineup/pkg/metrics"
)

// Service implements the API dependencies for the lineup system.
type Service struct {
	mu sync.RWMutex

	roster  repository.RosterStore
	history repository.HistoryStore
	shares  repository.ShareStore

	deduper dedupe.Deduper
	queue   queue.Queue
	pool    *worker.Pool

	workerCount     int
	queueSize       int
	dedupeSize      int
	minPlayers      int
	teamA, teamB    string
	maxHistoryLimit int

	now   func() time.Time
	newID func() string

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRosterStore sets the roster backend.
func WithRosterStore(s repository.RosterStore) Option {
	return func(svc *Service) {
		if s != nil {
			svc.roster = s
		}
	}
}

// WithHistoryStore sets the history backend.
func WithHistoryStore(s repository.HistoryStore) Option {
	return func(svc *Service) {
		if s != nil {
			svc.history = s
		}
	}
}

// WithShareStore sets the share backend.
func WithShareStore(s repository.ShareStore) Option {
	return func(svc *Service) {
		if s != nil {
			svc.shares = s
		}
	}
}

// WithWorkerCount sets the number of history writers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending history saves.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many saved match ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMinMatchPlayers sets the smallest pool GenerateMatch accepts.
func WithMinMatchPlayers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minPlayers = n
		}
	}
}

// WithTeamNames sets the default team labels.
func WithTeamNames(a, b string) Option {
	return func(s *Service) {
		if a != "" {
			s.teamA = a
		}
		if b != "" {
			s.teamB = b
		}
	}
}

// WithMaxHistoryLimit caps how many matches one listing returns.
func WithMaxHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxHistoryLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service. Stores default to in-memory implementations.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     4,
		queueSize:       10_000,
		dedupeSize:      50_000,
		minPlayers:      2,
		teamA:           balance.DefaultTeamA,
		teamB:           balance.DefaultTeamB,
		maxHistoryLimit: 100,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.roster == nil {
		s.roster = repository.NewMemoryRoster()
	}
	if s.history == nil {
		s.history = repository.NewMemoryHistory()
	}
	if s.shares == nil {
		s.shares = repository.NewMemoryShares()
	}
	return s
}

// Start creates the save pipeline and launches the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.history,
		worker.WithFailureHandler(s.onSaveFailed))
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "lineup service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("min_players", s.minPlayers),
	)
	return nil
}

// Stop drains pending history saves and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping lineup service")
	err := s.pool.Shutdown(ctx)
	s.started = false
	if err != nil {
		s.logger.Warn(ctx, "history saves may be lost", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "lineup service stopped", logger.Int("persisted", int(s.pool.Processed())))
	return nil
}

// onSaveFailed forgets a match id whose save was abandoned so the client
// can retry it.
func (s *Service) onSaveFailed(ctx context.Context, it queue.Item, _ error) {
	s.deduper.Unrecord(ctx, it.ID)
}

// Stats is a point-in-time view of the service.
type Stats struct {
	Started       bool  `json:"started"`
	Workers       int   `json:"workers"`
	QueueLength   int   `json:"queue_length"`
	QueueCapacity int   `json:"queue_capacity"`
	DedupeSize    int64 `json:"dedupe_size"`
	Persisted     int64 `json:"persisted"`
	RosterSize    int   `json:"roster_size"`
	HistorySize   int   `json:"history_size"`
}

// GetStats returns service statistics and refreshes the matching gauges.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	st := Stats{Started: s.started, Workers: s.workerCount, QueueCapacity: s.queueSize}
	if s.started {
		st.QueueLength = s.queue.Len(ctx)
		st.DedupeSize = s.deduper.Size()
		st.Persisted = s.pool.Processed()
	}
	s.mu.RUnlock()

	var err error
	if st.RosterSize, err = s.roster.Count(ctx); err != nil {
		return st, err
	}
	if st.HistorySize, err = s.history.Count(ctx); err != nil {
		return st, err
	}
	metrics.UpdateRosterSize(st.RosterSize)
	metrics.UpdateHistoryEntries(st.HistorySize)
	metrics.UpdateQueueSize(st.QueueLength)
	return st, nil
}

// RefreshMetrics updates store and runtime gauges. The scheduler calls it
// on an interval.
func (s *Service) RefreshMetrics(ctx context.Context) error {
	if _, err := s.GetStats(ctx); err != nil {
		return err
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.HeapAlloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	return nil
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	l := s.logger
	s.mu.RUnlock()
	if l == nil {
		return logger.Get().Named("service")
	}
	return l
}
