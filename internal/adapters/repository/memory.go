package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/lineup/internal/domain/balance"
	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/internal/domain/player"
	"github.com/okian/lineup/pkg/metrics"
)

var (
	_ RosterStore  = (*MemoryRoster)(nil)
	_ HistoryStore = (*MemoryHistory)(nil)
	_ ShareStore   = (*MemoryShares)(nil)
	_ Expirer      = (*MemoryShares)(nil)
)

// MemoryRoster is an in-memory RosterStore. Values are copied on the way in
// and out, so callers never share memory with the store.
type MemoryRoster struct {
	mu      sync.RWMutex
	players map[string]player.Player
	order   []string // insertion order
}

// NewMemoryRoster returns an empty roster.
func NewMemoryRoster() *MemoryRoster {
	return &MemoryRoster{players: make(map[string]player.Player)}
}

func (s *MemoryRoster) List(_ context.Context) ([]player.Player, error) {
	defer observe("memory_roster", "list", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]player.Player, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.players[s.order[i]].Clone())
	}
	return out, nil
}

func (s *MemoryRoster) Get(_ context.Context, id string) (player.Player, error) {
	defer observe("memory_roster", "get", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[id]
	if !ok {
		return player.Player{}, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryRoster) Create(_ context.Context, p player.Player) error {
	defer observe("memory_roster", "create", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[p.ID]; ok {
		return ErrConflict
	}
	s.order = append(s.order, p.ID)
	s.players[p.ID] = p.Clone()
	return nil
}

func (s *MemoryRoster) Put(_ context.Context, p player.Player) error {
	defer observe("memory_roster", "put", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.players[p.ID] = p.Clone()
	return nil
}

func (s *MemoryRoster) Delete(_ context.Context, id string) error {
	defer observe("memory_roster", "delete", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[id]; !ok {
		return ErrNotFound
	}
	delete(s.players, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

func (s *MemoryRoster) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players), nil
}

// MemoryHistory is an in-memory HistoryStore.
type MemoryHistory struct {
	mu      sync.RWMutex
	matches map[string]model.SavedMatch
}

// NewMemoryHistory returns an empty history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{matches: make(map[string]model.SavedMatch)}
}

func (s *MemoryHistory) Save(_ context.Context, m model.SavedMatch) error {
	defer observe("memory_history", "save", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.matches[m.ID]; ok {
		return ErrConflict
	}
	s.matches[m.ID] = cloneMatch(m)
	return nil
}

func (s *MemoryHistory) Update(_ context.Context, m model.SavedMatch) error {
	defer observe("memory_history", "update", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.matches[m.ID]; !ok {
		return ErrNotFound
	}
	s.matches[m.ID] = cloneMatch(m)
	return nil
}

func (s *MemoryHistory) Get(_ context.Context, id string) (model.SavedMatch, error) {
	defer observe("memory_history", "get", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[id]
	if !ok {
		return model.SavedMatch{}, ErrNotFound
	}
	return cloneMatch(m), nil
}

func (s *MemoryHistory) List(_ context.Context, f model.HistoryFilter) ([]model.SavedMatch, error) {
	defer observe("memory_history", "list", time.Now())
	s.mu.RLock()
	out := make([]model.SavedMatch, 0, len(s.matches))
	for _, m := range s.matches {
		if !f.Since.IsZero() && m.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, cloneMatch(m))
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.SavedMatch) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryHistory) Delete(_ context.Context, id string) error {
	defer observe("memory_history", "delete", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.matches[id]; !ok {
		return ErrNotFound
	}
	delete(s.matches, id)
	return nil
}

func (s *MemoryHistory) DeleteBefore(_ context.Context, cutoff time.Time) (int, error) {
	defer observe("memory_history", "delete_before", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, m := range s.matches {
		if m.Timestamp.Before(cutoff) {
			delete(s.matches, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryHistory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches), nil
}

func cloneMatch(m model.SavedMatch) model.SavedMatch {
	m.MatchResult = m.MatchResult.Clone()
	return m
}

// MemoryShares is an in-memory ShareStore with optional expiry.
type MemoryShares struct {
	mu     sync.Mutex
	shares map[string]shareEntry
	ttl    time.Duration
	now    func() time.Time
}

type shareEntry struct {
	result    balance.MatchResult
	expiresAt time.Time // zero means never
}

// NewMemoryShares returns an empty share store.
func NewMemoryShares(opts ...ShareOption) *MemoryShares {
	s := &MemoryShares{
		shares: make(map[string]shareEntry),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryShares) Put(_ context.Context, r balance.MatchResult) (string, error) {
	defer observe("memory_shares", "put", time.Now())
	id := uuid.NewString()
	e := shareEntry{result: r.Clone()}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.shares[id] = e
	return id, nil
}

func (s *MemoryShares) Get(_ context.Context, id string) (balance.MatchResult, error) {
	defer observe("memory_shares", "get", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.shares[id]
	if !ok {
		return balance.MatchResult{}, ErrNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.shares, id)
		return balance.MatchResult{}, ErrNotFound
	}
	return e.result.Clone(), nil
}

// PurgeExpired removes every expired share.
func (s *MemoryShares) PurgeExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, e := range s.shares {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(s.shares, id)
			n++
		}
	}
	return n, nil
}

// observe records a store operation latency; call it deferred.
func observe(store, op string, start time.Time) {
	metrics.RecordRepositoryLatency(store, op, float64(time.Since(start).Microseconds())/1000)
}
