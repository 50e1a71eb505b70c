package repository

import "time"

// ShareOption configures a MemoryShares store.
type ShareOption func(*MemoryShares)

// WithShareTTL expires shared matches after ttl. Zero keeps them forever.
func WithShareTTL(ttl time.Duration) ShareOption {
	return func(s *MemoryShares) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ShareOption {
	return func(s *MemoryShares) {
		if now != nil {
			s.now = now
		}
	}
}
