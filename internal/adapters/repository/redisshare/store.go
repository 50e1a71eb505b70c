// Package redisshare keeps shared match results in Redis, relying on key
// expiry for the share lifetime.
package redisshare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/okian/lineup/internal/adapters/repository"
	"github.com/okian/lineup/internal/domain/balance"
	"github.com/okian/lineup/pkg/metrics"
)

const defaultKeyPrefix = "lineup:share:"

var _ repository.ShareStore = (*Store)(nil)

// Store is a ShareStore on a Redis client.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires shares after ttl. Zero keeps them until evicted.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// WithKeyPrefix namespaces the keys, e.g. per environment.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New wraps an existing client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open parses url, connects and checks the connection.
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(ropts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, opts...), nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) Put(ctx context.Context, r balance.MatchResult) (string, error) {
	defer observe("put", time.Now())
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshaling match: %w", err)
	}
	id := uuid.NewString()
	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		metrics.RecordErrorByComponent("redis", "set")
		return "", err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id string) (balance.MatchResult, error) {
	defer observe("get", time.Now())
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return balance.MatchResult{}, repository.ErrNotFound
	}
	if err != nil {
		metrics.RecordErrorByComponent("redis", "get")
		return balance.MatchResult{}, err
	}
	var r balance.MatchResult
	if err := json.Unmarshal(data, &r); err != nil {
		return balance.MatchResult{}, fmt.Errorf("decode shared match %s: %w", id, err)
	}
	return r, nil
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency("redis_shares", op, float64(time.Since(start).Microseconds())/1000)
}
