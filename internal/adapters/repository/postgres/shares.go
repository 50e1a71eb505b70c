package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/lineup/internal/adapters/repository"
	"github.com/okian/lineup/internal/domain/balance"
)

var (
	_ repository.ShareStore = (*Shares)(nil)
	_ repository.Expirer    = (*Shares)(nil)
)

// Shares is a ShareStore backed by the shared_matches table.
type Shares struct {
	db  *DB
	ttl time.Duration
}

// NewShares returns a share store on db. A zero ttl keeps shares forever.
func NewShares(db *DB, ttl time.Duration) *Shares {
	return &Shares{db: db, ttl: ttl}
}

func (s *Shares) Put(ctx context.Context, r balance.MatchResult) (string, error) {
	defer observe("postgres_shares", "put", time.Now())
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	var expires *time.Time
	if s.ttl > 0 {
		t := time.Now().UTC().Add(s.ttl)
		expires = &t
	}
	id := uuid.NewString()
	_, err = s.db.db.ExecContext(ctx,
		`INSERT INTO shared_matches (id, data, expires_at) VALUES ($1, $2, $3)`, id, data, expires)
	if err != nil {
		return "", translate(err)
	}
	return id, nil
}

func (s *Shares) Get(ctx context.Context, id string) (balance.MatchResult, error) {
	defer observe("postgres_shares", "get", time.Now())
	var data []byte
	err := s.db.db.QueryRowContext(ctx,
		`SELECT data FROM shared_matches WHERE id = $1 AND (expires_at IS NULL OR expires_at > now())`, id).Scan(&data)
	if err != nil {
		return balance.MatchResult{}, translate(err)
	}
	var r balance.MatchResult
	if err := json.Unmarshal(data, &r); err != nil {
		return balance.MatchResult{}, fmt.Errorf("decode shared match %s: %w", id, err)
	}
	return r, nil
}

// PurgeExpired deletes shares past their expiry.
func (s *Shares) PurgeExpired(ctx context.Context) (int, error) {
	defer observe("postgres_shares", "purge", time.Now())
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM shared_matches WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, translate(err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
