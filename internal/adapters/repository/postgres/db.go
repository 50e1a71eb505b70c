// Package postgres implements the roster, history and share stores on
// PostgreSQL through lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/okian/lineup/internal/adapters/repository"
	"github.com/okian/lineup/pkg/metrics"
)

// uniqueViolation is the SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	skill           DOUBLE PRECISION NOT NULL,
	positions       TEXT[] NOT NULL,
	position_skills JSONB NOT NULL,
	stamina         DOUBLE PRECISION,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS matches (
	id               TEXT PRIMARY KEY,
	"timestamp"      TIMESTAMPTZ NOT NULL,
	team_a           JSONB NOT NULL,
	team_b           JSONB NOT NULL,
	skill_difference DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS matches_timestamp_idx ON matches ("timestamp" DESC);

CREATE TABLE IF NOT EXISTS shared_matches (
	id         TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ
);
`

// DB is a connection pool shared by the postgres stores.
type DB struct {
	db *sql.DB
}

// Option configures the connection pool.
type Option func(*sql.DB)

// WithMaxOpenConns caps open connections.
func WithMaxOpenConns(n int) Option {
	return func(db *sql.DB) { db.SetMaxOpenConns(n) }
}

// WithMaxIdleConns caps idle connections.
func WithMaxIdleConns(n int) Option {
	return func(db *sql.DB) { db.SetMaxIdleConns(n) }
}

// WithConnMaxLifetime recycles connections older than d.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(db *sql.DB) { db.SetConnMaxLifetime(d) }
}

// Open connects to dsn, checks the connection and creates missing tables.
func Open(ctx context.Context, dsn string, opts ...Option) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	for _, opt := range opts {
		opt(db)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	d := &DB{db: db}
	if err := d.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// Migrate creates the tables if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close releases the pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// translate maps driver errors onto repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrConflict, pqErr.Detail)
	}
	metrics.RecordErrorByComponent("postgres", "query")
	return err
}

// affected returns ErrNotFound when a statement touched no rows.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func observe(store, op string, start time.Time) {
	metrics.RecordRepositoryLatency(store, op, float64(time.Since(start).Microseconds())/1000)
}
