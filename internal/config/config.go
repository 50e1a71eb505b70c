// Package config defines the service configuration and how it is loaded.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the history save queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of history writers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize caps how many saved match ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreBackend selects roster and history storage: memory or postgres.
	StoreBackend string `koanf:"store_backend"`
	PostgresDSN  string `koanf:"postgres_dsn"`

	// ShareBackend selects shared match storage: memory, redis or postgres.
	ShareBackend  string `koanf:"share_backend"`
	RedisURL      string `koanf:"redis_url"`
	ShareTTLHours int    `koanf:"share_ttl_hours"`

	// HistoryRetentionDays prunes older saved matches; 0 keeps everything.
	HistoryRetentionDays     int `koanf:"history_retention_days"`
	RetentionIntervalMinutes int `koanf:"retention_interval_minutes"`
	MetricsIntervalSeconds   int `koanf:"metrics_interval_seconds"`

	// MinMatchPlayers is the smallest pool POST /matches accepts.
	MinMatchPlayers int    `koanf:"min_match_players"`
	TeamAName       string `koanf:"team_a_name"`
	TeamBName       string `koanf:"team_b_name"`

	// CORSOrigins is a comma separated list of allowed origins.
	CORSOrigins string `koanf:"cors_origins"`

	// MaxHistoryLimit caps GET /history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`
}

// New returns a Config filled with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "text",
		Addr:                     ":9080",
		QueueSize:                10_000,
		WorkerCount:              4,
		DedupeSize:               50_000,
		StoreBackend:             BackendMemory,
		ShareBackend:             BackendMemory,
		RedisURL:                 "redis://localhost:6379/0",
		ShareTTLHours:            720,
		RetentionIntervalMinutes: 60,
		MetricsIntervalSeconds:   5,
		MinMatchPlayers:          2,
		TeamAName:                "Team 1",
		TeamBName:                "Team 2",
		CORSOrigins:              "*",
		MaxHistoryLimit:          100,
	}
}

// Validate checks the combination of settings.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.MinMatchPlayers < 1:
		return fmt.Errorf("%w: min_match_players must be at least 1", ErrInvalidConfig)
	case c.HistoryRetentionDays < 0:
		return fmt.Errorf("%w: history_retention_days must not be negative", ErrInvalidConfig)
	case c.MaxHistoryLimit <= 0:
		return fmt.Errorf("%w: max_history_limit must be positive", ErrInvalidConfig)
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}

	switch c.ShareBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: redis_url is required for the redis share store", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres share store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown share_backend %q", ErrInvalidConfig, c.ShareBackend)
	}
	return nil
}

// ShareTTL is how long a shared match stays readable. Zero means forever.
func (c *Config) ShareTTL() time.Duration {
	return time.Duration(c.ShareTTLHours) * time.Hour
}

// HistoryRetention is the age past which saved matches are pruned.
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.HistoryRetentionDays) * 24 * time.Hour
}

// RetentionInterval is how often the retention job runs.
func (c *Config) RetentionInterval() time.Duration {
	if c.RetentionIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.RetentionIntervalMinutes) * time.Minute
}

// MetricsInterval is how often service gauges are refreshed.
func (c *Config) MetricsInterval() time.Duration {
	if c.MetricsIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.MetricsIntervalSeconds) * time.Second
}

// AllowedOrigins splits CORSOrigins into trimmed, non-empty entries.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
