package scheduler

import (
	"time"

	"github.com/okian/lineup/pkg/logger"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRetention sets how long history is kept. Zero disables pruning.
func WithRetention(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.retention = d
		}
	}
}

// WithRetentionInterval sets how often retention and share purge run.
func WithRetentionInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.retentionInterval = d
		}
	}
}

// WithMetricsInterval sets how often gauges are refreshed.
func WithMetricsInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.metricsInterval = d
		}
	}
}

// WithRunTimeout bounds a single job run.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.runTimeout = d
		}
	}
}

// WithLocation sets the scheduler time zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}
