package worker

import (
	"time"

	"github.com/okian/lineup/pkg/logger"
)

// Option applies a configuration option to a Worker.
type Option func(*Worker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithMaxAttempts bounds how many times a save is tried.
func WithMaxAttempts(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithBackoff sets the base delay between attempts; attempt k waits k*d.
func WithBackoff(d time.Duration) Option {
	return func(w *Worker) {
		if d >= 0 {
			w.backoff = d
		}
	}
}

// WithFailureHandler registers a callback for records that could not be saved.
func WithFailureHandler(fn FailureHandler) Option {
	return func(w *Worker) {
		w.onFailure = fn
	}
}
