// Package worker persists queued history saves in the background.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/lineup/internal/adapters/mq/queue"
	"github.com/okian/lineup/internal/adapters/repository"
	"github.com/okian/lineup/pkg/logger"
	"github.com/okian/lineup/pkg/metrics"
)

const (
	defaultWorkerCount = 4
	defaultMaxAttempts = 3
	defaultBackoff     = 50 * time.Millisecond
)

// Saver persists one saved match.
type Saver interface {
	Save(ctx context.Context, m queue.Item) error
}

// Queue is where workers read from.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Item
}

// FailureHandler is called when a record could not be persisted after
// every attempt.
type FailureHandler func(ctx context.Context, it queue.Item, err error)

// Worker drains a queue into a Saver.
type Worker struct {
	queue       Queue
	saver       Saver
	name        string
	maxAttempts int
	backoff     time.Duration
	onFailure   FailureHandler
	processed   *atomic.Int64

	done   chan struct{}
	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, s Saver, opts ...Option) *Worker {
	w := &Worker{
		queue:       q,
		saver:       s,
		name:        "worker",
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
		processed:   new(atomic.Int64),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes items until the queue is closed and drained or ctx is done.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	for it := range w.queue.Dequeue(ctx) {
		if err := w.process(ctx, it); err != nil {
			w.logger.Error(ctx, "saving match failed",
				logger.String("match_id", it.ID), logger.Error(err))
			if w.onFailure != nil {
				w.onFailure(ctx, it, err)
			}
		}
	}
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// process saves one item, retrying transient failures with linear backoff.
// A conflict means an earlier attempt already stored it.
func (w *Worker) process(ctx context.Context, it queue.Item) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	var err error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err = w.saver.Save(ctx, it)
		switch {
		case err == nil:
			metrics.RecordHistorySave(metrics.SavePersisted)
			w.processed.Add(1)
			return nil
		case errors.Is(err, repository.ErrConflict):
			w.logger.Debug(ctx, "match already stored", logger.String("match_id", it.ID))
			metrics.RecordHistorySave(metrics.SaveDuplicate)
			w.processed.Add(1)
			return nil
		}
		if attempt == w.maxAttempts {
			break
		}

		w.logger.Warn(ctx, "retrying match save",
			logger.String("match_id", it.ID), logger.Int("attempt", attempt), logger.Error(err))
		select {
		case <-ctx.Done():
			return w.fail(it, ctx.Err())
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}
	return w.fail(it, err)
}

func (w *Worker) fail(it queue.Item, err error) error {
	metrics.RecordHistorySave(metrics.SaveFailed)
	metrics.RecordWorkerError()
	metrics.RecordErrorByComponent("worker", "save_failed")
	return fmt.Errorf("save match %s: %w", it.ID, err)
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers []*Worker
	queue   Queue

	cancel    context.CancelFunc
	processed atomic.Int64
	startOnce sync.Once

	logger logger.Logger
}

// NewPool creates workerCount workers. Options apply to every worker.
func NewPool(workerCount int, q Queue, s Saver, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*Worker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewWorker(q, s, wopts...)
		w.processed = &p.processed
		p.workers[i] = w
	}
	return p
}

// Start launches the workers. Later calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)
		for _, w := range p.workers {
			go w.Run(ctx)
		}
		metrics.UpdateWorkerActiveCount(len(p.workers))
		p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
	})
}

// Processed is how many records the pool has stored so far.
func (p *Pool) Processed() int64 {
	return p.processed.Load()
}

// Size is the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Shutdown closes the queue and waits for workers to drain it. If ctx ends
// first, in-flight work is canceled and the context error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if p.cancel == nil {
		return nil
	}
	defer p.cancel()
	defer metrics.UpdateWorkerActiveCount(0)

	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", ctx.Err())
		}
	}
	return nil
}
