// Package queue buffers history saves between the HTTP handler and the
// workers that persist them.
package queue

import (
	"context"
	"sync"

	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/pkg/metrics"
)

const defaultCapacity = 10_000

// Item is the payload flowing through the queue.
type Item = model.SavedMatch

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an item without blocking. It returns ErrFull when the
	// queue is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, it Item) error

	// Dequeue returns a channel of items. The channel is closed once the
	// queue is closed and drained, or when ctx is done.
	Dequeue(ctx context.Context) <-chan Item

	Len(ctx context.Context) int
	Cap() int

	// Close stops accepting items. Items already queued are still delivered.
	Close() error
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	items    chan Item
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Item, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	q.publish()
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, it Item) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		return err
	}

	select {
	case q.items <- it:
		metrics.RecordQueueEnqueue()
		q.publish()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "full")
		return ErrFull
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Item {
	out := make(chan Item)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case it, ok := <-q.items:
				if !ok {
					return
				}
				metrics.RecordQueueDequeue()
				q.publish()
				select {
				case out <- it:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.items)
}

func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// publish refreshes the size and utilization gauges.
func (q *InMemoryQueue) publish() {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(100 * float64(size) / float64(q.capacity))
}
