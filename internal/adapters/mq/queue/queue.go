// Package queue carries leaderboard change notifications from the submit path
// to the notifier workers.
//
// Enqueue never blocks: a full queue drops the change. Subscribers are
// refreshed by the next change for the same game type, so a drop only delays
// an update.
package queue

import (
	"context"
	"sync"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Change is the payload flowing through the queue.
type Change = model.Change

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a change. It returns ErrFull or ErrClosed when the change
	// was not accepted.
	Enqueue(ctx context.Context, c Change) error

	// Dequeue returns a channel of changes. The channel closes when the queue
	// is closed and drained, or when ctx is done.
	Dequeue(ctx context.Context) <-chan Change

	// Len returns the number of pending changes.
	Len() int

	// Cap returns the configured capacity.
	Cap() int

	// Close stops accepting changes. Pending changes can still be dequeued.
	Close() error

	// IsClosed reports whether Close was called.
	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	changes  chan Change
	capacity int
	mu       sync.RWMutex
	closed   bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a queue with the given options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.changes = make(chan Change, q.capacity)

	metrics.UpdateNotifyQueueCapacity(q.capacity)
	metrics.UpdateNotifyQueueSize(0)
	return q
}

// Enqueue adds c without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}

	select {
	case q.changes <- c:
		metrics.UpdateNotifyQueueSize(len(q.changes))
		return nil
	default:
		metrics.RecordNotifyDropped()
		return ErrFull
	}
}

// Dequeue returns a channel that yields pending changes.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Change {
	out := make(chan Change)
	go func() {
		defer close(out)
		for {
			select {
			case c, ok := <-q.changes:
				if !ok {
					return
				}
				metrics.UpdateNotifyQueueSize(len(q.changes))
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of pending changes.
func (q *InMemoryQueue) Len() int {
	return len(q.changes)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close stops the queue. Calling it twice is a no-op.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.changes)
	q.closed = true
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
