// Package queue buffers events arriving from relay subscriptions before
// they are applied to the local event log.
//
// Relays deliver in bursts, especially right after a subscription catches
// up on history. The queue absorbs those bursts with non-blocking enqueue
// and channel-based dequeue; callers that see a false enqueue are expected
// to surface backpressure rather than block.
package queue

import (
	"context"
	"sync"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 10000
)

// Event is the payload type flowing through the queue.
type Event = model.Event

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, e Event) bool

	// Dequeue returns a channel that receives events as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Event

	// Len returns the current number of buffered events.
	Len() int

	// Close shuts the queue down. After closing, no new events can be
	// enqueued and the dequeue channel drains and closes.
	Close() error
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates an in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueDepth(0)
	return q
}

// Enqueue adds an event to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordEnqueueRejected("closed")
		return false
	}

	select {
	case q.events <- e:
		metrics.RecordEnqueue()
		metrics.UpdateQueueDepth(len(q.events))
		return true
	case <-ctx.Done():
		metrics.RecordEnqueueRejected("context_cancelled")
		return false
	default:
		metrics.RecordEnqueueRejected("queue_full")
		return false
	}
}

// Dequeue returns a channel that receives events as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for e := range q.events {
			select {
			case out <- e:
				metrics.RecordDequeue()
				metrics.UpdateQueueDepth(len(q.events))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of buffered events.
func (q *InMemoryQueue) Len() int {
	return len(q.events)
}

// Close shuts the queue down.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
