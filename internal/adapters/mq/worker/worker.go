// Package worker drains the ingest queue, applies events to the local
// event log, and busts the cache entries the event makes stale.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/adapters/mq/queue"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/logger"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/metrics"
)

// Default worker configuration constants.
const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = model.Event

// Sink appends an event to the local event log. The boolean reports
// whether the event was new; duplicate ids are a no-op.
type Sink interface {
	Ingest(ctx context.Context, e model.Event) (bool, error)
}

// Invalidator evicts derived state a freshly applied event makes stale.
type Invalidator interface {
	InvalidateFor(e model.Event)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes queued events until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue       Queue
	sink        Sink
	invalidator Invalidator
	name        string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, sink Sink, invalidator Invalidator, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       q,
		sink:        sink,
		invalidator: invalidator,
		name:        "worker",
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Get().Named("ingest"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, e); err != nil {
				w.logger.Error(ctx, "event ingest failed", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent applies one event and invalidates what it touched.
func (w *InMemoryWorker) processEvent(ctx context.Context, e queue.Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordIngestLatency(float64(time.Since(start).Milliseconds()))
	}()

	applied, err := w.sink.Ingest(ctx, e)
	if err != nil {
		metrics.RecordIngestError()
		w.logger.Error(ctx, "event log append failed",
			logger.String("eventID", e.ID),
			logger.Int("kind", e.Kind),
			logger.Error(err),
		)
		return fmt.Errorf("ingest event %s: %w", e.ID, err)
	}
	if !applied {
		metrics.RecordEventDuplicate()
		return nil
	}

	metrics.RecordEventApplied()
	if w.invalidator != nil {
		// Freshly derived state must win over anything cached before this
		// event existed.
		w.invalidator.InvalidateFor(e)
	}
	return nil
}

// Pool manages multiple workers draining one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive workerCount defaults to
// the CPU count.
func NewPool(workerCount int, q Queue, sink Sink, invalidator Invalidator) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("ingest-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewInMemoryWorker(q, sink, invalidator,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals all workers and waits briefly for each to finish. Unlike
// Shutdown it does not drain the queue first.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue, lets workers drain it, and waits for them to
// exit or the timeout to pass.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker", i))
		}
	}
	return nil
}
