package eventstore

import (
	"context"
	"time"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/logger"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/metrics"
)

// Default retry configuration constants.
const (
	defaultRetryBackoff = 250 * time.Millisecond
)

// retryStore decorates a Store with a single retry after backoff. Transient
// relay failures (timeouts, dropped connections) get exactly one second
// chance; persistent failures surface to the caller, which degrades to a
// partial or cached result. The decorator sits below the cache, so results
// served from cache are never retried.
type retryStore struct {
	next    Store
	backoff time.Duration
	log     logger.Logger
}

// RetryOption applies a configuration option to the retry decorator.
type RetryOption func(*retryStore)

// WithBackoff sets the delay before the single retry attempt.
func WithBackoff(d time.Duration) RetryOption {
	return func(r *retryStore) {
		if d > 0 {
			r.backoff = d
		}
	}
}

// WithRetryLogger sets a custom logger for the retry decorator.
func WithRetryLogger(log logger.Logger) RetryOption {
	return func(r *retryStore) {
		if log != nil {
			r.log = log
		}
	}
}

// WithRetry wraps next so every failed query is retried at most once.
func WithRetry(next Store, opts ...RetryOption) Store {
	r := &retryStore{
		next:    next,
		backoff: defaultRetryBackoff,
		log:     logger.Get().Named("eventstore"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// QueryEvents queries the underlying store, retrying once after backoff on
// failure. Context cancellation aborts both the wait and the retry.
func (r *retryStore) QueryEvents(ctx context.Context, f Filter) ([]model.Event, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	metrics.RecordStoreQuery()
	events, err := r.next.QueryEvents(ctx, f)
	if err == nil {
		return events, nil
	}
	if ctx.Err() != nil {
		metrics.RecordStoreQueryError()
		return nil, err
	}

	r.log.Warn(ctx, "query failed, retrying once",
		logger.Error(err),
		logger.Duration("backoff", r.backoff),
	)
	metrics.RecordStoreRetry()

	select {
	case <-ctx.Done():
		metrics.RecordStoreQueryError()
		return nil, ctx.Err()
	case <-time.After(r.backoff):
	}

	events, err = r.next.QueryEvents(ctx, f)
	if err != nil {
		metrics.RecordStoreQueryError()
		return nil, err
	}
	return events, nil
}
