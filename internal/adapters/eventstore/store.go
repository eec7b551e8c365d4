// Package eventstore defines the query boundary to the relay network.
//
// The engine never talks to relays directly; everything it knows arrives
// through a Store. Implementations are expected to be eventually consistent:
// slow, partial, and duplicated responses are the normal operating
// condition, not an error.
package eventstore

import (
	"context"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
)

// Filter selects events by kind, author, tag, and time range. Zero fields
// match everything. Authors must support batched lists: leaderboard
// computation issues one query per author chunk, never one per participant.
type Filter struct {
	Kinds   []int
	Authors []string
	Tags    map[string][]string
	Since   int64 // inclusive, unix seconds; 0 = unbounded
	Until   int64 // exclusive, unix seconds; 0 = unbounded
	Limit   int   // 0 = unbounded; otherwise the most recent Limit events
}

// Matches reports whether the event satisfies every constraint of the
// filter except Limit.
func (f Filter) Matches(e model.Event) bool {
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, e.Kind) {
		return false
	}
	if len(f.Authors) > 0 && !containsString(f.Authors, e.Author) {
		return false
	}
	if f.Since > 0 && e.CreatedAt < f.Since {
		return false
	}
	if f.Until > 0 && e.CreatedAt >= f.Until {
		return false
	}
	for key, wanted := range f.Tags {
		if !matchesTag(e, key, wanted) {
			return false
		}
	}
	return true
}

func matchesTag(e model.Event, key string, wanted []string) bool {
	for _, have := range e.TagValues(key) {
		if containsString(wanted, have) {
			return true
		}
	}
	return false
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func containsString(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// Store is the read boundary to the relay network. QueryEvents returns a
// deduplicated set of events matching the filter; order is unspecified and
// callers apply their own derivation strategy.
type Store interface {
	QueryEvents(ctx context.Context, f Filter) ([]model.Event, error)
}

// Func adapts a closure to the Store interface, mirroring http.HandlerFunc.
// Embedders wrap their protocol client with it; tests use it to inject
// failures.
type Func func(ctx context.Context, f Filter) ([]model.Event, error)

// QueryEvents calls fn.
func (fn Func) QueryEvents(ctx context.Context, f Filter) ([]model.Event, error) {
	return fn(ctx, f)
}
