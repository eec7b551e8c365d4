package eventstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
)

// MemoryStore is an in-process Store used by the demo daemon and tests as a
// relay stand-in. Publishing the same event id twice is a no-op, matching
// relay dedup behavior.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]model.Event
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]model.Event)}
}

// Publish stores an event, minting an id when the event carries none.
// It returns the stored event id.
func (s *MemoryStore) Publish(e model.Event) string {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.events[e.ID]; !dup {
		s.events[e.ID] = e
	}
	return e.ID
}

// Ingest appends an event to the log, reporting whether it was new. Events
// without an id get one minted. It satisfies the ingest worker's sink
// contract; the error return is reserved for stores with real I/O.
func (s *MemoryStore) Ingest(_ context.Context, e model.Event) (bool, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.events[e.ID]; dup {
		return false, nil
	}
	s.events[e.ID] = e
	return true, nil
}

// QueryEvents returns every stored event matching the filter. When Limit is
// set only the most recent Limit events are returned, newest judged by
// (CreatedAt, ID). The result is always in deterministic ascending order.
func (s *MemoryStore) QueryEvents(ctx context.Context, f Filter) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	matched := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		if f.Matches(e) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Before(matched[j]) })
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[len(matched)-f.Limit:]
	}
	return matched, nil
}

// Len returns the number of distinct events held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
