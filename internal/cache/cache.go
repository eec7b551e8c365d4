// Package cache implements the tiered TTL cache that fronts every relay
// lookup in the engine.
//
// The cache is a single keyed store. Keys are namespaced by category
// (see policy.go) so whole categories can be invalidated by prefix. A cache
// is constructed once at application start, passed by reference to the
// components that need it, and flushed on sign-out.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/logger"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/metrics"
)

// Entry is the generic persisted shape of one cache record.
type Entry struct {
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value"`
	StoredAt int64           `json:"stored_at_ms"` // unix milliseconds
	TTL      int64           `json:"ttl_ms"`
}

type record struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

func (r record) expired(now time.Time) bool {
	return now.Sub(r.storedAt) > r.ttl
}

// Cache is a keyed store with per-entry TTLs. All operations are safe for
// concurrent use; writes to the same key are last-writer-wins by wall
// clock, consistent with event ordering elsewhere in the system.
type Cache struct {
	mu      sync.RWMutex
	records map[string]record

	policy    *Policy
	persister Persister
	now       func() time.Time
	log       logger.Logger
}

// New constructs a Cache. When a persister is configured, surviving entries
// from a previous run are loaded immediately; persistence failures degrade
// the cache to memory-only and are never surfaced.
func New(opts ...Option) *Cache {
	c := &Cache{
		records: make(map[string]record),
		policy:  NewPolicy(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("cache")
	}
	c.load()
	return c
}

// Key composes a namespaced cache key from a category and its parts.
func Key(category Category, parts ...string) string {
	if len(parts) == 0 {
		return string(category)
	}
	return string(category) + ":" + strings.Join(parts, ":")
}

func categoryOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// Get returns the cached value for key, or a miss when the key is absent or
// its TTL has elapsed. Expired values are never returned here; callers that
// can use stale data opt in via GetAllowStale.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	r, ok := c.records[key]
	c.mu.RUnlock()

	if !ok || r.expired(c.now()) {
		metrics.RecordCacheMiss(categoryOf(key))
		return nil, false
	}
	metrics.RecordCacheHit(categoryOf(key))
	return r.value, true
}

// GetAllowStale returns the cached value even past its TTL, with stale set
// when the TTL has elapsed. Absent keys are still a miss.
func (c *Cache) GetAllowStale(key string) (value any, ok, stale bool) {
	c.mu.RLock()
	r, found := c.records[key]
	c.mu.RUnlock()

	if !found {
		metrics.RecordCacheMiss(categoryOf(key))
		return nil, false, false
	}
	stale = r.expired(c.now())
	if stale {
		metrics.RecordCacheMiss(categoryOf(key))
	} else {
		metrics.RecordCacheHit(categoryOf(key))
	}
	return r.value, true, stale
}

// Set stores value under key for the given TTL, overwriting any previous
// entry. A TTL of zero or less means "never cache": nothing is stored and
// any existing entry is dropped, so a subsequent Get is always a miss.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		delete(c.records, key)
		metrics.UpdateCacheEntries(len(c.records))
		return
	}
	c.records[key] = record{value: value, storedAt: c.now(), ttl: ttl}
	metrics.UpdateCacheEntries(len(c.records))
}

// SetCategory stores value under the category's policy TTL.
func (c *Cache) SetCategory(category Category, key string, value any) {
	c.Set(key, value, c.policy.TTLFor(category))
}

// Invalidate drops the entry for key, if any.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[key]; ok {
		delete(c.records, key)
		metrics.RecordCacheEviction()
		metrics.UpdateCacheEntries(len(c.records))
	}
}

// InvalidatePrefix drops every entry whose key starts with prefix. Used by
// write-through actions (join, leave, team creation) that make a whole
// category of cached reads stale at once.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.records {
		if strings.HasPrefix(key, prefix) {
			delete(c.records, key)
			metrics.RecordCacheEviction()
		}
	}
	metrics.UpdateCacheEntries(len(c.records))
}

// Flush drops every entry and wipes the persisted snapshot. Called on
// sign-out.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.records = make(map[string]record)
	c.mu.Unlock()
	metrics.UpdateCacheEntries(0)

	if c.persister != nil {
		if err := c.persister.Save(nil); err != nil {
			c.log.Warn(context.Background(), "failed to wipe persisted cache, continuing memory-only", logger.Error(err))
		}
	}
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Policy returns the category policy table this cache was built with.
func (c *Cache) Policy() *Policy {
	return c.policy
}

// Close persists eligible entries for the next process start. Persistence
// failures are logged and swallowed.
func (c *Cache) Close() error {
	if c.persister == nil {
		return nil
	}

	now := c.now()
	c.mu.RLock()
	entries := make([]Entry, 0, len(c.records))
	for key, r := range c.records {
		if r.expired(now) || !c.policy.ShouldPersist(r.ttl) {
			continue
		}
		raw, err := json.Marshal(r.value)
		if err != nil {
			continue // unserializable values stay memory-only
		}
		entries = append(entries, Entry{
			Key:      key,
			Value:    raw,
			StoredAt: r.storedAt.UnixMilli(),
			TTL:      r.ttl.Milliseconds(),
		})
	}
	c.mu.RUnlock()

	if err := c.persister.Save(entries); err != nil {
		c.log.Warn(context.Background(), "failed to persist cache snapshot", logger.Error(err))
	}
	return nil
}

// load restores persisted entries, dropping anything already expired.
func (c *Cache) load() {
	if c.persister == nil {
		return
	}
	entries, err := c.persister.Load()
	if err != nil {
		c.log.Warn(context.Background(), "failed to load persisted cache, starting cold", logger.Error(err))
		return
	}

	now := c.now()
	c.mu.Lock()
	for _, e := range entries {
		r := record{
			value:    e.Value,
			storedAt: time.UnixMilli(e.StoredAt),
			ttl:      time.Duration(e.TTL) * time.Millisecond,
		}
		if r.ttl <= 0 || r.expired(now) {
			continue
		}
		c.records[e.Key] = r
	}
	metrics.UpdateCacheEntries(len(c.records))
	c.mu.Unlock()
}

// As recovers a typed value from a cache read. Values served from memory
// assert directly; values restored from a persisted snapshot arrive as raw
// JSON and are unmarshaled.
func As[T any](v any) (T, bool) {
	if typed, ok := v.(T); ok {
		return typed, true
	}
	var out T
	switch raw := v.(type) {
	case json.RawMessage:
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, true
		}
	case []byte:
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, true
		}
	}
	var zero T
	return zero, false
}
