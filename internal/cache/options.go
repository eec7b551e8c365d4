package cache

import (
	"time"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/logger"
)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithPolicy sets the category policy table.
func WithPolicy(policy *Policy) Option {
	return func(c *Cache) {
		if policy != nil {
			c.policy = policy
		}
	}
}

// WithPersister enables durable storage for entries whose TTL clears the
// policy's persist floor.
func WithPersister(p Persister) Option {
	return func(c *Cache) {
		c.persister = p
	}
}

// WithNow sets the clock used for expiry decisions. Tests use it to
// simulate time passing.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger for the cache.
func WithLogger(log logger.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}
