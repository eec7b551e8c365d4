package cache

import "time"

// Category names a class of cached data with a fixed TTL band.
type Category string

// Data categories and their TTL bands. Bands range from "never cache"
// (live balances) through seconds (near-real-time data) to hours
// (near-static metadata).
const (
	CategoryProfile          Category = "profile"
	CategoryRoster           Category = "roster"
	CategoryCaptainStatus    Category = "captain-status"
	CategoryLeaderboard      Category = "leaderboard"
	CategoryLeaderboardFinal Category = "leaderboard-final"
	CategoryJoinRequests     Category = "join-requests"
	CategoryLiveBalance      Category = "live-balance"
)

// Default TTL bands per category.
const (
	defaultProfileTTL          = 6 * time.Hour
	defaultRosterTTL           = 30 * time.Minute
	defaultCaptainStatusTTL    = 30 * time.Minute
	defaultLeaderboardTTL      = 2 * time.Minute
	defaultLeaderboardFinalTTL = 24 * time.Hour
	defaultJoinRequestsTTL     = 30 * time.Second
	defaultPersistFloor        = time.Minute
)

// Policy is the data-driven category → TTL table. Call sites never hardcode
// durations; adding a category means adding a table entry.
type Policy struct {
	ttls         map[Category]time.Duration
	persistFloor time.Duration
}

// PolicyOption applies a configuration option to a Policy.
type PolicyOption func(*Policy)

// WithTTL overrides the TTL for one category. A zero duration marks the
// category as never cached.
func WithTTL(category Category, ttl time.Duration) PolicyOption {
	return func(p *Policy) {
		if ttl < 0 {
			ttl = 0
		}
		p.ttls[category] = ttl
	}
}

// WithPersistFloor sets the minimum TTL at which entries become eligible
// for durable storage across restarts.
func WithPersistFloor(floor time.Duration) PolicyOption {
	return func(p *Policy) {
		if floor > 0 {
			p.persistFloor = floor
		}
	}
}

// NewPolicy builds the policy table with defaults, then applies overrides.
func NewPolicy(opts ...PolicyOption) *Policy {
	p := &Policy{
		ttls: map[Category]time.Duration{
			CategoryProfile:          defaultProfileTTL,
			CategoryRoster:           defaultRosterTTL,
			CategoryCaptainStatus:    defaultCaptainStatusTTL,
			CategoryLeaderboard:      defaultLeaderboardTTL,
			CategoryLeaderboardFinal: defaultLeaderboardFinalTTL,
			CategoryJoinRequests:     defaultJoinRequestsTTL,
			CategoryLiveBalance:      0, // real-time data bypasses caching entirely
		},
		persistFloor: defaultPersistFloor,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TTLFor returns the TTL band for a category. Unknown categories read as
// zero, i.e. never cached.
func (p *Policy) TTLFor(category Category) time.Duration {
	return p.ttls[category]
}

// ShouldPersist reports whether entries with the given TTL are eligible for
// durable storage across process restarts. Short-lived entries stay
// memory-only.
func (p *Policy) ShouldPersist(ttl time.Duration) bool {
	return ttl >= p.persistFloor
}
