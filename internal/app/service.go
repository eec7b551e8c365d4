// Package service wires the cache, event store, and derivation components
// into the engine's caller-facing API.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/adapters/eventstore"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/cache"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/approval"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/captain"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/leaderboard"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/roster"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/scoring"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/logger"
)

// Service is the aggregation engine. It owns the single shared cache and
// passes it by reference to every component; construct one at application
// start and Flush it on sign-out.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      eventstore.Store
	cache      *cache.Cache
	rosters    *roster.Resolver
	captains   *captain.Detector
	approvals  *approval.Tracker
	aggregator *leaderboard.Aggregator

	// Configuration
	policy          *cache.Policy
	cachePath       string
	queryLimit      int
	teamScanLimit   int
	scanTimeout     time.Duration
	retryBackoff    time.Duration
	authorChunkSize int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the event store adapter. Required: the engine has no
// relay client of its own.
func WithStore(store eventstore.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithPolicy sets the cache category policy table.
func WithPolicy(policy *cache.Policy) Option {
	return func(s *Service) {
		if policy != nil {
			s.policy = policy
		}
	}
}

// WithCachePath enables durable cache snapshots at the given file path.
func WithCachePath(path string) Option {
	return func(s *Service) {
		s.cachePath = path
	}
}

// WithQueryLimit bounds per-resolution event queries.
func WithQueryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.queryLimit = limit
		}
	}
}

// WithTeamScanLimit bounds the captain detector's broad team scan.
func WithTeamScanLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.teamScanLimit = limit
		}
	}
}

// WithScanTimeout caps the captain detector's broad scan duration.
func WithScanTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.scanTimeout = d
		}
	}
}

// WithRetryBackoff sets the backoff before the single query retry.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retryBackoff = d
		}
	}
}

// WithAuthorChunkSize bounds authors per batched activity query.
func WithAuthorChunkSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.authorChunkSize = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// Default service configuration constants.
const (
	defaultQueryLimit      = 500
	defaultTeamScanLimit   = 1000
	defaultScanTimeout     = 10 * time.Second
	defaultRetryBackoff    = 250 * time.Millisecond
	defaultAuthorChunkSize = 50
)

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		policy:          cache.NewPolicy(),
		queryLimit:      defaultQueryLimit,
		teamScanLimit:   defaultTeamScanLimit,
		scanTimeout:     defaultScanTimeout,
		retryBackoff:    defaultRetryBackoff,
		authorChunkSize: defaultAuthorChunkSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the cache and derivation components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil {
		return ErrNoStore
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("engine")
	}

	s.logger.Info(ctx, "starting aggregation engine...")

	cacheOpts := []cache.Option{cache.WithPolicy(s.policy)}
	if s.cachePath != "" {
		cacheOpts = append(cacheOpts, cache.WithPersister(cache.NewFilePersister(s.cachePath)))
	}
	s.cache = cache.New(cacheOpts...)

	// Retries live below the cache: results served from cache never hit
	// the store, so they are never retried.
	store := eventstore.WithRetry(s.store, eventstore.WithBackoff(s.retryBackoff))

	s.rosters = roster.New(store, s.cache, roster.WithQueryLimit(s.queryLimit))
	s.captains = captain.New(store, s.cache, s.rosters,
		captain.WithScanLimit(s.teamScanLimit),
		captain.WithScanTimeout(s.scanTimeout),
	)
	s.approvals = approval.New(store, s.cache, approval.WithQueryLimit(s.queryLimit))
	s.aggregator = leaderboard.New(store, s.cache, s.rosters, s.approvals,
		leaderboard.WithAuthorChunkSize(s.authorChunkSize),
	)

	s.started = true
	s.logger.Info(ctx, "aggregation engine started",
		logger.Int("queryLimit", s.queryLimit),
		logger.Int("teamScanLimit", s.teamScanLimit),
		logger.Bool("persistentCache", s.cachePath != ""),
	)
	return nil
}

// Stop persists the cache snapshot and shuts the engine down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping aggregation engine...")
	_ = s.cache.Close()
	s.started = false
}

// ResolveMembers returns the canonical member set of a team. The error is
// roster.ErrResolutionFailed (or roster.ErrTeamNotFound) — distinct from an
// empty roster, so callers can tell "no members yet" from "couldn't check".
func (s *Service) ResolveMembers(ctx context.Context, teamID string) ([]string, error) {
	return s.rosters.ResolveMembers(ctx, teamID)
}

// IsCaptain reports whether identity captains the team. Always succeeds,
// defaulting to false on irrecoverable failure.
func (s *Service) IsCaptain(ctx context.Context, identity, teamID string) bool {
	return s.captains.IsCaptain(ctx, identity, teamID)
}

// CaptainStatus scans for every team the identity owns; best-effort under
// partial relay visibility.
func (s *Service) CaptainStatus(ctx context.Context, identity string) captain.Status {
	return s.captains.Status(ctx, identity)
}

// RefreshCaptain forces eviction and recomputation of an identity's
// captaincy, for use after actions that could change it.
func (s *Service) RefreshCaptain(ctx context.Context, identity string) captain.Status {
	return s.captains.Refresh(ctx, identity)
}

// ComputeLeaderboard builds the ranked standings for a competition. It
// never panics and embeds partial-failure flags per entry; the error is
// limited to an unavailable competition definition.
func (s *Service) ComputeLeaderboard(ctx context.Context, competitionID, teamID string, rule scoring.Rule) (leaderboard.Result, error) {
	return s.aggregator.Compute(ctx, competitionID, teamID, rule)
}

// AuthorizedParticipants returns the identities currently authorized for a
// competition.
func (s *Service) AuthorizedParticipants(ctx context.Context, competitionID string) ([]string, error) {
	return s.approvals.AuthorizedParticipants(ctx, competitionID)
}

// Invalidate is the cache-bust hook for write-path callers: after a join,
// leave, or team creation is known to have succeeded, evict the category
// entry so the next read recomputes.
func (s *Service) Invalidate(category cache.Category, key string) {
	if key == "" {
		s.cache.InvalidatePrefix(string(category))
		return
	}
	s.cache.Invalidate(cache.Key(category, key))
}

// InvalidateFor evicts the derived state a newly ingested event makes
// stale. The ingest worker pool calls it for every event it applies, so
// reads that follow an ingest see recomputed state, not a cached snapshot
// from before the event existed.
func (s *Service) InvalidateFor(e model.Event) {
	switch e.Kind {
	case model.KindTeamMetadata:
		if teamID, ok := e.Tag(model.TagIdentifier); ok {
			s.cache.Invalidate(cache.Key(cache.CategoryProfile, "team", teamID))
		}
		// Ownership may have changed for the author; statuses are cheap to
		// recompute, so evict the whole category.
		s.cache.InvalidatePrefix(string(cache.CategoryCaptainStatus))
	case model.KindTeamRoster:
		if teamID, ok := e.Tag(model.TagIdentifier); ok {
			s.cache.Invalidate(cache.Key(cache.CategoryRoster, teamID))
		}
	case model.KindCompetitionDefinition:
		if compID, ok := e.Tag(model.TagIdentifier); ok {
			s.cache.Invalidate(cache.Key(cache.CategoryProfile, "competition", compID))
			s.cache.InvalidatePrefix(cache.Key(cache.CategoryLeaderboard, compID))
			s.cache.InvalidatePrefix(cache.Key(cache.CategoryLeaderboardFinal, compID))
		}
	case model.KindJoinRequest, model.KindApproval, model.KindRemoval:
		if compID, ok := e.Tag(model.TagCompetition); ok {
			s.cache.Invalidate(cache.Key(cache.CategoryJoinRequests, compID))
			s.cache.InvalidatePrefix(cache.Key(cache.CategoryLeaderboard, compID))
		}
	case model.KindActivityRecord:
		// Activities carry no competition pointer; every live leaderboard
		// could be affected. Finished ones are immutable and stay cached.
		s.cache.InvalidatePrefix(string(cache.CategoryLeaderboard) + ":")
	}
}

// Flush drops all cached state, memory and disk. Called on sign-out.
func (s *Service) Flush() {
	s.cache.Flush()
}

// GetStats reports engine statistics for the stats endpoint.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"started":       s.started,
		"cache_entries": s.cache.Len(),
	}
}

// CacheLen reports the number of live cache entries, for stats logging.
func (s *Service) CacheLen() int {
	return s.cache.Len()
}
