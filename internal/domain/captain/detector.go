// Package captain determines whether an identity owns teams.
//
// There is no identity → owned-teams index in the event store, so the full
// answer requires a broad scan over recent team metadata. The scan is the
// most expensive operation in the engine and is strictly cache-first;
// partial visibility (some relays answering, some not) is the normal
// operating condition and yields a best-effort result, never an error.
package captain

import (
	"context"
	"sort"
	"time"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/adapters/eventstore"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/cache"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/derive"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/roster"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/logger"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/metrics"
)

// Default detector configuration constants.
const (
	defaultScanLimit   = 1000
	defaultScanTimeout = 10 * time.Second
)

// Status is the derived ownership view for one identity.
type Status struct {
	IsCaptain  bool     `json:"is_captain"`
	TeamsOwned []string `json:"teams_owned"`
	// Partial marks a best-effort result built from incomplete visibility
	// (timed-out or failed scan). Partial results are never cached.
	Partial bool `json:"partial"`
}

// Detector derives captaincy from team metadata events.
type Detector struct {
	store       eventstore.Store
	cache       *cache.Cache
	teams       *roster.Resolver
	scanLimit   int
	scanTimeout time.Duration
	log         logger.Logger
}

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithScanLimit bounds the broad team scan to the most recent N metadata
// events.
func WithScanLimit(limit int) Option {
	return func(d *Detector) {
		if limit > 0 {
			d.scanLimit = limit
		}
	}
}

// WithScanTimeout caps how long a broad scan may run before settling for a
// best-effort result.
func WithScanTimeout(timeout time.Duration) Option {
	return func(d *Detector) {
		if timeout > 0 {
			d.scanTimeout = timeout
		}
	}
}

// WithLogger sets a custom logger for the detector.
func WithLogger(log logger.Logger) Option {
	return func(d *Detector) {
		if log != nil {
			d.log = log
		}
	}
}

// New creates a Detector.
func New(store eventstore.Store, c *cache.Cache, teams *roster.Resolver, opts ...Option) *Detector {
	d := &Detector{
		store:       store,
		cache:       c,
		teams:       teams,
		scanLimit:   defaultScanLimit,
		scanTimeout: defaultScanTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Get().Named("captain")
	}
	return d
}

// IsCaptain reports whether identity is the recorded captain of the team.
// The answer is cached; on irrecoverable failure it defaults to false
// rather than erroring, so callers can always branch on it.
func (d *Detector) IsCaptain(ctx context.Context, identity, teamID string) bool {
	key := cache.Key(cache.CategoryCaptainStatus, identity, teamID)
	if v, ok := d.cache.Get(key); ok {
		if is, ok := cache.As[bool](v); ok {
			return is
		}
	}

	team, err := d.teams.Team(ctx, teamID)
	if err != nil {
		d.log.Warn(ctx, "captain check failed, defaulting to false",
			logger.String("identity", identity),
			logger.String("team", teamID),
			logger.Error(err),
		)
		return false
	}

	is := team.Captain == identity
	d.cache.SetCategory(cache.CategoryCaptainStatus, key, is)
	return is
}

// Status scans recent team metadata and reports every team the identity
// owns. A timed-out or failed scan returns whatever could be derived,
// flagged Partial; a stale cached status is preferred over an empty one.
func (d *Detector) Status(ctx context.Context, identity string) Status {
	key := cache.Key(cache.CategoryCaptainStatus, identity)
	if v, ok := d.cache.Get(key); ok {
		if st, ok := cache.As[Status](v); ok {
			return st
		}
	}

	st, ok := d.scan(ctx, identity)
	if ok {
		d.cache.SetCategory(cache.CategoryCaptainStatus, key, st)
		return st
	}

	// Scan failed outright: serve the stale status if one survives, marked
	// partial so callers know it may be out of date.
	if v, found, _ := d.cache.GetAllowStale(key); found {
		if stale, ok := cache.As[Status](v); ok {
			stale.Partial = true
			return stale
		}
	}
	return st
}

// Refresh evicts every cached answer for the identity and recomputes its
// status. Callers invoke it after any action that could change captaincy,
// such as creating a team.
func (d *Detector) Refresh(ctx context.Context, identity string) Status {
	d.cache.InvalidatePrefix(cache.Key(cache.CategoryCaptainStatus, identity))
	return d.Status(ctx, identity)
}

// scan performs the bounded broad scan. The second return is false only
// when nothing at all could be retrieved.
func (d *Detector) scan(ctx context.Context, identity string) (Status, bool) {
	scanCtx, cancel := context.WithTimeout(ctx, d.scanTimeout)
	defer cancel()

	metrics.RecordCaptainScan()
	events, err := d.store.QueryEvents(scanCtx, eventstore.Filter{
		Kinds: []int{model.KindTeamMetadata},
		Limit: d.scanLimit,
	})
	if err != nil && len(events) == 0 {
		d.log.Warn(ctx, "team scan failed, returning best effort",
			logger.String("identity", identity),
			logger.Error(err),
		)
		metrics.RecordPartialResult()
		return Status{Partial: true, TeamsOwned: []string{}}, false
	}
	partial := err != nil

	firsts := derive.Earliest(events, func(e model.Event) string {
		id, _ := e.Tag(model.TagIdentifier)
		return id
	})

	owned := make([]string, 0)
	for teamID, e := range firsts {
		if e.Author == identity {
			owned = append(owned, teamID)
		}
	}
	sort.Strings(owned)

	st := Status{
		IsCaptain:  len(owned) > 0,
		TeamsOwned: owned,
		Partial:    partial,
	}
	if partial {
		metrics.RecordPartialResult()
		return st, false // best-effort: usable, but not cacheable
	}
	return st, true
}
