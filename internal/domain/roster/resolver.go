// Package roster resolves canonical team membership from replaceable
// roster events.
//
// A team's roster is the member list carried by the most recent roster
// event authored by the team's captain for that team id. Events from any
// other author are ignored, which keeps spoofed membership out of every
// derived view.
package roster

import (
	"context"
	"fmt"
	"sort"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/adapters/eventstore"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/cache"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/derive"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/logger"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/metrics"
)

// Default resolver configuration constants.
const (
	defaultQueryLimit = 500
)

// Resolver turns roster events into canonical member sets.
type Resolver struct {
	store      eventstore.Store
	cache      *cache.Cache
	queryLimit int
	log        logger.Logger
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithQueryLimit bounds the number of events fetched per resolution.
func WithQueryLimit(limit int) Option {
	return func(r *Resolver) {
		if limit > 0 {
			r.queryLimit = limit
		}
	}
}

// WithLogger sets a custom logger for the resolver.
func WithLogger(log logger.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// New creates a Resolver backed by the given store and cache.
func New(store eventstore.Store, c *cache.Cache, opts ...Option) *Resolver {
	r := &Resolver{
		store:      store,
		cache:      c,
		queryLimit: defaultQueryLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("roster")
	}
	return r
}

// Team resolves a team's identity from its first metadata event. The
// captain is the author of that event.
func (r *Resolver) Team(ctx context.Context, teamID string) (model.Team, error) {
	key := cache.Key(cache.CategoryProfile, "team", teamID)
	if v, ok := r.cache.Get(key); ok {
		if team, ok := cache.As[model.Team](v); ok {
			return team, nil
		}
	}

	events, err := r.store.QueryEvents(ctx, eventstore.Filter{
		Kinds: []int{model.KindTeamMetadata},
		Tags:  map[string][]string{model.TagIdentifier: {teamID}},
		Limit: r.queryLimit,
	})
	if err != nil {
		return model.Team{}, fmt.Errorf("%w: team metadata query for %s: %v", ErrResolutionFailed, teamID, err)
	}

	firsts := derive.Earliest(events, func(e model.Event) string {
		id, _ := e.Tag(model.TagIdentifier)
		return id
	})
	e, ok := firsts[teamID]
	if !ok {
		return model.Team{}, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}
	team, ok := model.TeamFromEvent(e)
	if !ok {
		return model.Team{}, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}

	r.cache.SetCategory(cache.CategoryProfile, key, team)
	return team, nil
}

// ResolveMembers computes the current member set for a team. An empty set
// is a legitimate result (a captain-only team has no roster event yet) and
// is distinct from ErrResolutionFailed, which means the underlying query
// could not be completed at all.
func (r *Resolver) ResolveMembers(ctx context.Context, teamID string) ([]string, error) {
	key := cache.Key(cache.CategoryRoster, teamID)
	if v, ok := r.cache.Get(key); ok {
		if members, ok := cache.As[[]string](v); ok {
			return members, nil
		}
	}

	team, err := r.Team(ctx, teamID)
	if err != nil {
		metrics.RecordResolutionFailure()
		return nil, err
	}

	events, err := r.store.QueryEvents(ctx, eventstore.Filter{
		Kinds: []int{model.KindTeamRoster},
		Tags:  map[string][]string{model.TagIdentifier: {teamID}},
		Limit: r.queryLimit,
	})
	if err != nil {
		metrics.RecordResolutionFailure()
		return nil, fmt.Errorf("%w: roster query for team %s: %v", ErrResolutionFailed, teamID, err)
	}

	winner, found := r.latestCaptainRoster(ctx, events, team)
	members := []string{}
	if found {
		members = dedupeSorted(winner.TagValues(model.TagMember))
	}

	r.cache.SetCategory(cache.CategoryRoster, key, members)
	metrics.RecordRosterResolution()
	return members, nil
}

// latestCaptainRoster picks the winning roster event among those authored
// by the captain: greatest CreatedAt, clock collisions broken by the
// lexicographically greater event id so every client converges.
func (r *Resolver) latestCaptainRoster(ctx context.Context, events []model.Event, team model.Team) (model.Event, bool) {
	var winner model.Event
	found := false
	for _, e := range events {
		if e.Author != team.Captain {
			continue // non-captain roster events never affect membership
		}
		if !found {
			winner, found = e, true
			continue
		}
		if e.CreatedAt == winner.CreatedAt && e.ID != winner.ID {
			r.log.Warn(ctx, "roster clock collision, breaking tie by event id",
				logger.String("team", team.ID),
				logger.Int64("createdAt", e.CreatedAt),
			)
		}
		if e.Supersedes(winner) {
			winner = e
		}
	}
	return winner, found
}

func dedupeSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
