// Package leaderboard computes ranked competition standings from scattered
// per-member activity events.
//
// The aggregator never fails a whole computation because part of the input
// is unreachable: participants whose activity fetch failed are scored from
// whatever was retrieved and flagged partial, and the UI always has
// something to render.
package leaderboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/adapters/eventstore"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/cache"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/approval"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/derive"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/roster"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/scoring"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/logger"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/metrics"
)

// Default aggregator configuration constants.
const (
	defaultAuthorChunkSize = 50
	defaultChunkLimit      = 5000
)

// Entry is one ranked row of a computed leaderboard.
type Entry struct {
	Identity        string  `json:"identity"`
	Rank            int     `json:"rank"`
	Score           float64 `json:"score"`
	Activities      int     `json:"activities"`
	FirstActivityAt int64   `json:"first_activity_at,omitempty"` // unix seconds; 0 when no activity counted
	// Partial marks an entry scored from incomplete activity data.
	Partial bool `json:"partial,omitempty"`
}

// Result is a computed leaderboard. It is derived state: never
// authoritative, always recomputable from the event set.
type Result struct {
	CompetitionID string    `json:"competition_id"`
	Entries       []Entry   `json:"entries"`
	AsOf          time.Time `json:"as_of"`
	// Partial is set when any entry is partial or a participant source
	// (roster, approvals) was unavailable.
	Partial bool `json:"partial,omitempty"`
}

// Aggregator computes leaderboards.
type Aggregator struct {
	store     eventstore.Store
	cache     *cache.Cache
	rosters   *roster.Resolver
	approvals *approval.Tracker

	chunkSize  int
	chunkLimit int
	now        func() time.Time
	log        logger.Logger
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithAuthorChunkSize bounds how many authors one batched activity query
// carries. Chunks are fetched concurrently; a failed chunk degrades only
// its own participants.
func WithAuthorChunkSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.chunkSize = n
		}
	}
}

// WithChunkLimit bounds the events returned per activity chunk query.
func WithChunkLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.chunkLimit = n
		}
	}
}

// WithNow sets the clock used for AsOf stamps and live/finished decisions.
func WithNow(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets a custom logger for the aggregator.
func WithLogger(log logger.Logger) Option {
	return func(a *Aggregator) {
		if log != nil {
			a.log = log
		}
	}
}

// New creates an Aggregator.
func New(store eventstore.Store, c *cache.Cache, rosters *roster.Resolver, approvals *approval.Tracker, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:      store,
		cache:      c,
		rosters:    rosters,
		approvals:  approvals,
		chunkSize:  defaultAuthorChunkSize,
		chunkLimit: defaultChunkLimit,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Get().Named("leaderboard")
	}
	return a
}

// Compute builds the ranked leaderboard for a competition. teamID may be
// empty, in which case the competition definition's team is used. rule may
// be nil, in which case the rule named by the definition applies.
//
// Compute returns an error only when the competition definition itself is
// unavailable; every other failure degrades to a partial result.
func (a *Aggregator) Compute(ctx context.Context, competitionID, teamID string, rule scoring.Rule) (Result, error) {
	start := a.now()
	defer func() {
		metrics.RecordLeaderboardDuration(float64(time.Since(start).Milliseconds()))
	}()
	metrics.RecordLeaderboardCompute()

	comp, err := a.approvals.Competition(ctx, competitionID)
	if err != nil {
		return Result{}, fmt.Errorf("compute leaderboard: %w", err)
	}
	if teamID == "" {
		teamID = comp.TeamID
	}
	if rule == nil {
		rule, err = scoring.RuleFor(comp.Rule)
		if err != nil {
			a.log.Warn(ctx, "unknown scoring rule, counting activities",
				logger.String("competition", competitionID),
				logger.String("rule", comp.Rule),
			)
			rule = scoring.CountActivities{}
		}
	}

	category := cache.CategoryLeaderboard
	if comp.Finished(start.Unix()) {
		// A finished competition's leaderboard is effectively immutable.
		category = cache.CategoryLeaderboardFinal
	}
	key := cache.Key(category, competitionID, fmt.Sprintf("%d-%d", comp.Start, comp.End), rule.Name())
	if v, ok := a.cache.Get(key); ok {
		if res, ok := cache.As[Result](v); ok {
			return res, nil
		}
	}

	participants, sourcesPartial := a.participants(ctx, comp, teamID)
	if len(participants) == 0 {
		res := Result{
			CompetitionID: competitionID,
			Entries:       []Entry{},
			AsOf:          start,
			Partial:       sourcesPartial,
		}
		if !res.Partial {
			a.cache.SetCategory(category, key, res)
		} else {
			metrics.RecordPartialResult()
		}
		return res, nil
	}

	events, failedAuthors := a.fetchActivities(ctx, participants, comp.Start, comp.End)

	eligible := make(map[string]struct{}, len(participants))
	for _, id := range participants {
		eligible[id] = struct{}{}
	}
	byAuthor := make(map[string][]model.Activity, len(participants))
	for _, e := range derive.Union(events) {
		act := model.ActivityFromEvent(e)
		if !act.InWindow(comp.Start, comp.End) {
			continue
		}
		if _, ok := eligible[act.Author]; !ok {
			continue
		}
		byAuthor[act.Author] = append(byAuthor[act.Author], act)
	}

	entries := make([]Entry, 0, len(participants))
	for _, identity := range participants {
		acts := byAuthor[identity]
		e := Entry{
			Identity:   identity,
			Score:      rule.Score(acts),
			Activities: len(acts),
			Partial:    failedAuthors[identity],
		}
		if len(acts) > 0 {
			e.FirstActivityAt = acts[0].Timestamp // Union order is ascending
		}
		entries = append(entries, e)
	}
	rank(entries)

	res := Result{
		CompetitionID: competitionID,
		Entries:       entries,
		AsOf:          start,
		Partial:       sourcesPartial || len(failedAuthors) > 0,
	}
	if res.Partial {
		metrics.RecordPartialResult()
	} else {
		// Partial results are never cached; the next call should retry.
		a.cache.SetCategory(category, key, res)
	}
	return res, nil
}

// participants resolves roster ∪ authorized − removed. Either source may
// fail without sinking the computation; the result is then flagged partial.
func (a *Aggregator) participants(ctx context.Context, comp model.Competition, teamID string) ([]string, bool) {
	partial := false
	set := make(map[string]struct{})

	members, err := a.rosters.ResolveMembers(ctx, teamID)
	if err != nil {
		a.log.Warn(ctx, "roster unavailable for leaderboard",
			logger.String("team", teamID),
			logger.Error(err),
		)
		partial = true
	}
	for _, m := range members {
		set[m] = struct{}{}
	}

	eval, err := a.approvals.Evaluate(ctx, comp.ID)
	if err != nil {
		a.log.Warn(ctx, "approvals unavailable for leaderboard",
			logger.String("competition", comp.ID),
			logger.Error(err),
		)
		partial = true
	}
	for _, id := range eval.Authorized {
		set[id] = struct{}{}
	}
	for _, id := range eval.Removed {
		delete(set, id)
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, partial
}

// fetchActivities issues one batched query per author chunk, concurrently.
// A failed chunk marks its authors so their entries carry the partial flag
// while every other chunk still counts.
func (a *Aggregator) fetchActivities(ctx context.Context, authors []string, since, until int64) ([]model.Event, map[string]bool) {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		events []model.Event
		failed = make(map[string]bool)
	)

	for start := 0; start < len(authors); start += a.chunkSize {
		end := start + a.chunkSize
		if end > len(authors) {
			end = len(authors)
		}
		chunk := authors[start:end]

		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := a.store.QueryEvents(ctx, eventstore.Filter{
				Kinds:   []int{model.KindActivityRecord},
				Authors: chunk,
				Since:   since,
				Until:   until,
				Limit:   a.chunkLimit,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.log.Warn(ctx, "activity chunk fetch failed, scoring from partial data",
					logger.Int("authors", len(chunk)),
					logger.Error(err),
				)
				for _, author := range chunk {
					failed[author] = true
				}
				return
			}
			events = append(events, got...)
		}()
	}
	wg.Wait()
	return events, failed
}

// rank orders entries descending by score, breaking ties by earliest
// qualifying activity (consistency beats a last-minute single effort) and
// finally by identity, producing a total order with no ties.
func rank(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		fi, fj := firstOrMax(entries[i]), firstOrMax(entries[j])
		if fi != fj {
			return fi < fj
		}
		return entries[i].Identity < entries[j].Identity
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// firstOrMax treats "no qualifying activity" as later than any activity.
func firstOrMax(e Entry) int64 {
	if e.Activities == 0 {
		return math.MaxInt64
	}
	return e.FirstActivityAt
}
