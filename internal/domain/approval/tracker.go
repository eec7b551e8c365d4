// Package approval reconciles join-request, approval, and removal events
// into the authorized-participant set of a competition.
//
// Each identity runs a small state machine over {requested, approved,
// removed}. Transitions are ordered by event time and the most recent word
// wins: a removal after an approval revokes it, and a fresh request
// restarts the cycle. Open competitions skip the approval step entirely.
package approval

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

// Default tracker configuration constants.
const (
	defaultQueryLimit = 1000
)

// Evaluation is the derived participation state of one competition.
type Evaluation struct {
	// Authorized identities, sorted.
	Authorized []string `json:"authorized"`
	// Removed identities whose latest word is a removal, sorted. Used by
	// the aggregator to subtract roster members kicked from a competition.
	Removed []string `json:"removed"`
}

// Tracker computes authorized-participant sets.
type Tracker struct {
	store      eventstore.Store
	cache      *cache.Cache
	queryLimit int
	log        logger.Logger
}

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithQueryLimit bounds the number of workflow events fetched per
// competition.
func WithQueryLimit(limit int) Option {
	return func(t *Tracker) {
		if limit > 0 {
			t.queryLimit = limit
		}
	}
}

// WithLogger sets a custom logger for the tracker.
func WithLogger(log logger.Logger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

// New creates a Tracker.
func New(store eventstore.Store, c *cache.Cache, opts ...Option) *Tracker {
	t := &Tracker{
		store:      store,
		cache:      c,
		queryLimit: defaultQueryLimit,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = logger.Get().Named("approval")
	}
	return t
}

// Competition resolves a competition definition, latest-writer-wins among
// definition events for the id.
func (t *Tracker) Competition(ctx context.Context, competitionID string) (model.Competition, error) {
	key := cache.Key(cache.CategoryProfile, "competition", competitionID)
	if v, ok := t.cache.Get(key); ok {
		if comp, ok := cache.As[model.Competition](v); ok {
			return comp, nil
		}
	}

	events, err := t.store.QueryEvents(ctx, eventstore.Filter{
		Kinds: []int{model.KindCompetitionDefinition},
		Tags:  map[string][]string{model.TagIdentifier: {competitionID}},
		Limit: t.queryLimit,
	})
	if err != nil {
		return model.Competition{}, fmt.Errorf("competition definition query for %s: %w", competitionID, err)
	}

	winners := derive.LatestByIdentifier(events)
	e, ok := winners[competitionID]
	if !ok {
		return model.Competition{}, fmt.Errorf("%w: %s", ErrCompetitionNotFound, competitionID)
	}
	comp, err := model.CompetitionFromEvent(e)
	if err != nil {
		return model.Competition{}, err
	}

	t.cache.SetCategory(cache.CategoryProfile, key, comp)
	return comp, nil
}

// AuthorizedParticipants returns the sorted set of identities currently
// authorized for the competition.
func (t *Tracker) AuthorizedParticipants(ctx context.Context, competitionID string) ([]string, error) {
	eval, err := t.Evaluate(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	return eval.Authorized, nil
}

// Evaluate reconciles the competition's workflow events into an
// Evaluation. Results are cached under the join-requests category, whose
// short TTL keeps gated dashboards near real time.
func (t *Tracker) Evaluate(ctx context.Context, competitionID string) (Evaluation, error) {
	key := cache.Key(cache.CategoryJoinRequests, competitionID)
	if v, ok := t.cache.Get(key); ok {
		if eval, ok := cache.As[Evaluation](v); ok {
			return eval, nil
		}
	}

	comp, err := t.Competition(ctx, competitionID)
	if err != nil {
		return Evaluation{}, err
	}

	events, err := t.store.QueryEvents(ctx, eventstore.Filter{
		Kinds: []int{model.KindJoinRequest, model.KindApproval, model.KindRemoval},
		Tags:  map[string][]string{model.TagCompetition: {competitionID}},
		Limit: t.queryLimit,
	})
	if err != nil {
		return Evaluation{}, fmt.Errorf("workflow query for competition %s: %w", competitionID, err)
	}

	eval := reconcile(derive.Union(events), comp.Open)
	t.cache.SetCategory(cache.CategoryJoinRequests, key, eval)
	metrics.RecordApprovalEvaluation()
	return eval, nil
}

// ledger tracks the latest event of each kind for one identity.
type ledger struct {
	request model.Event
	approve model.Event
	remove  model.Event
	hasReq  bool
	hasAppr bool
	hasRem  bool
}

func (l *ledger) observe(e model.Event) {
	switch e.Kind {
	case model.KindJoinRequest:
		if !l.hasReq || e.Supersedes(l.request) {
			l.request, l.hasReq = e, true
		}
	case model.KindApproval:
		if !l.hasAppr || e.Supersedes(l.approve) {
			l.approve, l.hasAppr = e, true
		}
	case model.KindRemoval:
		if !l.hasRem || e.Supersedes(l.remove) {
			l.remove, l.hasRem = e, true
		}
	}
}

// removed reports whether the latest word for this identity is a removal.
func (l *ledger) removed() bool {
	if !l.hasRem {
		return false
	}
	if l.hasReq && l.request.Supersedes(l.remove) {
		return false // a new request restarts the cycle
	}
	if l.hasAppr && l.approve.Supersedes(l.remove) {
		return false
	}
	return true
}

// authorized applies the final-state rule. For gated competitions the
// latest of {approval, removal} decides, and an approval only counts with a
// matching earlier request. Open competitions authorize on the bare
// request.
func (l *ledger) authorized(open bool) bool {
	if l.removed() {
		return false
	}
	if open {
		return l.hasReq
	}
	if !l.hasAppr {
		return false
	}
	// Approval with no matching earlier request is ignored.
	return l.hasReq && !l.request.Supersedes(l.approve)
}

// reconcile folds workflow events into per-identity ledgers and extracts
// the authorized and removed sets. Requests attribute to their author;
// approvals and removals name the subject in their member tag.
func reconcile(events []model.Event, open bool) Evaluation {
	ledgers := make(map[string]*ledger)
	at := func(identity string) *ledger {
		l, ok := ledgers[identity]
		if !ok {
			l = &ledger{}
			ledgers[identity] = l
		}
		return l
	}

	for _, e := range events {
		switch e.Kind {
		case model.KindJoinRequest:
			at(e.Author).observe(e)
		case model.KindApproval, model.KindRemoval:
			if subject, ok := e.Tag(model.TagMember); ok && subject != "" {
				at(subject).observe(e)
			}
		}
	}

	eval := Evaluation{Authorized: []string{}, Removed: []string{}}
	for identity, l := range ledgers {
		if l.authorized(open) {
			eval.Authorized = append(eval.Authorized, identity)
		}
		if l.removed() {
			eval.Removed = append(eval.Removed, identity)
		}
	}
	sort.Strings(eval.Authorized)
	sort.Strings(eval.Removed)
	return eval
}
