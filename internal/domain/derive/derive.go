// Package derive implements the two derivation strategies the engine uses
// to reduce raw relay events into state: Latest for replaceable events
// (rosters, metadata) and Union for additive events (activity records).
package derive

import (
	"sort"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
)

// Latest reduces a set of replaceable events to the winning event per
// logical key. The winner is the event with the greatest CreatedAt; a clock
// collision is broken by the lexicographically greater event id, so
// independent clients converge on the same winner. Events for which key
// returns "" are skipped.
func Latest(events []model.Event, key func(model.Event) string) map[string]model.Event {
	winners := make(map[string]model.Event, len(events))
	for _, e := range events {
		k := key(e)
		if k == "" {
			continue
		}
		cur, ok := winners[k]
		if !ok || e.Supersedes(cur) {
			winners[k] = e
		}
	}
	return winners
}

// LatestByIdentifier is Latest keyed by the event's identifier tag.
func LatestByIdentifier(events []model.Event) map[string]model.Event {
	return Latest(events, func(e model.Event) string {
		id, _ := e.Tag(model.TagIdentifier)
		return id
	})
}

// Union reduces a set of additive events to the deduplicated union, ordered
// ascending by (CreatedAt, ID). Relays may deliver the same event any number
// of times; each distinct id contributes exactly once.
func Union(events []model.Event) []model.Event {
	seen := make(map[string]struct{}, len(events))
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Earliest returns the first event per key under the same deterministic
// order Latest uses, but preferring the oldest event: smallest CreatedAt,
// ties broken by the lexicographically smaller id. Team identity is defined
// by the first metadata event, so this is the strategy behind captaincy.
func Earliest(events []model.Event, key func(model.Event) string) map[string]model.Event {
	firsts := make(map[string]model.Event, len(events))
	for _, e := range events {
		k := key(e)
		if k == "" {
			continue
		}
		cur, ok := firsts[k]
		if !ok || e.Before(cur) {
			firsts[k] = e
		}
	}
	return firsts
}
