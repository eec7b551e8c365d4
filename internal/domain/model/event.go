// Package model contains the domain types shared between layers.
package model

import "strconv"

// Event kinds consumed by the engine. Numbering follows the relay
// conventions of the surrounding ecosystem: replaceable kinds for team
// metadata and rosters, an additive kind for activity records.
const (
	KindTeamMetadata          = 33404
	KindTeamRoster            = 30000
	KindActivityRecord        = 1301
	KindJoinRequest           = 1105
	KindApproval              = 1106
	KindRemoval               = 1107
	KindCompetitionDefinition = 31013
)

// Tag keys used on consumed events.
const (
	TagIdentifier  = "d"    // logical key of a replaceable event (team id, competition id)
	TagMember      = "p"    // member/requester identity
	TagCompetition = "comp" // competition reference on join/approval/removal events
	TagTeam        = "team" // team reference on competition definitions
	TagDistance    = "distance"
	TagDuration    = "duration"
	TagCalories    = "calories"
)

// Event is a signed, author-attributed relay event as observed by the
// engine. Events are immutable once observed; relays may deliver the same
// event more than once and there is no enforced global order.
type Event struct {
	ID        string
	Author    string
	Kind      int
	CreatedAt int64 // unix seconds, as recorded by the author
	Tags      [][]string
	Content   string
}

// Tag returns the first value of the given tag key.
func (e Event) Tag(key string) (string, bool) {
	for _, t := range e.Tags {
		if len(t) >= 2 && t[0] == key {
			return t[1], true
		}
	}
	return "", false
}

// TagValues returns every value carried under the given tag key, in tag order.
func (e Event) TagValues(key string) []string {
	var vals []string
	for _, t := range e.Tags {
		if len(t) >= 2 && t[0] == key {
			vals = append(vals, t[1])
		}
	}
	return vals
}

// Supersedes reports whether e wins over other under last-writer-wins
// semantics: greater CreatedAt wins; on a clock collision the
// lexicographically greater event id wins. Every client applying this rule
// converges on the same replaceable-event winner.
func (e Event) Supersedes(other Event) bool {
	if e.CreatedAt != other.CreatedAt {
		return e.CreatedAt > other.CreatedAt
	}
	return e.ID > other.ID
}

// Before orders events ascending by CreatedAt, breaking ties by id. It is
// the total order used wherever a deterministic event sequence is needed.
func (e Event) Before(other Event) bool {
	if e.CreatedAt != other.CreatedAt {
		return e.CreatedAt < other.CreatedAt
	}
	return e.ID < other.ID
}

// tagFloat parses a numeric tag value, returning 0 when absent or malformed.
func (e Event) tagFloat(key string) float64 {
	v, ok := e.Tag(key)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
