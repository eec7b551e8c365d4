// Package testevents drives synthetic relay traffic against a running
// aggregation daemon: it fabricates teams, rosters, competitions, and
// activity records, submits them through the intake endpoint, and checks
// that the computed standings are internally consistent.
package testevents

import "time"

// Config holds configuration for a traffic run.
type Config struct {
	BaseURL             string        // base URL of the daemon
	Teams               int           // number of teams to fabricate
	MembersPerTeam      int           // members per team roster
	ActivitiesPerMember int           // activity records per member
	Workers             int           // concurrent submission workers
	Timeout             time.Duration // HTTP request timeout
	Seed                int64         // RNG seed; same seed, same events
	Verbose             bool          // log every submission
}

// Event is the wire shape submitted to POST /events.
type Event struct {
	ID        string     `json:"id"`
	Pubkey    string     `json:"pubkey"`
	Kind      int        `json:"kind"`
	CreatedAt int64      `json:"created_at"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
}

// Entry mirrors one leaderboard row returned by GET /leaderboard.
type Entry struct {
	Identity   string  `json:"identity"`
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
	Activities int     `json:"activities"`
	Partial    bool    `json:"partial,omitempty"`
}

// Result mirrors the GET /leaderboard response body.
type Result struct {
	CompetitionID string  `json:"competition_id"`
	Entries       []Entry `json:"entries"`
	Partial       bool    `json:"partial,omitempty"`
}

// Stats accumulates counters over one run.
type Stats struct {
	EventsGenerated  int
	EventsSubmitted  int
	EventsSuccessful int
	EventsRejected   int
	EventsFailed     int
	BoardsVerified   int
	StartTime        time.Time
	Duration         time.Duration
}
