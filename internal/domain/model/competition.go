package model

import (
	"encoding/json"
	"fmt"
)

// Competition is the definition of a scored window, parsed from a
// competition-definition event.
type Competition struct {
	ID     string `json:"id"`
	TeamID string `json:"team_id"`
	Start  int64  `json:"start"` // window start, unix seconds, inclusive
	End    int64  `json:"end"`   // window end, unix seconds, exclusive
	Rule   string `json:"rule"`  // scoring rule name, see the scoring package
	Open   bool   `json:"open"`  // open competitions need no approval to join
}

// CompetitionFromEvent parses a competition definition. The competition id
// comes from the event's identifier tag; the rest of the definition lives in
// the content JSON.
func CompetitionFromEvent(e Event) (Competition, error) {
	var c Competition
	if err := json.Unmarshal([]byte(e.Content), &c); err != nil {
		return Competition{}, fmt.Errorf("parse competition definition %s: %w", e.ID, err)
	}
	if id, ok := e.Tag(TagIdentifier); ok {
		c.ID = id
	}
	if teamID, ok := e.Tag(TagTeam); ok {
		c.TeamID = teamID
	}
	if c.ID == "" {
		return Competition{}, fmt.Errorf("competition definition %s has no identifier", e.ID)
	}
	if c.End <= c.Start {
		return Competition{}, fmt.Errorf("competition %s has an empty window", c.ID)
	}
	return c, nil
}

// Finished reports whether the competition window has closed as of now
// (unix seconds). Finished leaderboards are effectively immutable.
func (c Competition) Finished(now int64) bool {
	return now >= c.End
}
