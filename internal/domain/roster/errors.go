package roster

import "errors"

// Sentinel kinds for roster errors.
var (
	// ErrResolutionFailed marks a roster lookup that could not be completed,
	// as opposed to a team that legitimately has no members yet.
	ErrResolutionFailed = errors.New("roster resolution failed")

	// ErrTeamNotFound means no metadata event establishes the team.
	ErrTeamNotFound = errors.New("team not found")
)
