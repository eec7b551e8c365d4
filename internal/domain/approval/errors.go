package approval

import "errors"

// ErrCompetitionNotFound means no definition event establishes the
// competition.
var ErrCompetitionNotFound = errors.New("competition not found")
