package testevents

// Event kinds submitted by the generator, matching the engine's consumed
// kinds.
const (
	kindTeamMetadata          = 33404
	kindTeamRoster            = 30000
	kindActivityRecord        = 1301
	kindCompetitionDefinition = 31013
)
