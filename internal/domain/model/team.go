package model

// Team is the identity of a team as established by its first authoritative
// metadata event. The captain is the author of that event and does not
// change afterwards; there is no transfer mechanism.
type Team struct {
	ID              string
	Captain         string
	CreatedAt       int64
	MetadataEventID string
}

// TeamFromEvent builds a Team from a team-metadata event. The second return
// is false when the event carries no team identifier.
func TeamFromEvent(e Event) (Team, bool) {
	id, ok := e.Tag(TagIdentifier)
	if !ok || id == "" {
		return Team{}, false
	}
	return Team{
		ID:              id,
		Captain:         e.Author,
		CreatedAt:       e.CreatedAt,
		MetadataEventID: e.ID,
	}, true
}
