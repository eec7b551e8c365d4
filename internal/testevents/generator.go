package testevents

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Generation bounds for fabricated activities.
const (
	minDistanceKm  = 1.0
	maxDistanceKm  = 21.1
	minDurationSec = 600
	maxDurationSec = 7200
)

// fixture is one fabricated team with its competition and events.
type fixture struct {
	TeamID        string
	CompetitionID string
	Captain       string
	Members       []string
	Events        []Event
}

// generate fabricates deterministic fixtures from the config's seed. Each
// team gets metadata, a roster, one open week-long distance competition,
// and in-window activities for every member.
func generate(cfg *Config) []fixture {
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // synthetic data, not crypto
	now := time.Now().Unix()
	windowStart := now - 3*24*3600
	windowEnd := now + 4*24*3600

	fixtures := make([]fixture, 0, cfg.Teams)
	for t := 0; t < cfg.Teams; t++ {
		f := fixture{
			TeamID:        fmt.Sprintf("team-%d-%s", t, shortID(rng)),
			CompetitionID: fmt.Sprintf("comp-%d-%s", t, shortID(rng)),
			Captain:       "npub-captain-" + shortID(rng),
		}
		for m := 0; m < cfg.MembersPerTeam; m++ {
			f.Members = append(f.Members, fmt.Sprintf("npub-%d-%d-%s", t, m, shortID(rng)))
		}

		f.Events = append(f.Events, Event{
			ID:        uuid.NewString(),
			Pubkey:    f.Captain,
			Kind:      kindTeamMetadata,
			CreatedAt: windowStart - 7*24*3600,
			Tags:      [][]string{{"d", f.TeamID}, {"name", "Synthetic Club " + strconv.Itoa(t)}},
		})

		rosterTags := [][]string{{"d", f.TeamID}}
		for _, member := range f.Members {
			rosterTags = append(rosterTags, []string{"p", member})
		}
		f.Events = append(f.Events, Event{
			ID:        uuid.NewString(),
			Pubkey:    f.Captain,
			Kind:      kindTeamRoster,
			CreatedAt: windowStart - 6*24*3600,
			Tags:      rosterTags,
		})

		f.Events = append(f.Events, Event{
			ID:        uuid.NewString(),
			Pubkey:    f.Captain,
			Kind:      kindCompetitionDefinition,
			CreatedAt: windowStart,
			Tags:      [][]string{{"d", f.CompetitionID}, {"team", f.TeamID}},
			Content: fmt.Sprintf(`{"start":%d,"end":%d,"rule":"distance","open":true}`,
				windowStart, windowEnd),
		})

		for _, member := range f.Members {
			for a := 0; a < cfg.ActivitiesPerMember; a++ {
				distance := minDistanceKm + rng.Float64()*(maxDistanceKm-minDistanceKm)
				duration := minDurationSec + rng.Intn(maxDurationSec-minDurationSec)
				at := windowStart + rng.Int63n(now-windowStart)
				f.Events = append(f.Events, Event{
					ID:        uuid.NewString(),
					Pubkey:    member,
					Kind:      kindActivityRecord,
					CreatedAt: at,
					Tags: [][]string{
						{"distance", strconv.FormatFloat(distance, 'f', 2, 64)},
						{"duration", strconv.Itoa(duration)},
					},
				})
			}
		}
		fixtures = append(fixtures, f)
	}
	return fixtures
}

func shortID(rng *rand.Rand) string {
	const alphabet = "0123456789abcdef"
	b := make([]byte, 8)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}
