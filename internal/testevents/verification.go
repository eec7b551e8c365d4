package testevents

import (
	"fmt"
)

// verify checks a returned leaderboard against the fixture that produced
// it: ranks must be a gap-free total order, scores must descend with rank,
// and every scored identity must be a fixture member.
func verify(f fixture, result Result) error {
	if result.CompetitionID != f.CompetitionID {
		return fmt.Errorf("competition id mismatch: got %s", result.CompetitionID)
	}
	if len(result.Entries) != len(f.Members) {
		return fmt.Errorf("expected %d entries, got %d", len(f.Members), len(result.Entries))
	}

	members := make(map[string]struct{}, len(f.Members))
	for _, m := range f.Members {
		members[m] = struct{}{}
	}

	for i, entry := range result.Entries {
		if entry.Rank != i+1 {
			return fmt.Errorf("rank gap at position %d: got rank %d", i, entry.Rank)
		}
		if i > 0 && entry.Score > result.Entries[i-1].Score {
			return fmt.Errorf("score inversion at rank %d: %f > %f",
				entry.Rank, entry.Score, result.Entries[i-1].Score)
		}
		if _, ok := members[entry.Identity]; !ok {
			return fmt.Errorf("unknown identity %s on the board", entry.Identity)
		}
		if entry.Partial {
			return fmt.Errorf("entry for %s is partial under full visibility", entry.Identity)
		}
	}
	return nil
}
