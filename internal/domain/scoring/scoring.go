// Package scoring defines the pluggable rules that turn a participant's
// activity records into a scalar score. The rule for a competition is named
// by its definition event and resolved with RuleFor, so adding a rule never
// touches the aggregator.
package scoring

import (
	"fmt"
	"sort"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
)

// Rule names understood by RuleFor.
const (
	RuleSumDistance     = "distance"
	RuleCountActivities = "count"
	RuleLongestDuration = "duration"
	RuleLongestStreak   = "streak"
)

// Rule computes a score from a participant's deduplicated, in-window
// activity records. Implementations must be pure: same records, same score.
type Rule interface {
	Name() string
	Score(activities []model.Activity) float64
}

// RuleFor resolves a rule by the name carried in a competition definition.
func RuleFor(name string) (Rule, error) {
	switch name {
	case RuleSumDistance:
		return SumDistance{}, nil
	case RuleCountActivities, "":
		return CountActivities{}, nil
	case RuleLongestDuration:
		return LongestDuration{}, nil
	case RuleLongestStreak:
		return LongestStreak{}, nil
	default:
		return nil, fmt.Errorf("unknown scoring rule %q", name)
	}
}

// SumDistance scores the total recorded distance.
type SumDistance struct{}

func (SumDistance) Name() string { return RuleSumDistance }

func (SumDistance) Score(activities []model.Activity) float64 {
	var total float64
	for _, a := range activities {
		total += a.Distance
	}
	return total
}

// CountActivities scores one point per activity record.
type CountActivities struct{}

func (CountActivities) Name() string { return RuleCountActivities }

func (CountActivities) Score(activities []model.Activity) float64 {
	return float64(len(activities))
}

// LongestDuration scores the single longest activity, in seconds.
type LongestDuration struct{}

func (LongestDuration) Name() string { return RuleLongestDuration }

func (LongestDuration) Score(activities []model.Activity) float64 {
	var best float64
	for _, a := range activities {
		if a.Duration > best {
			best = a.Duration
		}
	}
	return best
}

// LongestStreak scores the longest run of consecutive UTC days with at
// least one activity.
type LongestStreak struct{}

func (LongestStreak) Name() string { return RuleLongestStreak }

func (LongestStreak) Score(activities []model.Activity) float64 {
	if len(activities) == 0 {
		return 0
	}

	const daySeconds int64 = 24 * 60 * 60

	days := make(map[int64]struct{}, len(activities))
	for _, a := range activities {
		days[a.Timestamp/daySeconds] = struct{}{}
	}
	ordered := make([]int64, 0, len(days))
	for d := range days {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	best, run := 1, 1
	for i := 1; i < len(ordered); i++ {
		if ordered[i]-ordered[i-1] == 1 {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 1
		}
	}
	return float64(best)
}
