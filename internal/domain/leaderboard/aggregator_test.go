package leaderboard_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/adapters/eventstore"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/cache"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/approval"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/leaderboard"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/roster"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

const (
	teamID  = "T1"
	compID  = "C1"
	captain = "npub-captain"
)

// seedCompetition establishes the team, its roster, and a gated distance
// competition over [100, 200).
func seedCompetition(s *eventstore.MemoryStore, members ...string) {
	s.Publish(model.Event{
		ID: "meta-1", Author: captain, Kind: model.KindTeamMetadata, CreatedAt: 5,
		Tags: [][]string{{model.TagIdentifier, teamID}},
	})
	tags := [][]string{{model.TagIdentifier, teamID}}
	for _, m := range members {
		tags = append(tags, []string{model.TagMember, m})
	}
	s.Publish(model.Event{
		ID: "roster-1", Author: captain, Kind: model.KindTeamRoster, CreatedAt: 6, Tags: tags,
	})
	s.Publish(model.Event{
		ID: "comp-1", Author: captain, Kind: model.KindCompetitionDefinition, CreatedAt: 90,
		Tags:    [][]string{{model.TagIdentifier, compID}, {model.TagTeam, teamID}},
		Content: `{"start":100,"end":200,"rule":"distance"}`,
	})
}

func activity(id, author string, createdAt int64, distance float64) model.Event {
	return model.Event{
		ID: id, Author: author, Kind: model.KindActivityRecord, CreatedAt: createdAt,
		Tags: [][]string{{model.TagDistance, strconv.FormatFloat(distance, 'f', -1, 64)}},
	}
}

func newAggregator(store eventstore.Store, c *cache.Cache, backing *eventstore.MemoryStore, opts ...leaderboard.Option) *leaderboard.Aggregator {
	rosters := roster.New(backing, c)
	approvals := approval.New(backing, c)
	return leaderboard.New(store, c, rosters, approvals, opts...)
}

func TestCompute(t *testing.T) {
	Convey("Given a distance competition with two active members", t, func() {
		mem := eventstore.NewMemoryStore()
		seedCompetition(mem, "a", "b")
		mem.Publish(activity("act-a1", "a", 150, 5))
		mem.Publish(activity("act-b1", "b", 110, 3))
		mem.Publish(activity("act-b2", "b", 190, 4))

		agg := newAggregator(mem, cache.New(), mem)

		Convey("When the leaderboard is computed", func() {
			res, err := agg.Compute(context.Background(), compID, "", nil)

			Convey("Then scores sum per participant and rank descends", func() {
				So(err, ShouldBeNil)
				So(res.Partial, ShouldBeFalse)
				So(len(res.Entries), ShouldEqual, 2)

				So(res.Entries[0].Identity, ShouldEqual, "b")
				So(res.Entries[0].Rank, ShouldEqual, 1)
				So(res.Entries[0].Score, ShouldEqual, 7)
				So(res.Entries[0].Activities, ShouldEqual, 2)
				So(res.Entries[0].FirstActivityAt, ShouldEqual, 110)

				So(res.Entries[1].Identity, ShouldEqual, "a")
				So(res.Entries[1].Rank, ShouldEqual, 2)
				So(res.Entries[1].Score, ShouldEqual, 5)
			})

			Convey("Then a recomputation yields identical standings", func() {
				again, err := agg.Compute(context.Background(), compID, "", nil)
				So(err, ShouldBeNil)
				So(again.Entries, ShouldResemble, res.Entries)
			})
		})

		Convey("When activities fall on and around the window edges", func() {
			mem.Publish(activity("act-early", "a", 99, 100))
			mem.Publish(activity("act-start", "a", 100, 1))
			mem.Publish(activity("act-end", "a", 200, 100))

			res, err := agg.Compute(context.Background(), compID, "", nil)

			Convey("Then the window is [start, end)", func() {
				So(err, ShouldBeNil)
				So(res.Entries[1].Identity, ShouldEqual, "a")
				So(res.Entries[1].Score, ShouldEqual, 6)
				So(res.Entries[1].Activities, ShouldEqual, 2)
			})
		})
	})
}

func TestComputeDeduplication(t *testing.T) {
	Convey("Given a store that returns the same events from multiple relays", t, func() {
		mem := eventstore.NewMemoryStore()
		seedCompetition(mem, "a")
		mem.Publish(activity("act-a1", "a", 150, 5))

		doubling := eventstore.Func(func(ctx context.Context, f eventstore.Filter) ([]model.Event, error) {
			events, err := mem.QueryEvents(ctx, f)
			if err != nil {
				return nil, err
			}
			return append(events, events...), nil
		})
		agg := newAggregator(doubling, cache.New(), mem)

		Convey("When the leaderboard is computed", func() {
			res, err := agg.Compute(context.Background(), compID, "", nil)

			Convey("Then duplicated event ids count once", func() {
				So(err, ShouldBeNil)
				So(res.Entries[0].Score, ShouldEqual, 5)
				So(res.Entries[0].Activities, ShouldEqual, 1)
			})
		})
	})
}

func TestComputeParticipantSet(t *testing.T) {
	Convey("Given a roster plus competition-level approvals and removals", t, func() {
		mem := eventstore.NewMemoryStore()
		seedCompetition(mem, "a", "b")

		// "c" is not on the roster but requested and was approved.
		mem.Publish(model.Event{
			ID: "req-c", Author: "c", Kind: model.KindJoinRequest, CreatedAt: 110,
			Tags: [][]string{{model.TagCompetition, compID}},
		})
		mem.Publish(model.Event{
			ID: "appr-c", Author: captain, Kind: model.KindApproval, CreatedAt: 120,
			Tags: [][]string{{model.TagCompetition, compID}, {model.TagMember, "c"}},
		})
		// "b" is on the roster but was removed from this competition.
		mem.Publish(model.Event{
			ID: "rem-b", Author: captain, Kind: model.KindRemoval, CreatedAt: 130,
			Tags: [][]string{{model.TagCompetition, compID}, {model.TagMember, "b"}},
		})

		mem.Publish(activity("act-a1", "a", 150, 5))
		mem.Publish(activity("act-b1", "b", 150, 50))
		mem.Publish(activity("act-c1", "c", 150, 3))

		agg := newAggregator(mem, cache.New(), mem)

		Convey("When the leaderboard is computed", func() {
			res, err := agg.Compute(context.Background(), compID, "", nil)

			Convey("Then participants are roster union authorized minus removed", func() {
				So(err, ShouldBeNil)
				ids := make([]string, 0, len(res.Entries))
				for _, e := range res.Entries {
					ids = append(ids, e.Identity)
				}
				So(ids, ShouldResemble, []string{"a", "c"})
			})
		})
	})
}

func TestComputeTieBreaks(t *testing.T) {
	Convey("Given participants with equal scores", t, func() {
		mem := eventstore.NewMemoryStore()
		seedCompetition(mem, "a", "b", "c", "d")
		mem.Publish(activity("act-a1", "a", 150, 5))
		mem.Publish(activity("act-b1", "b", 120, 5))

		agg := newAggregator(mem, cache.New(), mem)

		Convey("When the leaderboard is computed", func() {
			res, err := agg.Compute(context.Background(), compID, "", nil)

			Convey("Then the earlier first activity outranks, and idle members sort by identity", func() {
				So(err, ShouldBeNil)
				ids := make([]string, 0, len(res.Entries))
				for _, e := range res.Entries {
					ids = append(ids, e.Identity)
				}
				So(ids, ShouldResemble, []string{"b", "a", "c", "d"})
				So(res.Entries[0].Rank, ShouldEqual, 1)
				So(res.Entries[3].Rank, ShouldEqual, 4)
				So(res.Entries[2].Score, ShouldEqual, 0)
			})
		})
	})
}

func TestComputePartialIsolation(t *testing.T) {
	Convey("Given one participant whose relay chunk fails", t, func() {
		mem := eventstore.NewMemoryStore()
		seedCompetition(mem, "a", "b")
		mem.Publish(activity("act-a1", "a", 150, 5))
		mem.Publish(activity("act-b1", "b", 150, 9))

		queries := 0
		flaky := eventstore.Func(func(ctx context.Context, f eventstore.Filter) ([]model.Event, error) {
			queries++
			for _, author := range f.Authors {
				if author == "b" {
					return nil, errors.New("relay timeout")
				}
			}
			return mem.QueryEvents(ctx, f)
		})

		c := cache.New()
		agg := newAggregator(flaky, c, mem, leaderboard.WithAuthorChunkSize(1))

		Convey("When the leaderboard is computed", func() {
			res, err := agg.Compute(context.Background(), compID, "", nil)

			Convey("Then only the failed participant degrades", func() {
				So(err, ShouldBeNil)
				So(res.Partial, ShouldBeTrue)

				So(res.Entries[0].Identity, ShouldEqual, "a")
				So(res.Entries[0].Score, ShouldEqual, 5)
				So(res.Entries[0].Partial, ShouldBeFalse)

				So(res.Entries[1].Identity, ShouldEqual, "b")
				So(res.Entries[1].Score, ShouldEqual, 0)
				So(res.Entries[1].Partial, ShouldBeTrue)
			})

			Convey("Then the partial result is not cached", func() {
				afterFirst := queries
				_, err := agg.Compute(context.Background(), compID, "", nil)
				So(err, ShouldBeNil)
				So(queries, ShouldBeGreaterThan, afterFirst)
			})
		})
	})
}

func TestComputeCaching(t *testing.T) {
	Convey("Given a live competition in front of a counting store", t, func() {
		mem := eventstore.NewMemoryStore()
		seedCompetition(mem, "a")
		mem.Publish(activity("act-a1", "a", 150, 5))

		queries := 0
		counting := eventstore.Func(func(ctx context.Context, f eventstore.Filter) ([]model.Event, error) {
			queries++
			return mem.QueryEvents(ctx, f)
		})
		c := cache.New()
		agg := newAggregator(counting, c, mem,
			leaderboard.WithNow(func() time.Time { return time.Unix(150, 0) }),
		)

		Convey("When the leaderboard is computed twice", func() {
			first, err1 := agg.Compute(context.Background(), compID, "", nil)
			afterFirst := queries
			second, err2 := agg.Compute(context.Background(), compID, "", nil)

			Convey("Then the second computation is served from cache", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second.Entries, ShouldResemble, first.Entries)
				So(queries, ShouldEqual, afterFirst)
			})

			Convey("Then the live cache band is used", func() {
				_, ok := c.Get(cache.Key(cache.CategoryLeaderboard, compID, "100-200", "distance"))
				So(ok, ShouldBeTrue)
			})
		})
	})

	Convey("Given a competition whose window has closed", t, func() {
		mem := eventstore.NewMemoryStore()
		seedCompetition(mem, "a")
		mem.Publish(activity("act-a1", "a", 150, 5))

		c := cache.New()
		agg := newAggregator(mem, c, mem,
			leaderboard.WithNow(func() time.Time { return time.Unix(500, 0) }),
		)

		Convey("When the leaderboard is computed", func() {
			_, err := agg.Compute(context.Background(), compID, "", nil)

			Convey("Then the result lands in the long-lived final band", func() {
				So(err, ShouldBeNil)
				_, ok := c.Get(cache.Key(cache.CategoryLeaderboardFinal, compID, "100-200", "distance"))
				So(ok, ShouldBeTrue)
			})
		})
	})
}

func TestComputeDegradedSources(t *testing.T) {
	Convey("Given an unknown competition", t, func() {
		agg := newAggregator(eventstore.NewMemoryStore(), cache.New(), eventstore.NewMemoryStore())

		Convey("When the leaderboard is computed", func() {
			_, err := agg.Compute(context.Background(), "ghost", "", nil)

			Convey("Then the missing definition is the one fatal error", func() {
				So(errors.Is(err, approval.ErrCompetitionNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a roster source that fails after the definition resolves", t, func() {
		mem := eventstore.NewMemoryStore()
		seedCompetition(mem, "a")

		c := cache.New()
		approvals := approval.New(mem, c)
		// The definition resolves once so it is cached, then the roster
		// store dies.
		_, err := approvals.Competition(context.Background(), compID)
		So(err, ShouldBeNil)

		dead := eventstore.Func(func(ctx context.Context, f eventstore.Filter) ([]model.Event, error) {
			return nil, errors.New("all relays down")
		})
		agg := leaderboard.New(mem, c, roster.New(dead, c), approvals)

		Convey("When the leaderboard is computed", func() {
			res, err := agg.Compute(context.Background(), compID, "", nil)

			Convey("Then the result degrades to partial instead of failing", func() {
				So(err, ShouldBeNil)
				So(res.Partial, ShouldBeTrue)
			})
		})
	})
}
