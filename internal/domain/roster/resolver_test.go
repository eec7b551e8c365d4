package roster_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/adapters/eventstore"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/cache"
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
	captain = "npub-captain"
)

func seedTeam(s *eventstore.MemoryStore) {
	s.Publish(model.Event{
		ID: "meta-1", Author: captain, Kind: model.KindTeamMetadata, CreatedAt: 5,
		Tags: [][]string{{model.TagIdentifier, teamID}},
	})
}

func rosterEvent(id, author string, createdAt int64, members ...string) model.Event {
	tags := [][]string{{model.TagIdentifier, teamID}}
	for _, m := range members {
		tags = append(tags, []string{model.TagMember, m})
	}
	return model.Event{ID: id, Author: author, Kind: model.KindTeamRoster, CreatedAt: createdAt, Tags: tags}
}

func TestResolveMembers(t *testing.T) {
	Convey("Given a team with roster events", t, func() {
		store := eventstore.NewMemoryStore()
		seedTeam(store)
		r := roster.New(store, cache.New())

		Convey("When the captain publishes rosters at t=10 and t=20", func() {
			store.Publish(rosterEvent("ev-1", captain, 10, "A", "B"))
			store.Publish(rosterEvent("ev-2", captain, 20, "A", "B", "D"))

			Convey("Then the later roster wins regardless of arrival order", func() {
				members, err := r.ResolveMembers(context.Background(), teamID)
				So(err, ShouldBeNil)
				So(members, ShouldResemble, []string{"A", "B", "D"})
			})
		})

		Convey("When a non-captain publishes a roster for the team", func() {
			store.Publish(rosterEvent("ev-1", captain, 10, "A", "B"))
			store.Publish(rosterEvent("ev-9", "npub-mallory", 99, "npub-mallory"))

			Convey("Then it never affects membership", func() {
				members, err := r.ResolveMembers(context.Background(), teamID)
				So(err, ShouldBeNil)
				So(members, ShouldResemble, []string{"A", "B"})
			})
		})

		Convey("When two captain rosters share the same createdAt", func() {
			store.Publish(rosterEvent("ev-aaa", captain, 10, "A"))
			store.Publish(rosterEvent("ev-bbb", captain, 10, "B"))

			Convey("Then the lexicographically greater id wins deterministically", func() {
				members, err := r.ResolveMembers(context.Background(), teamID)
				So(err, ShouldBeNil)
				So(members, ShouldResemble, []string{"B"})
			})
		})

		Convey("When the team has no roster event yet", func() {
			Convey("Then the roster is empty, not an error", func() {
				members, err := r.ResolveMembers(context.Background(), teamID)
				So(err, ShouldBeNil)
				So(members, ShouldBeEmpty)
			})
		})

		Convey("When a roster lists a member twice", func() {
			store.Publish(rosterEvent("ev-1", captain, 10, "B", "A", "B"))

			Convey("Then the member set is deduplicated and sorted", func() {
				members, err := r.ResolveMembers(context.Background(), teamID)
				So(err, ShouldBeNil)
				So(members, ShouldResemble, []string{"A", "B"})
			})
		})
	})

	Convey("Given an unreachable event store", t, func() {
		dead := eventstore.Func(func(ctx context.Context, f eventstore.Filter) ([]model.Event, error) {
			return nil, errors.New("all relays down")
		})
		r := roster.New(dead, cache.New())

		Convey("When resolving members", func() {
			_, err := r.ResolveMembers(context.Background(), teamID)

			Convey("Then the failure is distinct from an empty roster", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, roster.ErrResolutionFailed), ShouldBeTrue)
			})
		})
	})

	Convey("Given a team that does not exist", t, func() {
		r := roster.New(eventstore.NewMemoryStore(), cache.New())

		Convey("When resolving members", func() {
			_, err := r.ResolveMembers(context.Background(), "ghost-team")

			Convey("Then the team is reported missing", func() {
				So(errors.Is(err, roster.ErrTeamNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestResolveMembersCaching(t *testing.T) {
	Convey("Given a resolver in front of a counting store", t, func() {
		mem := eventstore.NewMemoryStore()
		seedTeam(mem)
		mem.Publish(rosterEvent("ev-1", captain, 10, "A"))

		queries := 0
		counting := eventstore.Func(func(ctx context.Context, f eventstore.Filter) ([]model.Event, error) {
			queries++
			return mem.QueryEvents(ctx, f)
		})
		c := cache.New()
		r := roster.New(counting, c)

		Convey("When members are resolved twice", func() {
			first, err1 := r.ResolveMembers(context.Background(), teamID)
			afterFirst := queries
			second, err2 := r.ResolveMembers(context.Background(), teamID)

			Convey("Then the second call is served from cache", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second, ShouldResemble, first)
				So(queries, ShouldEqual, afterFirst)
			})
		})

		Convey("When the roster cache is invalidated", func() {
			_, _ = r.ResolveMembers(context.Background(), teamID)
			afterFirst := queries
			c.Invalidate(cache.Key(cache.CategoryRoster, teamID))
			_, _ = r.ResolveMembers(context.Background(), teamID)

			Convey("Then the next resolution queries the store again", func() {
				So(queries, ShouldBeGreaterThan, afterFirst)
			})
		})
	})
}

func TestTeamResolution(t *testing.T) {
	Convey("Given competing team metadata events", t, func() {
		store := eventstore.NewMemoryStore()
		store.Publish(model.Event{
			ID: "meta-1", Author: "npub-founder", Kind: model.KindTeamMetadata, CreatedAt: 5,
			Tags: [][]string{{model.TagIdentifier, teamID}},
		})
		store.Publish(model.Event{
			ID: "meta-2", Author: "npub-imposter", Kind: model.KindTeamMetadata, CreatedAt: 50,
			Tags: [][]string{{model.TagIdentifier, teamID}},
		})
		r := roster.New(store, cache.New())

		Convey("When the team is resolved", func() {
			team, err := r.Team(context.Background(), teamID)

			Convey("Then the first metadata event defines the captain", func() {
				So(err, ShouldBeNil)
				So(team.Captain, ShouldEqual, "npub-founder")
				So(team.MetadataEventID, ShouldEqual, "meta-1")
			})
		})
	})
}
