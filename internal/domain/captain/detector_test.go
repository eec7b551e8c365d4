package captain_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/adapters/eventstore"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/cache"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/captain"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/roster"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

func metaEvent(id, author, teamID string, createdAt int64) model.Event {
	return model.Event{
		ID: id, Author: author, Kind: model.KindTeamMetadata, CreatedAt: createdAt,
		Tags: [][]string{{model.TagIdentifier, teamID}},
	}
}

func TestIsCaptain(t *testing.T) {
	Convey("Given a team captained by npubX", t, func() {
		mem := eventstore.NewMemoryStore()
		mem.Publish(metaEvent("meta-1", "npubX", "T1", 10))

		failing := false
		store := eventstore.Func(func(ctx context.Context, f eventstore.Filter) ([]model.Event, error) {
			if failing {
				return nil, errors.New("relay down")
			}
			return mem.QueryEvents(ctx, f)
		})

		c := cache.New()
		teams := roster.New(store, c)
		d := captain.New(store, c, teams)

		Convey("When the captain is checked", func() {
			So(d.IsCaptain(context.Background(), "npubX", "T1"), ShouldBeTrue)

			Convey("Then a non-captain reads false", func() {
				So(d.IsCaptain(context.Background(), "npubY", "T1"), ShouldBeFalse)
			})

			Convey("Then the cached answer survives a later store outage", func() {
				failing = true
				So(d.IsCaptain(context.Background(), "npubX", "T1"), ShouldBeTrue)
			})
		})

		Convey("When the store is down and nothing is cached", func() {
			failing = true

			Convey("Then the check defaults to false instead of erroring", func() {
				So(d.IsCaptain(context.Background(), "npubX", "T1"), ShouldBeFalse)
			})
		})
	})
}

func TestStatus(t *testing.T) {
	Convey("Given several teams with different captains", t, func() {
		mem := eventstore.NewMemoryStore()
		mem.Publish(metaEvent("meta-1", "npubX", "T1", 10))
		mem.Publish(metaEvent("meta-2", "npubX", "T2", 20))
		mem.Publish(metaEvent("meta-3", "npubY", "T3", 30))

		c := cache.New()
		teams := roster.New(mem, c)
		d := captain.New(mem, c, teams)

		Convey("When an owner's status is scanned", func() {
			st := d.Status(context.Background(), "npubX")

			Convey("Then every owned team is found", func() {
				So(st.IsCaptain, ShouldBeTrue)
				So(st.TeamsOwned, ShouldResemble, []string{"T1", "T2"})
				So(st.Partial, ShouldBeFalse)
			})
		})

		Convey("When a non-owner's status is scanned", func() {
			st := d.Status(context.Background(), "npubZ")

			Convey("Then ownership is empty but valid", func() {
				So(st.IsCaptain, ShouldBeFalse)
				So(st.TeamsOwned, ShouldBeEmpty)
			})
		})

		Convey("When a later team claims an already-established id", func() {
			mem.Publish(metaEvent("meta-9", "npubZ", "T1", 99))
			st := d.Status(context.Background(), "npubZ")

			Convey("Then the first metadata event still defines ownership", func() {
				So(st.IsCaptain, ShouldBeFalse)
			})
		})
	})
}

func TestStatusPartialVisibility(t *testing.T) {
	Convey("Given a store that fails outright", t, func() {
		dead := eventstore.Func(func(ctx context.Context, f eventstore.Filter) ([]model.Event, error) {
			return nil, errors.New("all relays down")
		})
		c := cache.New()
		d := captain.New(dead, c, roster.New(dead, c))

		Convey("When status is requested cold", func() {
			st := d.Status(context.Background(), "npubX")

			Convey("Then a best-effort partial result returns, never an error", func() {
				So(st.Partial, ShouldBeTrue)
				So(st.IsCaptain, ShouldBeFalse)
				So(st.TeamsOwned, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a scan that succeeds and then an outage", t, func() {
		mem := eventstore.NewMemoryStore()
		mem.Publish(metaEvent("meta-1", "npubX", "T1", 10))

		failing := false
		store := eventstore.Func(func(ctx context.Context, f eventstore.Filter) ([]model.Event, error) {
			if failing {
				return nil, errors.New("relay down")
			}
			return mem.QueryEvents(ctx, f)
		})

		c := cache.New(cache.WithPolicy(cache.NewPolicy(
			cache.WithTTL(cache.CategoryCaptainStatus, 1), // effectively instant expiry
		)))
		d := captain.New(store, c, roster.New(store, c))

		Convey("When the cached status has expired and the store is down", func() {
			st := d.Status(context.Background(), "npubX")
			So(st.IsCaptain, ShouldBeTrue)
			failing = true

			stale := d.Status(context.Background(), "npubX")

			Convey("Then the stale status is served, flagged partial", func() {
				So(stale.IsCaptain, ShouldBeTrue)
				So(stale.TeamsOwned, ShouldResemble, []string{"T1"})
				So(stale.Partial, ShouldBeTrue)
			})
		})
	})
}

func TestRefresh(t *testing.T) {
	Convey("Given a cached captain status", t, func() {
		mem := eventstore.NewMemoryStore()
		mem.Publish(metaEvent("meta-1", "npubX", "T1", 10))

		c := cache.New()
		d := captain.New(mem, c, roster.New(mem, c))

		st := d.Status(context.Background(), "npubX")
		So(st.TeamsOwned, ShouldResemble, []string{"T1"})

		Convey("When the identity creates another team and refreshes", func() {
			mem.Publish(metaEvent("meta-2", "npubX", "T2", 20))
			st := d.Refresh(context.Background(), "npubX")

			Convey("Then the recomputed status sees the new team", func() {
				So(st.TeamsOwned, ShouldResemble, []string{"T1", "T2"})
			})
		})

		Convey("When no refresh happens", func() {
			mem.Publish(metaEvent("meta-2", "npubX", "T2", 20))
			st := d.Status(context.Background(), "npubX")

			Convey("Then the cached status is still served", func() {
				So(st.TeamsOwned, ShouldResemble, []string{"T1"})
			})
		})
	})
}
