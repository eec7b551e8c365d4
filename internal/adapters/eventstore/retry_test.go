package eventstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/adapters/eventstore"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRetry(t *testing.T) {
	Convey("Given a store that fails transiently", t, func() {
		calls := 0
		flaky := eventstore.Func(func(ctx context.Context, f eventstore.Filter) ([]model.Event, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("relay timeout")
			}
			return []model.Event{{ID: "ev-1"}}, nil
		})
		store := eventstore.WithRetry(flaky, eventstore.WithBackoff(time.Millisecond))

		Convey("When the first attempt fails", func() {
			events, err := store.QueryEvents(context.Background(), eventstore.Filter{})

			Convey("Then one retry recovers the result", func() {
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 1)
				So(calls, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a store that always fails", t, func() {
		calls := 0
		dead := eventstore.Func(func(ctx context.Context, f eventstore.Filter) ([]model.Event, error) {
			calls++
			return nil, errors.New("relay unreachable")
		})
		store := eventstore.WithRetry(dead, eventstore.WithBackoff(time.Millisecond))

		Convey("When queried", func() {
			_, err := store.QueryEvents(context.Background(), eventstore.Filter{})

			Convey("Then exactly one retry is attempted before surfacing", func() {
				So(err, ShouldNotBeNil)
				So(calls, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a cancelled context", t, func() {
		calls := 0
		failing := eventstore.Func(func(ctx context.Context, f eventstore.Filter) ([]model.Event, error) {
			calls++
			return nil, context.Canceled
		})
		store := eventstore.WithRetry(failing, eventstore.WithBackoff(time.Minute))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("When queried", func() {
			_, err := store.QueryEvents(ctx, eventstore.Filter{})

			Convey("Then no retry is attempted", func() {
				So(err, ShouldNotBeNil)
				So(calls, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a healthy store", t, func() {
		calls := 0
		healthy := eventstore.Func(func(ctx context.Context, f eventstore.Filter) ([]model.Event, error) {
			calls++
			return nil, nil
		})
		store := eventstore.WithRetry(healthy)

		Convey("When queried", func() {
			_, err := store.QueryEvents(context.Background(), eventstore.Filter{})

			Convey("Then the result passes through untouched", func() {
				So(err, ShouldBeNil)
				So(calls, ShouldEqual, 1)
			})
		})
	})
}
