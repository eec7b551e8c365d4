package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/adapters/mq/queue"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEnqueueDequeue(t *testing.T) {
	Convey("Given an in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))

		Convey("When events are enqueued", func() {
			So(q.Enqueue(context.Background(), model.Event{ID: "ev-1"}), ShouldBeTrue)
			So(q.Enqueue(context.Background(), model.Event{ID: "ev-2"}), ShouldBeTrue)

			Convey("Then the depth reflects the buffer", func() {
				So(q.Len(), ShouldEqual, 2)
			})

			Convey("Then dequeue yields them in order", func() {
				ctx, cancel := context.WithCancel(context.Background())
				defer cancel()
				out := q.Dequeue(ctx)

				first := <-out
				second := <-out
				So(first.ID, ShouldEqual, "ev-1")
				So(second.ID, ShouldEqual, "ev-2")
			})
		})
	})
}

func TestBackpressure(t *testing.T) {
	Convey("Given a queue at capacity", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		So(q.Enqueue(context.Background(), model.Event{ID: "ev-1"}), ShouldBeTrue)

		Convey("When another event arrives", func() {
			ok := q.Enqueue(context.Background(), model.Event{ID: "ev-2"})

			Convey("Then the enqueue reports backpressure instead of blocking", func() {
				So(ok, ShouldBeFalse)
				So(q.Len(), ShouldEqual, 1)
			})
		})
	})
}

func TestClose(t *testing.T) {
	Convey("Given a queue holding one event", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		So(q.Enqueue(context.Background(), model.Event{ID: "ev-1"}), ShouldBeTrue)

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)

			Convey("Then new enqueues are refused", func() {
				So(q.Enqueue(context.Background(), model.Event{ID: "ev-2"}), ShouldBeFalse)
			})

			Convey("Then the dequeue channel drains and closes", func() {
				ctx, cancel := context.WithCancel(context.Background())
				defer cancel()
				out := q.Dequeue(ctx)

				e, ok := <-out
				So(ok, ShouldBeTrue)
				So(e.ID, ShouldEqual, "ev-1")

				select {
				case _, ok := <-out:
					So(ok, ShouldBeFalse)
				case <-time.After(time.Second):
					t.Fatal("dequeue channel did not close")
				}
			})

			Convey("Then a second close is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}
