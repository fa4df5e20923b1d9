package queue_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tagtrend/internal/adapters/mq/queue"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	Convey("Given an in-memory refresh queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		ctx := context.Background()

		Convey("When a job is enqueued", func() {
			job := queue.Job{Tag: "go", Version: 3, Horizon: 8}
			So(q.Enqueue(ctx, job), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 1)

			Convey("Then it is delivered to a consumer", func() {
				select {
				case got := <-q.Dequeue(ctx):
					So(got.Tag, ShouldEqual, "go")
					So(got.Version, ShouldEqual, 3)
					So(got.Horizon, ShouldEqual, 8)
				case <-time.After(time.Second):
					So("timed out waiting for job", ShouldBeEmpty)
				}
			})
		})
	})
}

func TestQueueBackpressure(t *testing.T) {
	Convey("Given a queue at capacity", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))
		ctx := context.Background()

		So(q.Enqueue(ctx, queue.Job{Tag: "a"}), ShouldBeTrue)
		So(q.Enqueue(ctx, queue.Job{Tag: "b"}), ShouldBeTrue)

		Convey("When another job arrives", func() {
			ok := q.Enqueue(ctx, queue.Job{Tag: "c"})

			Convey("Then it is rejected without blocking", func() {
				So(ok, ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})
	})
}

func TestQueueClose(t *testing.T) {
	Convey("Given a queue with buffered jobs", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		ctx := context.Background()
		So(q.Enqueue(ctx, queue.Job{Tag: "go"}), ShouldBeTrue)

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)

			Convey("Then new jobs are rejected", func() {
				So(q.Enqueue(ctx, queue.Job{Tag: "rust"}), ShouldBeFalse)
			})

			Convey("And buffered jobs are still drained before the channel closes", func() {
				ch := q.Dequeue(ctx)
				got, ok := <-ch
				So(ok, ShouldBeTrue)
				So(got.Tag, ShouldEqual, "go")
				_, ok = <-ch
				So(ok, ShouldBeFalse)
			})

			Convey("And closing twice is harmless", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}
