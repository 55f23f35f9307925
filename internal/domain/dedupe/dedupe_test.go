package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ladder/internal/domain/dedupe"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When creating a deduper with default options", func() {
			d, err := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(err, ShouldBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording a request id", func() {
			d, err := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(10))
			So(err, ShouldBeNil)

			id, seen := d.SeenAndRecord(ctx, "req-1")
			So(seen, ShouldBeFalse)
			So(id, ShouldEqual, 0)

			Convey("And it is retried before completion", func() {
				id, seen := d.SeenAndRecord(ctx, "req-1")

				Convey("Then it is reported in flight", func() {
					So(seen, ShouldBeTrue)
					So(id, ShouldEqual, 0)
				})
			})

			Convey("And it is retried after completion", func() {
				d.Complete(ctx, "req-1", 42)
				id, seen := d.SeenAndRecord(ctx, "req-1")

				Convey("Then the original event id is returned", func() {
					So(seen, ShouldBeTrue)
					So(id, ShouldEqual, 42)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And it is unrecorded after a failure", func() {
				d.Unrecord(ctx, "req-1")
				_, seen := d.SeenAndRecord(ctx, "req-1")

				Convey("Then a retry is processed as new", func() {
					So(seen, ShouldBeFalse)
				})
			})
		})

		Convey("When more ids arrive than fit", func() {
			d, err := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			So(err, ShouldBeNil)
			for i := range 5 {
				d.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i))
			}

			Convey("Then the oldest ids are forgotten", func() {
				So(d.Size(), ShouldEqual, 3)
				_, seen := d.SeenAndRecord(ctx, "req-0")
				So(seen, ShouldBeFalse)
				_, seen = d.SeenAndRecord(ctx, "req-4")
				So(seen, ShouldBeTrue)
			})
		})

		Convey("When many goroutines race on one id", func() {
			d, err := dedupe.NewInMemoryDeduper()
			So(err, ShouldBeNil)
			var fresh atomic.Int64
			var wg sync.WaitGroup
			for range 100 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, seen := d.SeenAndRecord(ctx, "same"); !seen {
						fresh.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one wins the reservation", func() {
				So(fresh.Load(), ShouldEqual, 1)
			})
		})
	})
}
