package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ladder/internal/adapters/scheduler"
	"github.com/okian/ladder/internal/domain/model"
)

type call struct {
	group  string
	period model.Period
}

type fakeResetter struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]error
}

func (f *fakeResetter) ClearPeriodLeaderBoard(_ context.Context, group string, period model.Period) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{group, period})
	if err := f.fail[group]; err != nil {
		return 0, err
	}
	return 2, nil
}

func TestScheduler(t *testing.T) {
	Convey("Given a scheduler over two groups", t, func() {
		r := &fakeResetter{}
		s := scheduler.New(r, scheduler.WithGroups("eu", "us"))

		Convey("When a reset runs", func() {
			err := s.RunNow(context.Background(), model.PeriodDaily)

			Convey("Then every group is cleared", func() {
				So(err, ShouldBeNil)
				So(r.calls, ShouldResemble, []call{{"eu", model.PeriodDaily}, {"us", model.PeriodDaily}})
			})
		})

		Convey("When one group fails", func() {
			boom := errors.New("boom")
			r.fail = map[string]error{"eu": boom}
			err := s.RunNow(context.Background(), model.PeriodWeekly)

			Convey("Then the others still run and the failure is returned", func() {
				So(errors.Is(err, boom), ShouldBeTrue)
				So(r.calls, ShouldHaveLength, 2)
			})
		})

		Convey("When periods are scheduled", func() {
			So(s.Schedule(model.PeriodAllTime, model.PeriodDaily, model.PeriodWeekly, model.PeriodMonthly, model.PeriodYearly), ShouldBeNil)
			now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

			Convey("Then each fires at its boundary", func() {
				next, ok := s.NextRun(model.PeriodDaily, now)
				So(ok, ShouldBeTrue)
				So(next.Equal(time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)

				next, _ = s.NextRun(model.PeriodWeekly, now)
				So(next.Equal(time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)

				next, _ = s.NextRun(model.PeriodMonthly, now)
				So(next.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)

				next, _ = s.NextRun(model.PeriodYearly, now)
				So(next.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)

				_, ok = s.NextRun(model.PeriodAllTime, now)
				So(ok, ShouldBeFalse)
			})

			Convey("Then start and stop are clean", func() {
				s.Start()
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				So(s.Stop(ctx), ShouldBeNil)
			})
		})
	})

	Convey("Given a scheduler in another time zone", t, func() {
		loc := time.FixedZone("UTC+3", 3*60*60)
		s := scheduler.New(&fakeResetter{}, scheduler.WithLocation(loc))
		So(s.Schedule(model.PeriodDaily), ShouldBeNil)

		Convey("Then midnight is local midnight", func() {
			next, ok := s.NextRun(model.PeriodDaily, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
			So(ok, ShouldBeTrue)
			So(next.Equal(time.Date(2024, 3, 15, 21, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})
	})

	Convey("Given an invalid cron expression", t, func() {
		s := scheduler.New(&fakeResetter{}, scheduler.WithSpec(model.PeriodDaily, "every day"))

		Convey("Then scheduling fails", func() {
			So(s.Schedule(model.PeriodDaily), ShouldNotBeNil)
		})
	})
}
