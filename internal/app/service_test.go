package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ladder/internal/adapters/repository"
	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/ranking"
	"github.com/okian/ladder/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func started(opts ...service.Option) *service.Service {
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func entity(user string, score float64) model.Entity {
	return model.Entity{UserID: user, AttrName: "kills", Score: score}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		ctx := context.Background()
		svc := service.New()

		Convey("Then calls before Start are refused", func() {
			_, err := svc.Add(ctx, entity("u1", 1), service.AddOptions{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it is marked as started and healthy", func() {
				So(svc.GetStats()["started"], ShouldEqual, true)
				So(svc.Ping(ctx), ShouldBeNil)
			})

			Convey("And after stopping it refuses work", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
				_, err := svc.GetTop(ctx, ranking.LeaderboardQuery{Attr: "kills"}, 1)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service over its own in-memory store", t, func() {
		ctx := context.Background()
		svc := started()
		_, err := svc.Add(ctx, entity("u1", 5), service.AddOptions{})
		So(err, ShouldBeNil)

		Convey("When it is stopped and started again", func() {
			svc.Stop()
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then it serves from a fresh store", func() {
				So(svc.Ping(ctx), ShouldBeNil)
				rows, err := svc.GetTop(ctx, ranking.LeaderboardQuery{Attr: "kills"}, 10)
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
				_, err = svc.Add(ctx, entity("u2", 1), service.AddOptions{})
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given a service over a caller-owned store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		svc := started(service.WithStore(store))
		_, err := svc.Add(ctx, entity("u1", 5), service.AddOptions{})
		So(err, ShouldBeNil)

		Convey("When it is stopped and started again", func() {
			svc.Stop()

			Convey("Then the store stays open and keeps its data", func() {
				So(store.Ping(ctx), ShouldBeNil)
				So(svc.Start(ctx), ShouldBeNil)
				defer svc.Stop()
				rows, err := svc.GetTop(ctx, ranking.LeaderboardQuery{Attr: "kills"}, 10)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given an unreachable redis store", t, func() {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
		svc := service.New(service.WithStore(repository.NewRedisStoreFromClient(client)))

		Convey("Then Start fails", func() {
			So(svc.Start(context.Background()), ShouldNotBeNil)
		})
	})
}

func TestService_Periods(t *testing.T) {
	Convey("Given a service with daily active", t, func() {
		ctx := context.Background()
		svc := started(service.WithPeriods(model.PeriodDaily), service.WithDefaultGroup("g1"))
		defer svc.Stop()

		So(svc.ActivePeriods(), ShouldResemble, []model.Period{model.PeriodAllTime, model.PeriodDaily})

		Convey("When weekly is activated later", func() {
			_, err := svc.Add(ctx, entity("u1", 10), service.AddOptions{})
			So(err, ShouldBeNil)
			So(svc.ActivatePeriod(model.PeriodWeekly), ShouldBeNil)
			So(svc.ActivatePeriod(model.PeriodWeekly), ShouldBeNil)
			_, err = svc.Add(ctx, entity("u2", 20), service.AddOptions{})
			So(err, ShouldBeNil)

			Convey("Then only later events reach it", func() {
				rows, err := svc.GetLeaderboard(ctx, ranking.LeaderboardQuery{Period: model.PeriodWeekly, Attr: "kills"}, 0, -1)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 1)
				So(rows[0].UserID, ShouldEqual, "u2")

				rows, err = svc.GetLeaderboard(ctx, ranking.LeaderboardQuery{Period: model.PeriodDaily, Attr: "kills"}, 0, -1)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
			})

			Convey("And the default group was applied", func() {
				rows, err := svc.GetTop(ctx, ranking.LeaderboardQuery{Group: "g1", Attr: "kills"}, 10)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
			})

			Convey("And clearing daily keeps alltime", func() {
				n, err := svc.ClearPeriodLeaderBoard(ctx, "", model.PeriodDaily)
				So(err, ShouldBeNil)
				So(n, ShouldBeGreaterThan, 0)

				rows, err := svc.GetTop(ctx, ranking.LeaderboardQuery{Period: model.PeriodDaily, Attr: "kills"}, 10)
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
				rows, err = svc.GetTop(ctx, ranking.LeaderboardQuery{Attr: "kills"}, 10)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)

				_, err = svc.ClearPeriodLeaderBoard(ctx, "", model.PeriodAllTime)
				So(errors.Is(err, ranking.ErrState), ShouldBeTrue)
			})
		})

		Convey("When an unknown period is activated", func() {
			err := svc.ActivatePeriod(model.Period("hourly"))

			Convey("Then it is rejected", func() {
				So(errors.Is(err, ranking.ErrValidation), ShouldBeTrue)
			})
		})
	})
}

func TestService_Queries(t *testing.T) {
	Convey("Given a service holding a small leaderboard", t, func() {
		ctx := context.Background()
		svc := started()
		defer svc.Stop()

		for _, e := range []model.Entity{entity("u1", 30), entity("u2", 10), entity("u3", 60), entity("u5", 100), entity("u5", 5)} {
			_, err := svc.Add(ctx, e, service.AddOptions{})
			So(err, ShouldBeNil)
		}
		q := ranking.LeaderboardQuery{Attr: "kills"}

		Convey("Then rank reports the member score", func() {
			row, err := svc.GetRank(ctx, q, "u3")
			So(err, ShouldBeNil)
			So(row, ShouldResemble, model.RankedMember{Rank: 1, UserID: "u3", Score: 60})

			_, err = svc.GetRank(ctx, q, "ghost")
			So(errors.Is(err, ranking.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then best, total and around answer", func() {
			best, err := svc.GetUserBestScore(ctx, q, "u5", model.FilterOptions{})
			So(err, ShouldBeNil)
			So(*best.Score, ShouldEqual, 100)

			total, err := svc.GetUserTotalScore(ctx, q, "u5")
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 105)

			rows, err := svc.GetAroundUserLeaderboard(ctx, q, "u1", 1)
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 3)
			So(rows[1].UserID, ShouldEqual, "u1")
		})

		Convey("Then FlushAll empties everything", func() {
			So(svc.FlushAll(ctx), ShouldBeNil)
			rows, err := svc.GetTop(ctx, q, 10)
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})
	})
}

func TestService_RequestIDs(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := started(service.WithDedupeSize(100))
		defer svc.Stop()
		q := ranking.LeaderboardQuery{Attr: "kills"}

		Convey("When a request is retried with the same id", func() {
			first, err := svc.Add(ctx, entity("u1", 10), service.AddOptions{RequestID: "r-1"})
			So(err, ShouldBeNil)
			again, err := svc.Add(ctx, entity("u1", 10), service.AddOptions{RequestID: "r-1"})
			So(err, ShouldBeNil)

			Convey("Then the score is counted once", func() {
				So(first.Duplicate, ShouldBeFalse)
				So(again.Duplicate, ShouldBeTrue)
				So(again.EventID, ShouldEqual, first.EventID)

				total, err := svc.GetUserTotalScore(ctx, q, "u1")
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 10)
				So(svc.GetStats()["duplicates"], ShouldEqual, int64(1))
			})
		})

		Convey("When a request fails validation", func() {
			_, err := svc.Add(ctx, model.Entity{AttrName: "kills"}, service.AddOptions{RequestID: "r-2"})
			So(errors.Is(err, ranking.ErrValidation), ShouldBeTrue)

			Convey("Then a corrected retry is accepted", func() {
				res, err := svc.Add(ctx, entity("u2", 5), service.AddOptions{RequestID: "r-2"})
				So(err, ShouldBeNil)
				So(res.Duplicate, ShouldBeFalse)
			})
		})

		Convey("When distinct requests race", func() {
			var wg sync.WaitGroup
			for i := range 20 {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, _ = svc.Add(ctx, entity("u3", 1), service.AddOptions{RequestID: string(rune('a' + i))})
				}(i)
			}
			wg.Wait()

			Convey("Then each is counted", func() {
				total, err := svc.GetUserTotalScore(ctx, q, "u3")
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 20)
			})
		})
	})
}
