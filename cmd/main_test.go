package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

func TestBuildStore(t *testing.T) {
	convey.Convey("Given a configuration", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)

		convey.Convey("When the memory store is selected", func() {
			store, err := buildStore(ctx, cfg)

			convey.Convey("Then an in-memory store is returned", func() {
				convey.So(err, convey.ShouldBeNil)
				_, ok := store.(*repository.MemoryStore)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When redis is selected", func() {
			mr := miniredis.RunT(t)
			cfg.Store = config.StoreRedis
			cfg.RedisAddr = mr.Addr()
			store, err := buildStore(ctx, cfg)

			convey.Convey("Then a connected redis store is returned", func() {
				convey.So(err, convey.ShouldBeNil)
				defer store.Close()
				_, ok := store.(*repository.RedisStore)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(store.Ping(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When redis is unreachable", func() {
			cfg.Store = config.StoreRedis
			cfg.RedisAddr = "127.0.0.1:1"
			cfg.RedisDialTimeoutMS = 200
			_, err := buildStore(ctx, cfg)

			convey.Convey("Then the connection error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "127.0.0.1:1")
			})
		})

		convey.Convey("When the store is unknown", func() {
			cfg.Store = "etcd"
			_, err := buildStore(ctx, cfg)

			convey.Convey("Then the configuration is refused", func() {
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			})
		})
	})
}

func TestWiring(t *testing.T) {
	convey.Convey("Given a service built from configuration", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.Periods = []string{"daily", "weekly"}
		cfg.MaxLeaderboardLimit = 5

		svc, err := buildService(cfg, repository.NewMemoryStore(), logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		convey.Convey("Then the configured periods are active", func() {
			convey.So(svc.ActivePeriods(), convey.ShouldResemble,
				[]model.Period{model.PeriodAllTime, model.PeriodDaily, model.PeriodWeekly})
		})

		convey.Convey("When the scheduler is built", func() {
			cfg.Timezone = "Europe/Berlin"
			sched, err := buildScheduler(cfg, svc, logger.Nop())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then only active periods are scheduled", func() {
				from := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
				next, ok := sched.NextRun(model.PeriodDaily, from)
				convey.So(ok, convey.ShouldBeTrue)
				loc, _ := time.LoadLocation("Europe/Berlin")
				convey.So(next.Equal(time.Date(2024, 3, 16, 0, 0, 0, 0, loc)), convey.ShouldBeTrue)

				_, ok = sched.NextRun(model.PeriodMonthly, from)
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the scheduler has a bad spec", func() {
			cfg.DailyCron = "whenever"
			_, err := buildScheduler(cfg, svc, logger.Nop())

			convey.Convey("Then it is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the HTTP server is built", func() {
			srv := newHTTPServer(ctx, cfg, svc, logger.Nop())

			convey.Convey("Then API and docs routes are served", func() {
				convey.So(srv.Addr, convey.ShouldEqual, ":9080")
				convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)

				for _, path := range []string{"/healthz", "/api-docs", "/openapi.yaml", "/stats"} {
					w := httptest.NewRecorder()
					srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}
			})

			convey.Convey("Then the configured row limit applies", func() {
				w := httptest.NewRecorder()
				srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leaderboards/kills/top?n=6", http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			})

			convey.Convey("Then events flow through to the boards", func() {
				w := httptest.NewRecorder()
				srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events",
					strings.NewReader(`{"user_id":"u1","attr_name":"kills","score":3}`)))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

				w = httptest.NewRecorder()
				srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leaderboards/kills?period=weekly", http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "u1")
			})
		})
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	convey.Convey("Given a memory-backed configuration", t, func() {
		t.Setenv("LADDER_ADDR", "127.0.0.1:0")
		t.Setenv("LADDER_STORE", "memory")

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx) }()
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then run returns cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})
	})

	convey.Convey("Given an invalid configuration", t, func() {
		t.Setenv("LADDER_STORE", "etcd")

		convey.Convey("Then run fails before serving", func() {
			convey.So(run(context.Background()), convey.ShouldWrap, config.ErrInvalidConfig)
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then one refresh does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loop exits when the context is done", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()
			cancel()
			select {
			case <-done:
			case <-time.After(time.Second):
				convey.So("updater did not exit", convey.ShouldBeEmpty)
			}
		})
	})
}
