package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ladder/internal/adapters/repository"
)

type backend struct {
	name  string
	build func(t *testing.T) repository.Store
}

func backends() []backend {
	return []backend{
		{name: "memory", build: func(t *testing.T) repository.Store {
			return repository.NewMemoryStore()
		}},
		{name: "redis", build: func(t *testing.T) repository.Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			s := repository.NewRedisStoreFromClient(client)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
	}
}

func TestStoreConformance(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			Convey("Given an empty "+b.name+" store", t, func() {
				ctx := context.Background()
				s := b.build(t)

				Convey("Incr starts at one and counts up", func() {
					n, err := s.Incr(ctx, "score_id")
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 1)
					n, err = s.Incr(ctx, "score_id")
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 2)
				})

				Convey("Hashes round-trip and report missing fields", func() {
					So(s.HSet(ctx, "h", map[string]string{"a": "1", "b": "2"}), ShouldBeNil)
					So(s.HSet(ctx, "h", map[string]string{"b": "3"}), ShouldBeNil)

					v, err := s.HGet(ctx, "h", "b")
					So(err, ShouldBeNil)
					So(v, ShouldEqual, "3")

					all, err := s.HGetAll(ctx, "h")
					So(err, ShouldBeNil)
					So(all, ShouldResemble, map[string]string{"a": "1", "b": "3"})

					_, err = s.HGet(ctx, "h", "missing")
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
					_, err = s.HGet(ctx, "nohash", "a")
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

					empty, err := s.HGetAll(ctx, "nohash")
					So(err, ShouldBeNil)
					So(empty, ShouldBeEmpty)
				})

				Convey("Ranked sets order by score then member, both descending", func() {
					So(s.ZAdd(ctx, "z", "a", 10), ShouldBeNil)
					So(s.ZAdd(ctx, "z", "b", 30), ShouldBeNil)
					So(s.ZAdd(ctx, "z", "c", 10), ShouldBeNil)
					So(s.ZAdd(ctx, "z", "d", 20), ShouldBeNil)

					ids, err := s.ZRevRange(ctx, "z", 0, -1)
					So(err, ShouldBeNil)
					So(ids, ShouldResemble, []string{"b", "d", "c", "a"})

					rank, err := s.ZRevRank(ctx, "z", "c")
					So(err, ShouldBeNil)
					So(rank, ShouldEqual, 2)

					card, err := s.ZCard(ctx, "z")
					So(err, ShouldBeNil)
					So(card, ShouldEqual, 4)

					Convey("Updating a score moves the member", func() {
						So(s.ZAdd(ctx, "z", "a", 40), ShouldBeNil)
						ids, err := s.ZRevRange(ctx, "z", 0, 1)
						So(err, ShouldBeNil)
						So(ids, ShouldResemble, []string{"a", "b"})

						score, err := s.ZScore(ctx, "z", "a")
						So(err, ShouldBeNil)
						So(score, ShouldEqual, 40)

						card, err := s.ZCard(ctx, "z")
						So(err, ShouldBeNil)
						So(card, ShouldEqual, 4)
					})

					Convey("Windows follow rank-range conventions", func() {
						ms, err := s.ZRevRangeWithScores(ctx, "z", 1, 2)
						So(err, ShouldBeNil)
						So(ms, ShouldResemble, []repository.Member{{ID: "d", Score: 20}, {ID: "c", Score: 10}})

						ids, err := s.ZRevRange(ctx, "z", -2, -1)
						So(err, ShouldBeNil)
						So(ids, ShouldResemble, []string{"c", "a"})

						ids, err = s.ZRevRange(ctx, "z", 2, 100)
						So(err, ShouldBeNil)
						So(ids, ShouldResemble, []string{"c", "a"})

						ids, err = s.ZRevRange(ctx, "z", 5, 10)
						So(err, ShouldBeNil)
						So(ids, ShouldBeEmpty)

						ids, err = s.ZRevRange(ctx, "z", 3, 1)
						So(err, ShouldBeNil)
						So(ids, ShouldBeEmpty)
					})

					Convey("Missing members are reported as not found", func() {
						_, err := s.ZRevRank(ctx, "z", "x")
						So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
						_, err = s.ZScore(ctx, "z", "x")
						So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
						_, err = s.ZRevRank(ctx, "nozset", "x")
						So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
					})
				})

				Convey("A missing ranked set is empty", func() {
					ids, err := s.ZRevRange(ctx, "none", 0, -1)
					So(err, ShouldBeNil)
					So(ids, ShouldBeEmpty)
					card, err := s.ZCard(ctx, "none")
					So(err, ShouldBeNil)
					So(card, ShouldEqual, 0)
				})

				Convey("Using a key as the wrong kind fails", func() {
					So(s.HSet(ctx, "h", map[string]string{"a": "1"}), ShouldBeNil)
					So(s.ZAdd(ctx, "h", "m", 1), ShouldNotBeNil)
					_, err := s.Incr(ctx, "h")
					So(err, ShouldNotBeNil)
				})

				Convey("Keys matches glob patterns and Del removes them", func() {
					So(s.ZAdd(ctx, "g:ld:d:best:kills", "u", 1), ShouldBeNil)
					So(s.ZAdd(ctx, "g:ld:w:best:kills", "u", 1), ShouldBeNil)
					So(s.HSet(ctx, "g:hscore:d:u:kills", map[string]string{"best_score": "score:1"}), ShouldBeNil)
					So(s.HSet(ctx, "score:1", map[string]string{"score": "1"}), ShouldBeNil)

					keys, err := s.Keys(ctx, "g:ld:d:*")
					So(err, ShouldBeNil)
					So(keys, ShouldResemble, []string{"g:ld:d:best:kills"})

					keys, err = s.Keys(ctx, "g:*")
					So(err, ShouldBeNil)
					So(keys, ShouldHaveLength, 3)

					n, err := s.Del(ctx, "g:ld:d:best:kills", "g:hscore:d:u:kills", "absent")
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 2)

					keys, err = s.Keys(ctx, "g:*")
					So(err, ShouldBeNil)
					So(keys, ShouldResemble, []string{"g:ld:w:best:kills"})

					n, err = s.Del(ctx)
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 0)
				})

				Convey("FlushAll wipes everything", func() {
					_, err := s.Incr(ctx, "score_id")
					So(err, ShouldBeNil)
					So(s.ZAdd(ctx, "z", "a", 1), ShouldBeNil)
					So(s.FlushAll(ctx), ShouldBeNil)

					keys, err := s.Keys(ctx, "*")
					So(err, ShouldBeNil)
					So(keys, ShouldBeEmpty)

					n, err := s.Incr(ctx, "score_id")
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 1)
				})

				Convey("Ping succeeds while open", func() {
					So(s.Ping(ctx), ShouldBeNil)
				})
			})
		})
	}
}
