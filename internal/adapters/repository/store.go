// Package repository defines the backing-store contract the leaderboard
// engine is written against, plus Redis and in-memory implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/ladder/pkg/metrics"
)

// Member is one ranked-set row as returned by ZRevRangeWithScores.
type Member struct {
	ID    string
	Score float64
}

// Store exposes the primitives of an ordered key-value store.
//
// Ranges follow Redis conventions: indices are 0-based and inclusive,
// negative indices count from the end, and an out-of-range window yields an
// empty result rather than an error. Ranked sets order members by score
// descending; equal scores order by member in descending byte order.
type Store interface {
	// Incr atomically increments the counter at key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// HSet sets fields of the hash at key, creating it when missing.
	HSet(ctx context.Context, key string, fields map[string]string) error
	// HGet returns one hash field, or ErrNotFound.
	HGet(ctx context.Context, key, field string) (string, error)
	// HGetAll returns every field of the hash at key; a missing key yields an empty map.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// ZAdd inserts member or updates its score.
	ZAdd(ctx context.Context, key, member string, score float64) error
	// ZRevRange returns members between ranks start and stop, best first.
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// ZRevRangeWithScores is ZRevRange including scores.
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]Member, error)
	// ZRevRank returns the 0-based descending rank of member, or ErrNotFound.
	ZRevRank(ctx context.Context, key, member string) (int64, error)
	// ZScore returns the score of member, or ErrNotFound.
	ZScore(ctx context.Context, key, member string) (float64, error)
	// ZCard returns the number of members; a missing key has zero.
	ZCard(ctx context.Context, key string) (int64, error)

	// Keys returns every key matching the glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)
	// FlushAll wipes the whole store.
	FlushAll(ctx context.Context) error

	Ping(ctx context.Context) error
	Close() error
}

// observe records the latency of one store operation. Missing keys are
// reported through ErrNotFound and are not counted as failures.
func observe(backend, op string, start time.Time, err error) {
	failed := err != nil && !errors.Is(err, ErrNotFound)
	metrics.RecordStoreOp(backend, op, metrics.Since(start), failed)
}

// normalizeRange applies Redis rank-range semantics to a set of n members.
// It returns false when the window is empty.
func normalizeRange(start, stop, n int64) (int64, int64, bool) {
	if start < 0 {
		start += n
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop += n
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
