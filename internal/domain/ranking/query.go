package ranking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/ladder/internal/domain/keyspace"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/metrics"
)

// LeaderboardQuery names one ranked set. Zero values mean the default
// group, alltime and best.
type LeaderboardQuery struct {
	Group     string
	Period    model.Period
	Attr      string
	ScoreType model.ScoreType
}

func (q LeaderboardQuery) normalize() LeaderboardQuery {
	if q.Group == "" {
		q.Group = model.DefaultGroup
	}
	if q.Period == "" {
		q.Period = model.PeriodAllTime
	}
	if q.ScoreType == "" {
		q.ScoreType = model.ScoreBest
	}
	return q
}

func (q LeaderboardQuery) setKey() string {
	return keyspace.RankedSetKey(q.Group, q.Period, q.ScoreType, q.Attr)
}

func (q LeaderboardQuery) aggregateKey(userID string) string {
	return keyspace.AggregateKey(q.Group, q.Period, userID, q.Attr)
}

// track records the latency of a query and counts failures other than
// missing targets.
func track(kind string, start time.Time, err *error) {
	metrics.RecordQueryLatency(kind, metrics.Since(start))
	if *err != nil && !errors.Is(*err, ErrNotFound) {
		metrics.RecordQueryError(kind)
	}
}

func checkRange(from, to int64) error {
	if from < 0 {
		return fmt.Errorf("%w: from %d is negative", ErrInvalidRange, from)
	}
	if to < -1 {
		return fmt.Errorf("%w: to %d is below -1", ErrInvalidRange, to)
	}
	return nil
}

// GetLeaderboard returns the user ids ranked from through to (0-based,
// inclusive), best first. A to of -1 means the last rank. A ranked set that
// does not exist yields an empty slice.
func (e *Engine) GetLeaderboard(ctx context.Context, q LeaderboardQuery, from, to int64) (ids []string, err error) {
	defer track("leaderboard", time.Now(), &err)

	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	q = q.normalize()
	ids, err = e.store.ZRevRange(ctx, q.setKey(), from, to)
	if err != nil {
		return nil, storeErr("read leaderboard", err)
	}
	return ids, nil
}

// GetLeaderboardWithScores is GetLeaderboard with ranks and scores.
func (e *Engine) GetLeaderboardWithScores(ctx context.Context, q LeaderboardQuery, from, to int64) (rows []model.RankedMember, err error) {
	defer track("leaderboard", time.Now(), &err)

	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return e.window(ctx, q.normalize(), from, to)
}

func (e *Engine) window(ctx context.Context, q LeaderboardQuery, from, to int64) ([]model.RankedMember, error) {
	members, err := e.store.ZRevRangeWithScores(ctx, q.setKey(), from, to)
	if err != nil {
		return nil, storeErr("read leaderboard", err)
	}
	rows := make([]model.RankedMember, len(members))
	for i, m := range members {
		rows[i] = model.RankedMember{Rank: from + int64(i), UserID: m.ID, Score: m.Score}
	}
	return rows, nil
}

// GetTop returns the n best members.
func (e *Engine) GetTop(ctx context.Context, q LeaderboardQuery, n int64) (rows []model.RankedMember, err error) {
	defer track("top", time.Now(), &err)

	if n < 1 {
		return nil, fmt.Errorf("%w: n must be at least 1, got %d", ErrInvalidLimit, n)
	}
	return e.window(ctx, q.normalize(), 0, n-1)
}

// GetRank returns the 0-based descending rank of userID, or ErrNotFound.
func (e *Engine) GetRank(ctx context.Context, q LeaderboardQuery, userID string) (rank int64, err error) {
	defer track("rank", time.Now(), &err)

	return e.rank(ctx, q.normalize(), userID)
}

func (e *Engine) rank(ctx context.Context, q LeaderboardQuery, userID string) (int64, error) {
	rank, err := e.store.ZRevRank(ctx, q.setKey(), userID)
	if err != nil {
		return 0, storeErr("read rank", err)
	}
	return rank, nil
}

// GetAroundUserLeaderboard returns the contiguous slice of the leaderboard
// spanning rng ranks on each side of userID, clipped at both ends. A user
// without a rank yields ErrNotFound.
func (e *Engine) GetAroundUserLeaderboard(ctx context.Context, q LeaderboardQuery, userID string, rng int64) (ids []string, err error) {
	rows, err := e.GetAroundUserWithScores(ctx, q, userID, rng)
	if err != nil {
		return nil, err
	}
	ids = make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.UserID
	}
	return ids, nil
}

// GetAroundUserWithScores is GetAroundUserLeaderboard with ranks and scores.
func (e *Engine) GetAroundUserWithScores(ctx context.Context, q LeaderboardQuery, userID string, rng int64) (rows []model.RankedMember, err error) {
	defer track("around", time.Now(), &err)

	if rng < 0 {
		return nil, fmt.Errorf("%w: range %d is negative", ErrInvalidRange, rng)
	}
	q = q.normalize()
	r, err := e.rank(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	// Negative bounds would count from the end of the set, so neither side
	// may wrap.
	hi := int64(math.MaxInt64)
	if rng <= math.MaxInt64-r {
		hi = r + rng
	}
	return e.window(ctx, q, max(0, r-rng), hi)
}

// GetUserBestScore projects the event holding userID's best score. Score
// is included unless opts.ExcludeScore is set. A missing aggregate or a
// reference to a deleted event yields ErrNotFound.
func (e *Engine) GetUserBestScore(ctx context.Context, q LeaderboardQuery, userID string, opts model.FilterOptions) (best model.BestScore, err error) {
	defer track("best", time.Now(), &err)

	q = q.normalize()
	ref, err := e.store.HGet(ctx, q.aggregateKey(userID), keyspace.FieldBestScore)
	if err != nil {
		return model.BestScore{}, storeErr("read best reference", err)
	}
	id, err := keyspace.LedgerID(ref)
	if err != nil {
		return model.BestScore{}, fmt.Errorf("%w: best reference %q", ErrCorruptValue, ref)
	}
	fields, err := e.store.HGetAll(ctx, keyspace.LedgerKey(id))
	if err != nil {
		return model.BestScore{}, storeErr("read referenced event", err)
	}
	if len(fields) == 0 {
		return model.BestScore{}, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}

	best.EventID = id
	if !opts.ExcludeScore {
		d, err := parseStoredScore(fields[keyspace.FieldScore])
		if err != nil {
			return model.BestScore{}, fmt.Errorf("event %d: %w", id, err)
		}
		score := d.InexactFloat64()
		best.Score = &score
	}
	if opts.Extra {
		extra := fields[keyspace.FieldExtra]
		best.Extra = &extra
	}
	if opts.CreatedAt {
		ts, err := time.Parse(time.RFC3339Nano, fields[keyspace.FieldCreatedAt])
		if err != nil {
			return model.BestScore{}, fmt.Errorf("%w: event %d created_at", ErrCorruptValue, id)
		}
		best.CreatedAt = &ts
	}
	return best, nil
}

// GetUserTotalScore returns the running total of userID, or ErrNotFound.
func (e *Engine) GetUserTotalScore(ctx context.Context, q LeaderboardQuery, userID string) (total float64, err error) {
	defer track("total", time.Now(), &err)

	q = q.normalize()
	raw, err := e.store.HGet(ctx, q.aggregateKey(userID), keyspace.FieldTotalScore)
	if err != nil {
		return 0, storeErr("read total", err)
	}
	d, err := parseStoredScore(raw)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// Count returns the number of ranked members.
func (e *Engine) Count(ctx context.Context, q LeaderboardQuery) (n int64, err error) {
	defer track("count", time.Now(), &err)

	q = q.normalize()
	n, err = e.store.ZCard(ctx, q.setKey())
	if err != nil {
		return 0, storeErr("count members", err)
	}
	return n, nil
}
