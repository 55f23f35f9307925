package ranking

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/keyspace"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/metrics"
)

// upsert folds ev into the (group, period) aggregate of its user and
// attribute and mirrors both fields into their ranked sets. The best and
// total paths touch disjoint fields and run concurrently; both always run to
// completion so a failure in one never leaves the other half-written.
func (e *Engine) upsert(ctx context.Context, group string, period model.Period, ev model.ScoreEvent) error {
	aggKey := keyspace.AggregateKey(group, period, ev.UserID, ev.AttrName)

	unlock := e.locks.lock(aggKey)
	defer unlock()

	score := decimal.NewFromFloat(ev.Score)

	var g errgroup.Group
	g.Go(func() error {
		return e.upsertBest(ctx, group, period, aggKey, ev, score)
	})
	g.Go(func() error {
		return e.upsertTotal(ctx, group, period, aggKey, ev, score)
	})
	return g.Wait()
}

// upsertBest replaces the best reference only when score is strictly
// greater than the referenced event's score, so the earliest event wins a
// tie. A reference to an event that no longer exists counts as absent.
func (e *Engine) upsertBest(ctx context.Context, group string, period model.Period, aggKey string, ev model.ScoreEvent, score decimal.Decimal) error {
	ref, err := e.store.HGet(ctx, aggKey, keyspace.FieldBestScore)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return storeErr("read best reference", err)
	default:
		current, err := e.referencedScore(ctx, ref)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		case !score.GreaterThan(current):
			return nil
		}
	}

	if err := e.store.HSet(ctx, aggKey, map[string]string{
		keyspace.FieldBestScore: strconv.FormatInt(ev.ID, 10),
	}); err != nil {
		return storeErr("write best reference", err)
	}
	setKey := keyspace.RankedSetKey(group, period, model.ScoreBest, ev.AttrName)
	if err := e.store.ZAdd(ctx, setKey, ev.UserID, ev.Score); err != nil {
		return storeErr("mirror best score", err)
	}
	metrics.RecordBestScoreImproved(string(period))
	return nil
}

// upsertTotal adds score to the running total.
func (e *Engine) upsertTotal(ctx context.Context, group string, period model.Period, aggKey string, ev model.ScoreEvent, score decimal.Decimal) error {
	total := score
	raw, err := e.store.HGet(ctx, aggKey, keyspace.FieldTotalScore)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return storeErr("read total", err)
	default:
		prev, err := parseStoredScore(raw)
		if err != nil {
			return fmt.Errorf("total of %s: %w", aggKey, err)
		}
		total = prev.Add(score)
	}

	if err := e.store.HSet(ctx, aggKey, map[string]string{
		keyspace.FieldTotalScore: formatScore(total),
	}); err != nil {
		return storeErr("write total", err)
	}
	setKey := keyspace.RankedSetKey(group, period, model.ScoreTotal, ev.AttrName)
	if err := e.store.ZAdd(ctx, setKey, ev.UserID, total.InexactFloat64()); err != nil {
		return storeErr("mirror total score", err)
	}
	return nil
}

// referencedScore loads the score of the ledger event named by ref.
func (e *Engine) referencedScore(ctx context.Context, ref string) (decimal.Decimal, error) {
	id, err := keyspace.LedgerID(ref)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: best reference %q", ErrCorruptValue, ref)
	}
	raw, err := e.store.HGet(ctx, keyspace.LedgerKey(id), keyspace.FieldScore)
	if err != nil {
		return decimal.Zero, storeErr("read referenced event", err)
	}
	return parseStoredScore(raw)
}
