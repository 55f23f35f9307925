package ranking

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/ladder/internal/domain/keyspace"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// ClearPeriod deletes every aggregate and ranked set of (group, period) and
// returns how many keys were removed. Ledger entries are kept. Alltime and
// unrecognized periods are refused with ErrState and nothing is touched.
func (e *Engine) ClearPeriod(ctx context.Context, group string, period model.Period) (int64, error) {
	if group == "" {
		group = model.DefaultGroup
	}
	aggPrefix, ok := keyspace.Prefix(group, period, keyspace.Aggregate, true)
	if !ok {
		metrics.RecordPeriodReset(string(period), "rejected")
		return 0, fmt.Errorf("%w: period %q cannot be cleared", ErrState, period)
	}
	setPrefix, _ := keyspace.Prefix(group, period, keyspace.RankedSet, true)

	start := time.Now()
	var deleted atomic.Int64
	var g errgroup.Group
	for _, prefix := range []string{aggPrefix, setPrefix} {
		g.Go(func() error {
			n, err := e.deletePrefix(ctx, prefix)
			deleted.Add(n)
			return err
		})
	}
	err := g.Wait()

	fields := []logger.Field{
		logger.String("group", group),
		logger.String("period", string(period)),
		logger.Int64("deleted", deleted.Load()),
		logger.Duration("took", time.Since(start)),
	}
	metrics.RecordPeriodKeysDeleted(string(period), deleted.Load())
	if err != nil {
		metrics.RecordPeriodReset(string(period), "error")
		e.logger.Error(ctx, "period reset failed", append(fields, logger.Error(err))...)
		return deleted.Load(), err
	}
	metrics.RecordPeriodReset(string(period), "ok")
	e.logger.Info(ctx, "period reset", fields...)
	return deleted.Load(), nil
}

func (e *Engine) deletePrefix(ctx context.Context, prefix string) (int64, error) {
	keys, err := e.store.Keys(ctx, keyspace.Pattern(prefix))
	if err != nil {
		return 0, storeErr("list "+prefix, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := e.store.Del(ctx, keys...)
	if err != nil {
		return n, storeErr("delete "+prefix, err)
	}
	return n, nil
}

// FlushAll wipes the whole backing store, ledger and counter included.
func (e *Engine) FlushAll(ctx context.Context) error {
	if err := e.store.FlushAll(ctx); err != nil {
		return storeErr("flush", err)
	}
	e.logger.Warn(ctx, "store flushed")
	return nil
}
