package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/ladder/internal/domain/keyspace"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// AddOptions scopes one ingestion.
type AddOptions struct {
	// Group is the namespace; empty means model.DefaultGroup.
	Group string
	// Periods lists the rolling periods that receive the event besides alltime.
	Periods model.PeriodSet
}

// Add validates entity, appends it to the ledger under a fresh id and folds
// it into the aggregates of alltime and every period in opts.Periods.
//
// Period updates run concurrently. A failing period is logged and counted
// but does not fail the call or stop the other periods; Add returns once all
// of them have finished. Add is not idempotent: retrying it counts the score
// twice in every total.
func (e *Engine) Add(ctx context.Context, entity model.Entity, opts AddOptions) (int64, error) {
	start := time.Now()

	ev, reason, err := e.prepare(entity)
	if err != nil {
		metrics.RecordEventRejected(reason)
		return 0, err
	}
	group := opts.Group
	if group == "" {
		group = model.DefaultGroup
	}

	id, err := e.store.Incr(ctx, keyspace.CounterKey)
	if err != nil {
		return 0, storeErr("allocate event id", err)
	}
	ev.ID = id
	if err := e.store.HSet(ctx, keyspace.LedgerKey(id), ledgerFields(ev)); err != nil {
		return 0, storeErr("write ledger", err)
	}

	var wg sync.WaitGroup
	for _, period := range opts.Periods.Targets() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.upsert(ctx, group, period, ev); err != nil {
				metrics.RecordPeriodUpdateError(string(period))
				e.logger.Error(ctx, "period update failed",
					logger.String("group", group),
					logger.String("period", string(period)),
					logger.String("user_id", ev.UserID),
					logger.String("attr", ev.AttrName),
					logger.Int64("event_id", id),
					logger.Error(err))
			}
		}()
	}
	wg.Wait()

	metrics.RecordEventIngested()
	metrics.RecordIngestLatency(metrics.Since(start))
	return id, nil
}

// prepare validates entity and applies defaults. The second result is a
// metrics reason for rejections.
func (e *Engine) prepare(entity model.Entity) (model.ScoreEvent, string, error) {
	if strings.TrimSpace(entity.UserID) == "" {
		return model.ScoreEvent{}, "missing_user", fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if strings.TrimSpace(entity.AttrName) == "" {
		return model.ScoreEvent{}, "missing_attr", fmt.Errorf("%w: attribute name is required", ErrValidation)
	}
	if math.IsNaN(entity.Score) || math.IsInf(entity.Score, 0) {
		return model.ScoreEvent{}, "bad_score", fmt.Errorf("%w: score must be finite", ErrValidation)
	}
	extra, err := encodeExtra(entity.Extra)
	if err != nil {
		return model.ScoreEvent{}, "bad_extra", fmt.Errorf("%w: extra: %w", ErrValidation, err)
	}

	createdAt := entity.CreatedAt
	if createdAt.IsZero() {
		createdAt = e.now()
	}
	return model.ScoreEvent{
		UserID:    entity.UserID,
		AttrName:  entity.AttrName,
		CreatedAt: createdAt,
		Score:     entity.Score,
		Extra:     extra,
	}, "", nil
}

// encodeExtra renders the caller's extra data as a JSON document. Strings
// and byte slices already holding valid JSON are kept verbatim.
func encodeExtra(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "{}", nil
	case json.RawMessage:
		if json.Valid(x) {
			return string(x), nil
		}
	case []byte:
		if json.Valid(x) {
			return string(x), nil
		}
	case string:
		if json.Valid([]byte(x)) {
			return x, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func ledgerFields(ev model.ScoreEvent) map[string]string {
	return map[string]string{
		keyspace.FieldUserID:    ev.UserID,
		keyspace.FieldAttrName:  ev.AttrName,
		keyspace.FieldCreatedAt: ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		keyspace.FieldScore:     formatScore(decimal.NewFromFloat(ev.Score)),
		keyspace.FieldExtra:     ev.Extra,
	}
}
