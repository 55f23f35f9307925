package testevents

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ladder/pkg/logger"
)

// Score tiers; each generated event picks one uniformly.
var tiers = []struct{ min, span float64 }{
	{30, 40},   // average
	{70, 20},   // high
	{1, 29},    // low
	{90, 10},   // elite
	{0.1, 0.9}, // idle
	{60, 20},   // mid-high
	{20, 20},   // mid-low
	{0, 100},   // anything
}

// generateEvents builds cfg.NumEvents events spread over cfg.Users users
// and cfg.Attrs attributes. The same seed yields the same scores.
func generateEvents(ctx context.Context, cfg *Config, stats *Stats) ([]Event, error) {
	if cfg.Users <= 0 || cfg.NumEvents <= 0 || len(cfg.Attrs) == 0 {
		return nil, fmt.Errorf("need users, events and attributes (got %d, %d, %d)", cfg.Users, cfg.NumEvents, len(cfg.Attrs))
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	logger.Get().Info(ctx, "generating events",
		logger.Int("numEvents", cfg.NumEvents),
		logger.Int("users", cfg.Users),
		logger.Any("attrs", cfg.Attrs),
		logger.Any("seed", seed))

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	base := time.Now().UTC().Truncate(time.Second)

	events := make([]Event, cfg.NumEvents)
	for i := range events {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during event generation: %w", err)
		}
		tier := tiers[rng.IntN(len(tiers))]
		events[i] = Event{
			UserID:    fmt.Sprintf("user-%05d", rng.IntN(cfg.Users)),
			AttrName:  cfg.Attrs[rng.IntN(len(cfg.Attrs))],
			Score:     math.Round((tier.min+rng.Float64()*tier.span)*1000) / 1000,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond).Format(time.RFC3339),
			Group:     cfg.Group,
			RequestID: uuid.NewString(),
		}
	}

	stats.EventsGenerated = len(events)
	return events, nil
}

// replays picks n events to resend unchanged. Each should be acknowledged
// as a duplicate and leave the aggregates untouched.
func replays(events []Event, n int) []Event {
	n = min(n, len(events))
	out := make([]Event, 0, n)
	step := max(1, len(events)/max(1, n))
	for i := 0; i < len(events) && len(out) < n; i += step {
		out = append(out, events[i])
	}
	return out
}
