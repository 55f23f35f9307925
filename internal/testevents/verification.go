package testevents

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/ladder/pkg/logger"
)

const scoreTolerance = 1e-6

var scoreTypes = []string{"best", "total"}

// ErrMismatch marks a served leaderboard that disagrees with the events.
var ErrMismatch = errors.New("leaderboard mismatch")

// verifyResults compares the served top rows of every (attr, score type)
// board with the expectation, then spot-checks each listed user's total.
func verifyResults(ctx context.Context, cfg *Config, c *client, want *expectation, stats *Stats) error {
	log := logger.Get()
	var errs []error

	for _, attr := range cfg.Attrs {
		for _, st := range scoreTypes {
			got, err := c.top(ctx, attr, st, cfg.TopN)
			if err != nil {
				return fmt.Errorf("read %s %s board: %w", attr, st, err)
			}
			expected := want.board(attr, st)
			expected = expected[:min(cfg.TopN, len(expected))]
			stats.BoardsVerified++
			stats.LeaderboardEntries += len(got)

			if err := compareBoards(attr, st, got, expected); err != nil {
				errs = append(errs, err)
				continue
			}
			if cfg.Verbose && len(got) > 0 {
				log.Info(ctx, "board verified",
					logger.String("attr", attr),
					logger.String("type", st),
					logger.String("leader", got[0].UserID),
					logger.Float64("score", got[0].Score))
			}
		}

		totals := want.board(attr, "total")
		for _, row := range totals[:min(cfg.TopN, len(totals))] {
			total, err := c.total(ctx, row.UserID, attr)
			if err != nil {
				return fmt.Errorf("read total of %s/%s: %w", row.UserID, attr, err)
			}
			if math.Abs(total-row.Score) > scoreTolerance {
				errs = append(errs, fmt.Errorf("%w: total of %s/%s is %v, want %v", ErrMismatch, row.UserID, attr, total, row.Score))
			}
		}
	}

	stats.Mismatches = len(errs)
	return errors.Join(errs...)
}

func compareBoards(attr, scoreType string, got, want []Entry) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: %s/%s has %d rows, want %d", ErrMismatch, attr, scoreType, len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Rank != w.Rank || g.UserID != w.UserID || math.Abs(g.Score-w.Score) > scoreTolerance {
			return fmt.Errorf("%w: %s/%s row %d is %s=%v, want %s=%v", ErrMismatch, attr, scoreType, i, g.UserID, g.Score, w.UserID, w.Score)
		}
	}
	return nil
}
