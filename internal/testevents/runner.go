package testevents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/ladder/pkg/logger"
)

const directoryPermission = 0750

// Run executes the complete event test and returns its statistics. A
// non-nil error wrapping ErrMismatch means the service answered but its
// leaderboards disagree with the submitted events.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get()
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting ladder event test",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("group", cfg.Group),
		logger.Int("events", cfg.NumEvents),
		logger.Int("users", cfg.Users),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Int("topN", cfg.TopN))

	c := newClient(cfg)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	events, err := generateEvents(ctx, cfg, stats)
	if err != nil {
		return stats, fmt.Errorf("event generation failed: %w", err)
	}

	accepted, err := submitEvents(ctx, cfg, c, events, stats)
	if err != nil {
		return stats, fmt.Errorf("event submission failed: %w", err)
	}

	if cfg.Replays > 0 {
		again, err := submitEvents(ctx, cfg, c, replays(events, cfg.Replays), stats)
		if err != nil {
			return stats, fmt.Errorf("replay submission failed: %w", err)
		}
		if len(again) > 0 {
			log.Warn(ctx, "replayed events were accepted as new", logger.Int("count", len(again)))
		}
		accepted = append(accepted, again...)
	}

	verifyErr := verifyResults(ctx, cfg, c, expect(accepted), stats)

	if cfg.OutputFile != "" {
		if err := saveEventsToFile(ctx, cfg.OutputFile, events); err != nil {
			log.Warn(ctx, "failed to save events to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verifyErr != nil {
		return stats, fmt.Errorf("result verification failed: %w", verifyErr)
	}
	log.Info(ctx, "test completed successfully")
	return stats, nil
}

// saveEventsToFile writes the generated events as a JSON array.
func saveEventsToFile(ctx context.Context, filename string, events []Event) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := os.WriteFile(filename, data, logFilePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "events saved to file", logger.String("filename", filename))
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, eventsPerSecond float64
	if stats.EventsSubmitted > 0 {
		successRate = float64(stats.EventsSuccessful) / float64(stats.EventsSubmitted) * 100
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("boardsVerified", stats.BoardsVerified),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
