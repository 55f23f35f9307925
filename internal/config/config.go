// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata" // zone data for Timezone on hosts without it

	"github.com/okian/ladder/internal/domain/model"
)

// Supported store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Store selects the backing store: memory or redis.
	Store string `koanf:"store"`

	RedisAddr          string `koanf:"redis_addr"`
	RedisPassword      string `koanf:"redis_password"`
	RedisDB            int    `koanf:"redis_db"`
	RedisPoolSize      int    `koanf:"redis_pool_size"`
	RedisDialTimeoutMS int    `koanf:"redis_dial_timeout_ms"`

	// DefaultGroup is used by calls that do not name a group.
	DefaultGroup string `koanf:"default_group"`

	// Periods lists the rolling periods active at startup.
	Periods []string `koanf:"periods"`

	// ResetGroups lists the groups whose periods the scheduler clears.
	// Empty means only DefaultGroup.
	ResetGroups []string `koanf:"reset_groups"`

	// Cron expressions (five fields) for each period reset.
	DailyCron   string `koanf:"daily_cron"`
	WeeklyCron  string `koanf:"weekly_cron"`
	MonthlyCron string `koanf:"monthly_cron"`
	YearlyCron  string `koanf:"yearly_cron"`

	// Timezone is the IANA zone the reset schedule runs in.
	Timezone string `koanf:"timezone"`

	// LockStripes sizes the per-key write lock table; 0 disables it.
	LockStripes int `koanf:"lock_stripes"`

	// DedupeSize sets the number of request ids remembered for retries.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps the number of rows one query may return.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// DefaultPeriods is used when no periods are configured.
var DefaultPeriods = []string{"daily", "weekly", "monthly", "yearly"}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		Store:               StoreMemory,
		RedisAddr:           "localhost:6379",
		RedisPoolSize:       10,
		RedisDialTimeoutMS:  5000,
		DefaultGroup:        model.DefaultGroup,
		DailyCron:           "0 0 * * *",
		WeeklyCron:          "0 0 * * 1",
		MonthlyCron:         "0 0 1 * *",
		YearlyCron:          "0 0 1 1 *",
		Timezone:            "UTC",
		LockStripes:         256,
		DedupeSize:          50_000,
		MaxLeaderboardLimit: 100,
	}
}

// ActivePeriods parses Periods.
func (c *Config) ActivePeriods() ([]model.Period, error) {
	out := make([]model.Period, 0, len(c.Periods))
	for _, s := range c.Periods {
		p, err := model.ParsePeriod(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if p == model.PeriodAllTime {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Groups returns the groups the reset scheduler covers.
func (c *Config) Groups() []string {
	if len(c.ResetGroups) == 0 {
		return []string{c.DefaultGroup}
	}
	return c.ResetGroups
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// RedisDialTimeout converts RedisDialTimeoutMS.
func (c *Config) RedisDialTimeout() time.Duration {
	return time.Duration(c.RedisDialTimeoutMS) * time.Millisecond
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Store != StoreMemory && c.Store != StoreRedis:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	case c.Store == StoreRedis && c.RedisAddr == "":
		return fmt.Errorf("%w: redis_addr must not be empty", ErrInvalidConfig)
	case c.DefaultGroup == "":
		return fmt.Errorf("%w: default_group must not be empty", ErrInvalidConfig)
	case c.LockStripes < 0:
		return fmt.Errorf("%w: lock_stripes must not be negative", ErrInvalidConfig)
	case c.DedupeSize < 1:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	if _, err := c.ActivePeriods(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
