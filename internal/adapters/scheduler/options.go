package scheduler

import (
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocation sets the time zone schedules are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithGroups sets the groups every reset covers.
func WithGroups(groups ...string) Option {
	return func(s *Scheduler) {
		if len(groups) > 0 {
			s.groups = append([]string(nil), groups...)
		}
	}
}

// WithSpec overrides the cron expression of one period.
func WithSpec(p model.Period, spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.specs[p] = spec
		}
	}
}

// WithTimeout bounds one scheduled reset run.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}
