// Package scheduler clears rolling leaderboards on their cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

// Resetter clears one period of one group.
type Resetter interface {
	ClearPeriodLeaderBoard(ctx context.Context, group string, period model.Period) (int64, error)
}

// DefaultSpecs are the standard five-field schedules of each rolling period.
var DefaultSpecs = map[model.Period]string{
	model.PeriodDaily:   "0 0 * * *",
	model.PeriodWeekly:  "0 0 * * 1",
	model.PeriodMonthly: "0 0 1 * *",
	model.PeriodYearly:  "0 0 1 1 *",
}

// Scheduler runs period resets for a fixed set of groups.
type Scheduler struct {
	resetter Resetter
	logger   logger.Logger
	location *time.Location
	groups   []string
	specs    map[model.Period]string
	timeout  time.Duration

	mu        sync.Mutex
	cron      *cron.Cron
	schedules map[model.Period]cron.Schedule
}

// New builds a scheduler around r. Nothing runs until Schedule and Start.
func New(r Resetter, opts ...Option) *Scheduler {
	s := &Scheduler{
		resetter:  r,
		logger:    logger.Nop(),
		location:  time.UTC,
		groups:    []string{model.DefaultGroup},
		specs:     make(map[model.Period]string, len(DefaultSpecs)),
		timeout:   time.Minute,
		schedules: make(map[model.Period]cron.Schedule),
	}
	for p, spec := range DefaultSpecs {
		s.specs[p] = spec
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(cron.WithLocation(s.location))
	return s
}

// Schedule registers the reset job of every period in ps. Alltime is skipped.
func (s *Scheduler) Schedule(ps ...model.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range ps {
		if p == model.PeriodAllTime {
			continue
		}
		if _, ok := s.schedules[p]; ok {
			continue
		}
		spec, ok := s.specs[p]
		if !ok {
			return fmt.Errorf("no reset schedule for period %q", p)
		}
		sched, err := cron.ParseStandard(spec)
		if err != nil {
			return fmt.Errorf("period %s: cron %q: %w", p, spec, err)
		}
		s.cron.Schedule(sched, cron.FuncJob(func() { s.run(p) }))
		s.schedules[p] = sched
		s.logger.Info(context.Background(), "reset scheduled",
			logger.String("period", string(p)),
			logger.String("cron", spec),
			logger.String("timezone", s.location.String()),
		)
	}
	return nil
}

// NextRun reports when the reset of p fires next after t.
func (s *Scheduler) NextRun(p model.Period, t time.Time) (time.Time, bool) {
	s.mu.Lock()
	sched, ok := s.schedules[p]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return sched.Next(t.In(s.location)), true
}

// Start begins firing scheduled resets.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for running resets or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(p model.Period) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.RunNow(ctx, p); err != nil {
		s.logger.Error(ctx, "scheduled reset failed", logger.String("period", string(p)), logger.Error(err))
	}
}

// RunNow clears p in every group. Groups are reset one after another; a
// failing group does not stop the rest and all failures are returned.
func (s *Scheduler) RunNow(ctx context.Context, p model.Period) error {
	var errs []error
	for _, g := range s.groups {
		n, err := s.resetter.ClearPeriodLeaderBoard(ctx, g, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("group %s: %w", g, err))
			continue
		}
		s.logger.Debug(ctx, "group reset",
			logger.String("group", g),
			logger.String("period", string(p)),
			logger.Int64("deleted", n),
		)
	}
	return errors.Join(errs...)
}
