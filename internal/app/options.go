package service

import (
	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the backing store. Without it Start uses an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDefaultGroup sets the group used when a call does not name one.
func WithDefaultGroup(group string) Option {
	return func(s *Service) {
		if group != "" {
			s.defaultGroup = group
		}
	}
}

// WithPeriods activates rolling periods from the start.
func WithPeriods(periods ...model.Period) Option {
	return func(s *Service) {
		for _, p := range periods {
			s.periods = s.periods.With(p)
		}
	}
}

// WithLockStripes sizes the per-key lock table; 0 disables it.
func WithLockStripes(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.lockStripes = n
		}
	}
}

// WithDedupeSize sets the number of request ids remembered for retries.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}
