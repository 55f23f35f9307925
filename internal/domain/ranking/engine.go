// Package ranking implements the leaderboard engine: event ingestion, the
// best and total aggregates with their ranked sets, rank queries and period
// resets, all expressed against repository.Store primitives.
package ranking

import (
	"errors"
	"time"

	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/pkg/logger"
)

// DefaultLockStripes is the size of the per-key lock table.
const DefaultLockStripes = 256

// Engine is safe for concurrent use.
type Engine struct {
	store  repository.Store
	logger logger.Logger
	locks  *keyLocks
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLockStripes sizes the in-process per-key lock table. Zero disables
// per-key serialization; concurrent updates of one aggregate may then lose
// writes.
func WithLockStripes(n int) Option {
	return func(e *Engine) {
		e.locks = newKeyLocks(n)
	}
}

// WithClock overrides the time source used to default CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New builds an engine over store.
func New(store repository.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("ranking: store is required")
	}
	e := &Engine{
		store:  store,
		logger: logger.Nop(),
		locks:  newKeyLocks(DefaultLockStripes),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Store returns the backing store.
func (e *Engine) Store() repository.Store {
	return e.store
}
