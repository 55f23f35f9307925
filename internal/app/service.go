// Package service is the host-facing facade over the leaderboard engine.
// It starts and stops the engine, tracks the active periods, the default
// group and the request-id guard, and is what the HTTP API and scheduler
// call.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/dedupe"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/ranking"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// AddOptions scopes one ingestion through the service.
type AddOptions struct {
	// Group defaults to the service default group.
	Group string
	// RequestID makes retries of the same request safe while it is remembered.
	RequestID string
}

// AddResult reports the ledger id of an accepted event.
type AddResult struct {
	EventID   int64 `json:"event_id"`
	Duplicate bool  `json:"duplicate"`
}

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	ownsStore bool
	engine    *ranking.Engine
	deduper   dedupe.Deduper

	// Configuration
	defaultGroup string
	periods      model.PeriodSet
	lockStripes  int
	dedupeSize   int

	// State
	started    bool
	accepted   atomic.Int64
	duplicates atomic.Int64

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		defaultGroup: model.DefaultGroup,
		lockStripes:  ranking.DefaultLockStripes,
		dedupeSize:   dedupe.DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start verifies the store and builds the engine. Calling it twice is a no-op.
// Without WithStore a fresh in-memory store is created on every start.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.ownsStore = true
		s.logger.Info(ctx, "using in-memory store")
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store not reachable: %w", err)
	}

	engine, err := ranking.New(s.store,
		ranking.WithLogger(s.logger.Named("engine")),
		ranking.WithLockStripes(s.lockStripes),
	)
	if err != nil {
		return err
	}
	deduper, err := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	if err != nil {
		return err
	}
	s.engine = engine
	s.deduper = deduper
	s.started = true

	active := s.periods.Targets()
	metrics.UpdateActivePeriods(len(active) - 1)
	s.logger.Info(ctx, "leaderboard service started",
		logger.String("defaultGroup", s.defaultGroup),
		logger.Any("periods", active),
		logger.Int("lockStripes", s.lockStripes),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop refuses further work. A store passed through WithStore stays open and
// is closed by its owner; the in-memory store created by Start is closed and
// dropped, so a later Start begins empty.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}
	s.started = false
	s.logger.Info(context.Background(), "leaderboard service stopped")
}

func (s *Service) ready() (*ranking.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.engine, nil
}

// ActivatePeriod makes p receive every later event. Activating an active
// period or alltime is a no-op.
func (s *Service) ActivatePeriod(p model.Period) error {
	if !p.Valid() {
		return fmt.Errorf("%w: unknown period %q", ranking.ErrValidation, p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.periods.Has(p) {
		return nil
	}
	s.periods = s.periods.With(p)
	metrics.UpdateActivePeriods(len(s.periods.Targets()) - 1)
	if s.logger != nil {
		s.logger.Info(context.Background(), "period activated", logger.String("period", string(p)))
	}
	return nil
}

// ActivePeriods lists alltime followed by every active rolling period.
func (s *Service) ActivePeriods() []model.Period {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.periods.Targets()
}

// DefaultGroup returns the group used when a call names none.
func (s *Service) DefaultGroup() string {
	return s.defaultGroup
}

func (s *Service) group(g string) string {
	if g == "" {
		return s.defaultGroup
	}
	return g
}

func (s *Service) query(q ranking.LeaderboardQuery) ranking.LeaderboardQuery {
	q.Group = s.group(q.Group)
	return q
}

// Add records one event. A request id seen before returns the original
// event id and writes nothing.
func (s *Service) Add(ctx context.Context, entity model.Entity, opts AddOptions) (AddResult, error) {
	engine, err := s.ready()
	if err != nil {
		return AddResult{}, err
	}
	s.mu.RLock()
	periods := s.periods
	s.mu.RUnlock()

	if opts.RequestID != "" {
		if id, seen := s.deduper.SeenAndRecord(ctx, opts.RequestID); seen {
			s.duplicates.Add(1)
			metrics.RecordEventDuplicate()
			if id == 0 {
				return AddResult{}, ErrInFlight
			}
			s.logger.Debug(ctx, "duplicate request",
				logger.String("requestID", opts.RequestID),
				logger.Int64("eventID", id),
			)
			return AddResult{EventID: id, Duplicate: true}, nil
		}
	}

	id, err := engine.Add(ctx, entity, ranking.AddOptions{Group: s.group(opts.Group), Periods: periods})
	if err != nil {
		if opts.RequestID != "" {
			s.deduper.Unrecord(ctx, opts.RequestID)
		}
		return AddResult{}, err
	}
	if opts.RequestID != "" {
		s.deduper.Complete(ctx, opts.RequestID, id)
	}
	s.accepted.Add(1)
	return AddResult{EventID: id}, nil
}

// GetUserBestScore returns the projection of userID's best event.
func (s *Service) GetUserBestScore(ctx context.Context, q ranking.LeaderboardQuery, userID string, opts model.FilterOptions) (model.BestScore, error) {
	engine, err := s.ready()
	if err != nil {
		return model.BestScore{}, err
	}
	return engine.GetUserBestScore(ctx, s.query(q), userID, opts)
}

// GetUserTotalScore returns userID's running total.
func (s *Service) GetUserTotalScore(ctx context.Context, q ranking.LeaderboardQuery, userID string) (float64, error) {
	engine, err := s.ready()
	if err != nil {
		return 0, err
	}
	return engine.GetUserTotalScore(ctx, s.query(q), userID)
}

// GetLeaderboard returns ranks from through to with scores.
func (s *Service) GetLeaderboard(ctx context.Context, q ranking.LeaderboardQuery, from, to int64) ([]model.RankedMember, error) {
	engine, err := s.ready()
	if err != nil {
		return nil, err
	}
	return engine.GetLeaderboardWithScores(ctx, s.query(q), from, to)
}

// GetTop returns the n best members.
func (s *Service) GetTop(ctx context.Context, q ranking.LeaderboardQuery, n int64) ([]model.RankedMember, error) {
	engine, err := s.ready()
	if err != nil {
		return nil, err
	}
	return engine.GetTop(ctx, s.query(q), n)
}

// GetRank returns the rank and score of userID.
func (s *Service) GetRank(ctx context.Context, q ranking.LeaderboardQuery, userID string) (model.RankedMember, error) {
	engine, err := s.ready()
	if err != nil {
		return model.RankedMember{}, err
	}
	q = s.query(q)
	rank, err := engine.GetRank(ctx, q, userID)
	if err != nil {
		return model.RankedMember{}, err
	}
	rows, err := engine.GetLeaderboardWithScores(ctx, q, rank, rank)
	if err != nil {
		return model.RankedMember{}, err
	}
	if len(rows) == 0 || rows[0].UserID != userID {
		// The set changed between the two reads; report the rank alone.
		return model.RankedMember{Rank: rank, UserID: userID}, nil
	}
	return rows[0], nil
}

// GetAroundUserLeaderboard returns the members within rng ranks of userID.
func (s *Service) GetAroundUserLeaderboard(ctx context.Context, q ranking.LeaderboardQuery, userID string, rng int64) ([]model.RankedMember, error) {
	engine, err := s.ready()
	if err != nil {
		return nil, err
	}
	return engine.GetAroundUserWithScores(ctx, s.query(q), userID, rng)
}

// ClearPeriodLeaderBoard resets one rolling period of group.
func (s *Service) ClearPeriodLeaderBoard(ctx context.Context, group string, period model.Period) (int64, error) {
	engine, err := s.ready()
	if err != nil {
		return 0, err
	}
	return engine.ClearPeriod(ctx, s.group(group), period)
}

// FlushAll wipes the store.
func (s *Service) FlushAll(ctx context.Context) error {
	engine, err := s.ready()
	if err != nil {
		return err
	}
	return engine.FlushAll(ctx)
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	engine, err := s.ready()
	if err != nil {
		return err
	}
	return engine.Store().Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	periods := make([]string, 0, 5)
	for _, p := range s.periods.Targets() {
		periods = append(periods, string(p))
	}
	stats := map[string]any{
		"started":       s.started,
		"defaultGroup":  s.defaultGroup,
		"activePeriods": periods,
		"lockStripes":   s.lockStripes,
		"dedupeSize":    s.dedupeSize,
		"accepted":      s.accepted.Load(),
		"duplicates":    s.duplicates.Load(),
	}
	if s.started {
		stats["dedupeEntries"] = s.deduper.Size()
		if mem, ok := s.store.(*repository.MemoryStore); ok {
			stats["storeKeys"] = mem.Len()
		}
	}
	return stats
}
