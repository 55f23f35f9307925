// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/ranking"
	"github.com/okian/ladder/pkg/logger"
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	Add(ctx context.Context, entity model.Entity, opts service.AddOptions) (service.AddResult, error)

	GetLeaderboard(ctx context.Context, q ranking.LeaderboardQuery, from, to int64) ([]model.RankedMember, error)
	GetTop(ctx context.Context, q ranking.LeaderboardQuery, n int64) ([]model.RankedMember, error)
	GetRank(ctx context.Context, q ranking.LeaderboardQuery, userID string) (model.RankedMember, error)
	GetAroundUserLeaderboard(ctx context.Context, q ranking.LeaderboardQuery, userID string, rng int64) ([]model.RankedMember, error)
	GetUserBestScore(ctx context.Context, q ranking.LeaderboardQuery, userID string, opts model.FilterOptions) (model.BestScore, error)
	GetUserTotalScore(ctx context.Context, q ranking.LeaderboardQuery, userID string) (float64, error)

	ClearPeriodLeaderBoard(ctx context.Context, group string, period model.Period) (int64, error)

	Ping(ctx context.Context) error
	GetStats() map[string]any
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	scoresHandler      *ScoresHandler
	periodsHandler     *PeriodsHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// number of rows one leaderboard request may return.
func NewServer(deps Dependencies, maxLimit int64, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(deps),
		eventsHandler:      NewEventsHandler(deps, log),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps, maxLimit),
		scoresHandler:      NewScoresHandler(deps),
		periodsHandler:     NewPeriodsHandler(deps, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	handle := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.Handle(pattern, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}

	handle("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	handle("GET /stats", "stats", s.statsHandler.HandleStats)

	handle("POST /events", "events", s.eventsHandler.HandlePostEvent)

	handle("GET /leaderboards/{attr}", "leaderboard", s.leaderboardHandler.HandleGetLeaderboard)
	handle("GET /leaderboards/{attr}/top", "top", s.leaderboardHandler.HandleGetTop)
	handle("GET /leaderboards/{attr}/users/{user}/rank", "rank", s.rankHandler.HandleGetRank)
	handle("GET /leaderboards/{attr}/users/{user}/around", "around", s.rankHandler.HandleGetAround)

	handle("GET /users/{user}/attrs/{attr}/best", "best", s.scoresHandler.HandleGetBest)
	handle("GET /users/{user}/attrs/{attr}/total", "total", s.scoresHandler.HandleGetTotal)

	handle("DELETE /periods/{period}", "periods", s.periodsHandler.HandleClearPeriod)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps an upstream error to its status code.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrLimitExceeded):
		writeError(w, http.StatusBadRequest, "limit_exceeded", err)
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ranking.ErrValidation),
		errors.Is(err, ranking.ErrInvalidRange),
		errors.Is(err, ranking.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ranking.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ranking.ErrState):
		writeError(w, http.StatusConflict, "invalid_state", err)
	case errors.Is(err, service.ErrInFlight):
		writeError(w, http.StatusConflict, "in_flight", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, ranking.ErrCorruptValue):
		writeError(w, http.StatusInternalServerError, "corrupt_value", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
