package api

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/ranking"
)

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	GetLeaderboard(ctx context.Context, q ranking.LeaderboardQuery, from, to int64) ([]model.RankedMember, error)
	GetTop(ctx context.Context, q ranking.LeaderboardQuery, n int64) ([]model.RankedMember, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int64
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int64) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /leaderboards/{attr}?from&to&scores.
// Without scores=true only user ids are returned. An open-ended range (to
// omitted or -1) is capped at the configured limit.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"

	q, err := leaderboardQuery(op, r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	v := r.URL.Query()
	from, err := intParam(op, v, "from", 0)
	if err != nil {
		writeFailure(w, err)
		return
	}
	to, err := intParam(op, v, "to", -1)
	if err != nil {
		writeFailure(w, err)
		return
	}
	withScores, err := boolParam(op, v, "scores")
	if err != nil {
		writeFailure(w, err)
		return
	}

	switch {
	case to == -1 && from >= 0:
		to = from + min(h.maxLimit-1, math.MaxInt64-from)
	case from >= 0 && to >= from && to-from >= h.maxLimit:
		writeFailure(w, WrapKind(op, ErrLimitExceeded, fmt.Errorf("at most %d rows per request", h.maxLimit)))
		return
	}

	rows, err := h.deps.GetLeaderboard(r.Context(), q, from, to)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if withScores {
		writeJSON(w, http.StatusOK, rows)
		return
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.UserID
	}
	writeJSON(w, http.StatusOK, ids)
}

// HandleGetTop handles GET /leaderboards/{attr}/top?n=N requests.
func (h *LeaderboardHandler) HandleGetTop(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_top"

	q, err := leaderboardQuery(op, r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	n, err := intParam(op, r.URL.Query(), "n", 10)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if n > h.maxLimit {
		writeFailure(w, WrapKind(op, ErrLimitExceeded, fmt.Errorf("n must not exceed %d", h.maxLimit)))
		return
	}
	rows, err := h.deps.GetTop(r.Context(), q, n)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
