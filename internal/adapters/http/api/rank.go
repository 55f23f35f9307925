package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/ranking"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	GetRank(ctx context.Context, q ranking.LeaderboardQuery, userID string) (model.RankedMember, error)
	GetAroundUserLeaderboard(ctx context.Context, q ranking.LeaderboardQuery, userID string, rng int64) ([]model.RankedMember, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps     RankDependencies
	maxLimit int64
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies, maxLimit int64) *RankHandler {
	return &RankHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetRank handles GET /leaderboards/{attr}/users/{user}/rank requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"

	q, err := leaderboardQuery(op, r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	row, err := h.deps.GetRank(r.Context(), q, r.PathValue("user"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// HandleGetAround handles GET /leaderboards/{attr}/users/{user}/around?range=N.
func (h *RankHandler) HandleGetAround(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_around"

	q, err := leaderboardQuery(op, r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	rng, err := intParam(op, r.URL.Query(), "range", 5)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if rng > (h.maxLimit-1)/2 {
		writeFailure(w, WrapKind(op, ErrLimitExceeded, fmt.Errorf("range must not exceed %d", (h.maxLimit-1)/2)))
		return
	}
	rows, err := h.deps.GetAroundUserLeaderboard(r.Context(), q, r.PathValue("user"), rng)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
