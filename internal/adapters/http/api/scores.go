package api

import (
	"context"
	"net/http"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/ranking"
)

// ScoresDependencies defines the interface for per-user aggregate reads.
type ScoresDependencies interface {
	GetUserBestScore(ctx context.Context, q ranking.LeaderboardQuery, userID string, opts model.FilterOptions) (model.BestScore, error)
	GetUserTotalScore(ctx context.Context, q ranking.LeaderboardQuery, userID string) (float64, error)
}

// ScoresHandler handles best and total score requests.
type ScoresHandler struct {
	deps ScoresDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoresDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

type totalResponse struct {
	UserID string  `json:"user_id"`
	Attr   string  `json:"attr"`
	Total  float64 `json:"total"`
}

// HandleGetBest handles GET /users/{user}/attrs/{attr}/best?extra&created_at&score.
func (h *ScoresHandler) HandleGetBest(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_best"

	q, err := leaderboardQuery(op, r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	v := r.URL.Query()
	var opts model.FilterOptions
	if opts.Extra, err = boolParam(op, v, "extra"); err != nil {
		writeFailure(w, err)
		return
	}
	if opts.CreatedAt, err = boolParam(op, v, "created_at"); err != nil {
		writeFailure(w, err)
		return
	}
	if v.Get("score") != "" {
		include, err := boolParam(op, v, "score")
		if err != nil {
			writeFailure(w, err)
			return
		}
		opts.ExcludeScore = !include
	}

	best, err := h.deps.GetUserBestScore(r.Context(), q, r.PathValue("user"), opts)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, best)
}

// HandleGetTotal handles GET /users/{user}/attrs/{attr}/total.
func (h *ScoresHandler) HandleGetTotal(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_total"

	q, err := leaderboardQuery(op, r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	user := r.PathValue("user")
	total, err := h.deps.GetUserTotalScore(r.Context(), q, user)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{UserID: user, Attr: q.Attr, Total: total})
}
