package api

import (
	"context"
	"net/http"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

// PeriodsDependencies defines the interface for period resets.
type PeriodsDependencies interface {
	ClearPeriodLeaderBoard(ctx context.Context, group string, period model.Period) (int64, error)
}

// PeriodsHandler handles manual period resets.
type PeriodsHandler struct {
	deps   PeriodsDependencies
	logger logger.Logger
}

// NewPeriodsHandler creates a new periods handler.
func NewPeriodsHandler(deps PeriodsDependencies, log logger.Logger) *PeriodsHandler {
	return &PeriodsHandler{deps: deps, logger: log}
}

type clearResponse struct {
	Group   string `json:"group,omitempty"`
	Period  string `json:"period"`
	Deleted int64  `json:"deleted"`
}

// HandleClearPeriod handles DELETE /periods/{period}?group=G. Alltime and
// unknown periods are answered with 409.
func (h *PeriodsHandler) HandleClearPeriod(w http.ResponseWriter, r *http.Request) {
	period := model.Period(r.PathValue("period"))
	group := r.URL.Query().Get("group")

	n, err := h.deps.ClearPeriodLeaderBoard(r.Context(), group, period)
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.logger.Info(r.Context(), "period cleared over http",
		logger.String("requestID", RequestIDFromContext(r.Context())),
		logger.String("group", group),
		logger.String("period", string(period)),
		logger.Int64("deleted", n),
	)
	writeJSON(w, http.StatusOK, clearResponse{Group: group, Period: string(period), Deleted: n})
}
