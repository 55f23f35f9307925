package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	service "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

// IdempotencyHeader carries the client's request id for POST /events.
const IdempotencyHeader = "Idempotency-Key"

// EventDependencies defines the interface for event ingestion.
type EventDependencies interface {
	Add(ctx context.Context, entity model.Entity, opts service.AddOptions) (service.AddResult, error)
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps   EventDependencies
	logger logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies, log logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, logger: log}
}

// eventRequest is the body of POST /events.
type eventRequest struct {
	UserID    string          `json:"user_id"`
	AttrName  string          `json:"attr_name"`
	Score     float64         `json:"score"`
	CreatedAt string          `json:"created_at"`
	Extra     json.RawMessage `json:"extra"`
	Group     string          `json:"group"`
	RequestID string          `json:"request_id"`
}

func (e eventRequest) entity() (model.Entity, error) {
	ent := model.Entity{
		UserID:   e.UserID,
		AttrName: e.AttrName,
		Score:    e.Score,
	}
	if e.CreatedAt != "" {
		ts, err := time.Parse(time.RFC3339, e.CreatedAt)
		if err != nil {
			return model.Entity{}, errors.New("invalid created_at; must be RFC3339")
		}
		ent.CreatedAt = ts
	}
	if len(e.Extra) > 0 {
		ent.Extra = e.Extra
	}
	return ent, nil
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	ent, err := req.entity()
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	requestID := req.RequestID
	if requestID == "" {
		requestID = r.Header.Get(IdempotencyHeader)
	}

	res, err := h.deps.Add(r.Context(), ent, service.AddOptions{Group: req.Group, RequestID: requestID})
	if err != nil {
		h.logger.Debug(r.Context(), "event rejected",
			logger.String("requestID", RequestIDFromContext(r.Context())),
			logger.Error(err),
		)
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
