package activity

import (
	"context"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/plant-operations/internal"
	"github.com/frahmantamala/plant-operations/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, filter ListFilter) ([]*ActivityLog, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

type ActivityLogsResponse struct {
	ActivityLogs []*ActivityLog `json:"activity_logs"`
}

func (h *Handler) ListActivityLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Module: q.Get("module")}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.HandleServiceError(w, errors.NewValidationFieldError("limit", "limit must be a positive integer", errors.ErrCodeValidationFailed))
			return
		}
		filter.Limit = limit
	}
	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.HandleServiceError(w, errors.NewValidationFieldError("user_id", "user_id must be numeric", errors.ErrCodeValidationFailed))
			return
		}
		filter.UserID = &id
	}

	logs, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ActivityLogsResponse{ActivityLogs: logs})
}
