package downtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	errors "github.com/frahmantamala/plant-operations/internal"
	"github.com/frahmantamala/plant-operations/internal/transport"
	"github.com/frahmantamala/plant-operations/internal/user"
)

type ServiceAPI interface {
	List(ctx context.Context, caller *user.User, filter ListFilter) ([]*Downtime, error)
	Get(ctx context.Context, caller *user.User, id int64) (*Downtime, error)
	Create(ctx context.Context, caller *user.User, dto DowntimeDTO) (*Downtime, error)
	Update(ctx context.Context, caller *user.User, id int64, dto DowntimeDTO) (*Downtime, error)
	Delete(ctx context.Context, caller *user.User, id int64) error
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

func (h *Handler) ListDowntimes(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := ListFilter{
		Category: q.Get("category"),
		Unit:     q.Get("unit"),
		Status:   q.Get("status"),
	}
	for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.HandleServiceError(w, errors.NewValidationFieldError(name, name+" must use YYYY-MM-DD format", errors.ErrCodeInvalidDate))
			return
		}
		*dst = &t
	}

	downtimes, err := h.Service.List(r.Context(), caller, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, DowntimesResponse{Downtimes: downtimes})
}

func (h *Handler) GetDowntime(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.PathInt64(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid downtime id")
		return
	}

	d, err := h.Service.Get(r.Context(), caller, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) CreateDowntime(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var dto DowntimeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.Service.Create(r.Context(), caller, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) UpdateDowntime(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.PathInt64(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid downtime id")
		return
	}

	var dto DowntimeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.Service.Update(r.Context(), caller, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) DeleteDowntime(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := h.PathInt64(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid downtime id")
		return
	}

	if err := h.Service.Delete(r.Context(), caller, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (*user.User, bool) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.HandleServiceError(w, errors.ErrInvalidToken)
		return nil, false
	}
	return u, true
}
