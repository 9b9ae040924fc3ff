package plantunit

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/plant-operations/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, category string) ([]*PlantUnit, error)
	Categories(ctx context.Context) ([]Category, error)
	Create(ctx context.Context, dto CreatePlantUnitDTO) (*PlantUnit, error)
	Delete(ctx context.Context, id int64) error
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

func (h *Handler) ListPlantUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.Service.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PlantUnitsResponse{PlantUnits: units})
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.Categories(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, CategoriesResponse{Categories: categories})
}

func (h *Handler) CreatePlantUnit(w http.ResponseWriter, r *http.Request) {
	var dto CreatePlantUnitDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	unit, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, unit)
}

func (h *Handler) DeletePlantUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathInt64(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid plant unit id")
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
