package permission

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/plant-operations/internal/transport"
)

type ServiceAPI interface {
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	CreatePermission(ctx context.Context, dto CreatePermissionDTO) (*PermissionResponse, error)
	DeletePermission(ctx context.Context, id int64) error
	AssignToUser(ctx context.Context, userID, permissionID int64) error
	RevokeFromUser(ctx context.Context, userID, permissionID int64) error
	SetUserMatrix(ctx context.Context, userID int64, m Matrix) error
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

func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.Service.ListPermissions(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PermissionsResponse{Permissions: perms})
}

func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var dto CreatePermissionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreatePermission: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	perm, err := h.Service.CreatePermission(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, perm)
}

func (h *Handler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathInt64(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid permission ID")
		return
	}

	if err := h.Service.DeletePermission(r.Context(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AssignToUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.PathInt64(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}
	permissionID, ok := h.PathInt64(r, "permissionID")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid permission ID")
		return
	}

	if err := h.Service.AssignToUser(r.Context(), userID, permissionID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RevokeFromUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.PathInt64(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}
	permissionID, ok := h.PathInt64(r, "permissionID")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid permission ID")
		return
	}

	if err := h.Service.RevokeFromUser(r.Context(), userID, permissionID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetUserMatrix accepts a full matrix document. Missing modules default to NONE.
func (h *Handler) SetUserMatrix(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.PathInt64(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	var m Matrix
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		h.Logger.Error("SetUserMatrix: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid permission matrix")
		return
	}

	if err := h.Service.SetUserMatrix(r.Context(), userID, m); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MatrixResponse{UserID: userID, Permissions: m})
}
