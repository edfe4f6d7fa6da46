package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sopami/sopami/internal/platform/httpx"
	"github.com/sopami/sopami/internal/shared"
)

// PermissionsHandler manages permission endpoints.
type PermissionsHandler struct {
	logger    *slog.Logger
	service   *Service
	rbac      Middleware
	validator *validator.Validate
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(shared.PermPermissionList)).Get("/", h.listPermissions)
	r.With(h.rbac.Require(shared.PermPermissionCreate)).Post("/", h.createPermission)
	r.With(h.rbac.Require(shared.PermPermissionDetail)).Get("/{permissionID}", h.getPermission)
	r.With(h.rbac.Require(shared.PermPermissionUpdate)).Put("/{permissionID}", h.updatePermission)
	r.With(h.rbac.Require(shared.PermPermissionDelete)).Delete("/delete", h.deletePermissions)
	r.With(h.rbac.Require(shared.PermPermissionAssign)).Post("/assign-permissions", h.assignPermissions)
}

type permissionRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type deletePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required,min=1"`
}

type rolePermissionAssignment struct {
	RoleID        int64   `json:"role_id" validate:"required"`
	PermissionIDs []int64 `json:"permission_ids" validate:"required"`
}

type assignPermissionsRequest struct {
	RolePermissionAssignments []rolePermissionAssignment `json:"role_permission_assignments" validate:"required,min=1,dive"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]permissionView, 0, len(perms))
	for _, perm := range perms {
		views = append(views, permissionView{ID: perm.ID, Name: perm.Name, Description: perm.Description})
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *PermissionsHandler) createPermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "permission name is required")
		return
	}
	perm, err := h.service.CreatePermission(r.Context(), req.Name, req.Description)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, permissionView{ID: perm.ID, Name: perm.Name, Description: perm.Description})
}

func (h *PermissionsHandler) getPermission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "permissionID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "permission id must be an integer")
		return
	}
	perm, err := h.service.GetPermission(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissionView{ID: perm.ID, Name: perm.Name, Description: perm.Description})
}

func (h *PermissionsHandler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "permissionID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "permission id must be an integer")
		return
	}
	var req permissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "permission name is required")
		return
	}
	perm, err := h.service.UpdatePermission(r.Context(), id, req.Name, req.Description)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissionView{ID: perm.ID, Name: perm.Name, Description: perm.Description})
}

func (h *PermissionsHandler) deletePermissions(w http.ResponseWriter, r *http.Request) {
	var req deletePermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "permission_ids is required")
		return
	}
	if err := h.service.DeletePermissions(r.Context(), req.PermissionIDs); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "permissions deleted successfully"})
}

func (h *PermissionsHandler) assignPermissions(w http.ResponseWriter, r *http.Request) {
	var req assignPermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role_permission_assignments is required")
		return
	}
	pairs := make([]RoleAssignment, 0, len(req.RolePermissionAssignments))
	for _, a := range req.RolePermissionAssignments {
		pairs = append(pairs, RoleAssignment{RoleID: a.RoleID, PermissionIDs: a.PermissionIDs})
	}
	if err := h.service.AssignPermissions(r.Context(), pairs); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "permissions assigned successfully to all roles"})
}
