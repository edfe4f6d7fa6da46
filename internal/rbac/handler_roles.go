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

// RolesHandler manages role endpoints.
type RolesHandler struct {
	logger    *slog.Logger
	service   *Service
	rbac      Middleware
	validator *validator.Validate
}

// NewRolesHandler builds RolesHandler instance.
func NewRolesHandler(logger *slog.Logger, service *Service, rbac Middleware) *RolesHandler {
	return &RolesHandler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers role routes.
func (h *RolesHandler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(shared.PermRoleList)).Get("/", h.listRoles)
	r.With(h.rbac.Require(shared.PermRoleCreate)).Post("/", h.createRole)
	r.With(h.rbac.Require(shared.PermRoleDetail)).Get("/{roleID}", h.getRole)
	r.With(h.rbac.Require(shared.PermRoleUpdate)).Put("/{roleID}", h.updateRole)
	r.With(h.rbac.Require(shared.PermRoleDelete)).Delete("/delete", h.deleteRoles)
	r.With(h.rbac.Require(shared.PermRoleAssign)).Post("/assign-roles", h.assignRoles)
}

type permissionView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type roleView struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Permissions []permissionView `json:"permissions"`
}

func toRoleView(role Role) roleView {
	view := roleView{ID: role.ID, Name: role.Name, Permissions: make([]permissionView, 0, len(role.Permissions))}
	for _, perm := range role.Permissions {
		view.Permissions = append(view.Permissions, permissionView{ID: perm.ID, Name: perm.Name, Description: perm.Description})
	}
	return view
}

type roleRequest struct {
	Name string `json:"name" validate:"required"`
}

type deleteRolesRequest struct {
	RoleIDs []int64 `json:"role_ids" validate:"required,min=1"`
}

type userRoleAssignment struct {
	UserID  int64   `json:"user_id" validate:"required"`
	RoleIDs []int64 `json:"role_ids" validate:"required"`
}

type assignRolesRequest struct {
	UserRoleAssignments []userRoleAssignment `json:"user_role_assignments" validate:"required,min=1,dive"`
}

func (h *RolesHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]roleView, 0, len(roles))
	for _, role := range roles {
		views = append(views, toRoleView(role))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *RolesHandler) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role name is required")
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleView(role))
}

func (h *RolesHandler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role id must be an integer")
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleView(role))
}

func (h *RolesHandler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role id must be an integer")
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role name is required")
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleView(role))
}

func (h *RolesHandler) deleteRoles(w http.ResponseWriter, r *http.Request) {
	var req deleteRolesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role_ids is required")
		return
	}
	if err := h.service.DeleteRoles(r.Context(), req.RoleIDs); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "roles deleted successfully"})
}

func (h *RolesHandler) assignRoles(w http.ResponseWriter, r *http.Request) {
	var req assignRolesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user_role_assignments is required")
		return
	}
	pairs := make([]UserAssignment, 0, len(req.UserRoleAssignments))
	for _, a := range req.UserRoleAssignments {
		pairs = append(pairs, UserAssignment{UserID: a.UserID, RoleIDs: a.RoleIDs})
	}
	if err := h.service.AssignRoles(r.Context(), pairs); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "roles assigned successfully to all users"})
}
