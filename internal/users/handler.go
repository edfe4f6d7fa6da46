package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sopami/sopami/internal/platform/httpx"
	"github.com/sopami/sopami/internal/rbac"
	"github.com/sopami/sopami/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(shared.PermUserList)).Get("/", h.listUsers)
	r.With(h.rbac.Require(shared.PermUserCreate)).Post("/", h.createUser)
	r.With(h.rbac.Require(shared.PermUserDetail)).Get("/{userID}", h.getUser)
	r.With(h.rbac.Require(shared.PermUserUpdate)).Put("/{userID}", h.updateUser)
	r.With(h.rbac.Require(shared.PermUserDelete)).Delete("/delete", h.deleteUsers)
}

type roleRefView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type userView struct {
	ID           int64         `json:"id"`
	Username     string        `json:"username"`
	IsSuperadmin bool          `json:"is_superadmin"`
	Roles        []roleRefView `json:"roles"`
}

func toUserView(user User) userView {
	view := userView{
		ID:           user.ID,
		Username:     user.Username,
		IsSuperadmin: user.IsSuperadmin,
		Roles:        make([]roleRefView, 0, len(user.Roles)),
	}
	for _, role := range user.Roles {
		view.Roles = append(view.Roles, roleRefView{ID: role.ID, Name: role.Name})
	}
	return view
}

type createUserRequest struct {
	Username string  `json:"username" validate:"required"`
	Password string  `json:"password" validate:"required"`
	RoleIDs  []int64 `json:"role_ids"`
}

type updateUserRequest struct {
	Username string  `json:"username" validate:"required"`
	Password string  `json:"password"`
	RoleIDs  []int64 `json:"role_ids"`
}

type deleteUsersRequest struct {
	UserIDs []int64 `json:"user_ids" validate:"required,min=1"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, user := range users {
		views = append(views, toUserView(user))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "username and password are required")
		return
	}
	user, err := h.service.CreateUser(r.Context(), req.Username, req.Password, req.RoleIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toUserView(user))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user id must be an integer")
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserView(user))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user id must be an integer")
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "username is required")
		return
	}
	user, err := h.service.UpdateUser(r.Context(), id, req.Username, req.Password, req.RoleIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserView(user))
}

func (h *Handler) deleteUsers(w http.ResponseWriter, r *http.Request) {
	var req deleteUsersRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user_ids is required")
		return
	}
	if err := h.service.DeleteUsers(r.Context(), req.UserIDs); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "users deleted successfully"})
}
