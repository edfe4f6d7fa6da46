package posts

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sopami/sopami/internal/auth"
	"github.com/sopami/sopami/internal/platform/httpx"
	"github.com/sopami/sopami/internal/rbac"
	"github.com/sopami/sopami/internal/shared"
)

// Handler manages post endpoints. Posts are the downstream CRUD resource:
// every route checks a named permission before touching the store.
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

// MountRoutes registers post routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(shared.PermPostList)).Get("/", h.listPosts)
	r.With(h.rbac.Require(shared.PermPostCreate)).Post("/", h.createPost)
	r.With(h.rbac.Require(shared.PermPostDetail)).Get("/{postID}", h.getPost)
	r.With(h.rbac.Require(shared.PermPostUpdate)).Put("/{postID}", h.updatePost)
	r.With(h.rbac.Require(shared.PermPostDelete)).Delete("/{postID}", h.deletePost)
}

type postRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type postView struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

func toPostView(post Post) postView {
	return postView{ID: post.ID, Title: post.Title, Content: post.Content, AuthorID: post.AuthorID, CreatedAt: post.CreatedAt}
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPosts(r.Context())
	if err != nil {
		h.logger.Error("list posts failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]postView, 0, len(list))
	for _, post := range list {
		views = append(views, toPostView(post))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	authorID, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "title and content are required")
		return
	}
	post, err := h.service.CreatePost(r.Context(), authorID, req.Title, req.Content)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPostView(post))
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "post id must be an integer")
		return
	}
	post, err := h.service.GetPost(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPostView(post))
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "post id must be an integer")
		return
	}
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "title and content are required")
		return
	}
	post, err := h.service.UpdatePost(r.Context(), id, req.Title, req.Content)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPostView(post))
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "post id must be an integer")
		return
	}
	if err := h.service.DeletePost(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "post deleted successfully"})
}
