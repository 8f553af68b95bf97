package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SargisDallakyan/blogPlatform/internal/services"
	"github.com/SargisDallakyan/blogPlatform/types"
	"github.com/go-chi/chi/v5"
)

// AdminHandler exposes moderation endpoints restricted to admins.
type AdminHandler struct {
	userService    *services.UserService
	postService    *services.PostService
	commentService *services.CommentService
	logger         *slog.Logger
}

// AdminRouter registers admin routes. Every route requires an admin access token.
func AdminRouter(
	r chi.Router,
	userService *services.UserService,
	postService *services.PostService,
	commentService *services.CommentService,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) {
	handler := &AdminHandler{
		userService:    userService,
		postService:    postService,
		commentService: commentService,
		logger:         logger,
	}

	r.Use(authMiddleware, RequireRole(types.RoleAdmin))
	r.Get("/users", handler.ListUsers)
	r.Delete("/posts/{postID}", handler.DeletePost)
	r.Delete("/comments/{commentID}", handler.DeleteComment)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	items, total, err := h.userService.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "user not found")
		return
	}
	if items == nil {
		items = []types.User{}
	}

	writeJSON(w, http.StatusOK, ListResponse[types.User]{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *AdminHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())
	id, err := parseID(r, "postID", "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	if err := h.postService.Delete(r.Context(), principal, id); err != nil {
		writeServiceError(w, r, h.logger, err, postNotFoundMsg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())
	id, err := parseID(r, "commentID", "comment")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	if err := h.commentService.Delete(r.Context(), principal, id); err != nil {
		writeServiceError(w, r, h.logger, err, "comment not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
