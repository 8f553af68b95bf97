package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/SargisDallakyan/blogPlatform/internal/services"
	"github.com/go-chi/chi/v5"
)

// CommentHandler provides HTTP handlers for comments.
type CommentHandler struct {
	commentService *services.CommentService
	logger         *slog.Logger
}

func NewCommentHandler(commentService *services.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{commentService: commentService, logger: logger}
}

// CommentRouter registers the routes addressing a comment directly.
func CommentRouter(r chi.Router, commentService *services.CommentService, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewCommentHandler(commentService, logger)

	r.With(authMiddleware).Delete("/{commentID}", handler.DeleteComment)
}

func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, err := parseID(r, "postID", "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	comments, err := h.commentService.ListByPost(r.Context(), postID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "blog post not found")
		return
	}

	writeJSON(w, http.StatusOK, comments)
}

func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "unauthorized")
		return
	}
	postID, err := parseID(r, "postID", "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	var req CommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if err := validateStruct(req, statusInvalid); err != nil {
		writeServiceError(w, r, h.logger, err, "")
		return
	}

	comment, err := h.commentService.Create(r.Context(), principal, postID, req.Text)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "blog post not found")
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "unauthorized")
		return
	}
	id, err := parseID(r, "commentID", "comment")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	if err := h.commentService.Delete(r.Context(), principal, id); err != nil {
		writeServiceError(w, r, h.logger, err, "comment not found")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Comment deleted successfully"})
}

type CommentRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}
