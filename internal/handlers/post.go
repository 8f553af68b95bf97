package handlers

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/SargisDallakyan/blogPlatform/internal/services"
	"github.com/SargisDallakyan/blogPlatform/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxCoverBytes   = 5 << 20
	formFieldCover  = "cover"
	sniffBytes      = 512
	postNotFoundMsg = "post not found"
)

// PostHandler provides HTTP handlers for posts.
type PostHandler struct {
	postService *services.PostService
	logger      *slog.Logger
}

// NewPostHandler constructs a handler with the provided service.
func NewPostHandler(postService *services.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{postService: postService, logger: logger}
}

// PostRouter registers post routes, including the comments nested under a post.
func PostRouter(
	r chi.Router,
	postService *services.PostService,
	commentService *services.CommentService,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) {
	handler := NewPostHandler(postService, logger)
	comments := NewCommentHandler(commentService, logger)

	r.Get("/", handler.ListPosts)
	r.With(authMiddleware).Post("/", handler.CreatePost)
	r.Route("/{postID}", func(r chi.Router) {
		r.Get("/", handler.GetPost)
		r.With(authMiddleware).Put("/", handler.UpdatePost)
		r.With(authMiddleware).Delete("/", handler.DeletePost)
		if postService.CoversEnabled() {
			r.Get("/cover", handler.GetCover)
			r.With(authMiddleware).Put("/cover", handler.UploadCover)
		}
		r.Get("/comments", comments.ListComments)
		r.With(authMiddleware).Post("/comments", comments.CreateComment)
	})
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	items, total, err := h.postService.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err, postNotFoundMsg)
		return
	}
	if items == nil {
		items = []types.Post{}
	}

	writeJSON(w, http.StatusOK, ListResponse[types.Post]{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "postID", "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	post, err := h.postService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, postNotFoundMsg)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "unauthorized")
		return
	}

	req, ok := h.decodePost(w, r)
	if !ok {
		return
	}

	post, err := h.postService.Create(r.Context(), principal, services.PostInput{Title: req.Title, Body: req.Body})
	if err != nil {
		writeServiceError(w, r, h.logger, err, postNotFoundMsg)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "unauthorized")
		return
	}
	id, err := parseID(r, "postID", "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	req, ok := h.decodePost(w, r)
	if !ok {
		return
	}

	post, err := h.postService.Update(r.Context(), principal, id, services.PostInput{Title: req.Title, Body: req.Body})
	if err != nil {
		writeServiceError(w, r, h.logger, err, postNotFoundMsg)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "unauthorized")
		return
	}
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

// UploadCover stores the multipart "cover" image of a post.
func (h *PostHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "unauthorized")
		return
	}
	id, err := parseID(r, "postID", "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCoverBytes+(1<<20))
	if err := r.ParseMultipartForm(maxCoverBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge, "cover image too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldCover)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "cover file is required")
		return
	}
	defer file.Close()

	if header.Size > maxCoverBytes {
		writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge, "cover image too large")
		return
	}

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, codeBadRequest, "failed to read upload")
		return
	}
	contentType := http.DetectContentType(head[:n])
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusUnsupportedMediaType, codeUnsupportedType, "cover must be an image")
		return
	}

	post, err := h.postService.SetCover(r.Context(), principal, id, services.CoverUpload{
		Body:        io.MultiReader(bytes.NewReader(head[:n]), file),
		Size:        header.Size,
		ContentType: contentType,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, postNotFoundMsg)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// GetCover streams the stored cover image of a post.
func (h *PostHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "postID", "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	obj, err := h.postService.Cover(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "cover not found")
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.WarnContext(r.Context(), "stream cover", "post_id", id, "error", err)
	}
}

func (h *PostHandler) decodePost(w http.ResponseWriter, r *http.Request) (PostRequest, bool) {
	var req PostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return PostRequest{}, false
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if err := validateStruct(req, statusInvalid); err != nil {
		writeServiceError(w, r, h.logger, err, "")
		return PostRequest{}, false
	}
	return req, true
}

// PostRequest is the JSON payload accepted on create and update.
type PostRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"required"`
}
