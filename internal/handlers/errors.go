package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SargisDallakyan/blogPlatform/internal/auth"
	"github.com/SargisDallakyan/blogPlatform/internal/services"
	"github.com/SargisDallakyan/blogPlatform/internal/store"
	"github.com/go-chi/chi/v5/middleware"
)

// writeServiceError translates a service error into the JSON error envelope.
// notFound is the message used for store.ErrNotFound.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, notFound string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, verr.Status, ErrorResponse{Error: "validation failed", Code: codeValidation, Details: verr.Fields})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, services.ErrCoversDisabled):
		writeError(w, http.StatusNotFound, codeNotFound, notFound)
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, codeConflict, "username already exists")
	case errors.Is(err, auth.ErrPasswordTooLong):
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "password must be at most 72 bytes long")
	// Unknown usernames answer 401 like wrong passwords, not 409.
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "invalid credentials")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, codeForbidden, "not allowed")
	// Invalid, expired or revoked refresh tokens answer 401, not 500.
	case errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenRevoked):
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "invalid or expired token")
	default:
		logInternal(r, logger, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

func logInternal(r *http.Request, logger *slog.Logger, err error) {
	logger.ErrorContext(r.Context(), "request failed",
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
}
