package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SargisDallakyan/blogPlatform/internal/auth"
	"github.com/SargisDallakyan/blogPlatform/types"
)

// RequireAuth verifies the bearer access token and injects its principal into the context.
// An expired token answers 409 token_expired so clients know to refresh.
func RequireAuth(issuer *auth.Issuer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, codeUnauthenticated, "token not provided")
				return
			}

			claims, err := issuer.Verify(r.Context(), token, auth.KindAccess)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					writeError(w, http.StatusConflict, codeTokenExpired, "token has expired")
				case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenRevoked):
					writeError(w, http.StatusUnauthorized, codeUnauthenticated, "invalid access token")
				default:
					logInternal(r, logger, err)
					writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), claims.Principal())))
		})
	}
}

// RequireRole admits only principals holding role. It must run after RequireAuth.
func RequireRole(role types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := principalFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthenticated, "unauthorized")
				return
			}
			if principal.Role != role {
				writeError(w, http.StatusForbidden, codeForbidden, string(role)+" access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
