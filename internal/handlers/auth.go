package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SargisDallakyan/blogPlatform/internal/services"
	"github.com/SargisDallakyan/blogPlatform/types"
	"github.com/go-chi/chi/v5"
)

// AuthHandler provides the session endpoints.
type AuthHandler struct {
	authService *services.AuthService
	logger      *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService *services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewAuthHandler(authService, logger)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.Post("/refresh", handler.Refresh)
	r.With(authMiddleware).Get("/account", handler.Account)
	r.With(authMiddleware).Put("/account/{userId}", handler.UpdateAccount)
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	req.normalize()
	if err := validateStruct(req, statusRegisterInvalid); err != nil {
		writeServiceError(w, r, h.logger, err, "")
		return
	}

	user, err := h.authService.Register(r.Context(), services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Role:     types.Role(req.Role),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Message: "User inserted", Data: user})
}

// Login verifies credentials and returns an access and refresh token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "missing credentials")
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Logout revokes the bearer access token and an optional refresh token from the body.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "token not provided")
		return
	}

	var req LogoutRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	if err := h.authService.Logout(r.Context(), token, strings.TrimSpace(req.RefreshToken)); err != nil {
		writeServiceError(w, r, h.logger, err, "")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logout successful"})
}

// Refresh exchanges a refresh token for a new access token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "invalid or missing token")
		return
	}

	access, err := h.authService.Refresh(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "")
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{AccessToken: access})
}

// Account returns the current authenticated user.
func (h *AuthHandler) Account(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "unauthorized")
		return
	}

	user, err := h.authService.Account(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateAccount applies a partial update to the account named in the path.
func (h *AuthHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "unauthorized")
		return
	}

	userID, err := parseID(r, "userId", "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	var req UpdateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	req.normalize()
	if err := validateStruct(req, statusInvalid); err != nil {
		writeServiceError(w, r, h.logger, err, "")
		return
	}

	user, err := h.authService.UpdateAccount(r.Context(), principal, userID, services.UpdateAccountInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Role:     types.Role(req.Role),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "User details updated successfully", Data: user})
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=5,max=50"`
	Password string `json:"password" validate:"required,min=5,bcryptlen"`
	Name     string `json:"name" validate:"omitempty,min=2,max=100,personname"`
	Surname  string `json:"surname" validate:"omitempty,min=2,max=100,personname"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

func (req *RegisterRequest) normalize() {
	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	req.Surname = strings.TrimSpace(req.Surname)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.TrimSpace(req.Role)
}

type UpdateAccountRequest struct {
	Username string `json:"username" validate:"omitempty,min=5,max=50"`
	Password string `json:"password" validate:"omitempty,min=5,bcryptlen"`
	Name     string `json:"name" validate:"omitempty,min=2,max=100,personname"`
	Surname  string `json:"surname" validate:"omitempty,min=2,max=100,personname"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

func (req *UpdateAccountRequest) normalize() {
	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	req.Surname = strings.TrimSpace(req.Surname)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.TrimSpace(req.Role)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshRequest struct {
	Token string `json:"token"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}
