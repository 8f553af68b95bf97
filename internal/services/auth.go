package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SargisDallakyan/blogPlatform/internal/auth"
	"github.com/SargisDallakyan/blogPlatform/internal/mq"
	"github.com/SargisDallakyan/blogPlatform/internal/store"
	"github.com/SargisDallakyan/blogPlatform/types"
)

// RegisterInput carries the fields accepted on sign-up.
type RegisterInput struct {
	Username string
	Password string
	Name     string
	Surname  string
	Email    string
	Role     types.Role
}

// UpdateAccountInput carries a partial account update. Empty fields are left untouched.
type UpdateAccountInput struct {
	Username string
	Password string
	Name     string
	Surname  string
	Email    string
	Role     types.Role
}

// Session is the token pair returned by Login.
type Session struct {
	Username     string     `json:"username"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	Role         types.Role `json:"role"`
}

// AuthService implements registration, login and token lifecycle operations.
type AuthService struct {
	users            UserRepository
	hasher           *auth.Hasher
	issuer           *auth.Issuer
	events           *mq.Publisher
	allowAdminSignup bool

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService constructs an AuthService. events may be nil.
func NewAuthService(users UserRepository, hasher *auth.Hasher, issuer *auth.Issuer, events *mq.Publisher, allowAdminSignup bool) *AuthService {
	return &AuthService{
		users:            users,
		hasher:           hasher,
		issuer:           issuer,
		events:           events,
		allowAdminSignup: allowAdminSignup,
	}
}

// Register creates a new account. An existing username yields store.ErrConflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	if in.Role == "" {
		in.Role = types.RoleUser
	}
	if !in.Role.Valid() {
		return types.User{}, fmt.Errorf("unknown role %q", in.Role)
	}
	if in.Role == types.RoleAdmin && !s.allowAdminSignup {
		return types.User{}, fmt.Errorf("admin sign-up: %w", ErrForbidden)
	}

	if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
		return types.User{}, fmt.Errorf("username %q: %w", in.Username, store.ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("checking username: %w", err)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Username:     in.Username,
		Name:         in.Name,
		Surname:      in.Surname,
		Email:        in.Email,
		Role:         in.Role,
		PasswordHash: digest,
	})
	if err != nil {
		return types.User{}, err
	}

	s.events.Emit(ctx, mq.EventUserRegistered, map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
	return user, nil
}

// Login checks the credentials and issues an access and refresh token pair.
func (s *AuthService) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Compare against a placeholder so timing matches a wrong password.
			s.hasher.Verify(password, s.dummyDigest())
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("loading user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}

	principal := auth.PrincipalOf(user)
	access, err := s.issuer.IssueAccess(principal)
	if err != nil {
		return Session{}, err
	}
	refresh, err := s.issuer.IssueRefresh(principal)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Username:     user.Username,
		AccessToken:  access,
		RefreshToken: refresh,
		Role:         user.Role,
	}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return s.issuer.Refresh(ctx, refreshToken)
}

// Logout revokes the presented access token and, when given, the refresh token.
// An expired token has nothing left to revoke and is accepted.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := s.issuer.Verify(ctx, accessToken, auth.KindAccess)
	switch {
	case err == nil:
		if err := s.issuer.Revoke(ctx, claims); err != nil {
			return fmt.Errorf("revoking access token: %w", err)
		}
	case errors.Is(err, auth.ErrTokenExpired):
	default:
		return err
	}

	if refreshToken == "" {
		return nil
	}
	refreshClaims, err := s.issuer.Verify(ctx, refreshToken, auth.KindRefresh)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) || errors.Is(err, auth.ErrTokenRevoked) {
			return nil
		}
		return err
	}
	if claims != nil && refreshClaims.UserID != claims.UserID {
		return fmt.Errorf("refresh token of another user: %w", auth.ErrTokenInvalid)
	}
	if err := s.issuer.Revoke(ctx, refreshClaims); err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}
	return nil
}

// Account returns the stored profile of userID.
func (s *AuthService) Account(ctx context.Context, userID int) (types.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateAccount merges in into the account of userID. Only the account owner or an admin
// may update it, and only an admin may change a role.
func (s *AuthService) UpdateAccount(ctx context.Context, actor auth.Principal, userID int, in UpdateAccountInput) (types.User, error) {
	isAdmin := actor.Role == types.RoleAdmin
	if actor.UserID != userID && !isAdmin {
		return types.User{}, fmt.Errorf("update account %d: %w", userID, ErrForbidden)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}

	if in.Role != "" && in.Role != user.Role {
		if !isAdmin {
			return types.User{}, fmt.Errorf("change role: %w", ErrForbidden)
		}
		user.Role = in.Role
	}
	if in.Username != "" && in.Username != user.Username {
		existing, err := s.users.GetByUsername(ctx, in.Username)
		switch {
		case err == nil && existing.ID != user.ID:
			return types.User{}, fmt.Errorf("username %q: %w", in.Username, store.ErrConflict)
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return types.User{}, fmt.Errorf("checking username: %w", err)
		}
		user.Username = in.Username
	}
	if in.Name != "" {
		user.Name = in.Name
	}
	if in.Surname != "" {
		user.Surname = in.Surname
	}
	if in.Email != "" {
		user.Email = in.Email
	}
	if in.Password != "" {
		digest, err := s.hasher.Hash(in.Password)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = digest
	}

	return s.users.Update(ctx, user)
}

func (s *AuthService) dummyDigest() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("blogplatform-login-placeholder")
		if err == nil {
			s.dummyHash = digest
		}
	})
	return s.dummyHash
}
