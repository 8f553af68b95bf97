package services

import (
	"context"
	"fmt"

	"github.com/SargisDallakyan/blogPlatform/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	SetRole(ctx context.Context, username string, role types.Role) error
}

// UserService encapsulates user administration use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	return s.repo.List(ctx, offset, limit)
}

// Promote grants the admin role to an existing account.
func (s *UserService) Promote(ctx context.Context, username string) error {
	if err := s.repo.SetRole(ctx, username, types.RoleAdmin); err != nil {
		return fmt.Errorf("promote %q: %w", username, err)
	}
	return nil
}
