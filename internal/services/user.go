package services

import (
	"context"
	"time"

	"github.com/my-app/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	UpdateProfile(ctx context.Context, id int, name string, avatar *string) (types.User, error)
	SetResetToken(ctx context.Context, id int, digest string, expires time.Time) error
	ConsumeResetToken(ctx context.Context, digest, passwordHash string, now time.Time) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// UserService encapsulates user use-cases.
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

// UpdateProfile changes a user's display name and avatar reference.
func (s *UserService) UpdateProfile(ctx context.Context, id int, name string, avatar *string) (types.User, error) {
	return s.repo.UpdateProfile(ctx, id, name, avatar)
}

func (s *UserService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
