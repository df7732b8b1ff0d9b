package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coaltrack/apiserver/config"
	"github.com/coaltrack/apiserver/internal/store"
	"github.com/coaltrack/apiserver/types"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// seedHashCost matches the cost used for existing dashboard accounts.
const seedHashCost = 10

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByUsername(ctx context.Context, identifier string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// SeedAdmin creates the bootstrap account unless a user with the same
// email already exists. It reports whether a new user was written.
func (s *UserService) SeedAdmin(ctx context.Context, admin config.AdminConfig) (types.User, bool, error) {
	email := strings.TrimSpace(admin.Email)
	if email == "" || admin.Password == "" {
		return types.User{}, false, errors.New("admin email and password are required")
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, false, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(admin.Password), seedHashCost)
	if err != nil {
		return types.User{}, false, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		UUID:         uuid.NewString(),
		Name:         strings.TrimSpace(admin.Name),
		Email:        email,
		PasswordHash: string(hashed),
		Role:         strings.TrimSpace(admin.Role),
	})
	if err != nil {
		return types.User{}, false, err
	}
	return user, true, nil
}
