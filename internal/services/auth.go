package services

import (
	"context"
	"errors"

	"github.com/coaltrack/apiserver/internal/store"
	"github.com/coaltrack/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when the identifier or password does
// not match a user.
var ErrInvalidCredentials = errors.New("invalid credentials")

// SessionRepository defines persistence operations for sessions.
type SessionRepository interface {
	Create(ctx context.Context, user types.SafeUser) (types.Session, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// AuthService verifies credentials and issues sessions.
type AuthService struct {
	users    UserRepository
	sessions SessionRepository
}

func NewAuthService(users UserRepository, sessions SessionRepository) *AuthService {
	return &AuthService{users: users, sessions: sessions}
}

// Login checks identifier (email or display name) and password and opens a
// new session for the matching user.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (types.Session, types.SafeUser, error) {
	user, err := s.users.FindByUsername(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Session{}, types.SafeUser{}, ErrInvalidCredentials
		}
		return types.Session{}, types.SafeUser{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.Session{}, types.SafeUser{}, ErrInvalidCredentials
	}

	safe := user.Safe()
	session, err := s.sessions.Create(ctx, safe)
	if err != nil {
		return types.Session{}, types.SafeUser{}, err
	}
	return session, safe, nil
}

// PurgeExpiredSessions removes sessions that can no longer be used.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.PurgeExpired(ctx)
}
