package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coaltrack/apiserver/internal/auth"
	"github.com/coaltrack/apiserver/internal/services"
	"github.com/coaltrack/apiserver/internal/store"
	"github.com/coaltrack/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	msgUnauthorized   = "Unauthorized"
	msgAuthFailed     = "Auth check failed"
	msgStoreDown      = "Database not configured or unreachable"
	msgBadCredentials = "Invalid credentials"
)

// LoginService verifies credentials and opens sessions.
type LoginService interface {
	Login(ctx context.Context, identifier, password string) (types.Session, types.SafeUser, error)
}

// Authenticator resolves request headers to a session.
type Authenticator interface {
	Authenticate(ctx context.Context, headers http.Header) auth.Result
}

// AuthHandler provides session authentication endpoints.
type AuthHandler struct {
	authService LoginService
	logger      *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService LoginService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{authService: authService, logger: logger}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService LoginService, requireSession func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewAuthHandler(authService, logger)

	r.Post("/login", handler.Login)
	r.With(requireSession).Get("/me", handler.Me)
}

// RequireSession rejects requests without a live session and injects the
// session user and id into the request context.
func RequireSession(gate Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := gate.Authenticate(r.Context(), r.Header)
			switch result.Kind {
			case auth.Authenticated:
				next.ServeHTTP(w, r.WithContext(withUser(r.Context(), result.User)))
			case auth.ServiceError:
				writeError(w, http.StatusInternalServerError, msgAuthFailed)
			default:
				writeError(w, http.StatusUnauthorized, msgUnauthorized)
			}
		})
	}
}

// Login verifies credentials and returns a new session id.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identifier := req.Identifier()
	if identifier == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	session, user, err := h.authService.Login(r.Context(), identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, msgBadCredentials)
		case errors.Is(err, store.ErrUnavailable):
			writeError(w, http.StatusInternalServerError, msgStoreDown)
		default:
			h.logger.Error("login failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{SID: session.SID, Expires: session.Expires, User: user})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{User: user})
}

// LoginRequest accepts either username or email as the identifier.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Identifier returns username when set, otherwise email.
func (req LoginRequest) Identifier() string {
	if username := strings.TrimSpace(req.Username); username != "" {
		return username
	}
	return strings.TrimSpace(req.Email)
}

type LoginResponse struct {
	SID     string         `json:"sid"`
	Expires time.Time      `json:"expires"`
	User    types.SafeUser `json:"user"`
}

type MeResponse struct {
	User types.SafeUser `json:"user"`
}
