package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coaltrack/apiserver/internal/store"
	"github.com/coaltrack/apiserver/types"
)

// SessionHeader carries a session id when no Authorization header is sent.
const SessionHeader = "X-Session-Id"

// Kind classifies the outcome of an authentication attempt.
type Kind int

const (
	Unauthorized Kind = iota
	Authenticated
	ServiceError
)

func (k Kind) String() string {
	switch k {
	case Authenticated:
		return "authenticated"
	case ServiceError:
		return "service_error"
	default:
		return "unauthorized"
	}
}

// Result is the outcome of Gate.Authenticate. User and SID are set only
// when Kind is Authenticated; Err only when Kind is ServiceError.
type Result struct {
	Kind Kind
	User types.SafeUser
	SID  string
	Err  error
}

// SessionLookup resolves a session id to a live session.
type SessionLookup interface {
	Lookup(ctx context.Context, sid string) (types.Session, error)
}

// Gate resolves request credentials to a session.
type Gate struct {
	sessions SessionLookup
	logger   *slog.Logger
}

func NewGate(sessions SessionLookup, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{sessions: sessions, logger: logger}
}

// Authenticate checks the credentials carried in headers. It never writes a
// response; callers translate the Result for their transport.
func (g *Gate) Authenticate(ctx context.Context, headers http.Header) Result {
	token := Token(headers)
	if token == "" {
		return Result{Kind: Unauthorized}
	}

	session, err := g.sessions.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{Kind: Unauthorized}
		}
		g.logger.Error("session lookup failed", "error", err)
		return Result{Kind: ServiceError, Err: err}
	}
	if session.Data.User == nil {
		return Result{Kind: Unauthorized}
	}

	return Result{Kind: Authenticated, User: *session.Data.User, SID: session.SID}
}

// Token extracts the session id from the request headers. A bearer token
// wins over X-Session-Id.
func Token(headers http.Header) string {
	if token := bearerToken(headers.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(headers.Get(SessionHeader))
}

func bearerToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
