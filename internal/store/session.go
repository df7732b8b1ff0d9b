package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coaltrack/apiserver/types"
	"github.com/google/uuid"
)

// SessionRepository stores opaque login sessions. Rows are never updated;
// an expired row is treated as absent until PurgeExpired removes it.
type SessionRepository struct {
	pool   Pool
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
	newSID func() (string, error)
}

// SessionOption customizes a SessionRepository.
type SessionOption func(*SessionRepository)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionOption {
	return func(r *SessionRepository) {
		r.now = now
	}
}

// WithSIDGenerator overrides how session ids are generated.
func WithSIDGenerator(gen func() (string, error)) SessionOption {
	return func(r *SessionRepository) {
		r.newSID = gen
	}
}

func NewSessionRepository(pool Pool, ttl time.Duration, logger *slog.Logger, opts ...SessionOption) *SessionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &SessionRepository{
		pool:   pool,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		newSID: randomSID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func randomSID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Create persists a new session for user that expires after the configured
// TTL.
func (r *SessionRepository) Create(ctx context.Context, user types.SafeUser) (types.Session, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return types.Session{}, err
	}

	sid, err := r.newSID()
	if err != nil {
		return types.Session{}, fmt.Errorf("generate session id: %w", err)
	}
	data, err := types.EncodeSessionPayload(user)
	if err != nil {
		return types.Session{}, fmt.Errorf("encode session payload: %w", err)
	}
	expires := r.now().Add(r.ttl).UTC()

	const query = `INSERT INTO sessions (sid, expires, data) VALUES ($1, $2, $3)`
	if _, err := conn.ExecContext(ctx, query, sid, expires, data); err != nil {
		return types.Session{}, fmt.Errorf("insert session: %w", err)
	}

	return types.Session{
		SID:     sid,
		Expires: expires,
		Data:    types.SessionPayload{Version: types.SessionPayloadVersion, User: &user},
	}, nil
}

// Lookup returns the live session for sid. Missing, expired and
// undecodable sessions all report ErrNotFound.
func (r *SessionRepository) Lookup(ctx context.Context, sid string) (types.Session, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return types.Session{}, err
	}

	const query = `SELECT sid, expires, data FROM sessions WHERE sid = $1`
	var (
		session types.Session
		raw     string
	)
	err = conn.QueryRowContext(ctx, query, sid).Scan(&session.SID, &session.Expires, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Session{}, ErrNotFound
		}
		return types.Session{}, fmt.Errorf("query session: %w", err)
	}

	if !session.Expires.After(r.now()) {
		return types.Session{}, ErrNotFound
	}

	payload, err := types.DecodeSessionPayload(raw)
	if err != nil {
		r.logger.Warn("discarding session with unreadable payload", "error", err)
		return types.Session{}, ErrNotFound
	}
	session.Data = payload
	return session, nil
}

// PurgeExpired deletes sessions whose expiry has passed and reports how
// many were removed.
func (r *SessionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return 0, err
	}

	const query = `DELETE FROM sessions WHERE expires <= $1`
	result, err := conn.ExecContext(ctx, query, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}
