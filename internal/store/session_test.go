package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/coaltrack/apiserver/internal/logging"
	"github.com/coaltrack/apiserver/types"
)

var sessionNow = time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)

func newTestSessionRepository(pool Pool) *SessionRepository {
	return NewSessionRepository(pool, 7*24*time.Hour, logging.Discard(),
		WithClock(func() time.Time { return sessionNow }),
		WithSIDGenerator(func() (string, error) { return "sid-1", nil }),
	)
}

func TestSessionRepositoryCreate(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := newTestSessionRepository(pool)

	user := types.SafeUser{ID: 1, UUID: "u-1", Name: "Admin", Email: "admin@local.test", Role: "admin"}
	payload, err := types.EncodeSessionPayload(user)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	expires := sessionNow.Add(7 * 24 * time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions (sid, expires, data) VALUES ($1, $2, $3)")).
		WithArgs("sid-1", expires, payload).
		WillReturnResult(sqlmock.NewResult(0, 1))

	session, err := repo.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if session.SID != "sid-1" || !session.Expires.Equal(expires) {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.Data.User == nil || session.Data.User.Role != "admin" {
		t.Fatalf("unexpected payload: %+v", session.Data)
	}
}

func TestSessionRepositoryCreateUnavailable(t *testing.T) {
	repo := newTestSessionRepository(staticPool{err: ErrUnavailable})
	if _, err := repo.Create(context.Background(), types.SafeUser{ID: 1}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSessionRepositoryDefaultSIDIsUnique(t *testing.T) {
	a, err := randomSID()
	if err != nil {
		t.Fatalf("randomSID() error: %v", err)
	}
	b, err := randomSID()
	if err != nil {
		t.Fatalf("randomSID() error: %v", err)
	}
	if a == "" || a == b {
		t.Fatalf("expected distinct ids, got %q and %q", a, b)
	}
}

func TestSessionRepositoryLookup(t *testing.T) {
	sessionRows := sqlmock.NewRows([]string{"sid", "expires", "data"})
	cases := []struct {
		name    string
		rows    *sqlmock.Rows
		wantErr error
	}{
		{
			name: "live",
			rows: sessionRows.AddRow("sid-1", sessionNow.Add(time.Hour), `{"v":1,"user":{"id":1,"role":"admin"}}`),
		},
		{
			name:    "missing",
			rows:    sqlmock.NewRows([]string{"sid", "expires", "data"}),
			wantErr: ErrNotFound,
		},
		{
			name:    "expired at exactly now",
			rows:    sqlmock.NewRows([]string{"sid", "expires", "data"}).AddRow("sid-1", sessionNow, `{"v":1,"user":{"id":1}}`),
			wantErr: ErrNotFound,
		},
		{
			name:    "expired in the past",
			rows:    sqlmock.NewRows([]string{"sid", "expires", "data"}).AddRow("sid-1", sessionNow.Add(-time.Minute), `{"v":1,"user":{"id":1}}`),
			wantErr: ErrNotFound,
		},
		{
			name:    "malformed payload",
			rows:    sqlmock.NewRows([]string{"sid", "expires", "data"}).AddRow("sid-1", sessionNow.Add(time.Hour), `{oops`),
			wantErr: ErrNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pool, mock := newMockPool(t)
			repo := newTestSessionRepository(pool)

			mock.ExpectQuery(regexp.QuoteMeta("SELECT sid, expires, data FROM sessions WHERE sid = $1")).
				WithArgs("sid-1").
				WillReturnRows(tc.rows)

			session, err := repo.Lookup(context.Background(), "sid-1")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup() error: %v", err)
			}
			if session.Data.User == nil || session.Data.User.Role != "admin" {
				t.Fatalf("unexpected session: %+v", session)
			}
		})
	}
}

func TestSessionRepositoryLookupDriverError(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := newTestSessionRepository(pool)

	mock.ExpectQuery("FROM sessions").WillReturnError(errors.New("conn reset"))

	_, err := repo.Lookup(context.Background(), "sid-1")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected driver error to propagate, got %v", err)
	}
}

func TestSessionRepositoryPurgeExpired(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := newTestSessionRepository(pool)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE expires <= $1")).
		WithArgs(sessionNow).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := repo.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpired() error: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
}
