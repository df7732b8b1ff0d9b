package server

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coaltrack/apiserver/config"
	"github.com/coaltrack/apiserver/internal/db"
	"github.com/coaltrack/apiserver/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestHealthzDoesNotNeedDatabase(t *testing.T) {
	opened := false
	srv := New(config.Config{}, logging.Discard(), db.WithOpenFunc(func(string, string) (*sql.DB, error) {
		opened = true
		return nil, nil
	}))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, opened)
}

func TestUnconfiguredDatabaseFailsLogin(t *testing.T) {
	srv := New(config.Config{Session: config.SessionConfig{TTLDays: 7}}, logging.Discard())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"admin123"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Database not configured or unreachable"}`, rec.Body.String())
}

func TestUnconfiguredDatabaseFailsAuthCheck(t *testing.T) {
	srv := New(config.Config{}, logging.Discard())

	req := httptest.NewRequest(http.MethodGet, "/api/shipping", nil)
	req.Header.Set("Authorization", "Bearer some-sid")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Auth check failed"}`, rec.Body.String())
}

func TestCORSPreflightAllowsSessionHeader(t *testing.T) {
	srv := New(config.Config{}, logging.Discard())

	req := httptest.NewRequest(http.MethodOptions, "/api/shipping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "X-Session-Id")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Session-Id")
}
