package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/coaltrack/apiserver/config"
	_ "github.com/lib/pq"
)

const (
	defaultDBDriver     = "postgres"
	defaultPingTimeout  = 5 * time.Second
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultPoolSize     = 10
)

// ErrUnavailable is returned when the database is not configured or cannot
// be reached.
var ErrUnavailable = errors.New("database not configured or unreachable")

// State describes where the manager is in its lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateAcquiring
	StateReady
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAcquiring:
		return "acquiring"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// OpenFunc opens a database handle. It matches sql.Open.
type OpenFunc func(driverName, dataSourceName string) (*sql.DB, error)

// Option customizes a Manager.
type Option func(*Manager)

// WithOpenFunc replaces sql.Open, mainly for tests.
func WithOpenFunc(open OpenFunc) Option {
	return func(m *Manager) {
		m.open = open
	}
}

// Manager lazily opens a single connection pool and hands it out for the
// lifetime of the process. A failed attempt is not remembered, so the next
// Acquire tries again.
type Manager struct {
	cfg    config.DatabaseConfig
	logger *slog.Logger
	open   OpenFunc

	mu    sync.Mutex
	state State
	db    *sql.DB
}

func NewManager(cfg config.DatabaseConfig, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:    cfg,
		logger: logger,
		open:   sql.Open,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire returns the shared pool, opening it on first use.
func (m *Manager) Acquire(ctx context.Context) (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return m.db, nil
	}

	if !m.cfg.Configured() {
		m.state = StateUnavailable
		m.logger.Warn("database not configured", "host_set", m.cfg.Host != "", "user_set", m.cfg.User != "", "name_set", m.cfg.DBName != "")
		return nil, ErrUnavailable
	}

	m.state = StateAcquiring
	conn, err := m.connect(ctx)
	if err != nil {
		m.state = StateUnavailable
		m.logger.Warn("database unreachable", "host", m.cfg.Host, "port", m.cfg.Port, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	m.db = conn
	m.state = StateReady
	m.logger.Info("database pool ready", "host", m.cfg.Host, "pool_size", m.poolSize())
	return conn, nil
}

func (m *Manager) connect(ctx context.Context) (*sql.DB, error) {
	conn, err := m.open(defaultDBDriver, BuildPostgresURL(m.cfg))
	if err != nil {
		return nil, err
	}

	conn.SetConnMaxIdleTime(defaultConnMaxIdle)
	conn.SetConnMaxLifetime(defaultConnMaxLife)
	conn.SetMaxIdleConns(min(defaultMaxIdleConns, m.poolSize()))
	conn.SetMaxOpenConns(m.poolSize())

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (m *Manager) poolSize() int {
	if m.cfg.PoolSize < 1 {
		return defaultPoolSize
	}
	return m.cfg.PoolSize
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close releases the pool if one was opened.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	m.state = StateUninitialized
	return err
}

// BuildPostgresURL renders the connection settings as a postgres:// DSN.
func BuildPostgresURL(cfg config.DatabaseConfig) string {
	sslmode := "disable"
	if cfg.UseSSL {
		sslmode = "require"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		User:   url.UserPassword(cfg.User, cfg.Password),
		Path:   cfg.DBName,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}
