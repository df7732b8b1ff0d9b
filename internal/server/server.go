package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coaltrack/apiserver/config"
	"github.com/coaltrack/apiserver/internal/auth"
	"github.com/coaltrack/apiserver/internal/db"
	"github.com/coaltrack/apiserver/internal/handlers"
	"github.com/coaltrack/apiserver/internal/services"
	"github.com/coaltrack/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	pool       *db.Manager
	logger     *slog.Logger
}

// New constructs a Server with basic middleware and defaults. The database
// is not contacted until the first request that needs it.
func New(cfg config.Config, logger *slog.Logger, opts ...db.Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	pool := db.NewManager(cfg.Database, logger, opts...)

	userRepo := store.NewUserRepository(pool)
	sessionRepo := store.NewSessionRepository(pool, time.Duration(cfg.Session.TTLDays)*24*time.Hour, logger)
	shipmentRepo := store.NewShipmentRepository(pool)

	authService := services.NewAuthService(userRepo, sessionRepo)
	shipmentService := services.NewShipmentService(shipmentRepo)

	requireSession := handlers.RequireSession(auth.NewGate(sessionRepo, logger))

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", auth.SessionHeader},
			MaxAge:         300,
		}),
	)
	router.Get("/", handlers.Index)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, requireSession, logger)
	})
	router.Route("/api/shipping", func(r chi.Router) {
		handlers.ShippingRouter(r, shipmentService, requireSession, logger)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		pool:       pool,
		logger:     logger,
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if closeErr := s.pool.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
