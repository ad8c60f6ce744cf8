package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/clickguard/pkg/api/handlers"
)

// Service defines the API service interface
type Service interface {
	Start(ctx context.Context) error
	Stop() error
}

type service struct {
	app      *fiber.App
	server   *http.Server
	config   *Config
	handlers *handlers.Server
	log      logrus.FieldLogger
}

// NewService creates a new API service
func NewService(cfg *Config, h *handlers.Server, log logrus.FieldLogger) Service {
	return &service{
		config:   cfg,
		handlers: h,
		log:      log.WithField("service", "api"),
	}
}

// newApp builds the Fiber app with middleware and routes
func newApp(cfg *Config, h *handlers.Server) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		AppName:      "clickguard API",
	})

	setupMiddleware(app, cfg)

	app.Get("/health", h.Health)

	h.Register(app.Group("/api/v1"))

	app.Use(func(_ fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	return app
}

// Start initializes and starts the API server
func (s *service) Start(_ context.Context) error {
	if !s.config.Enabled {
		s.log.Info("API service is disabled")
		return nil
	}

	s.app = newApp(s.config, s.handlers)

	// Create HTTP server with the Fiber app
	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           adaptor.FiberApp(s.app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		s.log.WithField("addr", s.config.Addr).Info("Starting API server")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("Server failed to start")
		}
	}()

	return nil
}

// Stop gracefully shuts down the API server
func (s *service) Stop() error {
	if s.server == nil {
		return nil
	}

	s.log.Info("Stopping API server")

	timeout := s.config.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
