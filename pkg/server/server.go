package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	//nolint:gosec // only exposed if pprofAddr config is set
	_ "net/http/pprof"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/clickguard/pkg/observability"
	"github.com/ethpandaops/clickguard/pkg/redis"
)

// Server represents the main application server
type Server struct {
	log    logrus.FieldLogger
	config *Config

	components *Components

	pprofServer  *http.Server
	healthServer *http.Server
}

// NewServer creates a new server instance
func NewServer(_ context.Context, log *logrus.Logger, config *Config) (*Server, error) {
	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	components, err := NewComponents(log, config)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:     config,
		log:        log.WithField("component", "server"),
		components: components,
	}, nil
}

// Components returns the wired services
func (s *Server) Components() *Components {
	return s.components
}

// Start starts the server and all its components
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.startComponents(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	// Log component states
	s.log.WithFields(logrus.Fields{
		"has_redis":     s.components.Redis != nil,
		"cache_backend": s.config.Cache.Backend,
		"chat_enabled":  s.components.Conversation != nil,
	}).Debug("Server component states")

	// Start metrics server
	g.Go(func() error {
		defer func() {
			if recovered := recover(); recovered != nil {
				s.log.WithField("panic", recovered).Error("Panic in metrics server goroutine")
			}
		}()

		select {
		case err := <-observability.StartMetricsServer(ctx, s.config.MetricsAddr):
			return fmt.Errorf("metrics server failed: %w", err)
		case <-ctx.Done():
			return nil
		}
	})

	// Start pprof server if configured
	if s.config.PProfAddr != nil {
		g.Go(func() error {
			if err := s.startPProf(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			<-ctx.Done()

			return nil
		})
	}

	// Start health check server if configured
	if s.config.HealthCheckAddr != nil {
		g.Go(func() error {
			if err := s.startHealthCheck(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			<-ctx.Done()

			return nil
		})
	}

	// Wait for shutdown signal
	g.Go(func() error {
		<-ctx.Done()

		// Use a fresh context for cleanup since the current one is canceled
		return s.stop(context.Background())
	})

	return g.Wait()
}

func (s *Server) startComponents(ctx context.Context) error {
	if s.components.Redis != nil {
		if err := redis.Ping(ctx, s.components.Redis); err != nil {
			return err
		}
	}

	if err := s.components.Warehouse.Start(); err != nil {
		return fmt.Errorf("failed to start warehouse client: %w", err)
	}

	s.log.WithField("identity", s.components.Warehouse.Identity()).Info("Warehouse client started")

	if s.components.Conversation != nil {
		s.components.Conversation.Start()
	}

	if err := s.components.API.Start(ctx); err != nil {
		return fmt.Errorf("failed to start api: %w", err)
	}

	return nil
}

func (s *Server) stop(ctx context.Context) error {
	// Create a timeout context for cleanup
	cleanupCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.log.Info("Starting graceful shutdown...")

	if err := s.components.API.Stop(); err != nil {
		s.log.WithError(err).Error("failed to stop API server")
	}

	if s.components.Conversation != nil {
		s.components.Conversation.Stop()
	}

	if err := s.components.Warehouse.Stop(); err != nil {
		s.log.WithError(err).Error("failed to stop warehouse client")
	}

	// Close Redis connection
	if s.components.Redis != nil {
		s.log.Info("Closing Redis connection...")

		if err := s.components.Redis.Close(); err != nil {
			s.log.WithError(err).Error("failed to close redis")
		}
	}

	// Shutdown HTTP servers
	if s.pprofServer != nil {
		if err := s.pprofServer.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to shutdown pprof server")
		}
	}

	if s.healthServer != nil {
		if err := s.healthServer.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to shutdown health server")
		}
	}

	// Stop metrics server using observability package
	if err := observability.StopMetricsServer(cleanupCtx); err != nil {
		s.log.WithError(err).Error("failed to stop metrics server")
	}

	s.log.Info("Server stopped gracefully")

	return nil
}

func (s *Server) startPProf() error {
	s.log.WithField("addr", *s.config.PProfAddr).Info("Starting pprof server")

	s.pprofServer = &http.Server{
		Addr:              *s.config.PProfAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	return s.pprofServer.ListenAndServe()
}

func (s *Server) startHealthCheck() error {
	s.log.WithField("addr", *s.config.HealthCheckAddr).Info("Starting healthcheck server")

	s.healthServer = &http.Server{
		Addr:              *s.config.HealthCheckAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	s.healthServer.Handler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return s.healthServer.ListenAndServe()
}
