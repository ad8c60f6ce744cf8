// Package server provides server configuration and management
package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/clickguard/pkg/api"
	"github.com/ethpandaops/clickguard/pkg/assistant"
	"github.com/ethpandaops/clickguard/pkg/clarification"
	"github.com/ethpandaops/clickguard/pkg/conversation"
	"github.com/ethpandaops/clickguard/pkg/gateway"
	"github.com/ethpandaops/clickguard/pkg/querycache"
	"github.com/ethpandaops/clickguard/pkg/redis"
	"github.com/ethpandaops/clickguard/pkg/warehouse"
)

// Define static errors
var (
	ErrRedisConfigRequired = errors.New("redis configuration is required for the redis cache backend")
)

// Config holds server configuration
type Config struct {
	// MetricsAddr is the address to listen on for metrics.
	MetricsAddr string `yaml:"metricsAddr" default:":9090"`
	// HealthCheckAddr is the address to listen on for healthcheck.
	HealthCheckAddr *string `yaml:"healthCheckAddr"`
	// PProfAddr is the address to listen on for pprof.
	PProfAddr *string `yaml:"pprofAddr"`
	// LoggingLevel is the logging level to use.
	LoggingLevel string `yaml:"logging" default:"info"`
	// Redis is the redis configuration. Optional unless a redis backend is used.
	Redis *redis.Config `yaml:"redis"`
	// API is the HTTP API configuration.
	API api.Config `yaml:"api"`
	// Warehouse is the ClickHouse connection.
	Warehouse warehouse.Config `yaml:"warehouse"`
	// Cache is the query result cache.
	Cache querycache.Config `yaml:"cache"`
	// Gateway bounds query execution.
	Gateway gateway.Config `yaml:"gateway"`
	// Clarification is the clarification tracker.
	Clarification clarification.Config `yaml:"clarification"`
	// Assistant selects the language-model collaborators.
	Assistant assistant.Config `yaml:"assistant"`
	// Sessions configures conversation sessions.
	Sessions conversation.Config `yaml:"sessions"`
	// MaxAnswerRows caps the rows rendered in an answer table.
	MaxAnswerRows int `yaml:"maxAnswerRows" default:"20"`
	// ShutdownTimeout is the timeout for shutting down the server.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`
}

// SetDefaults fills defaults the loader could not derive from struct tags
func (c *Config) SetDefaults() {
	c.Warehouse.SetDefaults()
	c.Cache.SetDefaults()
	c.Gateway.SetDefaults()
	c.Clarification.SetDefaults()
	c.Assistant.SetDefaults()
	c.Sessions.SetDefaults()

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Cache.Backend == querycache.BackendRedis && c.Redis == nil {
		return ErrRedisConfigRequired
	}

	if c.Redis != nil {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("invalid redis configuration: %w", err)
		}
	}

	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("invalid api configuration: %w", err)
	}

	if err := c.Warehouse.Validate(); err != nil {
		return fmt.Errorf("invalid warehouse configuration: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("invalid cache configuration: %w", err)
	}

	if err := c.Clarification.Validate(); err != nil {
		return fmt.Errorf("invalid clarification configuration: %w", err)
	}

	if err := c.Assistant.Validate(); err != nil {
		return fmt.Errorf("invalid assistant configuration: %w", err)
	}

	if err := c.Sessions.Validate(); err != nil {
		return fmt.Errorf("invalid sessions configuration: %w", err)
	}

	return nil
}
