// Package api provides the REST API over the conversational query service.
package api

import (
	"errors"
	"time"
)

// ErrAPIAddrRequired is returned when API is enabled but no address is configured
var (
	ErrAPIAddrRequired = errors.New("api address is required when API is enabled")
)

// Config represents API service configuration
type Config struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Addr    string `yaml:"addr" default:":8080" validate:"hostname_port"`
	// AllowOrigins lists the CORS origins accepted by the API
	AllowOrigins []string `yaml:"allowOrigins"`
	// ShutdownTimeout bounds the graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`
}

// Validate validates the API configuration
func (c *Config) Validate() error {
	if c.Enabled && c.Addr == "" {
		return ErrAPIAddrRequired
	}
	return nil
}
