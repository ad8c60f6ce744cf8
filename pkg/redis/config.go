// Package redis provides Redis client configuration
package redis

import (
	"errors"
	"fmt"
)

// Define static errors
var (
	ErrURLRequired = errors.New("redis url is required")
)

// Config holds Redis client configuration
type Config struct {
	// URL is a redis:// or rediss:// connection URL
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix" default:"clickguard"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrURLRequired
	}

	if c.Prefix == "" {
		c.Prefix = "clickguard"
	}

	return nil
}

// PrefixKey adds the configured prefix to a Redis key
func (c *Config) PrefixKey(key string) string {
	if c.Prefix == "" {
		return key
	}

	return fmt.Sprintf("%s:%s", c.Prefix, key)
}

// KeyPrefix returns the string every key of this deployment starts with
func (c *Config) KeyPrefix() string {
	return c.PrefixKey("")
}
