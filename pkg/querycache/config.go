package querycache

import (
	"errors"
	"fmt"
	"time"
)

// DefaultTTL is how long an entry stays valid: 180 days
const DefaultTTL = 60 * 60 * 24 * 180 * time.Second

// sampleKeyLimit bounds the keys reported by Stats per index
const sampleKeyLimit = 5

// Backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Static errors for configuration validation
var (
	ErrInvalidBackend = errors.New("invalid cache backend")
	ErrInvalidTTL     = errors.New("cache ttl must be positive")
)

// Config configures the query result cache
type Config struct {
	// TTL is the maximum age of an entry before lookups evict it
	TTL time.Duration `yaml:"ttl" default:"4320h"`
	// Backend selects where entries live: memory or redis
	Backend string `yaml:"backend" default:"memory"`
	// LockStripes is the number of per-key mutexes
	LockStripes int `yaml:"lockStripes" default:"64"`
	// ExtraMonthNames extends the month-name rule with further locales
	ExtraMonthNames []string `yaml:"extraMonthNames"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.TTL < 0 {
		return ErrInvalidTTL
	}

	switch c.Backend {
	case "", BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidBackend, c.Backend)
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}

	if c.Backend == "" {
		c.Backend = BackendMemory
	}

	if c.LockStripes == 0 {
		c.LockStripes = 64
	}
}

// Classifier returns the rule table for this configuration
func (c *Config) Classifier() *Classifier {
	if len(c.ExtraMonthNames) == 0 {
		return defaultClassifier
	}

	return defaultClassifier.WithMonthNames(c.ExtraMonthNames...)
}
