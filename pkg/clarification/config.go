package clarification

import (
	"errors"
	"time"
)

// DefaultMaxAttempts is how many same-field rounds are allowed before giving up
const DefaultMaxAttempts = 3

// ErrInvalidMaxAttempts is returned when MaxAttempts is negative
var ErrInvalidMaxAttempts = errors.New("maxAttempts must be positive")

// Config configures the clarification tracker
type Config struct {
	// MaxAttempts is the same-field attempt ceiling
	MaxAttempts int `yaml:"maxAttempts" default:"3"`
	// StateTTL drops abandoned clarifications
	StateTTL time.Duration `yaml:"stateTTL" default:"24h"`
	// LockStripes is the number of per-question mutexes
	LockStripes int `yaml:"lockStripes" default:"64"`
	// Locales restricts reply detection to these keyword sets (en, he).
	// Empty enables every locale.
	Locales []string `yaml:"locales"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MaxAttempts < 0 {
		return ErrInvalidMaxAttempts
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}

	if c.StateTTL == 0 {
		c.StateTTL = 24 * time.Hour
	}

	if c.LockStripes == 0 {
		c.LockStripes = 64
	}
}

// Detector returns the reply detector for the configured locales
func (c *Config) Detector() *Detector {
	if len(c.Locales) == 0 {
		return defaultDetector
	}

	return NewDetector(RulesForLocales(c.Locales...)...)
}
