package conversation

import (
	"errors"
	"time"
)

// ErrInvalidSessionTTL is returned when sessionTTL is negative
var ErrInvalidSessionTTL = errors.New("sessionTTL must not be negative")

// Config configures conversation sessions
type Config struct {
	// SessionTTL drops sessions idle for longer than this
	SessionTTL time.Duration `yaml:"sessionTTL" default:"30m"`
	// MaxTranscript caps the user messages kept per session
	MaxTranscript int `yaml:"maxTranscript" default:"50"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.SessionTTL < 0 {
		return ErrInvalidSessionTTL
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.SessionTTL == 0 {
		c.SessionTTL = 30 * time.Minute
	}

	if c.MaxTranscript == 0 {
		c.MaxTranscript = 50
	}
}
