package assistant

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	// ProviderAnthropic backs the collaborators with the Anthropic Messages API
	ProviderAnthropic = "anthropic"
	// ProviderNone disables the conversational endpoint
	ProviderNone = "none"

	// APIKeyEnv is read when no API key is configured
	APIKeyEnv = "ANTHROPIC_API_KEY"
)

var (
	// ErrInvalidProvider is returned for an unknown provider
	ErrInvalidProvider = errors.New("invalid assistant provider")
	// ErrAPIKeyRequired is returned when the anthropic provider has no key
	ErrAPIKeyRequired = errors.New("assistant apiKey is required")
	// ErrInvalidMaxTokens is returned when maxTokens is not positive
	ErrInvalidMaxTokens = errors.New("assistant maxTokens must be positive")
)

// Config configures the language-model collaborators
type Config struct {
	Provider string `yaml:"provider" default:"anthropic"`
	Model    string `yaml:"model" default:"claude-sonnet-4-5"`
	// MaxTokens caps every completion
	MaxTokens int64  `yaml:"maxTokens" default:"1024"`
	APIKey    string `yaml:"apiKey"`
	// BaseURL overrides the API endpoint
	BaseURL    string        `yaml:"baseURL"`
	Timeout    time.Duration `yaml:"timeout" default:"60s"`
	MaxRetries int           `yaml:"maxRetries" default:"2"`
}

// Enabled reports whether a provider is configured
func (c *Config) Enabled() bool {
	return c.Provider != ProviderNone
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderNone:
		return nil
	case ProviderAnthropic:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidProvider, c.Provider)
	}

	if c.APIKey == "" {
		return ErrAPIKeyRequired
	}

	if c.MaxTokens <= 0 {
		return ErrInvalidMaxTokens
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderAnthropic
	}

	if c.Model == "" {
		c.Model = "claude-sonnet-4-5"
	}

	if c.MaxTokens == 0 {
		c.MaxTokens = 1024
	}

	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}

	if c.APIKey == "" {
		c.APIKey = os.Getenv(APIKeyEnv)
	}
}
