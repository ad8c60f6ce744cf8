// Package warehouse executes read-only queries against ClickHouse
package warehouse

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"
)

// Drivers
const (
	DriverHTTP   = "http"
	DriverNative = "native"
)

// Static errors for configuration validation
var (
	ErrURLRequired       = errors.New("URL is required")
	ErrInvalidURL        = errors.New("invalid warehouse URL")
	ErrUnsupportedScheme = errors.New("unsupported warehouse URL scheme")
	ErrInvalidDriver     = errors.New("invalid warehouse driver")
)

// Config contains ClickHouse connection settings
type Config struct {
	URL                string        `yaml:"url" validate:"required,url"`
	Driver             string        `yaml:"driver" default:"http"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	Database           string        `yaml:"database"`
	QueryTimeout       time.Duration `yaml:"queryTimeout" default:"30s"`
	Debug              bool          `yaml:"debug"`
	KeepAlive          time.Duration `yaml:"keepAlive" default:"30s"`
	InsecureSkipVerify bool          `yaml:"insecureSkipVerify"`
	MaxOpenConns       int           `yaml:"maxOpenConns"`
	MaxIdleConns       int           `yaml:"maxIdleConns"`
	ConnMaxLifetime    time.Duration `yaml:"connMaxLifetime"`
	// ReadOnly sends readonly=2 with every query
	ReadOnly bool `yaml:"readOnly"`
	// RequiredGrant is reported to callers when the warehouse denies access
	RequiredGrant string `yaml:"requiredGrant" default:"SELECT"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrURLRequired
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	switch u.Scheme {
	case "http", "https", "clickhouse", "clickhouses", "tcp":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	switch c.Driver {
	case "", DriverHTTP, DriverNative:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.Driver)
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 30 * time.Second
	}

	if c.KeepAlive == 0 {
		c.KeepAlive = 30 * time.Second
	}

	if c.Driver == "" {
		c.Driver = DriverHTTP
	}

	if c.RequiredGrant == "" {
		c.RequiredGrant = "SELECT"
	}

	if c.Password == "" {
		c.Password = os.Getenv("CLICKGUARD_WAREHOUSE_PASSWORD")
	}
}

// useNative reports whether the clickhouse-go driver serves this config
func (c *Config) useNative() bool {
	if c.Driver == DriverNative {
		return true
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return false
	}

	switch u.Scheme {
	case "clickhouse", "clickhouses", "tcp":
		return true
	default:
		return false
	}
}

// identity returns the user the warehouse sees along with the database
// access is evaluated against.
func (c *Config) identity() (user, database string) {
	user, database = c.Username, c.Database

	if u, err := url.Parse(c.URL); err == nil {
		if u.User != nil && u.User.Username() != "" {
			user = u.User.Username()
		}

		if db := trimPath(u.Path); db != "" {
			database = db
		}
	}

	if user == "" {
		user = "default"
	}

	if database == "" {
		database = "default"
	}

	return user, database
}

func trimPath(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}

	return p
}
