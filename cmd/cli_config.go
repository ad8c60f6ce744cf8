package cmd

import (
	"os"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/clickguard/pkg/gateway"
	"github.com/ethpandaops/clickguard/pkg/querycache"
	"github.com/ethpandaops/clickguard/pkg/server"
	"github.com/ethpandaops/clickguard/pkg/warehouse"
)

// CLIConfig represents minimal configuration for one-shot CLI commands
type CLIConfig struct {
	// Logging level
	Logging string `yaml:"logging" default:"error" validate:"oneof=panic fatal warn info debug trace"`

	// Warehouse configuration
	Warehouse warehouse.Config `yaml:"warehouse"`

	// Gateway configuration
	Gateway gateway.Config `yaml:"gateway"`

	// Cache configuration; one-shot commands always use the memory backend
	Cache querycache.Config `yaml:"cache"`

	// MaxAnswerRows caps the rendered answer table
	MaxAnswerRows int `yaml:"maxAnswerRows" default:"20"`
}

// Validate validates the CLI configuration
func (c *CLIConfig) Validate() error {
	c.Warehouse.SetDefaults()
	c.Gateway.SetDefaults()
	c.Cache.SetDefaults()

	return c.Warehouse.Validate()
}

// LoadCLIConfig loads CLI configuration from a YAML file. The serve config
// file is accepted too since its warehouse section has the same shape.
func LoadCLIConfig(path string) (*CLIConfig, error) {
	if path == "" {
		path = "config.yaml"
	}

	config := &CLIConfig{}

	if err := loadYAML(path, config, true); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadServerConfig loads the serve configuration from a YAML file
func LoadServerConfig(path string) (*server.Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	config := &server.Config{}

	if err := loadYAML(path, config, false); err != nil {
		return nil, err
	}

	return config, nil
}

// loadYAML applies struct defaults then overlays the file. A missing file is
// tolerated only when optional is set.
func loadYAML(path string, out any, optional bool) error {
	if err := defaults.Set(out); err != nil {
		return err
	}

	yamlFile, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}

		return err
	}

	return yaml.Unmarshal(yamlFile, out)
}
