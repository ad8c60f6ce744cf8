package gateway

import "time"

// Config configures the execution gateway
type Config struct {
	// QueryTimeout bounds every warehouse call
	QueryTimeout time.Duration `yaml:"queryTimeout" default:"30s"`
	// PreviewLimit is the row limit of table previews
	PreviewLimit int `yaml:"previewLimit" default:"20"`
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 30 * time.Second
	}

	if c.PreviewLimit == 0 {
		c.PreviewLimit = 20
	}
}
