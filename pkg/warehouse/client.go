package warehouse

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// maxLoggedQuery bounds query text written to debug logs
const maxLoggedQuery = 500

// Result is a decoded query result with columns in server order
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// ClientInterface defines the methods for querying the warehouse
type ClientInterface interface {
	// Query executes a read-only statement and returns every row
	Query(ctx context.Context, query string) (*Result, error)
	// Identity returns the user the warehouse authenticates
	Identity() string
	// Start verifies connectivity
	Start() error
	// Stop releases connections
	Stop() error
}

// NewClient creates a ClickHouse client. clickhouse:// URLs and the native
// driver use clickhouse-go; http(s) URLs use the plain HTTP interface.
func NewClient(logger *logrus.Logger, cfg *Config) (ClientInterface, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.SetDefaults()

	if cfg.useNative() {
		return newNativeClient(logger, cfg)
	}

	return newHTTPClient(logger, cfg)
}

func truncateQuery(query string) string {
	if len(query) > maxLoggedQuery {
		return query[:maxLoggedQuery] + "..."
	}

	return query
}
