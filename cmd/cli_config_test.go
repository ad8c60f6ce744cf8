package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/clickguard/pkg/querycache"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadServerConfig(t *testing.T) {
	path := writeConfig(t, `
logging: debug
warehouse:
  url: http://localhost:8123/clicks_data_prac
  username: analyst
cache:
  backend: redis
  ttl: 24h
redis:
  url: redis://localhost:6379/0
assistant:
  provider: none
`)

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LoggingLevel)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, ":8080", cfg.API.Addr)
	assert.Equal(t, "analyst", cfg.Warehouse.Username)
	assert.Equal(t, querycache.BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 3, cfg.Clarification.MaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.SessionTTL)
	require.NotNil(t, cfg.Redis)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadServerConfig_Missing(t *testing.T) {
	_, err := LoadServerConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadCLIConfig(t *testing.T) {
	cfg, err := LoadCLIConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging)
	assert.Equal(t, 20, cfg.MaxAnswerRows)

	require.Error(t, cfg.Validate())

	cfg, err = LoadCLIConfig(writeConfig(t, "warehouse:\n  url: clickhouse://localhost:9000/default\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.Gateway.QueryTimeout)
}

func TestCacheableCommand(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{sql: "SELECT count() FROM t WHERE d = '2025-01-01'", want: "cacheable (rule: date_literal)\n"},
		{sql: "SELECT count() FROM t WHERE d = yesterday()", want: "not cacheable (rule: relative_time)\n"},
	}

	for _, tt := range tests {
		var out bytes.Buffer

		cacheableCmd.SetOut(&out)
		require.NoError(t, runCacheable(cacheableCmd, []string{tt.sql}))
		assert.Equal(t, tt.want, out.String())
	}
}
