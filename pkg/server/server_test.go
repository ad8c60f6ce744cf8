package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/clickguard/internal/testutil"
	"github.com/ethpandaops/clickguard/pkg/assistant"
	"github.com/ethpandaops/clickguard/pkg/clarification"
	"github.com/ethpandaops/clickguard/pkg/querycache"
	"github.com/ethpandaops/clickguard/pkg/redis"
)

const cacheableSQL = "SELECT partner, sum(total_events) AS clicks FROM clicks_data_prac.partial_encoded_clicks WHERE toDate(event_time) = '2025-10-01' GROUP BY partner"

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return logger
}

// newFakeClickHouse serves a fixed JSON result and counts queries
func newFakeClickHouse(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"meta": [{"name": "partner", "type": "String"}, {"name": "clicks", "type": "UInt64"}],
			"data": [{"partner": "acme", "clicks": 4200}], "rows": 1}`))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func baseConfig(warehouseURL string) *Config {
	cfg := &Config{MaxAnswerRows: 20}
	cfg.Warehouse.URL = warehouseURL
	cfg.Assistant.Provider = assistant.ProviderNone

	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "memory backend", mutate: func(_ *Config) {}},
		{
			name:    "redis backend without redis",
			mutate:  func(c *Config) { c.Cache.Backend = querycache.BackendRedis },
			wantErr: ErrRedisConfigRequired,
		},
		{
			name:    "redis without url",
			mutate:  func(c *Config) { c.Redis = &redis.Config{} },
			wantErr: redis.ErrURLRequired,
		},
		{
			name:    "unknown cache backend",
			mutate:  func(c *Config) { c.Cache.Backend = "disk" },
			wantErr: querycache.ErrInvalidBackend,
		},
		{
			name:    "anthropic without key",
			mutate:  func(c *Config) { c.Assistant = assistant.Config{Provider: assistant.ProviderAnthropic, MaxTokens: 10} },
			wantErr: assistant.ErrAPIKeyRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig("http://localhost:8123")
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestNewComponents_Memory(t *testing.T) {
	var calls atomic.Int32

	srv := newFakeClickHouse(t, &calls)
	cfg := baseConfig(srv.URL)
	cfg.SetDefaults()

	c, err := NewComponents(newTestLogger(), cfg)
	require.NoError(t, err)

	assert.Nil(t, c.Redis)
	assert.Nil(t, c.Conversation)

	ctx := context.Background()

	first, err := c.Gateway.Execute(ctx, cacheableSQL, "clicks by partner on Oct 1")
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := c.Gateway.Execute(ctx, cacheableSQL, "Clicks by partner on Oct 1")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, int32(1), calls.Load())

	assert.Equal(t, "**Result**: 4,200  (from cache)", c.Formatter.Format(second))
}

func TestNewComponents_Redis(t *testing.T) {
	var calls atomic.Int32

	srv := newFakeClickHouse(t, &calls)
	mr := testutil.NewMiniredis(t)

	cfg := baseConfig(srv.URL)
	cfg.Redis = &redis.Config{URL: "redis://" + mr.Addr()}
	cfg.Cache.Backend = querycache.BackendRedis
	cfg.SetDefaults()

	c, err := NewComponents(newTestLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Redis.Close() })

	ctx := context.Background()

	_, err = c.Gateway.Execute(ctx, cacheableSQL, "clicks by partner on Oct 1")
	require.NoError(t, err)

	assert.True(t, mr.Exists("clickguard:cache:sql:values"))
	assert.True(t, mr.Exists("clickguard:cache:question:values"))

	stats := c.Cache.Stats(ctx)
	assert.Equal(t, 1, stats.SQLCacheSize)

	_, err = c.Tracker.Update(ctx, "How many clicks?", "How many clicks?", clarification.FieldMissingDate)
	require.NoError(t, err)
	assert.True(t, mr.Exists("clickguard:clarification:how many clicks?"))
}

func TestNewComponents_ChatEnabled(t *testing.T) {
	var calls atomic.Int32

	srv := newFakeClickHouse(t, &calls)
	cfg := baseConfig(srv.URL)
	cfg.Assistant = assistant.Config{Provider: assistant.ProviderAnthropic, APIKey: "test"}
	cfg.SetDefaults()

	c, err := NewComponents(newTestLogger(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, c.Conversation)
}

func TestNewServer_InvalidConfig(t *testing.T) {
	_, err := NewServer(context.Background(), newTestLogger(), &Config{})
	require.Error(t, err)
}
