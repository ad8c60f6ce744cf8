package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/clickguard/pkg/answer"
	"github.com/ethpandaops/clickguard/pkg/api/handlers"
	"github.com/ethpandaops/clickguard/pkg/clarification"
	"github.com/ethpandaops/clickguard/pkg/querycache"
)

func newTestHandlers(t *testing.T) *handlers.Server {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return handlers.NewServer(nil, nil,
		querycache.NewMemoryStore(log, &querycache.Config{}),
		clarification.NewTracker(log, &clarification.Config{}, clarification.NewMemoryStore()),
		answer.New(answer.DefaultMaxRows), log)
}

func TestNewApp_RequestID(t *testing.T) {
	app := newApp(&Config{}, newTestHandlers(t))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = uuid.Parse(resp.Header.Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestNewApp_NotFound(t *testing.T) {
	app := newApp(&Config{}, newTestHandlers(t))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.InDelta(t, http.StatusNotFound, body["code"], 0)
}

func TestConfigValidate(t *testing.T) {
	assert.ErrorIs(t, (&Config{Enabled: true}).Validate(), ErrAPIAddrRequired)
	assert.NoError(t, (&Config{Enabled: true, Addr: ":8080"}).Validate())
	assert.NoError(t, (&Config{}).Validate())
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(&Config{Enabled: false}, newTestHandlers(t), logrus.New())

	require.NoError(t, svc.Start(t.Context()))
	require.NoError(t, svc.Stop())
}
