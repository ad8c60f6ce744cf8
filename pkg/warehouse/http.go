package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// clickhouseResponse represents the JSON response from ClickHouse HTTP interface.
type clickhouseResponse struct {
	Data []json.RawMessage `json:"data"`
	Meta []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"meta"`
	Rows     int `json:"rows"`
	RowsRead int `json:"rows_read"` //nolint:tagliatelle // ClickHouse API uses snake_case
}

// httpClient implements the ClientInterface using the HTTP interface
type httpClient struct {
	log          logrus.FieldLogger
	httpClient   *http.Client
	endpoint     string
	username     string
	password     string
	debug        bool
	queryTimeout time.Duration
	taxonomy     classifier
}

func newHTTPClient(logger *logrus.Logger, cfg *Config) (*httpClient, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	username, password := cfg.Username, cfg.Password
	if u.User != nil {
		username = u.User.Username()
		if p, ok := u.User.Password(); ok {
			password = p
		}

		u.User = nil
	}

	database := cfg.Database
	if db := trimPath(u.Path); db != "" {
		database = db
	}

	u.Path = "/"

	params := url.Values{}
	params.Set("output_format_json_quote_64bit_integers", "0")

	if database != "" {
		params.Set("database", database)
	}

	if cfg.ReadOnly {
		params.Set("readonly", "2")
	}

	u.RawQuery = params.Encode()

	// Create HTTP client with keep-alive settings
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     cfg.KeepAlive,
		DisableKeepAlives:   false,
	}

	return &httpClient{
		log: logger.WithField("component", "warehouse-http"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   0, // We'll set per-request timeouts
		},
		endpoint:     u.String(),
		username:     username,
		password:     password,
		debug:        cfg.Debug,
		queryTimeout: cfg.QueryTimeout,
		taxonomy:     newClassifier(cfg),
	}, nil
}

func (c *httpClient) Identity() string {
	return c.taxonomy.identity
}

func (c *httpClient) Start() error {
	// Test connectivity
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := c.Query(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	c.log.Info("Connected to ClickHouse HTTP interface")

	return nil
}

func (c *httpClient) Stop() error {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}

	c.log.Info("Closed ClickHouse HTTP client")

	return nil
}

func (c *httpClient) Query(ctx context.Context, query string) (*Result, error) {
	// Add FORMAT JSON to query
	formattedQuery := strings.TrimRight(strings.TrimSpace(query), ";") + " FORMAT JSON"

	body, err := c.executeHTTPRequest(ctx, formattedQuery)
	if err != nil {
		return nil, err
	}

	var resp clickhouseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	result := &Result{
		Columns: make([]string, 0, len(resp.Meta)),
		Rows:    make([]map[string]any, 0, len(resp.Data)),
	}

	for _, m := range resp.Meta {
		result.Columns = append(result.Columns, m.Name)
	}

	for i, data := range resp.Data {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()

		row := make(map[string]any, len(result.Columns))
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row %d: %w", i, err)
		}

		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

func (c *httpClient) executeHTTPRequest(ctx context.Context, query string) ([]byte, error) {
	// Create request with timeout
	reqCtx, cancel := context.WithTimeout(ctx, c.getTimeout(ctx))
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-ClickHouse-Format", "JSON")

	if c.username != "" {
		req.Header.Set("X-ClickHouse-User", c.username)
		req.Header.Set("X-ClickHouse-Key", c.password)
	}

	if c.debug {
		c.log.WithField("query", truncateQuery(query)).Debug("Executing ClickHouse query")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
		}

		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
		}

		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(body))

		// Try to parse error message
		var errorResp struct {
			Exception string `json:"exception"`
		}

		if jsonErr := json.Unmarshal(body, &errorResp); jsonErr == nil && errorResp.Exception != "" {
			message = errorResp.Exception
		}

		code := exceptionCode(resp.Header.Get("X-ClickHouse-Exception-Code"), message)

		return nil, c.taxonomy.classify(code, resp.StatusCode, message)
	}

	// Debug logging
	if c.debug && len(body) < 1000 {
		c.log.WithField("response", string(body)).Debug("ClickHouse response")
	}

	return body, nil
}

func (c *httpClient) getTimeout(ctx context.Context) time.Duration {
	// Check if context already has a deadline
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline)
	}

	return c.queryTimeout
}
