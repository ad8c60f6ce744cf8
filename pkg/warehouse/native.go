package warehouse

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

// nativeSecurePort is the default ClickHouse native TLS port
const nativeSecurePort = "9440"

// nativeClient implements the ClientInterface using clickhouse-go
type nativeClient struct {
	log          logrus.FieldLogger
	conn         driver.Conn
	debug        bool
	queryTimeout time.Duration
	taxonomy     classifier
}

func newNativeClient(logger *logrus.Logger, cfg *Config) (*nativeClient, error) {
	options, err := createClickHouseOptions(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	return &nativeClient{
		log:          logger.WithField("component", "warehouse-native"),
		conn:         conn,
		debug:        cfg.Debug,
		queryTimeout: cfg.QueryTimeout,
		taxonomy:     newClassifier(cfg),
	}, nil
}

// createClickHouseOptions translates the config into clickhouse-go options.
// A database in the URL path takes precedence over the configured one.
func createClickHouseOptions(cfg *Config) (*clickhouse.Options, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	options := &clickhouse.Options{
		Addr: []string{u.Host},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}

	if db := trimPath(u.Path); db != "" {
		options.Auth.Database = db
	}

	if u.User != nil {
		options.Auth.Username = u.User.Username()
		if p, ok := u.User.Password(); ok {
			options.Auth.Password = p
		}
	}

	secure := false

	switch strings.ToLower(u.Scheme) {
	case "clickhouse", "tcp":
		options.Protocol = clickhouse.Native
		_, port, _ := net.SplitHostPort(u.Host)
		secure = port == nativeSecurePort
	case "clickhouses":
		options.Protocol = clickhouse.Native
		secure = true
	case "http":
		options.Protocol = clickhouse.HTTP
	case "https":
		options.Protocol = clickhouse.HTTP
		secure = true
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	if secure {
		options.TLS = &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // Explicit opt-in for self-signed clusters
		}
	}

	if cfg.ReadOnly {
		options.Settings = clickhouse.Settings{"readonly": 2}
	}

	return options, nil
}

func (c *nativeClient) Identity() string {
	return c.taxonomy.identity
}

func (c *nativeClient) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.conn.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to ClickHouse: %w", c.translate(err))
	}

	c.log.Info("Connected to ClickHouse native interface")

	return nil
}

func (c *nativeClient) Stop() error {
	if err := c.conn.Close(); err != nil {
		return err
	}

	c.log.Info("Closed ClickHouse native client")

	return nil
}

func (c *nativeClient) Query(ctx context.Context, query string) (*Result, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	query = strings.TrimRight(strings.TrimSpace(query), ";")

	if c.debug {
		c.log.WithField("query", truncateQuery(query)).Debug("Executing ClickHouse query")
	}

	rows, err := c.conn.Query(ctx, query)
	if err != nil {
		return nil, c.translate(err)
	}
	defer rows.Close()

	columnTypes := rows.ColumnTypes()
	result := &Result{
		Columns: make([]string, 0, len(columnTypes)),
		Rows:    []map[string]any{},
	}

	for _, ct := range columnTypes {
		result.Columns = append(result.Columns, ct.Name())
	}

	for rows.Next() {
		dest := make([]any, len(columnTypes))
		for i, ct := range columnTypes {
			dest[i] = reflect.New(ct.ScanType()).Interface()
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(result.Rows), err)
		}

		row := make(map[string]any, len(columnTypes))
		for i, name := range result.Columns {
			row[name] = scannedValue(dest[i])
		}

		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, c.translate(err)
	}

	return result, nil
}

// translate maps clickhouse-go failures onto the error taxonomy
func (c *nativeClient) translate(err error) error {
	var exception *clickhouse.Exception
	if errors.As(err, &exception) {
		return c.taxonomy.classify(int(exception.Code), 0, exception.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}

	return fmt.Errorf("query execution failed: %w", err)
}

// scannedValue unwraps the pointer allocated for Scan, collapsing nullable
// columns to nil or their underlying value.
func scannedValue(dest any) any {
	v := reflect.ValueOf(dest).Elem()

	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}

		v = v.Elem()
	}

	return v.Interface()
}
