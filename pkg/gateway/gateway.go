// Package gateway runs SQL against the warehouse behind the query cache
package gateway

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethpandaops/clickguard/pkg/observability"
	"github.com/ethpandaops/clickguard/pkg/querycache"
	"github.com/ethpandaops/clickguard/pkg/warehouse"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

//nolint:gochecknoglobals // Compiled once
var tableIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Cache is the subset of the query cache the gateway needs
type Cache interface {
	Lookup(ctx context.Context, sql, question string) (*querycache.Entry, querycache.Source, bool)
	Store(ctx context.Context, sql, question string, entry *querycache.Entry)
}

// Querier executes SQL against the warehouse
type Querier interface {
	Query(ctx context.Context, query string) (*warehouse.Result, error)
}

// Result is the outcome of an execution
type Result struct {
	SQL       string           `json:"sql"`
	Columns   []string         `json:"columns"`
	Rows      []querycache.Row `json:"rows"`
	RowCount  int              `json:"row_count"`  //nolint:tagliatelle // public result shape
	FromCache bool             `json:"from_cache"` //nolint:tagliatelle // public result shape
}

// Gateway consults the cache before every execution and stores what it
// executes. Concurrent misses for the same key share one warehouse call.
type Gateway struct {
	log          logrus.FieldLogger
	cache        Cache
	warehouse    Querier
	queryTimeout time.Duration
	previewLimit int
	flights      singleflight.Group
}

// New creates a gateway
func New(log logrus.FieldLogger, cfg *Config, cache Cache, querier Querier) *Gateway {
	cfg.SetDefaults()

	return &Gateway{
		log:          log.WithField("component", "gateway"),
		cache:        cache,
		warehouse:    querier,
		queryTimeout: cfg.QueryTimeout,
		previewLimit: cfg.PreviewLimit,
	}
}

// Execute returns rows for sql, from the cache when a question or SQL key
// hits and from the warehouse otherwise.
func (g *Gateway) Execute(ctx context.Context, sql, question string) (*Result, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, ErrEmptySQL
	}

	if entry, source, ok := g.cache.Lookup(ctx, sql, question); ok {
		g.log.WithField("source", source).Debug("Serving result from cache")

		return resultFromEntry(sql, entry, true), nil
	}

	ch := g.flights.DoChan(flightKey(sql, question), func() (any, error) {
		return g.executeMiss(ctx, sql, question)
	})

	select {
	case res := <-ch:
		if res.Shared {
			observability.RecordSharedExecution()
		}

		if res.Err != nil {
			return nil, res.Err
		}

		out := *res.Val.(*Result) //nolint:forcetypeassert // executeMiss only returns *Result

		return &out, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newExecutionError(sql, ctx.Err())
		}

		return nil, ctx.Err()
	}
}

// PreviewTable reads the first rows of table. Previews are never cached.
func (g *Gateway) PreviewTable(ctx context.Context, table string) (*Result, error) {
	table = strings.Trim(strings.TrimSpace(table), "`")
	if !tableIdentifier.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	sql := fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, g.previewLimit)

	runCtx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	res, err := g.query(runCtx, "preview", sql)
	if err != nil {
		return nil, err
	}

	return &Result{
		SQL:       sql,
		Columns:   res.Columns,
		Rows:      toRows(res.Rows),
		RowCount:  len(res.Rows),
		FromCache: false,
	}, nil
}

// executeMiss runs inside a flight. An earlier flight for the same key may
// have stored its result after this caller's lookup, so the cache is checked
// again. The warehouse call ignores the leader's cancellation and is bounded
// by the query timeout alone.
func (g *Gateway) executeMiss(ctx context.Context, sql, question string) (*Result, error) {
	if entry, _, ok := g.cache.Lookup(ctx, sql, question); ok {
		return resultFromEntry(sql, entry, true), nil
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.queryTimeout)
	defer cancel()

	res, err := g.query(runCtx, "execute", sql)
	if err != nil {
		return nil, err
	}

	entry := &querycache.Entry{
		SQL:      sql,
		Columns:  res.Columns,
		Rows:     toRows(res.Rows),
		RowCount: len(res.Rows),
	}

	g.cache.Store(runCtx, sql, question, entry)

	return resultFromEntry(sql, entry, false), nil
}

func (g *Gateway) query(ctx context.Context, kind, sql string) (*warehouse.Result, error) {
	start := time.Now()

	res, err := g.warehouse.Query(ctx, sql)
	duration := time.Since(start).Seconds()

	if err != nil {
		execErr := newExecutionError(sql, err)

		observability.RecordWarehouseQuery(kind, string(execErr.Kind), duration)
		g.log.WithError(err).WithFields(logrus.Fields{
			"kind":  execErr.Kind,
			"query": kind,
		}).Warn("Warehouse query failed")

		return nil, execErr
	}

	observability.RecordWarehouseQuery(kind, "success", duration)
	g.log.WithFields(logrus.Fields{
		"rows":     len(res.Rows),
		"duration": duration,
	}).Debug("Warehouse query completed")

	return res, nil
}

// flightKey identifies one warehouse execution. The SQL is always part of
// the key so callers only ever share rows for the statement they sent.
func flightKey(sql, question string) string {
	key := "sql:" + querycache.NormalizeSQL(sql)
	if q := querycache.NormalizeQuestion(question); q != "" {
		key = "question:" + q + "\x00" + key
	}

	return key
}

// resultFromEntry reports the caller's SQL alongside the stored rows
func resultFromEntry(sql string, entry *querycache.Entry, fromCache bool) *Result {
	return &Result{
		SQL:       sql,
		Columns:   entry.Columns,
		Rows:      entry.Rows,
		RowCount:  entry.RowCount,
		FromCache: fromCache,
	}
}

func toRows(rows []map[string]any) []querycache.Row {
	out := make([]querycache.Row, len(rows))
	for i, r := range rows {
		out[i] = r
	}

	return out
}
