package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/clickguard/pkg/warehouse"
)

// Define static errors
var (
	ErrEmptySQL     = errors.New("sql is required")
	ErrInvalidTable = errors.New("invalid table identifier")
)

// Kind classifies execution failures
type Kind string

// Execution failure kinds
const (
	// KindPermission means the warehouse denied the acting identity. Not retried.
	KindPermission Kind = "permission"
	// KindQuery means the SQL is malformed or references a missing object
	KindQuery Kind = "query"
	// KindTimeout means the warehouse did not answer within the query timeout
	KindTimeout Kind = "timeout"
	// KindUpstream covers transport and other server failures
	KindUpstream Kind = "upstream"
)

// ExecutionError is returned by Execute and PreviewTable for every warehouse
// failure. The underlying warehouse error is reachable through errors.As.
type ExecutionError struct {
	Kind Kind
	SQL  string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of an ExecutionError anywhere in err's chain
func KindOf(err error) (Kind, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Kind, true
	}

	return "", false
}

func newExecutionError(sql string, err error) *ExecutionError {
	var (
		authErr  *warehouse.AuthError
		queryErr *warehouse.QueryError
	)

	kind := KindUpstream

	switch {
	case errors.As(err, &authErr):
		kind = KindPermission
	case errors.As(err, &queryErr):
		kind = KindQuery
	case errors.Is(err, warehouse.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	}

	return &ExecutionError{Kind: kind, SQL: sql, Err: err}
}
