// Package testutil provides test utilities for clickguard, including:
//   - Miniredis helpers for unit tests (miniredis.go)
//   - A ClickHouse container for warehouse integration tests (clickhouse.go)
//
// The ClickHouse helper requires Docker and is gated behind the "integration"
// build tag:
//
//	go test -tags=integration ./pkg/warehouse/...
package testutil
