// Package observability provides observability utilities
package observability

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

//nolint:gochecknoglobals // Singleton pattern for metrics server
var (
	metricsServerInstance *http.Server
	once                  sync.Once
	mu                    sync.Mutex
)

// StartMetricsServer starts a Prometheus metrics server if it hasn't been started already.
// The returned channel receives a listen error, if any.
func StartMetricsServer(_ context.Context, addr string) <-chan error {
	errCh := make(chan error, 1)

	once.Do(func() {
		sm := http.NewServeMux()
		sm.Handle("/metrics", promhttp.Handler())

		srv := &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 15 * time.Second,
			Handler:           sm,
		}

		mu.Lock()
		metricsServerInstance = srv
		mu.Unlock()

		go func() {
			logrus.Infof("Starting metrics server on %s", addr)

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	})

	return errCh
}

// StopMetricsServer gracefully shuts the metrics server down
func StopMetricsServer(ctx context.Context) error {
	mu.Lock()
	srv := metricsServerInstance
	mu.Unlock()

	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}
