// Package metrics provides Prometheus metrics for the client's API traffic,
// authentication events and list fetches.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Using atomic.Pointer for lock-free initialization checks on hot path metrics.
	requestsTotal   atomic.Pointer[prometheus.CounterVec]
	requestDuration atomic.Pointer[prometheus.HistogramVec]
	authEventsTotal atomic.Pointer[prometheus.CounterVec]
	fetchesTotal    atomic.Pointer[prometheus.CounterVec]
)

// Fetch outcomes recorded by RecordFetch.
const (
	FetchApplied    = "applied"
	FetchSuperseded = "superseded"
	FetchFailed     = "failed"
)

// Init initializes all Prometheus metrics and registers them with the provided registry.
// Until Init is called the Record functions are no-ops.
func Init(reg prometheus.Registerer) error {
	requestsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "covid",
			Subsystem: "client",
			Name:      "api_requests_total",
			Help:      "Total number of API requests sent by the client",
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestsTotalVec); err != nil {
		return fmt.Errorf("failed to register requestsTotal: %w", err)
	}

	requestDurationVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "covid",
			Subsystem: "client",
			Name:      "api_request_duration_seconds",
			Help:      "API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestDurationVec); err != nil {
		return fmt.Errorf("failed to register requestDuration: %w", err)
	}

	authEventsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "covid",
			Subsystem: "client",
			Name:      "auth_events_total",
			Help:      "Authentication state machine events",
		},
		[]string{"event"},
	)
	if err := reg.Register(authEventsTotalVec); err != nil {
		return fmt.Errorf("failed to register authEventsTotal: %w", err)
	}

	fetchesTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "covid",
			Subsystem: "client",
			Name:      "list_fetches_total",
			Help:      "List fetches by dataset and outcome (applied, superseded, failed)",
		},
		[]string{"dataset", "outcome"},
	)
	if err := reg.Register(fetchesTotalVec); err != nil {
		return fmt.Errorf("failed to register fetchesTotal: %w", err)
	}

	requestsTotal.Store(requestsTotalVec)
	requestDuration.Store(requestDurationVec)
	authEventsTotal.Store(authEventsTotalVec)
	fetchesTotal.Store(fetchesTotalVec)

	return nil
}

// RecordRequest counts one API request and its latency.
// The path should be normalized (e.g., "/countries/:key" instead of "/countries/Peru").
func RecordRequest(method, path, status string, durationSeconds float64) {
	if counter := requestsTotal.Load(); counter != nil {
		counter.WithLabelValues(method, path, status).Inc()
	}
	if histogram := requestDuration.Load(); histogram != nil {
		histogram.WithLabelValues(method, path, status).Observe(durationSeconds)
	}
}

// RecordAuthEvent counts an authentication event such as "login",
// "otp_required", "otp_verified", "logout" or "failure".
func RecordAuthEvent(event string) {
	if counter := authEventsTotal.Load(); counter != nil {
		counter.WithLabelValues(event).Inc()
	}
}

// RecordFetch counts a completed list fetch.
func RecordFetch(dataset, outcome string) {
	if counter := fetchesTotal.Load(); counter != nil {
		counter.WithLabelValues(dataset, outcome).Inc()
	}
}

// Handler returns an HTTP handler for Prometheus metrics in text format.
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, reg prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(reg))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		//nolint:errcheck
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listener started", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics listener: %w", err)
	}
	return nil
}

// GetMetricsText returns the Prometheus text-format output from a registry.
// This is useful for testing and debugging.
func GetMetricsText(reg prometheus.Gatherer) (string, error) {
	handler := Handler(reg)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	body, err := io.ReadAll(w.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read metrics output: %w", err)
	}

	return string(body), nil
}
