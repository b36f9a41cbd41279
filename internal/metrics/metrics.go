// Package metrics provides Prometheus instrumentation for the statistics
// service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsIngested counts persisted events, partitioned by type
	// ("sale" or "delivery").
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statistics_events_ingested_total",
		Help: "Total number of events persisted",
	}, []string{"type"})

	// EventsDropped counts inbound events dropped by the best-effort
	// ingestion policy, partitioned by type and reason
	// ("malformed" or "store_error").
	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statistics_events_dropped_total",
		Help: "Inbound events dropped during ingestion",
	}, []string{"type", "reason"})

	// DuplicateEvents counts redelivered events absorbed as no-ops.
	DuplicateEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statistics_duplicate_events_total",
		Help: "Redelivered events absorbed by the uniqueness constraint",
	}, []string{"type"})

	// QueriesTotal counts analytical queries served, by view
	// ("sales" or "stock").
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statistics_queries_total",
		Help: "Analytical queries served",
	}, []string{"view"})

	// QueryDuration tracks end-to-end query computation time by view.
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statistics_query_duration_seconds",
		Help:    "Analytical query duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"view"})

	// RegressionSegments observes how many fitted segments each query
	// produced, by view.
	RegressionSegments = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statistics_regression_segments",
		Help:    "Fitted regression segments per query",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
	}, []string{"view"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "statistics_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statistics_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statistics_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Label with the route pattern, not the raw path: paths embed
		// variant UUIDs and would blow up label cardinality.
		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern returns the matched chi route pattern for the request
// (e.g. /api/v1/variants/{variantID}/sales), falling back to the raw path
// outside a chi routing context.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
