// Package metrics provides Prometheus instrumentation for the journal
// engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GridRiskCalculations counts grid-risk computations by outcome
	// ("ok", "invalid_input", "insufficient_margin",
	// "margin_exceeds_investment").
	GridRiskCalculations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_grid_risk_calculations_total",
		Help: "Total grid risk calculations by outcome",
	}, []string{"outcome"})

	// AnalyticsLatency tracks portfolio aggregation latency.
	AnalyticsLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "journal_analytics_latency_seconds",
		Help:    "Portfolio analytics aggregation latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// EventsAggregated is a summary of event-stream sizes per
	// analytics run.
	EventsAggregated = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "journal_events_aggregated",
		Help:    "P&L events folded per analytics run",
		Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000},
	})

	// RecordsInserted counts journal records written, by kind.
	RecordsInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_records_inserted_total",
		Help: "Journal records inserted by kind",
	}, []string{"kind"})

	// ExposureLimitRejections counts grids rejected by the exposure
	// limiter.
	ExposureLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "journal_exposure_limit_rejections_total",
		Help: "Grid strategies rejected by the exposure limiter",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "journal_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "journal_http_request_duration_seconds",
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

		// Use the raw path for the label; the API surface is small
		// enough that cardinality stays bounded.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
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
