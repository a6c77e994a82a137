// Package metrics provides Prometheus instrumentation for the portfolio engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FetchLatency tracks ledger fetch duration (head + logs).
	FetchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "portfolio_fetch_latency_seconds",
		Help:    "Ledger fetch latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	})

	// FetchFailures counts fetches that ended in ErrFetchFailed.
	FetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_fetch_failures_total",
		Help: "Ledger fetches that failed",
	})

	// LogEntriesFetched counts raw MarketActionTx entries read from the ledger.
	LogEntriesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_log_entries_fetched_total",
		Help: "Raw ledger entries fetched",
	})

	// StaleCyclesDiscarded counts fetch cycles whose result arrived after a
	// newer cycle had started.
	StaleCyclesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_stale_cycles_discarded_total",
		Help: "Fetch results discarded because a newer cycle superseded them",
	})

	// WebSocketSessions tracks connected WebSocket sessions.
	WebSocketSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portfolio_websocket_sessions",
		Help: "Number of connected WebSocket sessions",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portfolio_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0},
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

		// Addresses are unbounded; label by route pattern.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
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

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
