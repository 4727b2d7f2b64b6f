// Package httpmetrics provides the ambient HTTP-request metrics every
// route gets regardless of what spec.md's Non-goals exclude: request
// counts, latency histograms, and an in-flight gauge, registered with
// prometheus/client_golang the way the teacher's infrastructure/metrics
// package wraps the same library for its own HTTP services.
package httpmetrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the registered collectors for one process.
type Collector struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	inFlight   prometheus.Gauge
}

// New registers a fresh set of HTTP-request collectors on a dedicated
// registry, separate from the hand-rolled C2 exposition text. The /metrics
// endpoint serves only that C2 text; this registry is reachable only
// through Handler.
func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grafeo_http_requests_total",
			Help: "Total HTTP requests processed, by route and status class.",
		}, []string{"route", "method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grafeo_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "grafeo_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		}),
	}
	registry.MustRegister(c.requests, c.durations, c.inFlight)
	return c
}

// Middleware wraps a handler, recording its outcome. It is meant to sit
// as the outermost layer of the middleware chain so it measures every
// request, including ones later middleware rejects.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.inFlight.Inc()
		defer c.inFlight.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routeLabel(r)
		c.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		c.durations.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes this collector's registry in Prometheus exposition
// format, for mounting at a sub-path or a dedicated port if ever split
// off from the hand-rolled C2 renderer.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// routeLabel uses the chi route pattern when available, falling back to
// the raw path, to avoid unbounded cardinality on path parameters like
// database names.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
