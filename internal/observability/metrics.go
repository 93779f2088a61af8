package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the Prometheus registry shared by the HTTP layer and the report cache.
type Metrics struct {
	registry *prometheus.Registry
	http     httpMetrics
}

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewMetrics builds a private registry holding the runtime collectors and the HTTP metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		http: httpMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rentdash_http_requests_total",
				Help: "HTTP requests partitioned by route and status code.",
			}, []string{"route", "code"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name: "rentdash_http_request_duration_seconds",
				Help: "HTTP request latency per route.",
				// Report builds on a cold cache land between 0.25s and 5s.
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			}, []string{"route"}),
			inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "rentdash_http_requests_in_flight",
				Help: "HTTP requests currently being served.",
			}),
		},
	}
	m.registry.MustRegister(
		m.http.requests,
		m.http.duration,
		m.http.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records count, latency and concurrency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.http.inFlight.Inc()
		defer m.http.inFlight.Dec()

		start := time.Now()
		rec := &codeRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		// The pattern is only complete once routing has finished.
		route := routePattern(r)
		m.http.requests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		m.http.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for component metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type codeRecorder struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (r *codeRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.code = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *codeRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *codeRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func routePattern(r *http.Request) string {
	routeCtx := chi.RouteContext(r.Context())
	if routeCtx == nil {
		return "unmatched"
	}
	if pattern := routeCtx.RoutePattern(); pattern != "" {
		return pattern
	}
	return "unmatched"
}
