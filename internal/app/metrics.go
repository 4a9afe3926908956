package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inevitablewiki/internal/content"
)

// Metrics owns a private registry so tests can build several servers.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics registers process collectors and the repository cache
// counters for repo.
func NewMetrics(repo *content.Repository) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "inevitable_cache_hits_total",
		Help: "Repository listings served from cache.",
	}, func() float64 { return float64(repo.Stats().Hits) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "inevitable_cache_misses_total",
		Help: "Repository listings loaded from the store.",
	}, func() float64 { return float64(repo.Stats().Misses) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "inevitable_articles_skipped_total",
		Help: "Articles skipped during bulk loads because they failed to load or validate.",
	}, func() float64 { return float64(repo.Stats().Skipped) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "inevitable_cache_generation",
		Help: "Number of times the repository cache was cleared.",
	}, func() float64 { return float64(repo.Generation()) })

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "inevitable_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inevitable_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
