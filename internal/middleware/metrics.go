package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	registry       *prometheus.Registry
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec

	ProjectsGenerated prometheus.Counter
	ReposProvisioned  prometheus.Counter
	PushFailures      prometheus.Counter
}

// NewMetrics registers the service collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recap",
		Subsystem: "api",
		Name:      "http_requests_total",
		Help:      "Count of processed HTTP requests",
	}, []string{"method", "route", "status"})

	m.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "recap",
		Subsystem: "api",
		Name:      "http_request_duration_seconds",
		Help:      "Latency distribution of HTTP handlers",
		Buckets:   histogramBuckets,
	}, []string{"method", "route", "status"})

	m.ProjectsGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "recap",
		Subsystem: "api",
		Name:      "projects_generated_total",
		Help:      "Projects rendered and archived for download",
	})

	m.ReposProvisioned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "recap",
		Subsystem: "api",
		Name:      "repositories_provisioned_total",
		Help:      "GitHub repositories created and pushed",
	})

	m.PushFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "recap",
		Subsystem: "api",
		Name:      "push_failures_total",
		Help:      "Pushes that failed after the remote repository was created",
	})

	m.registry.MustRegister(m.requestTotal, m.requestLatency,
		m.ProjectsGenerated, m.ReposProvisioned, m.PushFailures)
	return m
}

// Handler records per-request counters and latencies.
func (m *Metrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requestTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		m.requestLatency.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}

// Exposition serves the /metrics endpoint.
func (m *Metrics) Exposition() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
