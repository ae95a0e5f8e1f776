// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LockAcquires tracks acquire attempts by outcome (granted/conflict).
	LockAcquires = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lock_acquires_total",
			Help: "Total lock acquire attempts by outcome",
		},
		[]string{"outcome"},
	)

	// LockReleases tracks locks released by their owner.
	LockReleases = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lock_releases_total",
			Help: "Total locks released",
		},
	)

	// StaleLocksSwept tracks stale lock records removed by the sweeper.
	StaleLocksSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stale_locks_swept_total",
			Help: "Total stale lock records removed by the sweeper",
		},
	)

	// LockStoreErrors tracks lock store failures by operation.
	LockStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lock_store_errors_total",
			Help: "Total lock store failures by operation (get/put/delete/scan)",
		},
		[]string{"operation"},
	)

	// IdeasTotal tracks ideas created and deleted.
	IdeasTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideas_total",
			Help: "Total idea registry operations by type (created/deleted)",
		},
		[]string{"operation"},
	)

	// HTTPRequestsTotal tracks total HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request duration.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// RegisterMetricsEndpoint registers the /metrics endpoint on a Gin router.
func RegisterMetricsEndpoint(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// HTTPMetrics returns a Gin middleware that records request counts and
// durations against the route template, not the raw path, to keep
// cardinality bounded.
func HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(
			c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
