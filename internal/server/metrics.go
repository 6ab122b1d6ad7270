package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	eduRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockedu_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	eduRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blockedu_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	eduLedgerAppendsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockedu_ledger_appends_total",
		Help: "Total ledger entries appended.",
	})

	eduVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockedu_verifications_total",
		Help: "Total record verifications by outcome.",
	}, []string{"outcome"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		eduRequestsTotal.WithLabelValues(method, path, status).Inc()
		eduRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordLedgerAppend records a ledger entry append.
func RecordLedgerAppend() {
	eduLedgerAppendsTotal.Inc()
}

// RecordVerification records a verification outcome.
func RecordVerification(outcome string) {
	eduVerificationsTotal.WithLabelValues(outcome).Inc()
}
