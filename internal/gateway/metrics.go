package gateway

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mktcloud/sfmc-asset-agent/pkg/sfmc"
)

var (
	sfmcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sfmc_gateway_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	sfmcRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sfmc_gateway_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	sfmcSearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sfmc_gateway_searches_total",
		Help: "Total upstream asset searches by mode and outcome.",
	}, []string{"mode", "outcome"})

	sfmcConnectionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sfmc_gateway_connection_attempts_total",
		Help: "Total connection attempts by result.",
	}, []string{"result"})

	sfmcSessionConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sfmc_gateway_session_connected",
		Help: "1 while the gateway holds a verified session, 0 before.",
	})
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

		sfmcRequestsTotal.WithLabelValues(method, path, status).Inc()
		sfmcRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// recordSearch counts one upstream search. The outcome label is "ok" for
// success and the failure kind otherwise.
func recordSearch(mode string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(sfmc.KindOf(err))
		if outcome == "" {
			outcome = "unknown"
		}
	}
	sfmcSearchesTotal.WithLabelValues(mode, outcome).Inc()
}

// recordConnectionAttempt counts one connection attempt and keeps the
// session gauge in step.
func recordConnectionAttempt(success bool) {
	if success {
		sfmcConnectionAttempts.WithLabelValues("success").Inc()
		sfmcSessionConnected.Set(1)
		return
	}
	sfmcConnectionAttempts.WithLabelValues("failure").Inc()
}

// RecordSessionHealth keeps the session gauge in step with background
// health checks.
func RecordSessionHealth(connected bool) {
	if connected {
		sfmcSessionConnected.Set(1)
		return
	}
	sfmcSessionConnected.Set(0)
}
