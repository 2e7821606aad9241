package middleware

import (
	"strconv"

	"github.com/SscSPs/txn_ingest/internal/platform/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsMiddleware records request counts and latency per route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		timer := prometheus.NewTimer(metrics.HTTPDuration.WithLabelValues(c.Request.Method, endpoint))
		c.Next()
		timer.ObserveDuration()
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
