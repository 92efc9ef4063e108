package api

import (
	"strconv"
	"time"

	"gymdesk/membership-app/internal/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records per-request counters and latency. Uses the route
// template rather than the raw path to keep label cardinality bounded.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}
