package middleware

import (
	"strconv"
	"time"

	"github.com/bookline/ballast/internal/observability"
	"github.com/gin-gonic/gin"
)

// Metrics records request counts and latency per route template. Unmatched
// paths fall back to the raw URL so 404 probes stay visible without blowing
// up label cardinality for matched routes.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
