package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/chatkit/monitor"
)

// PrometheusMiddleware records the status and latency of every request.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		monitor.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
