package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushq/preenroll-api/internal/service"
)

// Metrics observes every request on the prometheus registry. The route
// template is used as the path label so IDs do not explode cardinality.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
