package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/practice-rules-api/internal/service"
)

// Metrics records one observation per request, labelled by route template.
// Requests whose template is listed in skip (probes, scrapes) are not counted.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	ignored := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		ignored[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if _, ok := ignored[path]; ok && path != "" {
			return
		}
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
