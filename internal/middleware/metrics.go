package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/memo-edu/memo-api/internal/service"
)

// Metrics records request count, latency and concurrency per route template. Scrapes of
// scrapePath are passed through unrecorded.
func Metrics(metricsSvc *service.MetricsService, scrapePath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || (scrapePath != "" && c.Request.URL.Path == scrapePath) {
			c.Next()
			return
		}

		done := metricsSvc.TrackInFlight()
		start := time.Now()
		c.Next()
		done()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
