package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"shop_back_end/internal/metrics"
)

func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.Requests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(route, method).Observe(float64(time.Since(start).Microseconds()) / 1000)
	}
}
