package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/blog-cms/internal/metrics"
)

// Metrics records latency and count per RPC procedure. Requests that match
// no route are folded into "unknown" to keep label cardinality bounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.RPCInFlight.Inc()
		start := time.Now()
		defer metrics.RPCInFlight.Dec()

		c.Next()

		procedure := procedureName(c.FullPath())
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		metrics.RPCDuration.WithLabelValues(procedure, method, status).Observe(time.Since(start).Seconds())
		metrics.RPCRequestsTotal.WithLabelValues(procedure, method, status).Inc()
	}
}

func procedureName(route string) string {
	if route == "" {
		return "unknown"
	}
	if i := strings.LastIndexByte(route, '/'); i >= 0 && i < len(route)-1 {
		return route[i+1:]
	}
	return route
}
