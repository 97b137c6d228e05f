package monitoring

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection. Requests are
// labelled by matched route so path parameters do not explode cardinality.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start), int64(c.Writer.Size()))
	}
}

// Timer measures a workspace operation.
type Timer struct {
	start   time.Time
	metrics *Metrics
	op      string
}

// NewTimer starts timing op. A nil metrics makes the timer a no-op.
func NewTimer(metrics *Metrics, op string) *Timer {
	return &Timer{start: time.Now(), metrics: metrics, op: op}
}

// Stop records the duration under result.
func (t *Timer) Stop(result string) {
	if t.metrics == nil {
		return
	}
	t.metrics.RecordWorkspaceOp(t.op, result, time.Since(t.start))
}
