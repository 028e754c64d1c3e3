package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// Route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Timer measures one session creation
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics) *Timer {
	return &Timer{start: time.Now(), metrics: metrics}
}

// Creation stops the timer and records the creation outcome
func (t *Timer) Creation(outcome string) time.Duration {
	d := time.Since(t.start)
	t.metrics.RecordCreation(outcome, d)
	return d
}

// Media stops the timer and records a media relay outcome
func (t *Timer) Media(outcome string) time.Duration {
	d := time.Since(t.start)
	t.metrics.RecordMedia(outcome, d)
	return d
}
