package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uber-go/tally"
)

const reportInterval = time.Second

// NewRootScope creates the root metrics scope of a service. Metrics are kept in
// process until a reporter is configured.
func NewRootScope(prefix string, tags map[string]string) (tally.Scope, io.Closer) {
	return tally.NewRootScope(tally.ScopeOptions{
		Prefix:   prefix,
		Tags:     tags,
		Reporter: tally.NullStatsReporter,
	}, reportInterval)
}

// GinMiddleware counts requests and records their latency tagged by the route
// template, the method and the status class.
func GinMiddleware(scope tally.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		tagged := scope.Tagged(map[string]string{
			"route":  route,
			"method": c.Request.Method,
			"status": statusClass(c.Writer.Status()),
		})
		tagged.Counter("requests").Inc(1)
		tagged.Timer("latency").Record(time.Since(start))
	}
}

// RecordUpload counts the files and bytes written by one upload request.
func RecordUpload(scope tally.Scope, driver string, files int, bytes int64) {
	tagged := scope.Tagged(map[string]string{"driver": driver})
	tagged.Counter("uploaded_files").Inc(int64(files))
	tagged.Counter("uploaded_bytes").Inc(bytes)
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}
