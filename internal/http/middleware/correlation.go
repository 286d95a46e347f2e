package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/neurobridge-mastery/internal/platform/ctxutil"
)

const (
	headerRequestID = "X-Request-Id"
	headerTraceID   = "X-Trace-Id"

	maxRequestIDLen = 128
)

// Correlate stamps each request with a request id and the active trace id.
// A caller-supplied X-Request-Id is kept when it is short enough; otherwise one
// is generated. Both ids are echoed as response headers and land on the
// request log and on mastery events published while serving the request.
func Correlate() gin.HandlerFunc {
	return func(c *gin.Context) {
		corr := ctxutil.Correlation{
			Source:    ctxutil.SourceHTTP,
			RequestID: strings.TrimSpace(c.GetHeader(headerRequestID)),
		}
		if corr.RequestID == "" || len(corr.RequestID) > maxRequestIDLen {
			corr.RequestID = uuid.NewString()
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			corr.TraceID = sc.TraceID().String()
			c.Header(headerTraceID, corr.TraceID)
		}
		c.Header(headerRequestID, corr.RequestID)
		c.Request = c.Request.WithContext(ctxutil.WithCorrelation(c.Request.Context(), corr))
		c.Next()
	}
}
