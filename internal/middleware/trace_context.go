package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/sarrietav-dev/ai-backlog/internal/platform/ctxutil"
)

// AttachTraceContext stores the otel trace id and a per-request id on the
// request context and echoes both back as response headers.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		var traceID string
		if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
			traceID = span.SpanContext().TraceID().String()
		}

		td := &ctxutil.TraceData{TraceID: traceID, RequestID: requestID}
		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))

		if traceID != "" {
			c.Writer.Header().Set("X-Trace-Id", traceID)
		}
		c.Writer.Header().Set("X-Request-Id", requestID)
		c.Next()
	}
}
