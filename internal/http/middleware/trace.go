package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// TraceID echoes the request's trace id in headerName so callers can quote it.
// It must run after the otelgin middleware.
func TraceID(headerName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() && headerName != "" {
			c.Header(headerName, sc.TraceID().String())
		}
		c.Next()
	}
}
