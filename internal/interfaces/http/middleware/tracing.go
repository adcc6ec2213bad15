package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request, named after the route pattern.
// It is a pass-through when tracing is disabled.
func Tracing(enabled bool, serviceName string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	)
}

// SpanIdentity tags the request span with the request id and the
// authenticated tenant. Mount it after JWTAuth.
func SpanIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			attrs := []attribute.KeyValue{attribute.String("request_id", GetRequestID(c))}
			if claims := GetJWTClaims(c); claims != nil {
				attrs = append(attrs,
					attribute.String("tenant_id", claims.TenantID),
					attribute.String("user_id", claims.UserID),
				)
			}
			span.SetAttributes(attrs...)
		}
		c.Next()
	}
}
