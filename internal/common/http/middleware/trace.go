package middleware

import (
	"context"
	"strings"

	"codejudge/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	TraceIDHeader   = "X-Trace-Id"
	RequestIDHeader = "X-Request-Id"
	UserIDHeader    = "X-User-Id"
)

// TraceContextConfig controls how trace/request/user id are extracted and written.
type TraceContextConfig struct {
	// AllowUserIDHeader trusts the X-User-Id header set by the upstream gateway.
	AllowUserIDHeader bool
	WriteUserIDHeader bool
}

// TraceContextMiddleware ensures trace/request/user id are in context and response headers.
func TraceContextMiddleware() gin.HandlerFunc {
	return TraceContextMiddlewareWithConfig(TraceContextConfig{
		AllowUserIDHeader: true,
		WriteUserIDHeader: true,
	})
}

// TraceContextMiddlewareWithConfig is the configurable version of TraceContextMiddleware.
func TraceContextMiddlewareWithConfig(cfg TraceContextConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := headerOrNew(c, TraceIDHeader)
		bindValue(c, string(contextkey.TraceID), contextkey.TraceID, traceID)
		c.Writer.Header().Set(TraceIDHeader, traceID)

		requestID := headerOrNew(c, RequestIDHeader)
		bindValue(c, string(contextkey.RequestID), contextkey.RequestID, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)

		if cfg.AllowUserIDHeader {
			if userID := strings.TrimSpace(c.GetHeader(UserIDHeader)); userID != "" {
				bindValue(c, string(contextkey.UserID), contextkey.UserID, userID)
				if cfg.WriteUserIDHeader {
					c.Writer.Header().Set(UserIDHeader, userID)
				}
			}
		}

		c.Next()
	}
}

// UserID returns the caller identity bound by TraceContextMiddleware.
func UserID(c *gin.Context) string {
	return c.GetString(string(contextkey.UserID))
}

func headerOrNew(c *gin.Context, header string) string {
	if v := strings.TrimSpace(c.GetHeader(header)); v != "" {
		return v
	}
	return uuid.NewString()
}

func bindValue(c *gin.Context, ginKey string, ctxKey interface{}, value string) {
	c.Set(ginKey, value)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey, value))
}
