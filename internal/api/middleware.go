package api

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/kartikbazzad/bunbase/bunstore/pkg/errors"
	"github.com/kartikbazzad/bunbase/bunstore/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with an id, taken from X-Request-ID when the
// client sends one, and stores it on the request context for logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logger.ContextWithTraceID(c.Request.Context(), id))
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log := logger.WithTraceID(c.Request.Context(), logger.Get())
		log.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// BearerAuth requires Authorization: Bearer <secret>. A missing token is 401,
// a wrong one 403.
func BearerAuth(secret string) gin.HandlerFunc {
	const prefix = "Bearer "
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, prefix) || strings.TrimSpace(header[len(prefix):]) == "" {
			renderError(c, apperrors.Unauthorized("unauthorized"))
			return
		}
		token := strings.TrimSpace(header[len(prefix):])
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			logger.Warn("Rejected bearer token", "trace_id", logger.TraceID(c.Request.Context()), "ip", c.ClientIP())
			renderError(c, apperrors.Forbidden("forbidden"))
			return
		}
		c.Next()
	}
}
