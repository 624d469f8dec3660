package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// ContextKeyParticipant is the context key for the acting participant name.
	ContextKeyParticipant = "participant"
	// ContextKeyRequestID is the context key for the request id.
	ContextKeyRequestID = "request_id"

	// HeaderRequestID carries the request id in both directions.
	HeaderRequestID = "X-Request-ID"
)

// IdentityMiddleware requires the identity header and stores its value as the
// acting participant. The name is taken at face value; there is no credential check.
func IdentityMiddleware(header string, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.GetHeader(header))
		if name == "" {
			logger.Debug().Str("header", header).Msg("missing identity header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing " + header + " header"})
			return
		}

		c.Set(ContextKeyParticipant, name)
		c.Next()
	}
}

// RequestIDMiddleware propagates X-Request-ID or assigns a new one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("request_id", c.GetString(ContextKeyRequestID)).
			Msg("http request")
	}
}

// participantFromContext returns the name set by IdentityMiddleware.
func participantFromContext(c *gin.Context) (string, bool) {
	name := c.GetString(ContextKeyParticipant)
	return name, name != ""
}
