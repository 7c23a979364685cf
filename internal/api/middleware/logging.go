package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"

	contextKeyRequestID = "request_id"
	contextKeyLogger    = "logger"
)

// LoggingMiddleware tags each request with an id and logs its outcome.
type LoggingMiddleware struct {
	logger zerolog.Logger
}

// NewLoggingMiddleware creates a LoggingMiddleware on the global logger.
func NewLoggingMiddleware() *LoggingMiddleware {
	return NewLoggingMiddlewareWithLogger(log.Logger)
}

// NewLoggingMiddlewareWithLogger creates a LoggingMiddleware with a custom logger.
func NewLoggingMiddlewareWithLogger(logger zerolog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// Logger returns a gin middleware that reuses the caller's X-Request-ID or
// issues a new one, stores a request-scoped logger and logs the completed
// request with the authenticated user and chat session.
func (m *LoggingMiddleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(contextKeyRequestID, requestID)
		c.Header(RequestIDHeader, requestID)

		requestLogger := m.logger.With().Str("request_id", requestID).Logger()
		c.Set(contextKeyLogger, requestLogger)

		c.Next()

		status := c.Writer.Status()
		event := requestLogger.Info()
		switch {
		case status >= 500:
			event = requestLogger.Error()
		case status >= 400:
			event = requestLogger.Warn()
		}

		if userID := c.GetString(ContextKeyUserID); userID != "" {
			event = event.Str("user_id", userID)
		}
		if sessionID := c.Param("sessionId"); sessionID != "" {
			event = event.Str("session_id", sessionID)
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("body_size", c.Writer.Size()).
			Msg("request completed")
	}
}

// GetRequestLogger retrieves the request-scoped logger from context.
func GetRequestLogger(c *gin.Context) zerolog.Logger {
	if logger, exists := c.Get(contextKeyLogger); exists {
		return logger.(zerolog.Logger)
	}
	return log.Logger
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(c *gin.Context) string {
	return c.GetString(contextKeyRequestID)
}
