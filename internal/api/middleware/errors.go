package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	domainerrors "github.com/steelcopilot/chat-service/internal/domain/errors"
)

// ErrorMiddleware turns panics into INTERNAL_ERROR responses.
type ErrorMiddleware struct{}

// NewErrorMiddleware creates a new ErrorMiddleware.
func NewErrorMiddleware() *ErrorMiddleware {
	return &ErrorMiddleware{}
}

// Recovery returns a gin middleware that recovers from panics.
func (m *ErrorMiddleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				log := GetRequestLogger(c)
				log.Error().
					Interface("panic", recovered).
					Bytes("stack", debug.Stack()).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")

				respond(c, http.StatusInternalServerError, domainerrors.ErrCodeInternal, "internal server error", "")
			}
		}()
		c.Next()
	}
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HandleError renders err and aborts the request. Domain errors keep their
// status and code; anything else becomes a 500 whose cause is only logged.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	log := GetRequestLogger(c)
	domainErr, ok := domainerrors.GetDomainError(err)
	if !ok {
		log.Error().Err(err).Msg("unhandled error")
		respond(c, http.StatusInternalServerError, domainerrors.ErrCodeInternal, "internal server error", "")
		return
	}

	switch {
	case domainErr.HTTPStatus >= http.StatusInternalServerError:
		log.Error().Err(err).Str("code", domainErr.Code).Msg("request failed")
	case domainErr.Code == domainerrors.ErrCodeTimeout:
		log.Warn().Err(err).Msg("request timed out")
	}

	respond(c, domainErr.HTTPStatus, domainErr.Code, domainErr.Message, domainErr.Details)
}

// NotFound returns a 404 handler.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, http.StatusNotFound, domainerrors.ErrCodeNotFound, "resource not found", c.Request.URL.Path)
	}
}

// MethodNotAllowed returns a 405 handler.
func MethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", c.Request.Method)
	}
}

func respond(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}
