package middleware_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/steelcopilot/chat-service/internal/api/middleware"
	domainerrors "github.com/steelcopilot/chat-service/internal/domain/errors"
	"github.com/steelcopilot/chat-service/internal/testutil"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "not found", err: domainerrors.NewNotFoundError("chat session", "s1"), status: http.StatusNotFound, code: domainerrors.ErrCodeNotFound},
		{name: "wrapped timeout", err: fmt.Errorf("reply: %w", domainerrors.NewTimeoutError("chat reply", nil)), status: http.StatusGatewayTimeout, code: domainerrors.ErrCodeTimeout},
		{name: "plain error", err: assert.AnError, status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := testutil.SetupTestRouter()
			router.GET("/fail", func(c *gin.Context) { middleware.HandleError(c, tt.err) })

			w := testutil.PerformRequest(router, http.MethodGet, "/fail", nil, nil)

			testutil.AssertStatusCode(t, tt.status, w)
			var body middleware.ErrorResponse
			testutil.ParseJSONResponse(t, w, &body)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestErrorMiddleware_Recovery(t *testing.T) {
	router := testutil.SetupTestRouter()
	router.Use(middleware.NewErrorMiddleware().Recovery())
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := testutil.PerformRequest(router, http.MethodGet, "/panic", nil, nil)

	testutil.AssertStatusCode(t, http.StatusInternalServerError, w)
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	logging := middleware.NewLoggingMiddleware()
	router := testutil.SetupTestRouter()
	router.Use(logging.Logger())
	router.GET("/id", func(c *gin.Context) { c.String(http.StatusOK, middleware.GetRequestID(c)) })

	generated := testutil.PerformRequest(router, http.MethodGet, "/id", nil, nil)
	forwarded := testutil.PerformRequest(router, http.MethodGet, "/id", nil, map[string]string{"X-Request-ID": "req-1"})

	assert.Len(t, generated.Body.String(), 36)
	assert.Equal(t, generated.Body.String(), generated.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-1", forwarded.Body.String())
}
