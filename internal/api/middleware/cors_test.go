package middleware_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/steelcopilot/chat-service/internal/api/middleware"
	"github.com/steelcopilot/chat-service/internal/testutil"
)

func setupCORSRouter(origins ...string) *gin.Engine {
	router := testutil.SetupTestRouter()
	router.Use(middleware.NewCORSMiddleware(middleware.DefaultCORSConfig(origins...)))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestCORS_AllowedOrigin(t *testing.T) {
	router := setupCORSRouter("http://localhost:3000")

	w := testutil.PerformRequest(router, http.MethodGet, "/ping", nil, map[string]string{
		"Origin": "http://localhost:3000",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_UnknownOrigin(t *testing.T) {
	router := setupCORSRouter("http://localhost:3000")

	w := testutil.PerformRequest(router, http.MethodGet, "/ping", nil, map[string]string{
		"Origin": "http://evil.example",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Wildcard(t *testing.T) {
	router := setupCORSRouter("*")

	w := testutil.PerformRequest(router, http.MethodGet, "/ping", nil, map[string]string{
		"Origin": "http://any.example",
	})

	assert.Equal(t, "http://any.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	router := setupCORSRouter("*")

	w := testutil.PerformRequest(router, http.MethodOptions, "/ping", nil, map[string]string{
		"Origin": "http://any.example",
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
}
