package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/steelcopilot/chat-service/internal/api/handlers"
	"github.com/steelcopilot/chat-service/internal/services/chat"
	"github.com/steelcopilot/chat-service/internal/services/chat/queue"
	"github.com/steelcopilot/chat-service/internal/testutil"
	"github.com/steelcopilot/chat-service/internal/testutil/mocks"
)

func setupHealth(cacheErr, docErr error) (*handlers.HealthHandler, *mocks.MockReplier) {
	cache := &mocks.MockPinger{}
	cache.On("Ping", mock.Anything).Return(cacheErr)
	docDB := &mocks.MockPinger{}
	docDB.On("Ping", mock.Anything).Return(docErr)
	pipeline := &mocks.MockReplier{}
	pipeline.On("Stats").Return(chat.Stats{Sessions: 2, Queue: queue.Stats{Completed: 5}})

	return handlers.NewHealthHandler(map[string]handlers.Pinger{
		"cache": cache,
		"docdb": docDB,
	}, pipeline), pipeline
}

func TestHealthHandler_Health_AllHealthy(t *testing.T) {
	handler, _ := setupHealth(nil, nil)
	router := testutil.SetupTestRouter()
	router.GET("/health", handler.Health)

	w := testutil.PerformRequest(router, http.MethodGet, "/health", nil, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)
	var response handlers.HealthResponse
	testutil.ParseJSONResponse(t, w, &response)
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "healthy", response.Components["cache"])
	assert.Equal(t, "healthy", response.Components["docdb"])
	require.NotNil(t, response.Pipeline)
	assert.Equal(t, 2, response.Pipeline.Sessions)
	assert.Equal(t, int64(5), response.Pipeline.Queue.Completed)
}

func TestHealthHandler_Health_CacheUnhealthy(t *testing.T) {
	handler, _ := setupHealth(assert.AnError, nil)
	router := testutil.SetupTestRouter()
	router.GET("/health", handler.Health)

	w := testutil.PerformRequest(router, http.MethodGet, "/health", nil, nil)

	testutil.AssertStatusCode(t, http.StatusServiceUnavailable, w)
	var response handlers.HealthResponse
	testutil.ParseJSONResponse(t, w, &response)
	assert.Equal(t, "unhealthy", response.Status)
	assert.Equal(t, "unhealthy", response.Components["cache"])
	assert.Equal(t, "healthy", response.Components["docdb"])
}

func TestHealthHandler_Health_NilProbesSkipped(t *testing.T) {
	handler := handlers.NewHealthHandler(map[string]handlers.Pinger{"cache": nil}, nil)
	router := testutil.SetupTestRouter()
	router.GET("/health", handler.Health)

	w := testutil.PerformRequest(router, http.MethodGet, "/health", nil, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)
	var response handlers.HealthResponse
	testutil.ParseJSONResponse(t, w, &response)
	assert.NotContains(t, response.Components, "cache")
	assert.Nil(t, response.Pipeline)
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name   string
		docErr error
		status int
		reason string
	}{
		{name: "all ready", status: http.StatusOK},
		{name: "docdb down", docErr: assert.AnError, status: http.StatusServiceUnavailable, reason: "docdb unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := setupHealth(nil, tt.docErr)
			router := testutil.SetupTestRouter()
			router.GET("/ready", handler.Ready)

			w := testutil.PerformRequest(router, http.MethodGet, "/ready", nil, nil)

			testutil.AssertStatusCode(t, tt.status, w)
			var response map[string]string
			testutil.ParseJSONResponse(t, w, &response)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, response["reason"])
			} else {
				assert.Equal(t, "ready", response["status"])
			}
		})
	}
}

func TestHealthHandler_Live(t *testing.T) {
	handler := handlers.NewHealthHandler(nil, nil)
	router := testutil.SetupTestRouter()
	router.GET("/live", handler.Live)

	w := testutil.PerformRequest(router, http.MethodGet, "/live", nil, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)
	var response map[string]string
	testutil.ParseJSONResponse(t, w, &response)
	assert.Equal(t, "alive", response["status"])
}
