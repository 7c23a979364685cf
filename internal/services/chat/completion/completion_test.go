package completion_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steelcopilot/chat-service/internal/domain/models"
	"github.com/steelcopilot/chat-service/internal/services/chat/completion"
)

type capturedRequest struct {
	Path       string
	APIVersion string
	APIKey     string
	Body       map[string]interface{}
}

func newAzureServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		captured.APIVersion = r.URL.Query().Get("api-version")
		captured.APIKey = r.Header.Get("api-key")
		_ = json.NewDecoder(r.Body).Decode(&captured.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func TestNewAzureClient_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config *completion.AzureConfig
		errMsg string
	}{
		{name: "nil config", config: nil, errMsg: "config is required"},
		{name: "missing base", config: &completion.AzureConfig{APIKey: "k", Deployment: "d"}, errMsg: "API base is required"},
		{name: "missing key", config: &completion.AzureConfig{APIBase: "http://x", Deployment: "d"}, errMsg: "API key is required"},
		{name: "missing deployment", config: &completion.AzureConfig{APIBase: "http://x", APIKey: "k"}, errMsg: "deployment name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := completion.NewAzureClient(tt.config)

			require.Error(t, err)
			assert.Nil(t, client)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestAzureClient_Complete_Success(t *testing.T) {
	server, captured := newAzureServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "Rolling mills run best at steady load."}, "finish_reason": "stop"}]
	}`)

	client, err := completion.NewAzureClient(&completion.AzureConfig{
		APIBase:    server.URL + "/",
		APIKey:     "secret",
		Deployment: "gpt-4",
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)

	turns := []models.Turn{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
		{Role: models.RoleUser, Content: "how do mills work?"},
	}
	text, err := client.Complete(context.Background(), "You are a co-pilot.", turns, 0.7, 800)

	require.NoError(t, err)
	assert.Equal(t, "Rolling mills run best at steady load.", text)
	assert.Equal(t, "/openai/deployments/gpt-4/chat/completions", captured.Path)
	assert.Equal(t, completion.DefaultAPIVersion, captured.APIVersion)
	assert.Equal(t, "secret", captured.APIKey)
	assert.EqualValues(t, 800, captured.Body["max_tokens"])
	assert.InDelta(t, 0.7, captured.Body["temperature"], 0.001)

	messages, ok := captured.Body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 4)
	first := messages[0].(map[string]interface{})
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "You are a co-pilot.", first["content"])
	second := messages[2].(map[string]interface{})
	assert.Equal(t, "assistant", second["role"])
}

func TestAzureClient_Complete_Non2xx(t *testing.T) {
	server, _ := newAzureServer(t, http.StatusInternalServerError, `{"error": {"message": "deployment overloaded", "type": "server_error"}}`)

	client, err := completion.NewAzureClient(&completion.AzureConfig{
		APIBase:    server.URL,
		APIKey:     "secret",
		Deployment: "gpt-4",
	})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "", nil, 0.7, 800)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "completion request failed")
	assert.Contains(t, err.Error(), "500")
}

func TestAzureClient_Complete_NoChoices(t *testing.T) {
	server, _ := newAzureServer(t, http.StatusOK, `{"id": "x", "choices": []}`)

	client, err := completion.NewAzureClient(&completion.AzureConfig{
		APIBase:    server.URL,
		APIKey:     "secret",
		Deployment: "gpt-4",
	})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "", nil, 0.7, 800)

	assert.ErrorIs(t, err, completion.ErrEmptyCompletion)
}

func TestAzureClient_Complete_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := completion.NewAzureClient(&completion.AzureConfig{
		APIBase:    url,
		APIKey:     "secret",
		Deployment: "gpt-4",
		Timeout:    time.Second,
	})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "", nil, 0.7, 800)

	assert.Error(t, err)
}

func TestStatic_Complete(t *testing.T) {
	s := completion.Static{Text: "canned"}

	text, err := s.Complete(context.Background(), "", nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "canned", text)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Complete(ctx, "", nil, 0, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnconfigured_Complete(t *testing.T) {
	text, err := completion.Unconfigured{}.Complete(context.Background(), "prompt", nil, 0.7, 800)

	assert.ErrorIs(t, err, completion.ErrUnconfigured)
	assert.Empty(t, text)
}

func TestFunc_Complete(t *testing.T) {
	var gotPrompt string
	f := completion.Func(func(_ context.Context, systemPrompt string, _ []models.Turn, _ float32, _ int) (string, error) {
		gotPrompt = systemPrompt
		return "ok", nil
	})

	text, err := f.Complete(context.Background(), "prompt", nil, 0.7, 800)

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, "prompt", gotPrompt)
}
