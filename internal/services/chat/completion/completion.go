// Package completion talks to the text-completion backend used for
// conversational replies.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/steelcopilot/chat-service/internal/domain/models"
)

const (
	// DefaultAPIVersion is the Azure OpenAI API version used when none is set.
	DefaultAPIVersion = "2023-05-15"
	// DefaultTimeout bounds a single completion round trip.
	DefaultTimeout = 60 * time.Second
)

var (
	// ErrEmptyCompletion is returned when the backend answered without choices.
	ErrEmptyCompletion = errors.New("completion backend returned no choices")
	// ErrUnconfigured is returned by Unconfigured.
	ErrUnconfigured = errors.New("completion backend is not configured")
)

// Completer produces the assistant text for a system prompt and ordered turns.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, turns []models.Turn, temperature float32, maxTokens int) (string, error)
}

// Func adapts a plain function to Completer.
type Func func(ctx context.Context, systemPrompt string, turns []models.Turn, temperature float32, maxTokens int) (string, error)

// Complete calls f.
func (f Func) Complete(ctx context.Context, systemPrompt string, turns []models.Turn, temperature float32, maxTokens int) (string, error) {
	return f(ctx, systemPrompt, turns, temperature, maxTokens)
}

// AzureConfig holds the Azure OpenAI deployment settings.
type AzureConfig struct {
	APIBase    string
	APIKey     string
	APIVersion string
	Deployment string
	Timeout    time.Duration
	// HTTPClient overrides the default client; its timeout wins over Timeout.
	HTTPClient *http.Client
}

// AzureClient is a Completer backed by an Azure OpenAI chat deployment.
type AzureClient struct {
	client     *openai.Client
	deployment string
}

// NewAzureClient creates a new Azure OpenAI completer.
func NewAzureClient(config *AzureConfig) (*AzureClient, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.APIBase == "" {
		return nil, fmt.Errorf("API base is required")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config.Deployment == "" {
		return nil, fmt.Errorf("deployment name is required")
	}

	apiVersion := config.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	openaiConfig := openai.DefaultAzureConfig(config.APIKey, strings.TrimSuffix(config.APIBase, "/"))
	openaiConfig.APIVersion = apiVersion
	deployment := config.Deployment
	openaiConfig.AzureModelMapperFunc = func(string) string {
		return deployment
	}
	if config.HTTPClient != nil {
		openaiConfig.HTTPClient = config.HTTPClient
	} else {
		openaiConfig.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &AzureClient{
		client:     openai.NewClientWithConfig(openaiConfig),
		deployment: deployment,
	}, nil
}

// Complete sends one chat completion request.
func (c *AzureClient) Complete(ctx context.Context, systemPrompt string, turns []models.Turn, temperature float32, maxTokens int) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, turn := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    roleFor(turn.Role),
			Content: turn.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.deployment,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", formatError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

func roleFor(role models.MessageRole) string {
	switch role {
	case models.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case models.RoleSystem:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}

func formatError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return fmt.Errorf("completion request failed: status code: %d, message: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return fmt.Errorf("completion request failed: status code: %d", apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("completion request failed: status code: %d: %w", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("completion request failed: %w", err)
}

// Static always answers with the same text. It stands in for the backend when
// no Azure credentials are configured.
type Static struct {
	Text string
}

// Complete returns s.Text.
func (s Static) Complete(ctx context.Context, _ string, _ []models.Turn, _ float32, _ int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Text, nil
}

// Unconfigured stands in for the backend when no credentials are set. Every
// call fails, so callers fall back to their own apology.
type Unconfigured struct{}

// Complete returns ErrUnconfigured.
func (Unconfigured) Complete(context.Context, string, []models.Turn, float32, int) (string, error) {
	return "", ErrUnconfigured
}
