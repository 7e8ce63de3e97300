package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	domain "github.com/labelscan/labelscan/internal/domain/analysis"
	"github.com/labelscan/labelscan/internal/infra/ai/prompt"
)

const maxTokens = 1024

const defaultTimeout = 60 * time.Second

// Client issues one chat-completion call per Analyze invocation under a
// bounded deadline. Retries belong to the caller, not here.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{api: openai.NewClientWithConfig(cfg), model: model, timeout: timeout}
}

func (c *Client) Analyze(ctx context.Context, inputText string) (string, error) {
	model := c.model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := c.timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(inputText)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrMalformedResult)
	}
	return resp.Choices[0].Message.Content, nil
}

// classify remaps the provider's wire-level error taxonomy onto the domain
// sentinels. This is the only place that knows what the provider's failures
// look like.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() == context.Canceled {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: model call exceeded deadline", domain.ErrTimeout)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", domain.ErrQuotaExceeded, err)
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: %v", domain.ErrMisconfigured, err)
		case apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: provider returned %d", domain.ErrUnavailable, apiErr.HTTPStatusCode)
		}
		return fmt.Errorf("model request rejected: %w", err)
	}

	// Anything below the HTTP layer (dial, DNS, TLS, reset) means the
	// provider could not be reached at all.
	return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
}
