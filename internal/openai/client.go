// Package openai provides a thin wrapper around the official OpenAI Go SDK
// for structured-JSON chat completions.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/time/rate"
)

var (
	// ErrEmptyPrompt is returned when Complete is called with an empty user prompt.
	ErrEmptyPrompt = errors.New("openai: user prompt is empty")
	// ErrNoChoiceInResponse is returned when the API response contains no choices.
	ErrNoChoiceInResponse = errors.New("openai: no choice in response")
)

const (
	defaultModel = "gpt-4o-mini"
	// defaultRequestsPerSecond caps completion calls across all correction jobs.
	defaultRequestsPerSecond = 2
	defaultBurst             = 4
)

// Client calls the OpenAI chat completions API via the official SDK.
type Client struct {
	sdk     openaisdk.Client
	model   string
	limiter *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithModel sets the completion model (default: gpt-4o-mini).
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithRequestsPerSecond sets the client-side rate limit on completion calls.
func WithRequestsPerSecond(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), defaultBurst)
		}
	}
}

// NewClient creates an OpenAI completions client using the official SDK.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		sdk:     openaisdk.NewClient(option.WithAPIKey(apiKey)),
		model:   defaultModel,
		limiter: rate.NewLimiter(defaultRequestsPerSecond, defaultBurst),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Complete sends a system + user prompt pair and returns the raw response
// text. The request mandates a JSON-object response; the caller still treats
// the output as untrusted free text and validates it before use.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		return "", ErrEmptyPrompt
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("openai rate limit wait: %w", err)
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(systemPrompt),
			openaisdk.UserMessage(userPrompt),
		},
		ResponseFormat: openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoiceInResponse
	}

	return resp.Choices[0].Message.Content, nil
}
