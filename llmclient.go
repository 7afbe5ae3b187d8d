package quizme

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ChatCompleter is the slice of the go-openai client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// errMalformedResponse marks a reply that arrived but lacks the text we need.
var errMalformedResponse = errors.New("malformed completion response")

// NewOpenAIClient creates a client for any OpenAI-compatible endpoint.
// baseURL may be empty for the default OpenAI API.
func NewOpenAIClient(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return openai.NewClientWithConfig(cfg)
}

type completion struct {
	client     ChatCompleter
	model      string
	transcript *LLMLogger
}

// complete sends one system+user exchange and returns the first choice's
// text. There is no retry.
func (c completion) complete(ctx context.Context, module, system, user string, maxTokens int) (string, error) {
	c.transcript.LogLLMRequest(module, user)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: 0,
	})
	if err != nil {
		c.transcript.LogLLMFailure(module, err)
		return "", fmt.Errorf("%s request failed: %w", module, err)
	}

	if len(resp.Choices) == 0 {
		c.transcript.LogLLMFailure(module, errMalformedResponse)
		return "", fmt.Errorf("%w: no choices", errMalformedResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		c.transcript.LogLLMFailure(module, errMalformedResponse)
		return "", fmt.Errorf("%w: empty message content", errMalformedResponse)
	}

	c.transcript.LogLLMResponse(module, text)
	return text, nil
}
