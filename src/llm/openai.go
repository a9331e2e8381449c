package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/fernhealth/fertility-support-agent/src/config"
)

// OpenAIClient calls an OpenAI-compatible chat completion API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIClient constructs a client from config. apiKey is resolved by
// the caller (from the environment variable the config names). A non-empty
// cfg.Endpoint overrides the provider's default base URL, which lets the
// agent talk to proxies and self-hosted compatible endpoints.
func NewOpenAIClient(cfg config.LLMConfig, apiKey string) *OpenAIClient {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}
	clientCfg.HTTPClient = &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: *cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Invoke sends the message list as one chat completion request and
// returns the generated text. Transport and HTTP failures come back as
// errors from the underlying client; a successful call with no content
// returns ErrEmptyResponse.
func (c *OpenAIClient) Invoke(ctx context.Context, messages []Message) (string, error) {
	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		switch role {
		case openai.ChatMessageRoleSystem, openai.ChatMessageRoleUser, openai.ChatMessageRoleAssistant:
		default:
			// coerce anything unknown to user
			role = openai.ChatMessageRoleUser
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    oaMsgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices: %w", ErrEmptyResponse)
	}
	if resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty message content: %w", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
