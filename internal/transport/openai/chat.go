package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrec/internal/domain"
	"github.com/kailas-cloud/healthrec/internal/metrics"
)

// Chat invokes chat completions via the OpenAI-compatible API.
type Chat struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewChat creates an OpenAI-compatible chat completion client.
func NewChat(cfg *Config) *Chat {
	return &Chat{
		client: newClient(cfg.APIKey, cfg.BaseURL),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Complete sends the conversation and returns the text of the first choice.
// maxTokens of 0 leaves the provider default in place. All failures wrap
// domain.ErrClassificationFailed for transport error mapping.
func (c *Chat) Complete(ctx context.Context, messages []domain.ChatMessage, maxTokens int, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: temperature,
	}
	if maxTokens > 0 {
		req.MaxTokens = maxTokens
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.ChatRequestDuration.WithLabelValues(c.model, "error").Observe(duration.Seconds())
		return "", parseAPIError("chat", err, domain.ErrClassificationFailed)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.ChatRequestDuration.WithLabelValues(c.model, "error").Observe(duration.Seconds())
		return "", fmt.Errorf("empty chat completion response: %w", domain.ErrClassificationFailed)
	}

	metrics.ChatRequestDuration.WithLabelValues(c.model, "success").Observe(duration.Seconds())
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []domain.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
