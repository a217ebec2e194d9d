package rerank

import (
	"context"

	"github.com/kailas-cloud/healthrec/internal/domain"
)

// ChatCompleter invokes a chat completion model and returns the text of the
// first choice.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []domain.ChatMessage, maxTokens int, temperature float32) (string, error)
}
