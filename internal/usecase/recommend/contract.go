package recommend

import (
	"context"

	"github.com/kailas-cloud/healthrec/internal/domain"
)

// Retriever fetches the documents nearest to a query text.
type Retriever interface {
	Retrieve(ctx context.Context, query string, nResults int) ([]domain.ServiceDocument, error)
}

// Reranker reorders a retrieval pool listwise and truncates to outputK.
// Reranking never fails hard; on model failure implementations return the
// original order.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []domain.ServiceDocument, outputK int) []domain.ServiceDocument
}

// ChatCompleter invokes a chat completion model and returns the text of the
// first choice.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []domain.ChatMessage, maxTokens int, temperature float32) (string, error)
}
