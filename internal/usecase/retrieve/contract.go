package retrieve

import (
	"context"

	"github.com/kailas-cloud/healthrec/internal/domain"
)

// Embedder vectorizes text into an embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the vector index collaborator.
type Index interface {
	Query(ctx context.Context, embedding []float32, nResults int) (domain.IndexResult, error)
}
