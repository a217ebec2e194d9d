package retrieve

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrec/internal/domain"
)

// Service embeds a query and fetches its nearest service documents.
type Service struct {
	embed  Embedder
	index  Index
	logger *zap.Logger
}

// New creates a retriever.
func New(embed Embedder, index Index, logger *zap.Logger) *Service {
	return &Service{embed: embed, index: index, logger: logger}
}

// Retrieve returns the nResults documents nearest to the query text,
// nearest first. An empty index result is a valid outcome and yields an
// empty slice; only collaborator failures return an error.
func (s *Service) Retrieve(ctx context.Context, query string, nResults int) ([]domain.ServiceDocument, error) {
	embedding, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	res, err := s.index.Query(ctx, embedding, nResults)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	docs := ParseResult(res)
	s.logger.Debug("retrieved documents",
		zap.Int("requested", nResults),
		zap.Int("returned", len(docs)),
	)
	return docs, nil
}

// ParseResult zips the index's parallel arrays into documents, preserving
// nearest-first order. Slices of unequal length are truncated to the
// shortest; missing arrays produce an empty list rather than an error.
func ParseResult(res domain.IndexResult) []domain.ServiceDocument {
	n := len(res.IDs)
	if len(res.Documents) < n {
		n = len(res.Documents)
	}
	if len(res.Metadatas) < n {
		n = len(res.Metadatas)
	}
	if len(res.Distances) < n {
		n = len(res.Distances)
	}

	docs := make([]domain.ServiceDocument, 0, n)
	for i := 0; i < n; i++ {
		metadata := res.Metadatas[i]
		if metadata == nil {
			metadata = map[string]any{}
		}
		docs = append(docs, domain.ServiceDocument{
			ID:             res.IDs[i],
			Document:       res.Documents[i],
			Metadata:       metadata,
			RelevancyScore: res.Distances[i],
		})
	}
	return docs
}
