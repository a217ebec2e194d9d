// Package recommend orchestrates the recommendation pipeline: retrieval,
// optional listwise reranking, geo-aware ranking, radius filtering,
// deduplication, context assembly and the final classification call.
package recommend

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrec/internal/domain"
	"github.com/kailas-cloud/healthrec/internal/metrics"
	"github.com/kailas-cloud/healthrec/internal/usecase/dedup"
	"github.com/kailas-cloud/healthrec/internal/usecase/ranking"
)

// Config holds the pipeline parameters.
type Config struct {
	// TopK is the number of documents retrieved for a plain query.
	TopK int
	// RetrievalK is the pool size retrieved when reranking is requested.
	RetrievalK int
	// MaxContextWords bounds each document's contribution to the
	// classification context.
	MaxContextWords int
	// MaxTokens bounds the classification completion.
	MaxTokens int
	// DedupStrategy selects the duplicate survivor.
	DedupStrategy dedup.Strategy
}

// DefaultConfig returns the standard pipeline parameters.
func DefaultConfig() Config {
	return Config{
		TopK:            5,
		RetrievalK:      20,
		MaxContextWords: 300,
		MaxTokens:       500,
		DedupStrategy:   dedup.First,
	}
}

// Service is the recommendation orchestrator.
type Service struct {
	retriever Retriever
	reranker  Reranker
	ranker    *ranking.Engine
	deduper   *dedup.Engine
	chat      ChatCompleter
	cfg       Config
	logger    *zap.Logger
}

// New creates the orchestrator. The ranking and deduplication engines are
// in-process and deterministic, so they are taken as concrete types.
func New(
	retriever Retriever,
	reranker Reranker,
	ranker *ranking.Engine,
	deduper *dedup.Engine,
	chat ChatCompleter,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		retriever: retriever,
		reranker:  reranker,
		ranker:    ranker,
		deduper:   deduper,
		chat:      chat,
		cfg:       cfg,
		logger:    logger,
	}
}

// Recommend runs the full pipeline for a single query and returns the
// classified response. Reranking failures degrade silently to retrieval
// order; embedding, index and classification failures are surfaced.
func (s *Service) Recommend(ctx context.Context, q domain.Query) (domain.RecommendationResponse, error) {
	topK := s.cfg.TopK
	if q.Rerank {
		topK = s.cfg.RetrievalK
	}

	docs, err := s.retriever.Retrieve(ctx, q.Query, topK)
	if err != nil {
		return domain.RecommendationResponse{}, fmt.Errorf("retrieve: %w", err)
	}

	if q.Rerank {
		docs = s.reranker.Rerank(ctx, q.Query, docs, s.cfg.TopK)
	}

	docs = s.ranker.Rank(docs, q.Location())
	if radius := q.RadiusKm(); radius > 0 {
		docs = ranking.FilterByRadius(docs, radius)
	}

	docs, removed := s.deduper.Documents(docs, s.cfg.DedupStrategy)
	if removed > 0 {
		metrics.DuplicatesRemovedTotal.Add(float64(removed))
		s.logger.Debug("removed duplicate documents", zap.Int("count", removed))
	}

	contextText := s.buildContext(docs)
	if contextText == "" {
		// Nothing to recommend from; skip the model call entirely.
		metrics.RecommendationsTotal.WithLabelValues("no_services").Inc()
		return domain.NewNoServicesResponse(NoServicesMessage), nil
	}

	answer, err := s.chat.Complete(ctx,
		[]domain.ChatMessage{domain.UserMessage(recommendationPrompt(q.Query, contextText))},
		s.cfg.MaxTokens, 0)
	if err != nil {
		return domain.RecommendationResponse{}, fmt.Errorf("classification call: %w", err)
	}

	return classify(answer, servicesFrom(docs)), nil
}

// Retrieve exposes the retrieval stage on its own: the topK nearest
// documents for a query text, nearest first. Non-positive topK uses the
// configured default.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) ([]domain.ServiceDocument, error) {
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	return s.retriever.Retrieve(ctx, query, topK)
}

// Rerank retrieves a pool of retrievalK documents and reorders it listwise,
// returning the top outputK as normalized services. Non-positive parameters
// use the configured defaults; outputK is capped at retrievalK.
func (s *Service) Rerank(ctx context.Context, query string, retrievalK, outputK int) ([]domain.Service, error) {
	if retrievalK <= 0 {
		retrievalK = s.cfg.RetrievalK
	}
	if outputK <= 0 {
		outputK = s.cfg.TopK
	}
	if outputK > retrievalK {
		outputK = retrievalK
	}

	docs, err := s.retriever.Retrieve(ctx, query, retrievalK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	return servicesFrom(s.reranker.Rerank(ctx, query, docs, outputK)), nil
}

// buildContext concatenates the surviving documents' text, each bounded to
// MaxContextWords, joined by newlines.
func (s *Service) buildContext(docs []domain.ServiceDocument) string {
	parts := make([]string, 0, len(docs))
	for i := range docs {
		text := domain.TruncateWords(docs[i].Document, s.cfg.MaxContextWords)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

func servicesFrom(docs []domain.ServiceDocument) []domain.Service {
	services := make([]domain.Service, 0, len(docs))
	for i := range docs {
		services = append(services, domain.ServiceFromMetadata(docs[i].Metadata))
	}
	return services
}
