// Package rerank reorders a retrieval pool with a listwise LLM ranking pass
// (RankGPT style): the model sees every candidate in one conversation and
// answers with a total ordering. Reranking is best-effort; any model failure
// falls back to the original retrieval order.
package rerank

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrec/internal/domain"
	"github.com/kailas-cloud/healthrec/internal/metrics"
)

// Config holds the reranking parameters.
type Config struct {
	// RetrievalK is the candidate pool size fetched before reranking.
	RetrievalK int
	// OutputK is the number of documents returned after reranking.
	OutputK int
	// MaxContentWords bounds each candidate summary in the prompt.
	MaxContentWords int
}

// DefaultConfig returns the standard reranking parameters.
func DefaultConfig() Config {
	return Config{RetrievalK: 20, OutputK: 5, MaxContentWords: 150}
}

// Validate checks the parameter ranges.
func (c Config) Validate() error {
	if c.RetrievalK < 1 {
		return fmt.Errorf("retrieval_k must be at least 1, got %d", c.RetrievalK)
	}
	if c.OutputK < 1 || c.OutputK > c.RetrievalK {
		return fmt.Errorf("output_k must be in [1, %d], got %d", c.RetrievalK, c.OutputK)
	}
	if c.MaxContentWords < 1 {
		return fmt.Errorf("max_content_words must be at least 1, got %d", c.MaxContentWords)
	}
	return nil
}

// Service is the listwise reranking engine.
type Service struct {
	chat   ChatCompleter
	cfg    Config
	logger *zap.Logger
}

// New creates a reranking engine.
func New(chat ChatCompleter, cfg Config, logger *zap.Logger) *Service {
	return &Service{chat: chat, cfg: cfg, logger: logger}
}

// Rerank reorders docs by model-judged relevance to the query and truncates
// to outputK (non-positive outputK uses the configured default). The result
// is always a subset of the input in some order: the model can neither
// invent nor duplicate candidates. On model failure the original order is
// returned, truncated to outputK.
func (s *Service) Rerank(ctx context.Context, query string, docs []domain.ServiceDocument, outputK int) []domain.ServiceDocument {
	if outputK <= 0 {
		outputK = s.cfg.OutputK
	}
	if len(docs) == 0 {
		return docs
	}

	response, err := s.chat.Complete(ctx, s.rankingConversation(query, docs), 0, 0)
	if err != nil || strings.TrimSpace(response) == "" {
		metrics.RerankFallbacksTotal.Inc()
		s.logger.Warn("reranking fell back to retrieval order",
			zap.Int("pool_size", len(docs)),
			zap.Error(err))
		return truncate(docs, outputK)
	}

	order := parseRanking(response, len(docs))
	reranked := make([]domain.ServiceDocument, 0, len(order))
	for _, idx := range order {
		reranked = append(reranked, docs[idx])
	}
	return truncate(reranked, outputK)
}

// rankingConversation builds the multi-turn listwise prompt: task framing,
// one turn per candidate with a synthetic assistant acknowledgement, then
// the ranking request.
func (s *Service) rankingConversation(query string, docs []domain.ServiceDocument) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, 2*len(docs)+4)
	messages = append(messages,
		domain.SystemMessage("You are a health service recommender that ranks services based on "+
			"their relevance to a user's query. Respond only with the ranked service numbers "+
			"in descending order of relevance, separated by '>'."),
		domain.UserMessage(fmt.Sprintf("I will provide you with %d services, each indicated by "+
			"number identifier [].\nRank these services based on their relevance to query: %s",
			len(docs), query)),
		domain.AssistantMessage("I'll rank the services. Please provide them."),
	)

	for i := range docs {
		messages = append(messages,
			domain.UserMessage(fmt.Sprintf("[%d] %s", i+1, s.candidateSummary(&docs[i]))),
			domain.AssistantMessage(fmt.Sprintf("Received service [%d].", i+1)),
		)
	}

	messages = append(messages, domain.UserMessage(fmt.Sprintf(
		"For the query %q, rank the services from most to least relevant.\n"+
			"Respond only with service numbers in the format: [X] > [Y] > [Z]", query)))
	return messages
}

// candidateSummary condenses a document into the name, description and
// eligibility fields, falling back to the raw document text, bounded to
// MaxContentWords.
func (s *Service) candidateSummary(doc *domain.ServiceDocument) string {
	parts := make([]string, 0, 3)
	for _, key := range []string{"name", "description", "eligibility"} {
		if v, ok := doc.Metadata[key].(string); ok && v != "" {
			parts = append(parts, v)
		}
	}
	summary := strings.Join(parts, "\n")
	if summary == "" {
		summary = doc.Document
	}
	return domain.TruncateWords(summary, s.cfg.MaxContentWords)
}

// parseRanking turns the model response into a permutation of [0, n).
// Every maximal digit run is a 1-based index; out-of-range and repeated
// indices are dropped, and indices the model never mentioned are appended
// in pool order.
func parseRanking(response string, n int) []int {
	runs := strings.FieldsFunc(response, func(r rune) bool {
		return !unicode.IsDigit(r)
	})

	order := make([]int, 0, n)
	seen := make(map[int]bool, n)
	for _, run := range runs {
		idx, err := strconv.Atoi(run)
		if err != nil {
			continue // digit run too long for int
		}
		idx--
		if idx < 0 || idx >= n || seen[idx] {
			continue
		}
		seen[idx] = true
		order = append(order, idx)
	}

	for i := 0; i < n; i++ {
		if !seen[i] {
			order = append(order, i)
		}
	}
	return order
}

func truncate(docs []domain.ServiceDocument, k int) []domain.ServiceDocument {
	if len(docs) > k {
		return docs[:k]
	}
	return docs
}
