package rerank

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrec/internal/domain"
)

type mockChat struct {
	response string
	err      error
	messages []domain.ChatMessage
	calls    int
}

var _ ChatCompleter = (*mockChat)(nil)

func (m *mockChat) Complete(_ context.Context, messages []domain.ChatMessage, _ int, _ float32) (string, error) {
	m.calls++
	m.messages = messages
	return m.response, m.err
}

func pool(n int) []domain.ServiceDocument {
	docs := make([]domain.ServiceDocument, n)
	for i := range docs {
		docs[i] = domain.ServiceDocument{
			ID:       string(rune('a' + i)),
			Document: "service text",
			Metadata: map[string]any{"name": "Service " + string(rune('A'+i))},
		}
	}
	return docs
}

func ids(docs []domain.ServiceDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func newService(chat ChatCompleter, outputK int) *Service {
	cfg := DefaultConfig()
	cfg.OutputK = outputK
	return New(chat, cfg, zap.NewNop())
}

func TestRerank_ReordersPerResponse(t *testing.T) {
	chat := &mockChat{response: "[3] > [1] > [2]"}
	s := newService(chat, 3)

	got := s.Rerank(context.Background(), "housing help", pool(3), 0)
	if !equal(ids(got), []string{"c", "a", "b"}) {
		t.Errorf("order = %v, want [c a b]", ids(got))
	}
	if chat.calls != 1 {
		t.Errorf("chat calls = %d, want 1", chat.calls)
	}
}

func TestRerank_TruncatesToOutputK(t *testing.T) {
	chat := &mockChat{response: "[4] > [3] > [2] > [1]"}
	s := newService(chat, 2)

	got := s.Rerank(context.Background(), "q", pool(4), 0)
	if !equal(ids(got), []string{"d", "c"}) {
		t.Errorf("order = %v, want [d c]", ids(got))
	}
}

func TestRerank_MissingIndicesBackfilledInPoolOrder(t *testing.T) {
	chat := &mockChat{response: "[2]"}
	s := newService(chat, 4)

	got := s.Rerank(context.Background(), "q", pool(4), 0)
	if !equal(ids(got), []string{"b", "a", "c", "d"}) {
		t.Errorf("order = %v, want [b a c d]", ids(got))
	}
}

func TestRerank_PermutationInvariant(t *testing.T) {
	// Duplicates, out-of-range indices and noise must not break the
	// permutation: every candidate appears exactly once before truncation.
	chat := &mockChat{response: "sure! [2] > [2] > [99] > [0] > [1]"}
	s := newService(chat, 3)

	got := s.Rerank(context.Background(), "q", pool(3), 0)
	seen := make(map[string]bool)
	for _, id := range ids(got) {
		if seen[id] {
			t.Fatalf("duplicate id %q in output %v", id, ids(got))
		}
		seen[id] = true
	}
	if len(got) != 3 {
		t.Errorf("len = %d, want full pool", len(got))
	}
	if got[0].ID != "b" {
		t.Errorf("first = %q, want b", got[0].ID)
	}
}

func TestRerank_OnlyInvalidIndices_FallbackOrdering(t *testing.T) {
	chat := &mockChat{response: "[77] > [88]"}
	s := newService(chat, 2)

	got := s.Rerank(context.Background(), "q", pool(3), 0)
	if !equal(ids(got), []string{"a", "b"}) {
		t.Errorf("order = %v, want original order [a b]", ids(got))
	}
}

func TestRerank_ChatErrorFallsBack(t *testing.T) {
	chat := &mockChat{err: errors.New("rate limited")}
	s := newService(chat, 2)

	got := s.Rerank(context.Background(), "q", pool(5), 0)
	if !equal(ids(got), []string{"a", "b"}) {
		t.Errorf("order = %v, want original order truncated", ids(got))
	}
}

func TestRerank_EmptyResponseFallsBack(t *testing.T) {
	chat := &mockChat{response: "  \n"}
	s := newService(chat, 3)

	got := s.Rerank(context.Background(), "q", pool(3), 0)
	if !equal(ids(got), []string{"a", "b", "c"}) {
		t.Errorf("order = %v, want original order", ids(got))
	}
}

func TestRerank_EmptyPool(t *testing.T) {
	chat := &mockChat{}
	s := newService(chat, 5)

	if got := s.Rerank(context.Background(), "q", nil, 0); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
	if chat.calls != 0 {
		t.Error("chat called for an empty pool")
	}
}

func TestRerank_ConversationShape(t *testing.T) {
	chat := &mockChat{response: "[1] > [2]"}
	s := newService(chat, 2)

	docs := pool(2)
	docs[0].Metadata["description"] = "walk-in clinic"
	s.Rerank(context.Background(), "clinic near me", docs, 0)

	// system + intro + ack + 2*(candidate + ack) + final request
	if len(chat.messages) != 8 {
		t.Fatalf("message count = %d, want 8", len(chat.messages))
	}
	if chat.messages[0].Role != domain.RoleSystem {
		t.Error("conversation must open with the system instruction")
	}
	if !strings.Contains(chat.messages[3].Content, "[1] Service A") {
		t.Errorf("candidate turn = %q, want numbered summary", chat.messages[3].Content)
	}
	if !strings.Contains(chat.messages[3].Content, "walk-in clinic") {
		t.Error("candidate summary missing description")
	}
	last := chat.messages[len(chat.messages)-1]
	if last.Role != domain.RoleUser || !strings.Contains(last.Content, "[X] > [Y] > [Z]") {
		t.Errorf("final turn = %+v, want ranking request with grammar", last)
	}
}

func TestCandidateSummary_FallsBackToDocumentText(t *testing.T) {
	s := newService(&mockChat{}, 5)
	doc := domain.ServiceDocument{Document: "raw document body", Metadata: map[string]any{}}

	if got := s.candidateSummary(&doc); got != "raw document body" {
		t.Errorf("summary = %q", got)
	}
}

func TestCandidateSummary_TruncatesWords(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContentWords = 3
	s := New(&mockChat{}, cfg, zap.NewNop())

	doc := domain.ServiceDocument{Metadata: map[string]any{
		"name": "one two three four five",
	}}
	if got := s.candidateSummary(&doc); got != "one two three" {
		t.Errorf("summary = %q, want first three words", got)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	bad := []Config{
		{RetrievalK: 0, OutputK: 1, MaxContentWords: 10},
		{RetrievalK: 5, OutputK: 0, MaxContentWords: 10},
		{RetrievalK: 5, OutputK: 6, MaxContentWords: 10},
		{RetrievalK: 5, OutputK: 3, MaxContentWords: 0},
	}
	for _, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", cfg)
		}
	}
}
