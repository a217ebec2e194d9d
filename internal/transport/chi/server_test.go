package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrec/internal/domain"
	healthuc "github.com/kailas-cloud/healthrec/internal/usecase/health"
)

type mockRecommender struct {
	resp      domain.RecommendationResponse
	docs      []domain.ServiceDocument
	services  []domain.Service
	questions []string
	improved  string
	err       error

	lastQuery      domain.Query
	lastTopK       int
	lastRetrievalK int
	lastOutputK    int
}

var _ Recommender = (*mockRecommender)(nil)

func (m *mockRecommender) Recommend(_ context.Context, q domain.Query) (domain.RecommendationResponse, error) {
	m.lastQuery = q
	return m.resp, m.err
}

func (m *mockRecommender) Retrieve(_ context.Context, _ string, topK int) ([]domain.ServiceDocument, error) {
	m.lastTopK = topK
	return m.docs, m.err
}

func (m *mockRecommender) Rerank(_ context.Context, _ string, retrievalK, outputK int) ([]domain.Service, error) {
	m.lastRetrievalK = retrievalK
	m.lastOutputK = outputK
	return m.services, m.err
}

func (m *mockRecommender) GenerateQuestions(_ context.Context, _, _ string) ([]string, error) {
	return m.questions, m.err
}

func (m *mockRecommender) ImproveQuery(_ context.Context, _ string, _, _ []string, _ string) (string, error) {
	return m.improved, m.err
}

type okPinger struct{}

func (okPinger) Ping(_ context.Context) error { return nil }

type badPinger struct{}

func (badPinger) Ping(_ context.Context) error { return fmt.Errorf("conn refused") }

func newTestRouter(rec Recommender, db healthuc.DBPinger) http.Handler {
	r := chi.NewRouter()
	NewServer(rec, healthuc.New(db, nil), zap.NewNop()).Routes(r)
	return r
}

func TestRecommend_OK(t *testing.T) {
	rec := &mockRecommender{resp: domain.RecommendationResponse{Message: "try this service"}}
	router := newTestRouter(rec, okPinger{})

	body := `{"query":"food bank","latitude":43.64,"longitude":-79.39,"radius":5,"rerank":true}`
	req := httptest.NewRequest("POST", "/recommend", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp domain.RecommendationResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "try this service" {
		t.Errorf("message = %q", resp.Message)
	}

	if rec.lastQuery.Query != "food bank" || !rec.lastQuery.Rerank {
		t.Errorf("query = %+v", rec.lastQuery)
	}
	if rec.lastQuery.Latitude == nil || *rec.lastQuery.Latitude != 43.64 {
		t.Error("latitude not forwarded")
	}
	if rec.lastQuery.Radius == nil || *rec.lastQuery.Radius != 5 {
		t.Error("radius not forwarded")
	}
}

func TestRecommend_EmptyQuery_400(t *testing.T) {
	router := newTestRouter(&mockRecommender{}, okPinger{})

	req := httptest.NewRequest("POST", "/recommend", strings.NewReader(`{"query":""}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestRecommend_LonelyLatitude_400(t *testing.T) {
	router := newTestRouter(&mockRecommender{}, okPinger{})

	req := httptest.NewRequest("POST", "/recommend",
		strings.NewReader(`{"query":"help","latitude":43.6}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for latitude without longitude", rr.Code)
	}
}

func TestRecommend_MalformedBody_400(t *testing.T) {
	router := newTestRouter(&mockRecommender{}, okPinger{})

	req := httptest.NewRequest("POST", "/recommend", strings.NewReader(`{not json`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"embedding", fmt.Errorf("embed: %w", domain.ErrEmbeddingFailed), http.StatusBadGateway, codeEmbeddingFailed},
		{"classification", fmt.Errorf("chat: %w", domain.ErrClassificationFailed), http.StatusBadGateway, codeClassificationFailed},
		{"index", fmt.Errorf("search: %w", domain.ErrIndexUnavailable), http.StatusServiceUnavailable, codeIndexUnavailable},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, codeInternalError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&mockRecommender{err: tc.err}, okPinger{})

			req := httptest.NewRequest("POST", "/recommend", strings.NewReader(`{"query":"help"}`))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Errorf("status = %d, want %d", rr.Code, tc.status)
			}
			var errResp errorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if errResp.Code != tc.code {
				t.Errorf("code = %q, want %q", errResp.Code, tc.code)
			}
		})
	}
}

func TestRetrieve_OK(t *testing.T) {
	rec := &mockRecommender{docs: []domain.ServiceDocument{{ID: "1", Document: "text"}}}
	router := newTestRouter(rec, okPinger{})

	req := httptest.NewRequest("GET", "/retrieve?query=clinic&top_k=7", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rec.lastTopK != 7 {
		t.Errorf("top_k = %d, want 7", rec.lastTopK)
	}

	var docs []domain.ServiceDocument
	if err := json.NewDecoder(rr.Body).Decode(&docs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "1" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestRetrieve_MissingQuery_400(t *testing.T) {
	router := newTestRouter(&mockRecommender{}, okPinger{})

	req := httptest.NewRequest("GET", "/retrieve", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestRetrieve_BadTopK_400(t *testing.T) {
	router := newTestRouter(&mockRecommender{}, okPinger{})

	req := httptest.NewRequest("GET", "/retrieve?query=x&top_k=lots", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestRerank_OK(t *testing.T) {
	rec := &mockRecommender{services: []domain.Service{{ID: "1", Name: "Clinic"}}}
	router := newTestRouter(rec, okPinger{})

	req := httptest.NewRequest("GET", "/rerank?query=clinic&retrieval_k=10&output_k=3", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rec.lastRetrievalK != 10 || rec.lastOutputK != 3 {
		t.Errorf("params = (%d, %d), want (10, 3)", rec.lastRetrievalK, rec.lastOutputK)
	}
}

func TestGenerateQuestions_OK(t *testing.T) {
	rec := &mockRecommender{questions: []string{"Where are you located?"}}
	router := newTestRouter(rec, okPinger{})

	body := `{"query":"clinic","recommendation":"try X"}`
	req := httptest.NewRequest("POST", "/questions", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp map[string][]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp["questions"]) != 1 {
		t.Errorf("questions = %v", resp)
	}
}

func TestImproveQuery_OK(t *testing.T) {
	rec := &mockRecommender{improved: "better query"}
	router := newTestRouter(rec, okPinger{})

	body := `{"query":"clinic","questions":["q1"],"answers":["a1"],"recommendation":"rec"}`
	req := httptest.NewRequest("POST", "/refine", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["query"] != "better query" {
		t.Errorf("query = %q", resp["query"])
	}
}

func TestHealth_OK(t *testing.T) {
	router := newTestRouter(&mockRecommender{}, okPinger{})

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestHealth_Degraded_503(t *testing.T) {
	router := newTestRouter(&mockRecommender{}, badPinger{})

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}
