// Package chi is the HTTP transport: thin handlers over the recommendation
// pipeline, sentinel-to-status error mapping and bearer-token auth.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrec/internal/domain"
	healthuc "github.com/kailas-cloud/healthrec/internal/usecase/health"
)

// Recommender is the pipeline surface the HTTP layer exposes.
type Recommender interface {
	Recommend(ctx context.Context, q domain.Query) (domain.RecommendationResponse, error)
	Retrieve(ctx context.Context, query string, topK int) ([]domain.ServiceDocument, error)
	Rerank(ctx context.Context, query string, retrievalK, outputK int) ([]domain.Service, error)
	GenerateQuestions(ctx context.Context, query, recommendation string) ([]string, error)
	ImproveQuery(ctx context.Context, query string, questions, answers []string, recommendation string) (string, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the recommendation pipeline over HTTP.
type Server struct {
	recommender   Recommender
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(recommender Recommender, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{
		recommender: recommender,
		health:      health,
		logger:      logger,
		errorHandlers: []errorHandler{
			sentinelHandler(domain.ErrEmbeddingFailed, http.StatusBadGateway, codeEmbeddingFailed),
			sentinelHandler(domain.ErrClassificationFailed, http.StatusBadGateway, codeClassificationFailed),
			sentinelHandler(domain.ErrRefinementFailed, http.StatusBadGateway, codeRefinementFailed),
			sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, codeIndexUnavailable),
		},
	}
}

// Routes registers all handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/recommend", s.Recommend)
	r.Get("/retrieve", s.Retrieve)
	r.Get("/rerank", s.Rerank)
	r.Post("/questions", s.GenerateQuestions)
	r.Post("/refine", s.ImproveQuery)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Recommend handles POST /recommend.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var q domain.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if q.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}
	if (q.Latitude == nil) != (q.Longitude == nil) {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"latitude and longitude must be provided together")
		return
	}

	resp, err := s.recommender.Recommend(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Retrieve handles GET /retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}
	topK, ok := intParam(w, r, "top_k")
	if !ok {
		return
	}

	docs, err := s.recommender.Retrieve(r.Context(), query, topK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

// Rerank handles GET /rerank.
func (s *Server) Rerank(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}
	retrievalK, ok := intParam(w, r, "retrieval_k")
	if !ok {
		return
	}
	outputK, ok := intParam(w, r, "output_k")
	if !ok {
		return
	}

	services, err := s.recommender.Rerank(r.Context(), query, retrievalK, outputK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, services)
}

type questionsRequest struct {
	Query          string `json:"query"`
	Recommendation string `json:"recommendation"`
}

// GenerateQuestions handles POST /questions.
func (s *Server) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req questionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	questions, err := s.recommender.GenerateQuestions(r.Context(), req.Query, req.Recommendation)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"questions": questions})
}

type refineRequest struct {
	Query          string   `json:"query"`
	Questions      []string `json:"questions"`
	Answers        []string `json:"answers"`
	Recommendation string   `json:"recommendation"`
}

// ImproveQuery handles POST /refine.
func (s *Server) ImproveQuery(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	improved, err := s.recommender.ImproveQuery(r.Context(),
		req.Query, req.Questions, req.Answers, req.Recommendation)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"query": improved})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// intParam parses an optional non-negative integer query parameter;
// absence yields 0 (use the configured default).
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			name+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}

// Error response codes.
const (
	codeBadRequest           = "bad_request"
	codeValidationFailed     = "validation_failed"
	codeEmbeddingFailed      = "embedding_failed"
	codeClassificationFailed = "classification_failed"
	codeRefinementFailed     = "refinement_failed"
	codeIndexUnavailable     = "index_unavailable"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmbeddingFailed,
		domain.ErrClassificationFailed,
		domain.ErrRefinementFailed,
		domain.ErrIndexUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
