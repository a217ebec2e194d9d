package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrec/internal/config"
	dbRedis "github.com/kailas-cloud/healthrec/internal/db/redis"
	"github.com/kailas-cloud/healthrec/internal/domain"
	logpkg "github.com/kailas-cloud/healthrec/internal/logger"
	"github.com/kailas-cloud/healthrec/internal/metrics"
	"github.com/kailas-cloud/healthrec/internal/repository/embcache"
	indexrepo "github.com/kailas-cloud/healthrec/internal/repository/index"
	chiTransport "github.com/kailas-cloud/healthrec/internal/transport/chi"
	openaiLLM "github.com/kailas-cloud/healthrec/internal/transport/openai"
	dedupuc "github.com/kailas-cloud/healthrec/internal/usecase/dedup"
	healthuc "github.com/kailas-cloud/healthrec/internal/usecase/health"
	rankinguc "github.com/kailas-cloud/healthrec/internal/usecase/ranking"
	recommenduc "github.com/kailas-cloud/healthrec/internal/usecase/recommend"
	rerankuc "github.com/kailas-cloud/healthrec/internal/usecase/rerank"
	retrieveuc "github.com/kailas-cloud/healthrec/internal/usecase/retrieve"
	"github.com/kailas-cloud/healthrec/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting healthrec API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("built", version.Date),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("collection", cfg.Index.Collection),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	callTimeout := time.Duration(cfg.OpenAI.TimeoutSec) * time.Second

	baseEmbedder := openaiLLM.NewEmbedder(&openaiLLM.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.EmbeddingModel,
		Dimensions: cfg.OpenAI.EmbeddingDimensions,
		Logger:     logger,
	})
	// Cache query embeddings in Redis; hits skip the provider entirely.
	embedder := embcache.New(
		&timeoutEmbedder{inner: baseEmbedder, timeout: callTimeout},
		store,
		cfg.Index.KeyPrefix,
		logger,
	)

	chat := &timeoutChat{
		inner: openaiLLM.NewChat(&openaiLLM.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.ChatModel,
			Logger:  logger,
		}),
		timeout: callTimeout,
	}

	indexRepo := indexrepo.New(store, cfg.Index.Collection, cfg.Index.KeyPrefix)
	retriever := retrieveuc.New(embedder, indexRepo, logger)

	reranker := rerankuc.New(chat, rerankuc.Config{
		RetrievalK:      cfg.Rerank.RetrievalK,
		OutputK:         cfg.Rerank.OutputK,
		MaxContentWords: cfg.Rerank.MaxContentWords,
	}, logger)

	dedupStrategy, err := dedupuc.ParseStrategy(cfg.Pipeline.DedupStrategy)
	if err != nil {
		logger.Fatal("Invalid dedup strategy", zap.Error(err))
	}

	recommender := recommenduc.New(
		retriever,
		reranker,
		rankinguc.New(cfg.Pipeline.RelevancyWeight),
		dedupuc.New(cfg.Pipeline.DedupPrecision),
		chat,
		recommenduc.Config{
			TopK:            cfg.Pipeline.TopK,
			RetrievalK:      cfg.Rerank.RetrievalK,
			MaxContextWords: cfg.Pipeline.MaxContextWords,
			MaxTokens:       cfg.OpenAI.MaxTokens,
			DedupStrategy:   dedupStrategy,
		},
		logger,
	)

	healthSvc := healthuc.New(store, baseEmbedder)

	server := chiTransport.NewServer(recommender, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// timeoutEmbedder bounds every embedding call with the configured timeout.
type timeoutEmbedder struct {
	inner   *openaiLLM.Embedder
	timeout time.Duration
}

func (e *timeoutEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.inner.Embed(ctx, text)
}

// timeoutChat bounds every chat completion call with the configured timeout.
type timeoutChat struct {
	inner   *openaiLLM.Chat
	timeout time.Duration
}

func (c *timeoutChat) Complete(ctx context.Context, messages []domain.ChatMessage, maxTokens int, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.Complete(ctx, messages, maxTokens, temperature)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line: one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
