package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/harborline/catalogsearch/internal/config"
	"github.com/harborline/catalogsearch/internal/db"
	dbRedis "github.com/harborline/catalogsearch/internal/db/redis"
	"github.com/harborline/catalogsearch/internal/domain"
	logpkg "github.com/harborline/catalogsearch/internal/logger"
	"github.com/harborline/catalogsearch/internal/metrics"
	bridgerepo "github.com/harborline/catalogsearch/internal/repository/bridge"
	clickrepo "github.com/harborline/catalogsearch/internal/repository/click"
	"github.com/harborline/catalogsearch/internal/repository/embcache"
	indexrepo "github.com/harborline/catalogsearch/internal/repository/index"
	jobsrepo "github.com/harborline/catalogsearch/internal/repository/jobs"
	chiTransport "github.com/harborline/catalogsearch/internal/transport/chi"
	openaiEmb "github.com/harborline/catalogsearch/internal/transport/openai"
	embedjobuc "github.com/harborline/catalogsearch/internal/usecase/embedjob"
	healthuc "github.com/harborline/catalogsearch/internal/usecase/health"
	ingestuc "github.com/harborline/catalogsearch/internal/usecase/ingest"
	learninguc "github.com/harborline/catalogsearch/internal/usecase/learning"
	retrievaluc "github.com/harborline/catalogsearch/internal/usecase/retrieval"
	telemetryuc "github.com/harborline/catalogsearch/internal/usecase/telemetry"
	"github.com/harborline/catalogsearch/internal/version"
)

func main() {
	// Config file is selected by CATSEARCH_ENV (or ENV), default "local"
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting catalogsearch API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Key prefix namespaces every storage key; set before any repository
	// is constructed.
	domain.KeyPrefix = cfg.Storage.KeyPrefix

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register domain metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	// Embedder chain is optional, search works lexically without it
	embedder := buildEmbedder(cfg, store, logger)

	// Repositories
	indexRepo := indexrepo.New(store)
	clickRepo := clickrepo.New(store, time.Duration(cfg.Telemetry.RetentionDays)*24*time.Hour)
	bridgeRepo := bridgerepo.New(store)
	jobsRepo := jobsrepo.New(store)

	// Shared worker pool for signal fan-out and embedding jobs
	pool, err := ants.NewPool(cfg.Retrieval.PoolSize)
	if err != nil {
		logger.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	// Use case services
	searchSvc := retrievaluc.New(indexRepo, indexRepo, pool, retrievaluc.Config{
		SignalLimit:  cfg.Retrieval.SignalLimit,
		TrigramFloor: cfg.Retrieval.TrigramFloor,
		RRFK:         cfg.Retrieval.RRFK,
	}, logger)
	ingestSvc := ingestuc.New(indexRepo, jobsRepo, logger)
	telemetrySvc := telemetryuc.New(clickRepo)
	learningSvc := learninguc.New(clickRepo, bridgeRepo, indexRepo, jobsRepo, learninguc.Config{
		Lookback:  time.Duration(cfg.Learning.LookbackDays) * 24 * time.Hour,
		MinClicks: cfg.Learning.MinClicks,
	}, logger)
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder))

	// Background loops share a context cancelled on shutdown
	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()
	var bg sync.WaitGroup

	if cfg.Learning.Enabled {
		runner := learninguc.NewRunner(learningSvc, time.Duration(cfg.Learning.IntervalSec)*time.Second, logger)
		bg.Add(1)
		go func() {
			defer bg.Done()
			runner.Run(bgCtx)
		}()
	}

	if cfg.Embedding.Worker.Enabled {
		if embedder == nil {
			logger.Fatal("Embedding worker enabled but no provider configured")
		}
		workerPool, err := ants.NewPool(cfg.Embedding.Worker.PoolSize)
		if err != nil {
			logger.Fatal("Failed to create embedding worker pool", zap.Error(err))
		}
		defer workerPool.Release()

		worker := embedjobuc.New(jobsRepo, indexRepo, embedder, workerPool, embedjobuc.Config{
			PollInterval:   time.Duration(cfg.Embedding.Worker.PollIntervalSec) * time.Second,
			MaxJobAttempts: cfg.Embedding.Worker.MaxJobAttempts,
		}, logger)
		bg.Add(1)
		go func() {
			defer bg.Done()
			worker.Run(bgCtx)
		}()
	}

	// HTTP server
	server := chiTransport.NewServer(searchSvc, ingestSvc, telemetrySvc, healthSvc, logger)

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

	bgCancel()
	bg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached.
// Returns nil when no provider is configured; retrieval then runs on
// the lexical signals alone.
func buildEmbedder(cfg config.Config, store db.Store, logger *zap.Logger) domain.Embedder {
	if cfg.Embedding.APIKey == "" {
		logger.Warn("No embedding provider configured, vector signal disabled")
		return nil
	}

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})

	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cached", cfg.Embedding.Cache),
	)

	if cfg.Embedding.Cache {
		return embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}
	return base
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) healthuc.EmbeddingChecker {
	if embedder == nil {
		// Pass nil interface (not typed nil pointer!) so health skips the check.
		return nil
	}
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
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

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
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
