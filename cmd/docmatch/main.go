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

	"github.com/kailas-cloud/docmatch/internal/config"
	"github.com/kailas-cloud/docmatch/internal/db"
	dbRedis "github.com/kailas-cloud/docmatch/internal/db/redis"
	dbValkey "github.com/kailas-cloud/docmatch/internal/db/valkey"
	logpkg "github.com/kailas-cloud/docmatch/internal/logger"
	"github.com/kailas-cloud/docmatch/internal/metrics"
	"github.com/kailas-cloud/docmatch/internal/repository/embcache"
	"github.com/kailas-cloud/docmatch/internal/repository/notifier"
	"github.com/kailas-cloud/docmatch/internal/repository/outcome"
	"github.com/kailas-cloud/docmatch/internal/repository/queue"
	"github.com/kailas-cloud/docmatch/internal/repository/templatefile"
	"github.com/kailas-cloud/docmatch/internal/repository/templatestore"
	chiTransport "github.com/kailas-cloud/docmatch/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/docmatch/internal/transport/openai"
	"github.com/kailas-cloud/docmatch/internal/transport/pubsub"
	"github.com/kailas-cloud/docmatch/internal/usecase/dispatch"
	embeddinguc "github.com/kailas-cloud/docmatch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docmatch/internal/usecase/health"
	"github.com/kailas-cloud/docmatch/internal/usecase/matching"
	"github.com/kailas-cloud/docmatch/internal/usecase/templatecache"
	"github.com/kailas-cloud/docmatch/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting docmatch server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := newStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterDispatchMetrics()

	embedder, err := buildEmbedder(cfg.Embedding, store, logger)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("lru_size", cfg.Embedding.Cache.LRUSize),
		zap.Bool("store_cache", cfg.Embedding.Cache.StoreEnabled),
	)

	// Repositories
	templateRepo := templatestore.New(store).WithKeys(cfg.Templates.KeyPrefix, cfg.Templates.ManifestKey)
	templateFiles := templatefile.New(cfg.Templates.Dir, logger)
	outcomeRepo := outcome.New(store)
	queueRepo := queue.New(store).WithKey(cfg.Dispatcher.QueueKey)
	notify := notifier.New(store, logger).WithChannel(cfg.Notify.Channel)

	// Use cases
	templates := templatecache.New(templateFiles, templateRepo, embedder, logger).
		WithConcurrency(cfg.Matching.BuildConcurrency)
	engine := matching.New(templates, embedder, outcomeRepo, notify, logger).
		WithThreshold(cfg.Matching.Threshold)
	dispatcher := dispatch.New(cfg.Dispatcher.Capacity, engine, queueRepo, notify, logger).
		WithDrainInterval(time.Duration(cfg.Dispatcher.DrainIntervalMs) * time.Millisecond)
	listener := pubsub.NewListener(store, dispatcher, notify, logger).
		WithChannels(cfg.Transport.SubscribeChannels)

	healthSvc := healthuc.New(store, embedder).WithTemplates(templates)

	// Templates build in the background; the API answers 503 until they are ready.
	go func() {
		start := time.Now()
		if err := templates.Initialize(ctx); err != nil {
			logger.Error("Template cache initialization failed", zap.Error(err))
			return
		}
		logger.Info("Template cache ready",
			zap.Int("templates", len(templates.Templates())),
			zap.Duration("took", time.Since(start)),
		)

		go dispatcher.Run(ctx)
		go func() {
			if err := listener.Run(ctx); err != nil {
				logger.Error("Submission listener failed", zap.Error(err))
			}
		}()
	}()

	server := chiTransport.NewServer(dispatcher, outcomeRepo, templates, store, healthSvc, logger)

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

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	// Graceful shutdown: refuse new launches, stop HTTP, let running matches finish.
	dispatcher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("Running matches did not finish before shutdown timeout",
			zap.Int("running", dispatcher.Running()),
		)
	}

	logger.Info("Server stopped gracefully")
}

func newStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case "valkey":
		return dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	case "redis":
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Instrumented -> Cached.
func buildEmbedder(cfg config.EmbeddingConfig, store db.Store, logger *zap.Logger) (*embcache.CachedEmbedder, error) {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	instrumented := embeddinguc.NewInstrumentedEmbedder(base, cfg.Provider, cfg.Model, logger).
		WithMaxBatchSize(cfg.MaxBatchSize)

	// Pass nil interface (not typed nil pointer!) when the store tier is off.
	var cacheStore db.KVStore
	if cfg.Cache.StoreEnabled {
		cacheStore = store
	}

	cached, err := embcache.New(instrumented, cacheStore, cfg.Cache.LRUSize, metrics.EmbeddingCacheTotal, logger)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	return cached.WithKeyPrefix(cfg.Cache.KeyPrefix + cfg.Model + ":"), nil
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
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
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
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

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
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
