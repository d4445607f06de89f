package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/scribe-cloud/quill/internal/cache"
	"github.com/scribe-cloud/quill/internal/config"
	"github.com/scribe-cloud/quill/internal/content"
	dbRedis "github.com/scribe-cloud/quill/internal/db/redis"
	"github.com/scribe-cloud/quill/internal/domain"
	logpkg "github.com/scribe-cloud/quill/internal/logger"
	"github.com/scribe-cloud/quill/internal/metrics"
	"github.com/scribe-cloud/quill/internal/repository/embcache"
	"github.com/scribe-cloud/quill/internal/repository/exemplar"
	"github.com/scribe-cloud/quill/internal/repository/matchstore"
	chiTransport "github.com/scribe-cloud/quill/internal/transport/chi"
	openaiGw "github.com/scribe-cloud/quill/internal/transport/openai"
	healthuc "github.com/scribe-cloud/quill/internal/usecase/health"
	pipelineuc "github.com/scribe-cloud/quill/internal/usecase/pipeline"
	retrievaluc "github.com/scribe-cloud/quill/internal/usecase/retrieval"
	"github.com/scribe-cloud/quill/internal/version"
)

func main() {
	// .env is optional; config files take their secrets from ${VAR} expansion
	_ = godotenv.Load()

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

	logger.Info("Starting quill API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
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

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Cache regions, one per logical use
	embRegion := newRegion("embeddings", cfg.Cache.Embeddings)
	searchRegion := newRegion("search", cfg.Cache.Search)

	// Match reports are the most expensive composite result; the match
	// region can live in Redis so reports survive restarts.
	var matchCache interface {
		Get(key string) ([]byte, bool)
		Set(key string, value []byte)
	}
	if cfg.Cache.Match.Persistent {
		matchCache = matchstore.New(store,
			time.Duration(cfg.Cache.Match.TTLSec)*time.Second,
			metrics.CacheTotal, logger)
		logger.Info("Match report cache backed by Redis",
			zap.Int("ttl_sec", cfg.Cache.Match.TTLSec))
	} else {
		matchCache = newRegion("match", cfg.Cache.Match)
	}

	// Embedder chain: OpenAI-compatible provider -> cache -> optional instruction
	var embedder domain.Embedder = openaiGw.NewEmbedder(&openaiGw.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	provider, _ := embedder.(domain.HealthChecker)
	embedder = embcache.New(embedder, embRegion, logger)
	if cfg.Embedding.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	generator := openaiGw.NewGenerator(&openaiGw.GeneratorConfig{
		APIKey:  cfg.Generation.APIKey,
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
		Sampling: openaiGw.SamplingConfig{
			Temperature: cfg.Generation.Temperature,
			TopP:        cfg.Generation.TopP,
			MaxTokens:   cfg.Generation.MaxTokens,
		},
		Timeout:  time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		Provider: cfg.Generation.Provider,
		Logger:   logger,
	})

	exemplars := exemplar.New(store, exemplar.Config{
		VectorDim: cfg.Embedding.Dimensions,
		MinScore:  cfg.Retrieval.MinScore,
		MinRating: cfg.Retrieval.MinRating,
	}, logger)
	if err := exemplars.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to bootstrap exemplar index", zap.Error(err))
	}

	retrieval := retrievaluc.New(embedder, exemplars, searchRegion, cfg.Retrieval.TopK, logger)
	pipeline := pipelineuc.New(content.NewPreserver(logger), retrieval, generator, matchCache, logger)
	health := healthuc.New(store, provider)

	server := chiTransport.NewServer(pipeline, health, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
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

func newRegion(name string, rc config.RegionConfig) *cache.Region {
	return cache.NewRegion(name,
		time.Duration(rc.TTLSec)*time.Second,
		rc.MaxEntries,
		metrics.CacheTotal,
	)
}
