// Package app is the composition root shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/config"
	"github.com/kailas-cloud/catalograg/internal/db"
	"github.com/kailas-cloud/catalograg/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/catalograg/internal/db/redis"
	"github.com/kailas-cloud/catalograg/internal/domain"
	doming "github.com/kailas-cloud/catalograg/internal/domain/ingest"
	"github.com/kailas-cloud/catalograg/internal/metrics"
	"github.com/kailas-cloud/catalograg/internal/repository/embcache"
	"github.com/kailas-cloud/catalograg/internal/repository/entry"
	"github.com/kailas-cloud/catalograg/internal/repository/localindex"
	"github.com/kailas-cloud/catalograg/internal/repository/pgentry"
	chiTransport "github.com/kailas-cloud/catalograg/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/catalograg/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/catalograg/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/catalograg/internal/usecase/health"
	indexuc "github.com/kailas-cloud/catalograg/internal/usecase/index"
	ingestuc "github.com/kailas-cloud/catalograg/internal/usecase/ingest"
	intentuc "github.com/kailas-cloud/catalograg/internal/usecase/intent"
	"github.com/kailas-cloud/catalograg/internal/usecase/retrieval"
	"github.com/kailas-cloud/catalograg/internal/usecase/schema"
)

const providerName = "openai"

// App holds the wired services.
type App struct {
	Config   config.Config
	Index    *indexuc.Service
	Ingest   *ingestuc.Service
	Engine   *retrieval.Engine
	Analyzer *schema.Analyzer
	Health   *healthuc.Service

	closers []func()
	logger  *zap.Logger
}

// New connects the configured index backend and builds every service.
// Call Close when done.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.Register()

	a := &App{Config: cfg, logger: logger}

	idxCfg := domain.DefaultIndexConfig()
	idxCfg.Collection = cfg.Database.Collection
	idxCfg.Dimensions = cfg.Embedding.Dimensions
	idxCfg.Algorithm = cfg.Index.Algorithm
	idxCfg.HNSWM = cfg.Index.HNSWM
	idxCfg.HNSWEFConstr = cfg.Index.HNSWEFConstruct

	repo, kv, err := a.openRepository(ctx, idxCfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	completer := openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		Config: openaiTransport.Config{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
			Provider: providerName,
			Timeout:  time.Duration(cfg.LLM.TimeoutSec) * time.Second,
			Logger:   logger,
		},
		MaxTokens:      cfg.LLM.MaxTokens,
		Temperature:    *cfg.LLM.Temperature,
		RateLimitRPS:   cfg.LLM.RateLimitRPS,
		RateLimitBurst: cfg.LLM.RateLimitBurst,
	})

	base := buildBaseEmbedder(cfg, completer, logger)
	docEmbedder := embeddinguc.NewAdapter(
		buildEmbedder(cfg, base, cfg.Embedding.DocumentInstruction, kv, logger),
		cfg.Embedding.Dimensions, cfg.Embedding.BatchSize, logger,
	)
	queryEmbedder := embeddinguc.NewAdapter(
		buildEmbedder(cfg, base, cfg.Embedding.QueryInstruction, kv, logger),
		cfg.Embedding.Dimensions, cfg.Embedding.BatchSize, logger,
	)
	logger.Info("Embedders created",
		zap.String("mode", cfg.Embedding.Mode),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", kv != nil),
	)

	a.Index = indexuc.New(repo, docEmbedder, logger)
	if err := a.Index.EnsureIndex(ctx); err != nil {
		// Queries still answer through the apology path while the index is down.
		logger.Warn("Vector index not ready", zap.Error(err))
	}

	a.Ingest = ingestuc.New(a.Index, cfg.Ingest.Workers, logger)
	a.Analyzer = schema.NewAnalyzer(completer, logger)
	a.Engine = retrieval.NewEngine(
		intentuc.NewExtractor(completer, logger),
		queryEmbedder,
		a.Index,
		completer,
		retrieval.NewHistory(cfg.Retrieval.HistoryLimit),
		retrieval.Config{
			TopK:    cfg.Retrieval.TopK,
			Timeout: time.Duration(cfg.Retrieval.QueryTimeoutSec) * time.Second,
		},
		logger,
	)

	// Pass nil interface (not typed nil pointer) when the provider has no health endpoint.
	var embChecker healthuc.ProviderChecker
	if hc, ok := base.(domain.HealthChecker); ok {
		embChecker = hc
	}
	a.Health = healthuc.New(a.Index, completer, embChecker)

	return a, nil
}

// Handler builds the HTTP router over the wired services.
func (a *App) Handler() http.Handler {
	server := chiTransport.NewServer(a.Engine, a.Ingest, a.Analyzer, a.Index, a.Health, a.logger).
		WithMaxUploadBytes(int64(a.Config.Ingest.MaxUploadMB) << 20)
	return chiTransport.NewRouter(server, a.Config.Auth.APIKeys, a.logger)
}

// IngestInitialData loads ingest.initial_data_dir when configured.
// A missing directory is logged and skipped.
func (a *App) IngestInitialData(ctx context.Context) {
	dir := a.Config.Ingest.InitialDataDir
	if dir == "" {
		return
	}
	results, err := a.Ingest.IngestDirectory(ctx, dir)
	if err != nil {
		a.logger.Warn("Initial data ingestion skipped", zap.String("dir", dir), zap.Error(err))
		return
	}
	stats := doming.Summarize(results)
	a.logger.Info("Initial data ingested",
		zap.String("dir", dir),
		zap.Int("files_processed", stats.TotalFilesProcessed),
		zap.Int("files_failed", stats.TotalFilesFailed),
		zap.Int("rows_processed", stats.TotalRowsProcessed),
	)
}

// Close releases backend connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// openRepository connects the configured driver. The Redis-family store is
// also returned as the embedding cache backend; it is nil for other drivers.
func (a *App) openRepository(ctx context.Context, idxCfg domain.IndexConfig) (indexuc.Repository, *dbRedis.Store, error) {
	cfg := a.Config.Database
	readiness := time.Duration(cfg.ReadinessTimeout) * time.Second

	switch cfg.Driver {
	case config.DriverRedis, config.DriverValkey:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:       cfg.Addrs,
			Username:    cfg.Username,
			Password:    cfg.Password,
			DialTimeout: readiness,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
		}
		a.closers = append(a.closers, store.Close)
		if err := db.WaitReady(ctx, store, readiness); err != nil {
			return nil, nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
		}
		a.logger.Info("Connected to database", zap.String("driver", cfg.Driver), zap.Strings("addrs", cfg.Addrs))
		return entry.New(store, idxCfg), store, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if err := db.WaitReady(ctx, pool, readiness); err != nil {
			return nil, nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
		}
		a.logger.Info("Connected to database", zap.String("driver", cfg.Driver))
		return pgentry.New(pool, idxCfg), nil, nil

	default:
		store := localindex.New(cfg.PersistDir, idxCfg)
		if err := store.Load(); err != nil {
			return nil, nil, fmt.Errorf("load local index: %w", err)
		}
		a.logger.Info("Opened local index", zap.String("persist_dir", cfg.PersistDir))
		return store, nil, nil
	}
}

func buildBaseEmbedder(cfg config.Config, completer domain.Completer, logger *zap.Logger) domain.Embedder {
	if cfg.Embedding.Mode == config.EmbeddingModeCompletion {
		return embeddinguc.NewCompletionEmbedder(completer, cfg.Embedding.Dimensions)
	}
	return openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   providerName,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
}

// buildEmbedder assembles the decorator chain: base -> cache -> instrumented -> prefix.
func buildEmbedder(
	cfg config.Config,
	base domain.Embedder,
	instruction string,
	kv *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if cfg.Embedding.Cache.Enabled && kv != nil {
		embedder = embcache.New(base, kv, embcache.Config{
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			TTL:        time.Duration(cfg.Embedding.Cache.TTLSec) * time.Second,
			Lookups:    metrics.EmbeddingCacheTotal,
		}, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, providerName, cfg.Embedding.Model, logger)

	// Outermost, so the cache key includes the instruction.
	return domain.WithPrefix(embedder, instruction)
}
