package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"invest-signals/internal/analysis"
	"invest-signals/internal/cache"
	"invest-signals/internal/interfaces"
	"invest-signals/internal/llm"
	"invest-signals/internal/llm/claude"
	"invest-signals/internal/llm/llmobs"
	"invest-signals/internal/llm/noop"
	"invest-signals/internal/llm/openai"
	"invest-signals/internal/logger"
	"invest-signals/internal/pipeline"
	"invest-signals/internal/provider"
	"invest-signals/internal/provider/mock"
	"invest-signals/internal/provider/yahoo"
	"invest-signals/internal/risk"
	"invest-signals/internal/signal"
	"invest-signals/internal/signallog"
	"invest-signals/internal/store"
	"invest-signals/internal/temporal"
	"invest-signals/internal/trace"

	"github.com/joho/godotenv"
)

// initializeSystem initializes environment, logger, and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize tracer
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// compressOldSignals gzips signal files past the retention window
func compressOldSignals(ctx context.Context, cfg *store.Config) {
	retention := cfg.Signals.RetentionDays
	if v := os.Getenv("SIGNAL_LOG_RETENTION_DAYS"); v != "" {
		fmt.Sscanf(v, "%d", &retention)
	}
	if err := signallog.New(cfg.Signals.Dir).CompressOlder(retention); err != nil {
		logger.Warn(ctx, "Failed to compress old signal logs", "error", err)
	}
}

// initializeProvider returns the data provider wrapped with rate limiting
func initializeProvider(ctx context.Context, cfg *store.Config) interfaces.DataProvider {
	var base interfaces.DataProvider
	if cfg.DataSource == "LIVE" {
		logger.Info(ctx, "Using LIVE market data from Yahoo Finance")
		base = yahoo.New(30*time.Second, cfg.News.MaxArticles)
	} else {
		logger.Info(ctx, "Using deterministic MOCK market data")
		base = mock.New()
	}
	return provider.WithRateLimit(base, cfg.Provider.RequestsPerSecond, cfg.Provider.Burst, cfg.Provider.MaxRetries)
}

// initializeLLM returns the chat client for LLM mode, wrapped with
// observability. Rule-based mode gets nil.
func initializeLLM(ctx context.Context, cfg *store.Config) *llm.Analyzer {
	if cfg.Mode != "LLM" {
		return nil
	}

	var chat llm.Chat
	switch cfg.LLM.Provider {
	case "OPENAI":
		chat = openai.New(cfg)
	case "CLAUDE":
		chat = claude.New(cfg)
	default:
		chat = noop.New()
		logger.Warn(ctx, "No LLM provider configured - using noop client (neutral scores)")
	}

	return llm.NewAnalyzer(llmobs.Wrap(chat), cfg.LLM.System)
}

// buildPipeline wires the full per-ticker analysis flow
func buildPipeline(ctx context.Context, cfg *store.Config) *pipeline.Pipeline {
	var cacheStore *cache.Store
	if cfg.Cache.Enabled {
		cacheStore = cache.NewStore(cfg.Cache.Dir)
		if err := cacheStore.CleanupExpired(); err != nil {
			logger.Warn(ctx, "Cache cleanup failed", "error", err)
		}
	} else {
		logger.Info(ctx, "Market data cache disabled")
	}

	fetcher := temporal.NewFetcher(initializeProvider(ctx, cfg), cacheStore, cfg.Analysis.SparseThreshold)

	return pipeline.New(
		cfg,
		fetcher,
		analysis.NewAnalyzer(),
		initializeLLM(ctx, cfg),
		risk.NewAssessor(cfg),
		signal.NewCreator(),
		signallog.New(cfg.Signals.Dir),
	)
}
