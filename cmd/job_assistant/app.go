package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/job-assistant/internal/config"
	"github.com/jonathan/job-assistant/internal/db"
	"github.com/jonathan/job-assistant/internal/export"
	"github.com/jonathan/job-assistant/internal/fetch"
	"github.com/jonathan/job-assistant/internal/ingestion"
	"github.com/jonathan/job-assistant/internal/knowledge"
	"github.com/jonathan/job-assistant/internal/llm"
	"github.com/jonathan/job-assistant/internal/logger"
	"github.com/jonathan/job-assistant/internal/pipeline"
	"github.com/jonathan/job-assistant/internal/retrieval"
	"github.com/jonathan/job-assistant/internal/storage"
)

var errMissingAPIKey = errors.New("GEMINI_API_KEY (or GOOGLE_API_KEY) environment variable is required")

// loadConfig resolves flags over the config file over defaults.
func loadConfig(cmd *cobra.Command, getenv func(string) string) (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, err
		}
		if err := loaded.Validate(); err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	}

	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}
	if cmd.Flags().Changed("json-logs") {
		cfg.LogJSON = jsonLogs
	}

	cfg.ApplyEnv(getenv)
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// app holds the collaborators one command invocation shares.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  storage.ApplicationStore
	index  retrieval.VectorStore
	client *llm.GeminiClient

	closers []func()
}

// newApp builds the logger and opens the configured storage backend.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	log, err := logger.New(cfg.LogJSON, cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: log}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	if cfg.UsePostgres() {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store, a.index = database, database.KnowledgeIndex()
		a.closers = append(a.closers, database.Close)
		log.Debug("using postgres backend")
		return a, nil
	}

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store, a.index = store, store.KnowledgeIndex()
	a.closers = append(a.closers, func() { _ = store.Close() })
	log.Debug("using sqlite backend", zap.String("data_dir", cfg.DataDir))
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// geminiClient opens the Gemini client on first use.
func (a *app) geminiClient(ctx context.Context) (*llm.GeminiClient, error) {
	if a.client != nil {
		return a.client, nil
	}
	if a.cfg.APIKey == "" {
		return nil, errMissingAPIKey
	}
	client, err := llm.NewGeminiClient(ctx, a.cfg.LLMConfig(), a.cfg.APIKey, a.logger)
	if err != nil {
		return nil, err
	}
	a.client = client
	a.closers = append(a.closers, func() { _ = client.Close() })
	return client, nil
}

func (a *app) embedder(ctx context.Context) (retrieval.Embedder, error) {
	if a.cfg.EmbeddingProvider == config.EmbeddingHash {
		return retrieval.NewHashEmbedder(retrieval.DefaultHashDimensions), nil
	}
	client, err := a.geminiClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.Embedder(a.cfg.EmbeddingModel), nil
}

func (a *app) retriever(ctx context.Context) (*retrieval.Retriever, error) {
	embedder, err := a.embedder(ctx)
	if err != nil {
		return nil, err
	}
	return retrieval.NewRetriever(embedder, a.index, a.logger), nil
}

func (a *app) knowledgeBase() *knowledge.Directory {
	return knowledge.NewDirectory(a.cfg.KnowledgeBaseDir, a.logger)
}

// reindex rebuilds the knowledge index from the knowledge base directory.
func (a *app) reindex(ctx context.Context, r *retrieval.Retriever, force bool) (int, error) {
	return r.Index(ctx, a.knowledgeBase(), force)
}

func (a *app) scraper() *ingestion.Scraper {
	opts := fetch.DefaultOptions()
	opts.Timeout = a.cfg.RequestTimeout()

	var render fetch.Renderer
	if a.cfg.UseBrowser {
		render = fetch.BrowserRenderer(a.cfg.RequestTimeout()*2, a.logger)
	}
	return ingestion.NewScraper(opts, render, a.logger)
}

// orchestrator wires the standard stages over r.
func (a *app) orchestrator(ctx context.Context, r *retrieval.Retriever) (*pipeline.Orchestrator, error) {
	client, err := a.geminiClient(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Dependencies{
		Scraper:   a.scraper(),
		Generator: client,
		Retriever: r,
		Exporter:  export.New(a.cfg.OutputDir, a.logger),
		Store:     a.store,
		MatchTopK: a.cfg.TopK,
		Logger:    a.logger,
	}), nil
}

// setup is the common prologue of commands that touch storage.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), cfg)
}
