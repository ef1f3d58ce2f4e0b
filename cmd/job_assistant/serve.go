package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/job-assistant/internal/config"
	"github.com/jonathan/job-assistant/internal/knowledge"
	"github.com/jonathan/job-assistant/internal/server"
)

var (
	servePort  int
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes REST endpoints for running the
pipeline, rebuilding the knowledge index, and tracking applications.
Bearer auth is enabled when JWT_SECRET is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", config.DefaultPort, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Re-index when knowledge base files change")
	rootCmd.AddCommand(serveCmd)
}

// loadJWT returns nil when JWT_SECRET is unset.
func loadJWT(getenv func(string) string) (*server.JWTService, error) {
	cfg, err := config.JWTConfigFromEnv(getenv)
	if errors.Is(err, config.ErrJWTNotConfigured) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return server.NewJWTService(cfg), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	jwtService, err := loadJWT(os.Getenv)
	if err != nil {
		return err
	}
	if jwtService == nil {
		a.logger.Warn("JWT_SECRET not set, API runs without authentication")
	}

	retriever, err := a.retriever(ctx)
	if err != nil {
		return err
	}
	orch, err := a.orchestrator(ctx, retriever)
	if err != nil {
		return err
	}

	indexer := server.IndexerFunc(func(ctx context.Context, force bool) (int, error) {
		return a.reindex(ctx, retriever, force)
	})
	count, err := indexer.Index(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to index knowledge base: %w", err)
	}
	a.logger.Info("knowledge base ready", zap.Int("chunks", count))

	if serveWatch {
		go func() {
			err := knowledge.Watch(ctx, cfg.KnowledgeBaseDir, knowledge.DefaultDebounce, func() {
				n, err := indexer.Index(ctx, true)
				if err != nil {
					a.logger.Error("re-index failed", zap.Error(err))
					return
				}
				a.logger.Info("knowledge base re-indexed", zap.Int("chunks", n))
			}, a.logger)
			if err != nil {
				a.logger.Error("knowledge base watcher stopped", zap.Error(err))
			}
		}()
	}

	srv := server.New(server.Options{
		Port:    cfg.Port,
		Runner:  orch,
		Indexer: indexer,
		Store:   a.store,
		JWT:     jwtService,
		Logger:  a.logger,
	})
	return srv.Start(ctx)
}
