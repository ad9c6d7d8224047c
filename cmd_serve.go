package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tanyabot/config"
	"tanyabot/filter"
	"tanyabot/web"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP chat server",
	Long: `Run the HTTP chat server together with the session cleanup loop and,
when enabled, the filter words file watcher.

Examples:
  # Serve on the configured WEB_PORT
  tanyabot serve

  # Use PostgreSQL instead of JSON files
  STORE_BACKEND=postgres DATABASE_URL=postgres://... tanyabot serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer config.Cleanup()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize bot", zap.Error(err))
		return err
	}
	defer a.Close()

	server := web.NewServer(a.agent, a.metrics, logger, cfg)
	cleanup := web.NewCleanupService(a.agent.Sessions(), server.Limiter(), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx, fmt.Sprintf(":%d", cfg.WebPort))
	})
	g.Go(func() error {
		cleanup.Run(gctx, cfg.CleanupInterval, cfg.SessionRetentionAge)
		return nil
	})
	if cfg.WatchFilterFile && cfg.StoreBackend == config.BackendFile {
		g.Go(func() error {
			return watchFilterFile(gctx, a.filter, cfg.FilterWordsFile, logger)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Web server error", zap.Error(err))
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

// watchFilterFile reloads the filter whenever the words file changes. A
// watcher that cannot start is logged and does not stop the server.
func watchFilterFile(ctx context.Context, f *filter.Filter, path string, logger *zap.Logger) error {
	w, err := filter.NewWatcher(f, path, logger)
	if err != nil {
		logger.Warn("Filter file watcher unavailable", zap.Error(err))
		return nil
	}
	if err := w.Start(ctx); err != nil {
		logger.Warn("Filter file watcher unavailable", zap.String("path", path), zap.Error(err))
		return nil
	}
	<-w.Done()
	return nil
}
