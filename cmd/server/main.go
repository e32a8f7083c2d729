package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/skridlevsky/bounty-feed/internal/api"
	"github.com/skridlevsky/bounty-feed/internal/app"
	"github.com/skridlevsky/bounty-feed/internal/config"
	"github.com/skridlevsky/bounty-feed/internal/logger"
)

func main() {
	root := &cobra.Command{
		Use:          "server",
		Short:        "Serve organization bounty and fund data",
		SilenceUsage: true,
		RunE:         runServer,
	}
	config.RegisterFlags(root.Flags())
	config.RegisterServerFlags(root.Flags())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger.Setup(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	// NOTE: pipeline.Close() called explicitly in shutdown sequence below

	pipeline.Scheduler.Run(ctx)

	routerResult := api.NewRouter(&api.RouterConfig{
		Store:       pipeline.Store,
		Scheduler:   pipeline.Scheduler,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimit,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routerResult.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
		slog.Error("Server failed", "error", err)
	}

	slog.Info("Shutting down server...")
	stop()

	slog.Info("Stopping scheduler...")
	pipeline.Scheduler.Stop()

	slog.Info("Stopping rate limiters...")
	routerResult.RateLimiters.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		slog.Error("Server forced to shutdown", "error", shutdownErr)
	}

	pipeline.Close()
	slog.Info("Server exited")
	return err
}
