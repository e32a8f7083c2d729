package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/skridlevsky/bounty-feed/internal/app"
	"github.com/skridlevsky/bounty-feed/internal/config"
	"github.com/skridlevsky/bounty-feed/internal/logger"
)

func main() {
	root := &cobra.Command{
		Use:          "reconcile",
		Short:        "Run one reconciliation cycle and print the snapshot as JSON",
		SilenceUsage: true,
		RunE:         runReconcile,
	}
	config.RegisterFlags(root.Flags())
	root.Flags().String("out", "", "write the snapshot to this file instead of stdout")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	// Logs go to stderr so stdout carries only the snapshot.
	logger.SetupWriter(os.Stderr, cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	if err := pipeline.Scheduler.RunCycle(ctx); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	out := os.Stdout
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(pipeline.Store.Load())
}
