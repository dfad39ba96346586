package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete old jobs and mark aging ones stale",
	Long:  "Runs the daily maintenance once: deletes jobs past store.retention and marks new jobs older than store.stale_after as stale.",
	RunE:  runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// The notifier is never reached from cleanup.
	p, err := newPipeline(ctx, cfg, st, nil, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer p.Close()

	sched, err := p.scheduler()
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		os.Exit(1)
	}
	return sched.RunCleanup(ctx)
}
