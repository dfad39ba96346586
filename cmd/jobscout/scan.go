package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/scheduler"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan now",
	Long:  "Runs a single scan against the configured store, honouring the scan timeout and lock, and prints the outcome.",
	RunE:  runScanCmd,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	p, err := newPipeline(ctx, cfg, st, setupNotifier(cfg, logger), logger)
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

	outcome, err := sched.RunScan(ctx)
	if errors.Is(err, scheduler.ErrLocked) {
		logger.Warn("another scan is running, try again later")
		return nil
	}
	printOutcome(outcome)
	return err
}
