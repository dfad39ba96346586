package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/notifier"
	"github.com/amishk599/jobscout/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Scan once without persisting anything",
	Long:  "One-shot scan against an in-memory no-op store: every eligible posting is logged as new and nothing is written or sent.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("check mode: nothing will be stored or sent")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cfg, store.NewNopStore(), notifier.NewLogNotifier(logger), logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Schedule.ScanTimeout)
	defer cancel()

	outcome, err := p.service.RunScan(ctx)
	printOutcome(outcome)
	return err
}
