package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/metrics"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scan daemon",
	Long:  "Start the cron scheduler (and the metrics server when metrics.addr is set); blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
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

	if len(p.coordinator.Configured()) == 0 {
		logger.Error("no configured providers, check credentials")
		os.Exit(1)
	}

	sched, err := p.scheduler()
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		os.Exit(1)
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, metrics.Handler(p.registry), logger); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	logger.Info("next scan", "at", sched.Next())
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
