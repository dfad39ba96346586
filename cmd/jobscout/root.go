package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/adapter"
	"github.com/amishk599/jobscout/internal/config"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/notifier"
	"github.com/amishk599/jobscout/internal/retry"
	"github.com/amishk599/jobscout/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobscout",
	Short: "Entry-level IAM and security job aggregator",
	Long:  "jobscout searches job APIs on a schedule, scores postings for entry-level identity and security roles, and keeps the new ones.",
	// Default to `start` so that `jobscout` with no args runs the daemon.
	RunE:         runStart,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSCOUT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBSCOUT_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBSCOUT_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// newHTTPClient returns a provider client. Transient failures are retried
// underneath the per-request timeout; base (nil for the default transport)
// sees every attempt.
func newHTTPClient(cfg *config.Config, base http.RoundTripper, logger *slog.Logger) *http.Client {
	return &http.Client{
		Timeout:   cfg.HTTP.Timeout,
		Transport: retry.New(base, cfg.HTTP.MaxRetries, time.Second, logger),
	}
}

func setupNotifier(cfg *config.Config, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, &http.Client{Timeout: 30 * time.Second}, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// buildProviders creates one adapter per enabled provider, in registration
// order. Unconfigured adapters are kept; the coordinator skips them. When
// clientFor is set each provider gets its own client from it.
func buildProviders(cfg *config.Config, base adapter.Deps, clientFor func(provider string) *http.Client) []adapter.Provider {
	var providers []adapter.Provider
	for _, name := range config.ProviderNames {
		pc := cfg.Provider(name)
		if !pc.Enabled {
			continue
		}
		deps := base
		if clientFor != nil {
			deps.Client = clientFor(name)
		}
		switch name {
		case config.JSearch:
			providers = append(providers, adapter.NewJSearchAdapter(pc.APIKey, pc.Queries, deps))
		case config.Adzuna:
			providers = append(providers, adapter.NewAdzunaAdapter(pc.AppID, pc.AppKey, pc.Country, pc.Queries, deps))
		case config.RemoteOK:
			providers = append(providers, adapter.NewRemoteOKAdapter(deps))
		case config.GoogleCSE:
			providers = append(providers, adapter.NewGoogleCSEAdapter(pc.APIKey, pc.CX, pc.Queries, deps))
		}
	}
	return providers
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.Store.DSN, cfg.Store.StatsTTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Store.Path, cfg.Store.StatsTTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
