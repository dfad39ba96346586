package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/adapter"
	"github.com/amishk599/jobscout/internal/audit"
	"github.com/amishk599/jobscout/internal/classify"
	"github.com/amishk599/jobscout/internal/config"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/ratelimit"
	"github.com/amishk599/jobscout/internal/store"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse one provider's scored postings interactively (TUI)",
	Long:  "Shows the provider picker, searches the chosen provider with a spinner, then launches the split-pane review of eligible postings.",
	RunE:  runReviewCmd,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReviewCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	st, err := openStore(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Any log output while the TUI owns the terminal corrupts the display.
	silent := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := adapter.Deps{
		Client: newHTTPClient(cfg, nil, silent),
		Scorer: classify.New(classify.DefaultTables(), cfg.Scoring),
		Logger: silent,
	}

	var providers []adapter.Provider
	for _, p := range buildProviders(cfg, deps, nil) {
		if p.IsConfigured() {
			providers = append(providers, p)
		}
	}
	if len(providers) == 0 {
		fmt.Println("No configured providers in config.")
		return nil
	}

	runReview(cfg, providers, st)
	return nil
}

func runReview(cfg *config.Config, providers []adapter.Provider, st store.Store) {
	options := make([]audit.ProviderOption, len(providers))
	for i, p := range providers {
		options[i] = audit.ProviderOption{Name: p.Name(), Queries: len(p.Queries())}
	}

	for {
		choice, err := audit.RunProviderPicker(options)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return
		}
		if choice < 0 {
			return
		}
		provider := providers[choice]
		pacing := cfg.Provider(provider.Name()).Pacing

		postings, err := audit.RunLoader(provider.Name(), func(ctx context.Context) ([]model.ScoredPosting, error) {
			return searchProvider(ctx, provider, ratelimit.NewThrottle(pacing))
		}, cfg.Schedule.ScanTimeout)
		if err != nil {
			fmt.Printf("Search failed: %v\n", err)
			continue
		}

		var fresh []model.ScoredPosting
		for _, p := range postings {
			found, err := st.FindByURL(context.Background(), p.URL)
			if err != nil {
				fmt.Printf("Store lookup failed: %v\n", err)
				return
			}
			if !found {
				fresh = append(fresh, p)
			}
		}

		wantQuit, err := audit.RunReviewTUI(postings, fresh)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return
		}
	}
}

// searchProvider runs every query of p sequentially, backing off on
// throttling, and returns the postings deduplicated by URL.
func searchProvider(ctx context.Context, p adapter.Provider, throttle *ratelimit.Throttle) ([]model.ScoredPosting, error) {
	seen := make(map[string]bool)
	var out []model.ScoredPosting
	for _, q := range p.Queries() {
		if err := throttle.Wait(ctx); err != nil {
			return out, err
		}
		res, err := p.Search(ctx, q)
		if err != nil {
			if errors.Is(err, model.ErrThrottled) {
				var retryAfter time.Duration
				var httpErr *model.HTTPError
				if errors.As(err, &httpErr) {
					retryAfter = httpErr.RetryAfter
				}
				throttle.Throttled(retryAfter)
				continue
			}
			return out, err
		}
		for _, sp := range res.Postings {
			if sp.URL == "" || seen[sp.URL] {
				continue
			}
			seen[sp.URL] = true
			out = append(out, sp)
		}
	}
	return out, nil
}
