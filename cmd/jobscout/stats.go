package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics and the latest scan",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	fmt.Printf("Jobs:          %d\n", stats.Total)
	fmt.Printf("New this week: %d\n", stats.NewThisWeek)
	fmt.Printf("Saved:         %d\n", stats.Saved)
	fmt.Printf("Applied:       %d\n", stats.Applied)
	fmt.Printf("Hidden:        %d\n", stats.Hidden)
	fmt.Printf("Locations:     %d\n", stats.Locations)

	last, err := st.LatestScan(ctx)
	if err != nil {
		return fmt.Errorf("latest scan: %w", err)
	}
	if last == nil {
		fmt.Println("\nNo scans recorded yet.")
		return nil
	}
	fmt.Printf("\nLatest scan (started %s)\n", last.StartedAt.Local().Format(time.DateTime))
	printOutcome(*last)
	return nil
}
