package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/adapter"
	"github.com/amishk599/jobscout/internal/config"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List job search providers",
	Long:  "Reads the config and prints each provider with its configured status, query count and pacing.",
	RunE:  runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	built := make(map[string]adapter.Provider)
	for _, p := range buildProviders(cfg, adapter.Deps{}, nil) {
		built[p.Name()] = p
	}

	fmt.Printf("%-12s %-15s %-8s %s\n", "Provider", "Status", "Queries", "Delay")
	fmt.Println(strings.Repeat("─", 46))

	ready := 0
	for _, name := range config.ProviderNames {
		pc := cfg.Provider(name)
		p, ok := built[name]
		status, queries := "disabled", "-"
		switch {
		case !ok:
		case p.IsConfigured():
			status = "ready"
			queries = fmt.Sprint(len(p.Queries()))
			ready++
		default:
			status = "missing creds"
			queries = fmt.Sprint(len(p.Queries()))
		}
		fmt.Printf("%-12s %-15s %-8s %s\n", name, status, queries, pc.Pacing.Delay)
	}

	fmt.Printf("\nTotal: %d providers (%d ready)\n", len(config.ProviderNames), ready)
	return nil
}
