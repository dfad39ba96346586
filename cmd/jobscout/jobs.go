package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/store"
)

var (
	jobsLimit int
	markNotes string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the most recently stored jobs",
	RunE:  runJobs,
}

var markCmd = &cobra.Command{
	Use:   "mark <id> <new|saved|applied|hidden|stale>",
	Short: "Change the status of a stored job",
	Long: `Change the status of a stored job.

Pass --notes to attach free-text notes at the same time; --notes "" clears them.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runMark,
}

func init() {
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "number of jobs to show")
	markCmd.Flags().StringVar(&markNotes, "notes", "", "replace the job's notes")
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(markCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	st, ctx := mustOpenStore()
	defer st.Close()

	jobs, err := st.RecentJobs(ctx, jobsLimit)
	if err != nil {
		return fmt.Errorf("recent jobs: %w", err)
	}
	if len(jobs) == 0 {
		fmt.Println("No jobs stored yet.")
		return nil
	}

	fmt.Printf("%-6s %-5s %-8s %-40s %s\n", "ID", "Score", "Status", "Title", "Company")
	fmt.Println(strings.Repeat("─", 80))
	for _, j := range jobs {
		fmt.Printf("%-6d %-5.0f %-8s %-40s %s\n", j.ID, j.Score, j.Status, clip(j.Title, 40), j.Company)
		if j.Notes != "" {
			fmt.Printf("%-21s notes: %s\n", "", clip(j.Notes, 60))
		}
	}
	return nil
}

func runMark(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid job id %q", args[0])
	}
	status := model.JobStatus(strings.ToLower(args[1]))
	if !store.ValidStatus(status) {
		return fmt.Errorf("unknown status %q", args[1])
	}

	st, ctx := mustOpenStore()
	defer st.Close()

	if err := markJob(ctx, st, id, status, cmd.Flags().Changed("notes"), markNotes); err != nil {
		return err
	}
	fmt.Printf("job %d marked %s\n", id, status)
	return nil
}

type jobMarker interface {
	UpdateStatus(ctx context.Context, id int64, status model.JobStatus) error
	UpdateNotes(ctx context.Context, id int64, notes string) error
}

// markJob sets the status and, when setNotes is true, replaces the notes.
func markJob(ctx context.Context, m jobMarker, id int64, status model.JobStatus, setNotes bool, notes string) error {
	if err := m.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	if !setNotes {
		return nil
	}
	return m.UpdateNotes(ctx, id, strings.TrimSpace(notes))
}

func mustOpenStore() (store.Store, context.Context) {
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
	return st, ctx
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
