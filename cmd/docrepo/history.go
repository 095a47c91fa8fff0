package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/docrepo/internal/config"
	"github.com/nao1215/docrepo/internal/database"
	"github.com/nao1215/docrepo/internal/model"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is how many runs history lists when --limit is unset.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// It reads the run manifest written after every crawl.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "List previous crawl runs",
		Long: `History lists the crawl runs recorded in the manifest database.

Each run records its seed URL, output directory, outcome and counters, the
pages it wrote and the URLs that failed. The database lives in the XDG data
directory (~/.local/share/docrepo on Linux).

Examples:
  # List the most recent runs
  docrepo history

  # List runs of one site
  docrepo history https://docs.example.com/

  # Show the pages and failures of run 7
  docrepo history --run 7`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("run", "r", 0,
		"Show the pages and failures of the run with this ID")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 for all)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	runID, err := cmd.Flags().GetInt64("run")
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit < 0 {
		return errors.New("invalid limit: must be non-negative")
	}

	// Validate arguments before opening database
	var seedURL string
	if len(args) > 0 {
		seedURL, err = model.NormalizeURL(args[0])
		if err != nil {
			return fmt.Errorf("invalid URL: %w", err)
		}
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(config.XDGDataDir(), opts)
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
		fmt.Fprintln(cmd.OutOrStdout(), "\nUse 'docrepo <url>' to crawl a site.")
		return nil //nolint:nilerr // A missing database just means no history
	}
	defer db.Close()

	if runID > 0 {
		return showRun(cmd.Context(), cmd.OutOrStdout(), db, runID)
	}
	return listRuns(cmd.Context(), cmd.OutOrStdout(), db, seedURL, limit)
}

// listRuns prints the recorded runs, newest first.
func listRuns(ctx context.Context, w io.Writer, db *database.ManifestDB, seedURL string, limit int) error {
	runs, err := db.ListRuns(ctx, seedURL, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		if seedURL != "" {
			fmt.Fprintf(w, "No runs recorded for %s\n", seedURL)
		} else {
			fmt.Fprintln(w, "No runs recorded yet.")
		}
		fmt.Fprintln(w, "\nUse 'docrepo <url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(w, "Recorded runs (%d):\n\n", len(runs))
	fmt.Fprintf(w, "  %-6s  %-19s  %-10s  %6s  %6s  %s\n", "ID", "Started", "Status", "Pages", "Failed", "Seed URL")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 78))

	for _, r := range runs {
		fmt.Fprintf(w, "  %-6d  %-19s  %-10s  %6d  %6d  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status,
			r.PagesCrawled,
			r.PagesFailed,
			r.SeedURL,
		)
	}

	fmt.Fprintln(w, "\nUse 'docrepo history --run <id>' to see the pages of a run.")
	return nil
}

// showRun prints one run with its pages and failures.
func showRun(ctx context.Context, w io.Writer, db *database.ManifestDB, id int64) error {
	r, err := db.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			return fmt.Errorf("run #%d not found (use 'docrepo history' to list runs)", id)
		}
		return fmt.Errorf("failed to get run: %w", err)
	}

	pages, err := db.GetRunPages(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get pages: %w", err)
	}

	failures, err := db.GetRunFailures(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get failures: %w", err)
	}

	fmt.Fprintf(w, "Run #%d\n\n", r.ID)
	fmt.Fprintf(w, "  Seed URL:  %s\n", r.SeedURL)
	fmt.Fprintf(w, "  Output:    %s\n", r.OutputDir)
	fmt.Fprintf(w, "  Started:   %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Duration:  %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "  Status:    %s\n", r.Status)
	if r.Error != "" {
		fmt.Fprintf(w, "  Error:     %s\n", r.Error)
	}
	if r.RobotsWarning != "" {
		fmt.Fprintf(w, "  Warning:   %s\n", r.RobotsWarning)
	}
	fmt.Fprintf(w, "  Images:    %d downloaded, %d kept remote\n", r.ImagesDownloaded, r.ImagesFailed)

	fmt.Fprintf(w, "\nPages (%d):\n", len(pages))
	for _, p := range pages {
		fmt.Fprintf(w, "  %-30s  %s\n", p.Filename, p.URL)
	}

	if len(failures) > 0 {
		fmt.Fprintf(w, "\nFailures (%d):\n", len(failures))
		for _, f := range failures {
			fmt.Fprintf(w, "  %s  %s\n", f.URL, f.Reason)
		}
	}

	return nil
}
