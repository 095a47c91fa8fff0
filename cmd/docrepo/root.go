package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Given a URL it runs a crawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docrepo [url]",
		Short: "Mirror a documentation site as local Markdown files",
		Long: `docrepo crawls a website starting from a seed URL and writes every page it
reaches as a Markdown file with YAML front matter.

Only pages on the seed's host are followed, up to --depth link hops from the
seed. Links between captured pages are rewritten to the local files, images
are downloaded into images/, and index.md lists every page by title.

Examples:
  # Mirror a site into ./docrepo
  docrepo https://docs.example.com/

  # Follow at most two hops and keep images remote
  docrepo https://docs.example.com/ -d 2 --no-images

  # Write somewhere else, faster, ignoring robots.txt
  docrepo https://docs.example.com/ -o ./mirror --delay 0.1 --ignore-robots

Site file (.docrepo) example:
  defaults:
    ignorePatterns:
      - "/blog/*"
  sites:
    docs.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 5`,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runCrawlCmd,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	addCrawlFlags(cmd)

	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Operation cancelled by user.")
	} else {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(1)
}
