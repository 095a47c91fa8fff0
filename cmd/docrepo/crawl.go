package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nao1215/docrepo/internal/config"
	"github.com/nao1215/docrepo/internal/database"
	doclog "github.com/nao1215/docrepo/internal/log"
	"github.com/nao1215/docrepo/internal/model"
	"github.com/nao1215/docrepo/internal/pipeline"
	"github.com/nao1215/docrepo/internal/report"
	"github.com/nao1215/docrepo/internal/transport"
	"github.com/spf13/cobra"
)

// errNoSeedURL is returned when the root command runs without a URL.
var errNoSeedURL = errors.New("no seed URL provided (specify the page to start crawling from)")

// addCrawlFlags registers the flags of the crawl run on cmd.
func addCrawlFlags(cmd *cobra.Command) {
	// Crawl behavior flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Directory the Markdown mirror is written to")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum number of link hops from the seed URL")
	cmd.Flags().Float64("delay", config.DefaultDelay.Seconds(),
		"Seconds to wait after each processed URL")
	cmd.Flags().Bool("no-images", false,
		"Keep image references remote instead of downloading them")
	cmd.Flags().Bool("ignore-robots", false,
		"Do not fetch or obey robots.txt")
	cmd.Flags().Int("image-workers", config.DefaultImageWorkers,
		"Number of concurrent image downloads")

	// Connection flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (e.g., 127.0.0.1:1080)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Site file path (default: .docrepo in current or home directory)")

	// Output flags
	cmd.Flags().Bool("no-db", false,
		"Do not record the run in the manifest database")
	cmd.Flags().BoolP("json", "j", false,
		"Print the run summary as JSON")
}

// runCrawlCmd executes a crawl for the URL in args.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	return runCrawl(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the site file.
// A flag the user set explicitly wins over the site file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	if len(args) == 0 {
		return nil, errNoSeedURL
	}

	cfg := config.NewConfig()
	cfg.SeedURL = args[0]
	if normalized, err := model.NormalizeURL(args[0]); err == nil {
		cfg.SeedURL = normalized
	}

	var err error

	cfg.OutputDir, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	delay, err := cmd.Flags().GetFloat64("delay")
	if err != nil {
		return nil, err
	}
	cfg.Delay = time.Duration(delay * float64(time.Second))

	noImages, err := cmd.Flags().GetBool("no-images")
	if err != nil {
		return nil, err
	}
	cfg.DownloadImages = !noImages

	ignoreRobots, err := cmd.Flags().GetBool("ignore-robots")
	if err != nil {
		return nil, err
	}
	cfg.RespectRobots = !ignoreRobots

	cfg.ImageWorkers, err = cmd.Flags().GetInt("image-workers")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.ProxyAddress, err = cmd.Flags().GetString("proxy")
	if err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	site := cfg.SiteConfigs.GetSiteConfig(cfg.SeedHost())
	if site.Depth != nil && !cmd.Flags().Changed("depth") {
		cfg.MaxDepth = *site.Depth
	}

	return cfg, nil
}

// runCrawl executes the pipeline for a validated cfg. Progress and the
// summary go to out, logs to errOut.
func runCrawl(ctx context.Context, cfg *config.Config, out, errOut io.Writer) error {
	site := cfg.SiteConfigs.GetSiteConfig(cfg.SeedHost())

	headerNames := make([]string, 0, len(site.Headers))
	for name := range site.Headers {
		headerNames = append(headerNames, name)
	}
	logger := doclog.NewLogger(errOut,
		doclog.WithVerbose(cfg.Verbose),
		doclog.WithRedactedKeys(headerNames...),
	)

	client, err := transport.NewClient(
		transport.WithTimeout(cfg.Timeout),
		transport.WithProxy(cfg.ProxyAddress),
		transport.WithCookie(site.Cookie),
		transport.WithHeaders(site.Headers),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	progress := out
	if cfg.JSONReport {
		progress = io.Discard
	}

	p := pipeline.DefaultPipeline(client, pipeline.NewDefaultPipelineConfig(cfg),
		[]pipeline.Option{
			pipeline.WithLogger(logger),
			pipeline.WithStepHook(progressPrinter(progress, cfg)),
		},
		pipeline.WithPipelineIgnorePatterns(site.IgnorePatterns),
		pipeline.WithPipelineFollowPatterns(site.FollowPatterns),
	)

	logger.Info("starting crawl",
		"seed", cfg.SeedURL,
		"output", cfg.OutputDir,
		"depth", cfg.MaxDepth,
		"respectRobots", cfg.RespectRobots,
		"downloadImages", cfg.DownloadImages,
	)

	run := model.NewRun(cfg.SeedURL, cfg.OutputDir)
	runErr := p.Execute(ctx, run)
	summary := model.NewRunSummary(run, pipeline.Status(runErr))

	if err := outputReport(cfg, out, summary); err != nil {
		logger.Error("report failed", "error", err)
	}

	if cfg.SaveToDB {
		id, err := saveRun(ctx, cfg.DBDir, summary)
		if err != nil {
			logger.Error("failed to save run", "error", err)
		} else {
			logger.Debug("run recorded", "id", id, "dir", cfg.DBDir)
			fmt.Fprintf(progress, "Run recorded as #%d (see: docrepo history --run %d)\n", id, id)
		}
	}

	if errors.Is(runErr, pipeline.ErrNoPagesCaptured) {
		return fmt.Errorf("%w from %s", runErr, cfg.SeedURL)
	}
	return runErr
}

// progressPrinter returns a step hook that prints a banner for each step.
func progressPrinter(w io.Writer, cfg *config.Config) func(string) {
	return func(step string) {
		switch step {
		case "crawl":
			fmt.Fprintf(w, "Crawling %s (depth %d)...\n", cfg.SeedURL, cfg.MaxDepth)
		case "allocate":
			fmt.Fprintln(w, "Assigning file names...")
		case "convert":
			if cfg.DownloadImages {
				fmt.Fprintln(w, "Converting pages to Markdown and downloading images...")
			} else {
				fmt.Fprintln(w, "Converting pages to Markdown...")
			}
		case "index":
			fmt.Fprintln(w, "Writing index...")
		default:
			fmt.Fprintf(w, "Running %s...\n", step)
		}
	}
}

// outputReport prints the run summary in the configured format.
func outputReport(cfg *config.Config, out io.Writer, summary *model.RunSummary) error {
	var writer report.Writer
	if cfg.JSONReport {
		writer = report.NewJSONWriter(out,
			report.WithPrettyPrint(),
			report.WithVersion(getVersion()),
		)
	} else {
		fmt.Fprintln(out)
		writer = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(summary)
	return err
}

// saveRun records summary in the manifest database under dbDir.
// It runs even after cancellation so a partial run is still recorded.
func saveRun(ctx context.Context, dbDir string, summary *model.RunSummary) (int64, error) {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return 0, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return db.SaveRun(context.WithoutCancel(ctx), summary)
}

