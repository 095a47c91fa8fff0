package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/docrepo/internal/config"
	"github.com/nao1215/docrepo/internal/convert"
	"github.com/nao1215/docrepo/internal/crawler"
	"github.com/nao1215/docrepo/internal/model"
	"github.com/nao1215/docrepo/internal/repository"
)

// CrawlStep loads robots.txt and crawls the site from the run's seed URL.
type CrawlStep struct {
	client *http.Client

	maxDepth       int
	delay          time.Duration
	userAgent      string
	maxBodySize    int64
	respectRobots  bool
	ignorePatterns []string
	followPatterns []string

	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlMaxDepth sets the maximum crawl depth.
func WithCrawlMaxDepth(depth int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxDepth = depth
	}
}

// WithCrawlDelay sets the pause after every processed URL.
func WithCrawlDelay(d time.Duration) CrawlStepOption {
	return func(s *CrawlStep) {
		s.delay = d
	}
}

// WithCrawlUserAgent sets the User-Agent for page and robots.txt requests.
func WithCrawlUserAgent(userAgent string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.userAgent = userAgent
	}
}

// WithCrawlMaxBodySize sets the maximum page body size in bytes.
func WithCrawlMaxBodySize(maxBodySize int64) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxBodySize = maxBodySize
	}
}

// WithRespectRobots enables or disables robots.txt enforcement.
func WithRespectRobots(respect bool) CrawlStepOption {
	return func(s *CrawlStep) {
		s.respectRobots = respect
	}
}

// WithCrawlIgnorePatterns sets URL path patterns that are never enqueued.
func WithCrawlIgnorePatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.ignorePatterns = patterns
	}
}

// WithCrawlFollowPatterns restricts enqueued links to matching paths.
func WithCrawlFollowPatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.followPatterns = patterns
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step with the default politeness settings.
func NewCrawlStep(client *http.Client, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		client:        client,
		maxDepth:      config.DefaultMaxDepth,
		delay:         config.DefaultDelay,
		userAgent:     config.DefaultUserAgent,
		maxBodySize:   config.DefaultMaxBodySize,
		respectRobots: true,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls the site and stores pages, failures and robots skips on run.
// It returns ErrNoPagesCaptured when nothing was fetched.
func (s *CrawlStep) Do(ctx context.Context, run *model.Run) error {
	spiderOpts := []crawler.SpiderOption{
		crawler.WithMaxDepth(s.maxDepth),
		crawler.WithDelay(s.delay),
		crawler.WithSpiderUserAgent(s.userAgent),
		crawler.WithSpiderMaxBodySize(s.maxBodySize),
		crawler.WithIgnorePatterns(s.ignorePatterns),
		crawler.WithFollowPatterns(s.followPatterns),
		crawler.WithSpiderLogger(s.logger),
	}

	if s.respectRobots {
		gate, err := crawler.LoadRobots(ctx, s.client, run.SeedURL, s.userAgent)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			run.RobotsWarning = err.Error() + "; crawling without restrictions"
			s.logger.Warn("robots.txt unavailable, crawling without restrictions", "url", run.SeedURL, "error", err)
		}
		spiderOpts = append(spiderOpts, crawler.WithGate(gate))
	}

	spider := crawler.NewSpider(s.client, spiderOpts...)
	result, err := spider.Crawl(ctx, run.SeedURL)
	if result != nil {
		run.Pages = result.Pages
		run.Failures = result.Failures
		run.Disallowed = result.Disallowed
	}
	if err != nil {
		return err
	}

	s.logger.Info("crawl completed",
		"pages", len(run.Pages),
		"failures", len(run.Failures),
		"disallowed", len(run.Disallowed),
	)

	if len(run.Pages) == 0 {
		return ErrNoPagesCaptured
	}
	return nil
}

// AllocateStep assigns a file name to every crawled page before any page
// is written, so links between pages can be rewritten regardless of crawl
// order.
type AllocateStep struct {
	repo *repository.Repository
}

// NewAllocateStep creates an allocation step writing into repo.
func NewAllocateStep(repo *repository.Repository) *AllocateStep {
	return &AllocateStep{repo: repo}
}

// Name returns the step name.
func (s *AllocateStep) Name() string {
	return "allocate"
}

// Do creates the output directory and allocates file names in crawl order.
func (s *AllocateStep) Do(_ context.Context, run *model.Run) error {
	if err := s.repo.Init(); err != nil {
		return err
	}
	for _, page := range run.Pages {
		if _, err := s.repo.Allocate(page.URL); err != nil {
			return fmt.Errorf("failed to allocate file name for %s: %w", page.URL, err)
		}
	}
	return nil
}

// ConvertStep converts every page to Markdown, rewrites its links and
// images, and saves it.
type ConvertStep struct {
	repo      *repository.Repository
	converter *convert.Converter

	// images is nil when image downloading is disabled.
	images *imagePass

	logger *slog.Logger
}

// ConvertStepOption configures a ConvertStep.
type ConvertStepOption func(*ConvertStep)

// WithImageDownloads enables the image pass with the given number of
// concurrent downloads. workers <= 0 disables it.
func WithImageDownloads(workers int) ConvertStepOption {
	return func(s *ConvertStep) {
		if workers <= 0 {
			s.images = nil
			return
		}
		s.images = newImagePass(s.repo, workers, s.logger)
	}
}

// WithConvertLogger sets a custom logger for the convert step.
// It must precede WithImageDownloads to reach the image pass.
func WithConvertLogger(logger *slog.Logger) ConvertStepOption {
	return func(s *ConvertStep) {
		s.logger = logger
	}
}

// NewConvertStep creates a convert step. Images are left untouched unless
// WithImageDownloads is given.
func NewConvertStep(repo *repository.Repository, opts ...ConvertStepOption) *ConvertStep {
	s := &ConvertStep{
		repo:      repo,
		converter: convert.NewConverter(repo),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ConvertStep) Name() string {
	return "convert"
}

// Do processes the pages in crawl order.
func (s *ConvertStep) Do(ctx context.Context, run *model.Run) error {
	for _, page := range run.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}

		var opts []convert.PageOption
		if s.images != nil {
			resolve, records, err := s.images.prepare(ctx, page.HTML, page.URL)
			run.Images = append(run.Images, records...)
			if err != nil {
				return err
			}
			if resolve != nil {
				opts = append(opts, convert.WithImageRewriter(resolve))
			}
		}

		body, err := s.converter.ToMarkdown(page.HTML, page.URL, opts...)
		if err != nil {
			return fmt.Errorf("failed to convert %s: %w", page.URL, err)
		}

		name, err := s.repo.Save(page.URL, convert.InjectFrontMatter(body, page.Title, page.URL))
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", page.URL, err)
		}
		run.Written = append(run.Written, model.WrittenPage{
			URL:      page.URL,
			Title:    page.Title,
			Depth:    page.Depth,
			Filename: name,
			Hash:     page.Hash,
		})
		s.logger.Debug("page written", "url", page.URL, "file", name)
	}
	return nil
}

// IndexStep writes the index page for the pages saved so far.
type IndexStep struct {
	repo *repository.Repository
}

// NewIndexStep creates an index step writing into repo.
func NewIndexStep(repo *repository.Repository) *IndexStep {
	return &IndexStep{repo: repo}
}

// Name returns the step name.
func (s *IndexStep) Name() string {
	return "index"
}

// Do writes index.md and records its name on run.
func (s *IndexStep) Do(_ context.Context, run *model.Run) error {
	titles := make(map[string]string, len(run.Written))
	for _, w := range run.Written {
		titles[w.URL] = w.Title
	}
	name, err := s.repo.BuildIndex(titles)
	if err != nil {
		return err
	}
	run.IndexFile = name
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	OutputDir      string
	MaxDepth       int
	Delay          time.Duration
	UserAgent      string
	MaxBodySize    int64
	RespectRobots  bool
	DownloadImages bool
	ImageWorkers   int
	IgnorePatterns []string
	FollowPatterns []string
}

// NewDefaultPipelineConfig converts a validated Config.
func NewDefaultPipelineConfig(cfg *config.Config) DefaultPipelineConfig {
	return DefaultPipelineConfig{
		OutputDir:      cfg.OutputDir,
		MaxDepth:       cfg.MaxDepth,
		Delay:          cfg.Delay,
		UserAgent:      cfg.UserAgent,
		MaxBodySize:    cfg.EffectiveMaxBodySize(),
		RespectRobots:  cfg.RespectRobots,
		DownloadImages: cfg.DownloadImages,
		ImageWorkers:   cfg.ImageWorkers,
	}
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineIgnorePatterns sets URL path patterns to skip during crawling.
func WithPipelineIgnorePatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.IgnorePatterns = patterns
	}
}

// WithPipelineFollowPatterns sets URL path patterns to follow during crawling.
func WithPipelineFollowPatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.FollowPatterns = patterns
	}
}

// DefaultPipeline builds the crawl, allocate, convert and index steps.
// client is used for pages, robots.txt and images alike.
func DefaultPipeline(client *http.Client, cfg DefaultPipelineConfig, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	for _, opt := range configOpts {
		opt(&cfg)
	}

	repo := repository.New(cfg.OutputDir, client,
		repository.WithUserAgent(cfg.UserAgent),
		repository.WithLogger(p.logger),
	)

	convertOpts := []ConvertStepOption{WithConvertLogger(p.logger)}
	if cfg.DownloadImages {
		convertOpts = append(convertOpts, WithImageDownloads(cfg.ImageWorkers))
	}

	p.AddSteps(
		NewCrawlStep(client,
			WithCrawlMaxDepth(cfg.MaxDepth),
			WithCrawlDelay(cfg.Delay),
			WithCrawlUserAgent(cfg.UserAgent),
			WithCrawlMaxBodySize(cfg.MaxBodySize),
			WithRespectRobots(cfg.RespectRobots),
			WithCrawlIgnorePatterns(cfg.IgnorePatterns),
			WithCrawlFollowPatterns(cfg.FollowPatterns),
			WithCrawlLogger(p.logger),
		),
		NewAllocateStep(repo),
		NewConvertStep(repo, convertOpts...),
		NewIndexStep(repo),
	)

	return p
}
