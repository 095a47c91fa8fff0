package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/nao1215/docrepo/internal/model"
)

// Default crawl settings.
const (
	DefaultMaxDepth    = 3
	DefaultDelay       = 500 * time.Millisecond
	DefaultUserAgent   = "DocRepo Crawler"
	DefaultMaxBodySize = 10 * 1024 * 1024
)

// Spider crawls a single site breadth-first.
// It owns the visited set and the FIFO frontier for the duration of a crawl.
//
// A Spider is not safe for concurrent use; create one per crawl.
type Spider struct {
	// client performs the HTTP requests.
	client *http.Client

	// maxDepth limits how deep to crawl from the starting URL.
	// 0 means only the starting page, 1 means one level of links, etc.
	maxDepth int

	// delay is the time to wait after every processed URL.
	delay time.Duration

	// userAgent is the User-Agent header to use.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// gate decides whether robots.txt allows a URL.
	gate Gate

	// ignorePatterns are URL path patterns to skip during crawling.
	// Patterns use glob syntax (e.g., "/admin/*", "*.pdf").
	ignorePatterns []string

	// followPatterns are URL path patterns to follow during crawling.
	// If set, only discovered URLs matching these patterns are enqueued.
	followPatterns []string

	// logger for per-URL progress and failures.
	logger *slog.Logger

	// visited holds every URL a fetch was attempted for.
	visited map[string]bool

	// disallowed holds URLs robots.txt rejected, so each is evaluated once.
	disallowed map[string]bool
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the starting page, 1 = starting page plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithDelay sets the delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithSpiderUserAgent sets a custom User-Agent header.
func WithSpiderUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithSpiderMaxBodySize sets the maximum response body size.
func WithSpiderMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithGate sets the robots.txt gate. The default allows everything.
func WithGate(g Gate) SpiderOption {
	return func(s *Spider) {
		if g != nil {
			s.gate = g
		}
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
// Discovered URLs matching any of these patterns are not enqueued.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only discovered URLs matching at least one pattern are enqueued.
// The seed URL is always crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithSpiderLogger sets the logger.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a new Spider with the given HTTP client.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:      client,
		maxDepth:    DefaultMaxDepth,
		delay:       DefaultDelay,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		gate:        AllowAll{},
		logger:      slog.Default(),
		visited:     make(map[string]bool),
		disallowed:  make(map[string]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Result is the outcome of a crawl.
type Result struct {
	// Pages are the successfully fetched pages in the order they were fetched.
	Pages []*model.Page

	// Failures are URLs that were visited but produced no page.
	Failures []model.FetchFailure

	// Disallowed are URLs robots.txt did not allow, in discovery order.
	Disallowed []string
}

// Crawl fetches seedURL and every same-site page reachable from it within
// the depth limit, breadth-first.
//
// Per-URL failures are recorded in the result and never stop the crawl.
// On cancellation the partial result is returned together with ctx.Err().
func (s *Spider) Crawl(ctx context.Context, seedURL string) (*Result, error) {
	seed, err := model.NormalizeURL(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL %q: %w", seedURL, err)
	}

	result := &Result{
		Pages:      make([]*model.Page, 0),
		Failures:   make([]model.FetchFailure, 0),
		Disallowed: make([]string, 0),
	}
	queue := []model.CrawlTarget{{URL: seed, Depth: 0}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		target := queue[0]
		queue = queue[1:]

		if s.visited[target.URL] || target.Depth > s.maxDepth || s.disallowed[target.URL] {
			continue
		}

		if !s.gate.IsAllowed(target.URL) {
			s.disallowed[target.URL] = true
			result.Disallowed = append(result.Disallowed, target.URL)
			s.logger.Info("skipping URL disallowed by robots.txt", "url", target.URL)
			continue
		}

		s.visited[target.URL] = true
		s.logger.Info("crawling", "url", target.URL, "depth", target.Depth)

		page, links, err := s.fetchPage(ctx, target.URL, seed)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			failure := model.FetchFailure{URL: target.URL, Depth: target.Depth, Reason: err.Error()}
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				failure.StatusCode = statusErr.StatusCode
			}
			result.Failures = append(result.Failures, failure)
			s.logger.Warn("failed to fetch page", "url", target.URL, "error", err)
		} else {
			page.Depth = target.Depth
			result.Pages = append(result.Pages, page)

			if target.Depth < s.maxDepth {
				for _, link := range links {
					if s.visited[link] || s.disallowed[link] || !s.shouldCrawl(link) {
						continue
					}
					queue = append(queue, model.CrawlTarget{URL: link, Depth: target.Depth + 1})
				}
			}
		}

		if err := sleepContext(ctx, s.delay); err != nil {
			return result, err
		}
	}

	return result, nil
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ErrUnsupportedContentType is returned for responses that are not HTML.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// fetchPage fetches a single page and extracts its title and links.
func (s *Spider) fetchPage(ctx context.Context, pageURL, seed string) (*model.Page, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &StatusError{StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, s.maxBodySize), contentType)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode body: %w", err)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read body: %w", err)
	}

	parser, err := NewParser(pageURL, seed)
	if err != nil {
		return nil, nil, err
	}
	parsed, err := parser.Parse(strings.NewReader(string(raw)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := &model.Page{
		URL:         pageURL,
		Title:       parsed.Title,
		HTML:        string(raw),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		FetchedAt:   time.Now(),
	}
	page.ComputeHash()

	return page, parsed.Links, nil
}

// isHTML reports whether a Content-Type header denotes an HTML document.
// A missing header is accepted.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// shouldCrawl checks if a URL should be crawled based on ignore/follow patterns.
//
// Logic:
//  1. If URL matches any ignorePattern, skip it (return false)
//  2. If followPatterns is set and URL matches none, skip it (return false)
//  3. Otherwise, crawl it (return true)
func (s *Spider) shouldCrawl(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(s.followPatterns) > 0 {
		for _, pattern := range s.followPatterns {
			if matchPattern(pattern, path) {
				return true
			}
		}
		return false
	}

	return true
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//   - a trailing "/*" to match everything below a prefix
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users/edit"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}
