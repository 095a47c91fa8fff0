package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/nao1215/docrepo/internal/naming"
)

const (
	// IndexFile is the name of the generated index page.
	IndexFile = "index.md"

	// IndexTitle is the heading of the generated index page.
	IndexTitle = "Documentation Repository Index"

	// DefaultUserAgent is sent with image requests unless overridden.
	DefaultUserAgent = "DocRepo Crawler"
)

// Repository persists Markdown pages and images under an output directory.
// Its methods are safe for concurrent use.
type Repository struct {
	// outputDir is the root of the mirror.
	outputDir string

	// client downloads images.
	client *http.Client

	// userAgent is sent with image requests.
	userAgent string

	// pages maps page URLs to Markdown file names.
	pages *naming.Allocator

	// images maps image URLs to paths under images/.
	images *naming.ImageAllocator

	// logger for image failures.
	logger *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithUserAgent sets the User-Agent header for image downloads.
func WithUserAgent(ua string) Option {
	return func(r *Repository) {
		r.userAgent = ua
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// New creates a Repository rooted at outputDir. Nothing is written until
// Init, Save, FetchImage or BuildIndex is called.
func New(outputDir string, client *http.Client, opts ...Option) *Repository {
	r := &Repository{
		outputDir: outputDir,
		client:    client,
		userAgent: DefaultUserAgent,
		pages:     naming.NewAllocator(IndexFile),
		images:    naming.NewImageAllocator(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// OutputDir returns the root directory of the mirror.
func (r *Repository) OutputDir() string {
	return r.outputDir
}

// Init creates the output directory.
func (r *Repository) Init() error {
	if err := os.MkdirAll(r.outputDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", r.outputDir, err)
	}
	return nil
}

// Allocate returns the Markdown file name for pageURL, assigning it on first use.
func (r *Repository) Allocate(pageURL string) (string, error) {
	return r.pages.Allocate(pageURL)
}

// Lookup returns the file name already assigned to pageURL.
func (r *Repository) Lookup(pageURL string) (string, bool) {
	return r.pages.Lookup(pageURL)
}

// Save writes content for pageURL and returns its file name relative to the
// output directory. Parent directories are created as needed.
func (r *Repository) Save(pageURL, content string) (string, error) {
	name, err := r.pages.Allocate(pageURL)
	if err != nil {
		return "", err
	}
	if err := r.writeFile(name, []byte(content)); err != nil {
		return "", err
	}
	return name, nil
}

// AllocateImage returns the local path (relative to the output directory)
// for imageURL, assigning it on first use. Nothing is downloaded.
func (r *Repository) AllocateImage(imageURL string) (string, error) {
	return r.images.Allocate(imageURL)
}

// FetchImage streams imageURL to localPath under the output directory.
// A partially written file is removed when the download fails.
func (r *Repository) FetchImage(ctx context.Context, imageURL, localPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	path := filepath.Join(r.outputDir, filepath.FromSlash(localPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}

	_, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path) //nolint:errcheck // best effort cleanup
		if copyErr != nil {
			return fmt.Errorf("failed to write image: %w", copyErr)
		}
		return fmt.Errorf("failed to close image file: %w", closeErr)
	}
	return nil
}

// DownloadImage downloads imageURL under images/ and returns the local path.
// On any failure the failure is logged and imageURL itself is returned so
// the Markdown keeps a valid remote reference.
func (r *Repository) DownloadImage(ctx context.Context, imageURL string) string {
	localPath, err := r.AllocateImage(imageURL)
	if err != nil {
		r.logger.Warn("failed to download image", "url", imageURL, "error", err)
		return imageURL
	}
	if err := r.FetchImage(ctx, imageURL, localPath); err != nil {
		r.logger.Warn("failed to download image", "url", imageURL, "error", err)
		return imageURL
	}
	return localPath
}

// BuildIndex writes index.md with one link per URL in titles that has a
// file name, sorted by title (byte order) and then URL. It returns the index
// file name.
func (r *Repository) BuildIndex(titles map[string]string) (string, error) {
	type entry struct {
		url, title, file string
	}

	entries := make([]entry, 0, len(titles))
	for u, title := range titles {
		file, ok := r.pages.Lookup(u)
		if !ok {
			continue
		}
		entries = append(entries, entry{url: u, title: title, file: file})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].title != entries[j].title {
			return entries[i].title < entries[j].title
		}
		return entries[i].url < entries[j].url
	})

	items := make([]string, 0, len(entries))
	for _, e := range entries {
		items = append(items, markdown.Link(escapeLinkText(e.title), e.file))
	}

	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)
	md.H1(IndexTitle)
	md.PlainText("")
	if len(items) > 0 {
		md.BulletList(items...)
	}

	if err := r.writeFile(IndexFile, []byte(md.String()+"\n")); err != nil {
		return "", err
	}
	return IndexFile, nil
}

// writeFile writes data to name relative to the output directory.
func (r *Repository) writeFile(name string, data []byte) error {
	path := filepath.Join(r.outputDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // mirror is shared documentation
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// escapeLinkText escapes characters that would end Markdown link text early.
func escapeLinkText(s string) string {
	return strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`).Replace(s)
}
