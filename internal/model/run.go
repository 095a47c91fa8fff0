package model

import (
	"sort"
	"time"
)

// WrittenPage records a Markdown file produced for a crawled page.
type WrittenPage struct {
	// URL is the normalized page URL.
	URL string `json:"url"`

	// Title is the page title used in the front matter and the index.
	Title string `json:"title"`

	// Depth is the crawl depth of the page.
	Depth int `json:"depth"`

	// Filename is the file name relative to the output directory.
	Filename string `json:"filename"`

	// Hash is the SHA-256 of the fetched HTML, so runs can be compared.
	Hash string `json:"hash,omitempty"`
}

// ImageRecord records the outcome of one image download.
type ImageRecord struct {
	// URL is the absolute remote image URL.
	URL string `json:"url"`

	// Reference is what the Markdown now points to: a path under images/
	// when the download succeeded, the remote URL otherwise.
	Reference string `json:"reference"`

	// Downloaded reports whether the image was stored locally.
	Downloaded bool `json:"downloaded"`
}

// Run is the state shared by the pipeline steps for a single crawl.
// Steps append to it in order; nothing is removed.
type Run struct {
	// SeedURL is the normalized starting URL.
	SeedURL string

	// OutputDir is the directory the repository is written to.
	OutputDir string

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time

	// Pages are the fetched pages in crawl (breadth-first) order.
	Pages []*Page

	// Failures are visited URLs that produced no page.
	Failures []FetchFailure

	// Disallowed are URLs skipped because robots.txt disallows them.
	Disallowed []string

	// RobotsWarning is set when robots.txt could not be loaded and the
	// gate failed open.
	RobotsWarning string

	// Written are the Markdown files saved, in crawl order.
	Written []WrittenPage

	// Images are the image references handled by the image pass.
	Images []ImageRecord

	// IndexFile is the index file name relative to OutputDir.
	IndexFile string

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string

	// Error is the error that stopped the pipeline, if any.
	Error error `json:"-"`
}

// NewRun creates a Run for the given seed URL and output directory.
func NewRun(seedURL, outputDir string) *Run {
	return &Run{
		SeedURL:   seedURL,
		OutputDir: outputDir,
		StartedAt: time.Now(),
	}
}

// TitlesByURL returns the URL to title mapping of all fetched pages.
func (r *Run) TitlesByURL() map[string]string {
	titles := make(map[string]string, len(r.Pages))
	for _, p := range r.Pages {
		titles[p.URL] = p.Title
	}
	return titles
}

// DownloadedImages returns the number of images stored locally.
func (r *Run) DownloadedImages() int {
	n := 0
	for _, img := range r.Images {
		if img.Downloaded {
			n++
		}
	}
	return n
}

// RunStatus describes how a run ended.
type RunStatus string

const (
	// RunStatusComplete means every step finished.
	RunStatusComplete RunStatus = "complete"

	// RunStatusEmpty means the crawl captured no pages.
	RunStatusEmpty RunStatus = "empty"

	// RunStatusCancelled means the run was interrupted.
	RunStatusCancelled RunStatus = "cancelled"

	// RunStatusFailed means a step returned an error.
	RunStatusFailed RunStatus = "failed"
)

// RunSummary is a serializable digest of a Run.
// It is what the report writers print and what the manifest database stores.
type RunSummary struct {
	SeedURL          string         `json:"seed_url"`
	OutputDir        string         `json:"output_dir"`
	StartedAt        time.Time      `json:"started_at"`
	FinishedAt       time.Time      `json:"finished_at"`
	Status           RunStatus      `json:"status"`
	Error            string         `json:"error,omitempty"`
	PagesCrawled     int            `json:"pages_crawled"`
	PagesFailed      int            `json:"pages_failed"`
	PagesDisallowed  int            `json:"pages_disallowed"`
	ImagesDownloaded int            `json:"images_downloaded"`
	ImagesFailed     int            `json:"images_failed"`
	IndexFile        string         `json:"index_file,omitempty"`
	RobotsWarning    string         `json:"robots_warning,omitempty"`
	Pages            []WrittenPage  `json:"pages"`
	Failures         []FetchFailure `json:"failures,omitempty"`
}

// NewRunSummary builds a RunSummary from a Run and the status it ended with.
func NewRunSummary(r *Run, status RunStatus) *RunSummary {
	s := &RunSummary{
		SeedURL:          r.SeedURL,
		OutputDir:        r.OutputDir,
		StartedAt:        r.StartedAt,
		FinishedAt:       r.FinishedAt,
		Status:           status,
		PagesCrawled:     len(r.Pages),
		PagesFailed:      len(r.Failures),
		PagesDisallowed:  len(r.Disallowed),
		ImagesDownloaded: r.DownloadedImages(),
		ImagesFailed:     len(r.Images) - r.DownloadedImages(),
		IndexFile:        r.IndexFile,
		RobotsWarning:    r.RobotsWarning,
		Pages:            append([]WrittenPage(nil), r.Written...),
		Failures:         append([]FetchFailure(nil), r.Failures...),
	}
	if r.Error != nil {
		s.Error = r.Error.Error()
	}
	if s.FinishedAt.IsZero() {
		s.FinishedAt = time.Now()
	}
	return s
}

// Duration returns how long the run took.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// SortedPages returns the written pages ordered by title, then URL.
func (s *RunSummary) SortedPages() []WrittenPage {
	pages := append([]WrittenPage(nil), s.Pages...)
	sort.SliceStable(pages, func(i, j int) bool {
		if pages[i].Title != pages[j].Title {
			return pages[i].Title < pages[j].Title
		}
		return pages[i].URL < pages[j].URL
	})
	return pages
}
