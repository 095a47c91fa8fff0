package pipeline

import (
	"context"
	"log/slog"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/docrepo/internal/convert"
	"github.com/nao1215/docrepo/internal/model"
	"github.com/nao1215/docrepo/internal/repository"
)

// imagePass downloads the images referenced by pages and maps their
// sources to local references. Its cache spans the whole run, so each unique
// absolute image URL is downloaded at most once.
type imagePass struct {
	repo    *repository.Repository
	workers int
	logger  *slog.Logger

	// cache maps absolute image URLs to the reference written in the
	// Markdown: a path under images/ or, after a failure, the URL itself.
	cache map[string]string
}

func newImagePass(repo *repository.Repository, workers int, logger *slog.Logger) *imagePass {
	if logger == nil {
		logger = slog.Default()
	}
	return &imagePass{
		repo:    repo,
		workers: workers,
		logger:  logger,
		cache:   make(map[string]string),
	}
}

type imageJob struct {
	url       string
	localPath string
}

// prepare downloads the images of html that are not cached yet. It returns
// the src mapping for ToMarkdown and one record per new image.
//
// Local paths are allocated sequentially in document order before any
// download starts, so names do not depend on download timing.
func (p *imagePass) prepare(ctx context.Context, html, pageURL string) (func(string) string, []model.ImageRecord, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, nil
	}

	srcs, err := convert.ImageSources(html)
	if err != nil {
		return nil, nil, err
	}

	jobs := make([]imageJob, 0)
	records := make([]model.ImageRecord, 0)
	queued := make(map[string]bool)

	for _, src := range srcs {
		abs, ok := resolveImage(base, src)
		if !ok || queued[abs] {
			continue
		}
		if _, cached := p.cache[abs]; cached {
			continue
		}
		queued[abs] = true

		localPath, err := p.repo.AllocateImage(abs)
		if err != nil {
			p.logger.Warn("failed to download image", "url", abs, "error", err)
			p.cache[abs] = abs
			records = append(records, model.ImageRecord{URL: abs, Reference: abs})
			continue
		}
		jobs = append(jobs, imageJob{url: abs, localPath: localPath})
	}

	results := make([]string, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := p.repo.FetchImage(gctx, job.url, job.localPath); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.Warn("failed to download image", "url", job.url, "error", err)
				results[i] = job.url
				return nil
			}
			results[i] = job.localPath
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, records, err
	}

	for i, job := range jobs {
		p.cache[job.url] = results[i]
		records = append(records, model.ImageRecord{
			URL:        job.url,
			Reference:  results[i],
			Downloaded: results[i] == job.localPath,
		})
	}

	resolve := func(src string) string {
		abs, ok := resolveImage(base, src)
		if !ok {
			return src
		}
		if ref, ok := p.cache[abs]; ok {
			return ref
		}
		return src
	}
	return resolve, records, nil
}

// resolveImage resolves src against base and reports whether the result
// is a downloadable http(s) URL. The fragment is dropped.
func resolveImage(base *url.URL, src string) (string, bool) {
	ref, err := url.Parse(src)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if abs.Host == "" {
		return "", false
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String(), true
}
