// Package model defines the core data structures shared by the docrepo
// pipeline.
//
// This package contains the following main types:
//   - CrawlTarget: A URL waiting in the crawl frontier together with its depth
//   - Page: A successfully fetched HTML page (the page record)
//   - FetchFailure: A URL that was visited but produced no page
//   - Run: The mutable state threaded through the pipeline steps
//   - RunSummary: A serializable digest of a finished run
//
// URL helpers (NormalizeURL, Authority) live here as well
// because the crawler, the filename allocator and the converter must all
// agree on what "the same URL" means.
package model
