// Package pipeline sequences a docrepo run.
//
// A run is two phases. The crawl phase fetches every reachable page and
// then allocates a file name for each of them, so that the complete
// URL-to-file map exists before any page is written. The write phase
// converts each page to Markdown, rewrites its links through that map,
// downloads its images and saves it, and finally writes the index.
//
// Each stage is a Step operating on a shared *model.Run. Pipeline.Execute
// runs the steps in order, checks for cancellation between them, and stops
// at the first error.
package pipeline
