// Package convert turns crawled HTML pages into Markdown documents.
//
// Conversion is the second phase of a run: every crawled URL already has a
// file name, so links between crawled pages can be rewritten to local files
// no matter in which order the pages were fetched.
//
// Links and image sources are rewritten on the parsed DOM before
// conversion, so the Markdown text is never scanned. Image downloads are
// owned by the caller: it collects ImageSources first and passes the
// resulting mapping to ToMarkdown with WithImageRewriter.
package convert
