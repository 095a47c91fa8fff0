package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// UntitledPage is the title used when a page has no usable <title> element.
const UntitledPage = "Untitled Page"

// CrawlTarget is an entry in the crawl frontier.
// It is created when a link is discovered (or for the seed) and discarded
// once it has been dequeued.
type CrawlTarget struct {
	// URL is the normalized absolute URL to visit.
	URL string

	// Depth is the number of link hops from the seed URL. The seed has depth 0.
	Depth int
}

// Page represents a successfully fetched HTML page.
// A Page is created once per URL and is not modified after the crawl.
type Page struct {
	// URL is the normalized absolute URL of the page.
	URL string `json:"url"`

	// Depth is the depth at which the page was first reached.
	Depth int `json:"depth"`

	// Title is the text of the first <title> element, or UntitledPage.
	Title string `json:"title"`

	// HTML is the response body decoded to UTF-8.
	HTML string `json:"-"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the Content-Type response header.
	ContentType string `json:"content_type,omitempty"`

	// FetchedAt is the time the response was received.
	FetchedAt time.Time `json:"fetched_at"`

	// Hash is the SHA-256 hash of the HTML body.
	Hash string `json:"hash"`
}

// ComputeHash calculates and sets the SHA-256 hash of the page body.
func (p *Page) ComputeHash() {
	if len(p.HTML) == 0 {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256([]byte(p.HTML))
	p.Hash = hex.EncodeToString(hash[:])
}

// FetchFailure records a URL that was visited but did not produce a Page.
type FetchFailure struct {
	// URL is the normalized URL that failed.
	URL string `json:"url"`

	// Depth is the depth at which the URL was dequeued.
	Depth int `json:"depth"`

	// StatusCode is the HTTP status, or 0 for transport errors.
	StatusCode int `json:"status_code,omitempty"`

	// Reason is a human-readable description of the failure.
	Reason string `json:"reason"`
}
