package convert

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageOption configures a single ToMarkdown call.
type PageOption func(*pageOptions)

type pageOptions struct {
	rewriteImage func(src string) string
}

// WithImageRewriter replaces the src of every <img> with rewrite(src)
// before conversion. Returning src unchanged keeps the reference.
func WithImageRewriter(rewrite func(src string) string) PageOption {
	return func(o *pageOptions) {
		o.rewriteImage = rewrite
	}
}

// ImageSources returns the src of every <img> that ToMarkdown would keep,
// in document order. Empty sources are skipped; duplicates are kept.
func ImageSources(html string) ([]string, error) {
	doc, err := parseContent(html)
	if err != nil {
		return nil, err
	}

	srcs := make([]string, 0)
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if src := imageSource(s); src != "" {
			srcs = append(srcs, src)
		}
	})
	return srcs, nil
}

// rewriteImages applies rewrite to the img elements of doc.
func rewriteImages(doc *goquery.Document, rewrite func(string) string) {
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src := imageSource(s)
		if src == "" {
			return
		}
		if target := rewrite(src); target != src {
			s.SetAttr("src", target)
		}
	})
}

func imageSource(s *goquery.Selection) string {
	return strings.TrimSpace(s.AttrOr("src", ""))
}

// parseContent parses html and drops the elements that never reach the
// Markdown output.
func parseContent(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("head, script, style, noscript, template").Remove()
	return doc, nil
}
