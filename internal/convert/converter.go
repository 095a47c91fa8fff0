package convert

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/docrepo/internal/model"
)

// LinkResolver maps a normalized page URL to its local file name.
// naming.Allocator satisfies it.
type LinkResolver interface {
	Lookup(pageURL string) (string, bool)
}

// Converter converts HTML to Markdown and points links between crawled
// pages at their local files.
type Converter struct {
	links LinkResolver
	conv  *converter.Converter
}

// NewConverter creates a Converter that rewrites links found in links.
func NewConverter(links LinkResolver) *Converter {
	return &Converter{
		links: links,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// ToMarkdown converts the HTML of the page at pageURL to Markdown.
//
// Each anchor is resolved against pageURL; when the resolved URL without its
// fragment has a local file, the link target becomes that file (keeping the
// fragment). Every other link is left exactly as written. Output is not
// hard-wrapped and tables are kept as Markdown tables. Image sources are
// only changed through WithImageRewriter.
func (c *Converter) ToMarkdown(html, pageURL string, opts ...PageOption) (string, error) {
	var o pageOptions
	for _, opt := range opts {
		opt(&o)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	doc, err := parseContent(html)
	if err != nil {
		return "", err
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if target, ok := c.localTarget(base, href); ok {
			s.SetAttr("href", target)
		}
	})
	if o.rewriteImage != nil {
		rewriteImages(doc, o.rewriteImage)
	}

	rewritten, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}

	markdown, err := c.conv.ConvertString(rewritten)
	if err != nil {
		return "", fmt.Errorf("failed to convert to Markdown: %w", err)
	}
	return strings.TrimSpace(markdown) + "\n", nil
}

// localTarget returns the local file for href, with its fragment, if the
// page it points to was crawled.
func (c *Converter) localTarget(base *url.URL, href string) (string, bool) {
	if c.links == nil {
		return "", false
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)

	normalized, err := model.NormalizeParsed(abs)
	if err != nil {
		return "", false
	}

	name, ok := c.links.Lookup(normalized)
	if !ok {
		return "", false
	}
	if fragment := abs.EscapedFragment(); fragment != "" {
		name += "#" + fragment
	}
	return name, true
}
