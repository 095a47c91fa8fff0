package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/docrepo/internal/model"
)

// Parser extracts the title and same-site links from an HTML page.
//
// golang.org/x/net/html is used instead of regular expressions because it
// copes with the malformed markup that is common on the web.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL

	// scope is the authority (scheme://host[:port]) links must share to be kept.
	scope string
}

// ParseResult contains the information extracted from an HTML page.
type ParseResult struct {
	// Title is the text of the first <title> element, or model.UntitledPage.
	Title string

	// Links are normalized absolute URLs within the scope, in document order.
	// Duplicates are kept; deduplication is the frontier's job.
	Links []string
}

// NewParser creates a parser for the page at pageURL.
// Only links sharing the authority of scopeURL are returned; an empty
// scopeURL uses the page's own authority.
func NewParser(pageURL, scopeURL string) (*Parser, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	if scopeURL == "" {
		scopeURL = pageURL
	}
	scope, err := model.Authority(scopeURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u, scope: scope}, nil
}

// Parse parses HTML content and extracts the title and links.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{Links: make([]string, 0)}
	titleFound := false

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Namespace == "" {
			switch n.DataAtom {
			case atom.Title:
				if !titleFound {
					titleFound = true
					result.Title = collapseSpace(textContent(n))
				}
			case atom.A:
				if href, ok := getAttr(n, "href"); ok {
					if link := p.resolveURL(href); link != "" {
						result.Links = append(result.Links, link)
					}
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if result.Title == "" {
		result.Title = model.UntitledPage
	}

	return result, nil
}

// resolveURL resolves href against the page URL, normalizes it and checks
// the scope. It returns "" for anything that should be skipped.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	normalized, err := model.NormalizeParsed(p.baseURL.ResolveReference(ref))
	if err != nil {
		return ""
	}

	auth, err := model.Authority(normalized)
	if err != nil || auth != p.scope {
		return ""
	}
	return normalized
}

// textContent concatenates the text nodes below n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
