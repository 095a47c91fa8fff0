package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/temoto/robotstxt"
)

// ErrRobotsUnavailable is returned when robots.txt could not be loaded or
// parsed. The gate returned alongside it allows every URL.
var ErrRobotsUnavailable = errors.New("robots.txt unavailable")

// robotsAgent is the user-agent token rules are evaluated for.
// Only the wildcard group applies to the crawler.
const robotsAgent = "*"

// maxRobotsBodySize limits how much of robots.txt is read.
const maxRobotsBodySize = 512 * 1024

// Gate decides whether a URL may be fetched.
type Gate interface {
	IsAllowed(rawURL string) bool
}

// AllowAll is a Gate that permits every URL.
// It is used when robots.txt enforcement is disabled.
type AllowAll struct{}

// IsAllowed always returns true.
func (AllowAll) IsAllowed(string) bool { return true }

// RobotsGate evaluates the robots.txt rules of a single site.
// A RobotsGate whose rules could not be loaded allows everything.
type RobotsGate struct {
	data *robotstxt.RobotsData
}

// LoadRobots fetches /robots.txt for the authority of siteURL.
//
// Unreachable hosts, non-2xx responses and unparseable bodies never abort the
// crawl: a permissive gate is returned together with an error wrapping
// ErrRobotsUnavailable so the caller can warn once.
func LoadRobots(ctx context.Context, client *http.Client, siteURL, userAgent string) (*RobotsGate, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return &RobotsGate{}, fmt.Errorf("%w: %w", ErrRobotsUnavailable, err)
	}
	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if err != nil {
		return &RobotsGate{}, fmt.Errorf("%w: %w", ErrRobotsUnavailable, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return &RobotsGate{}, fmt.Errorf("%w: %w", ErrRobotsUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RobotsGate{}, fmt.Errorf("%w: %s returned HTTP %d", ErrRobotsUnavailable, robotsURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodySize))
	if err != nil {
		return &RobotsGate{}, fmt.Errorf("%w: %w", ErrRobotsUnavailable, err)
	}

	return ParseRobots(string(body))
}

// ParseRobots builds a gate from robots.txt content.
func ParseRobots(content string) (*RobotsGate, error) {
	data, err := robotstxt.FromString(content)
	if err != nil {
		return &RobotsGate{}, fmt.Errorf("%w: %w", ErrRobotsUnavailable, err)
	}
	return &RobotsGate{data: data}, nil
}

// IsAllowed reports whether rawURL may be fetched.
func (g *RobotsGate) IsAllowed(rawURL string) bool {
	if g == nil || g.data == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return g.data.TestAgent(u.RequestURI(), robotsAgent)
}
