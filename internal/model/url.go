package model

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

// ErrNotAbsoluteURL is returned when a URL lacks a scheme or host.
var ErrNotAbsoluteURL = errors.New("url must be absolute with scheme and host")

// defaultPorts maps schemes to the port that is implied when none is given.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// NormalizeURL returns the canonical form of an absolute URL.
//
// The fragment is removed, scheme and host are lowercased, a port equal to
// the scheme's default is dropped and an empty path becomes "/".
// NormalizeURL is idempotent: NormalizeURL(NormalizeURL(u)) == NormalizeURL(u).
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	return normalize(u)
}

// NormalizeParsed is NormalizeURL for an already parsed URL.
// The argument is not modified.
func NormalizeParsed(u *url.URL) (string, error) {
	clone := *u
	return normalize(&clone)
}

func normalize(u *url.URL) (string, error) {
	if u.Scheme == "" || u.Host == "" {
		return "", ErrNotAbsoluteURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if host, port, err := net.SplitHostPort(u.Host); err == nil {
		if defaultPorts[u.Scheme] == port {
			if strings.Contains(host, ":") {
				host = "[" + host + "]"
			}
			u.Host = host
		}
	}

	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
		u.RawPath = ""
	}

	return u.String(), nil
}

// Authority returns scheme://host[:port] of a normalized URL, the unit used
// for same-site filtering.
func Authority(rawURL string) (string, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", err
	}
	return u.Scheme + "://" + u.Host, nil
}
