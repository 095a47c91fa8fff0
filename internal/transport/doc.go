// Package transport builds the HTTP clients used for page, robots.txt and
// image requests.
//
// A client can route through a SOCKS5 proxy and can add a cookie and extra
// headers to every request, which allows mirroring documentation that sits
// behind a login.
package transport
