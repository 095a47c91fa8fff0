package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultTimeout is the per-request timeout when none is configured.
const DefaultTimeout = 30 * time.Second

// maxRedirects limits redirect chains.
const maxRedirects = 10

// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
var ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

// options collects client settings.
type options struct {
	timeout      time.Duration
	proxyAddress string
	cookie       string
	headers      map[string]string
}

// Option configures a client built by NewClient.
type Option func(*options)

// WithTimeout sets the overall per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithProxy routes all connections through the SOCKS5 proxy at host:port.
// An empty address disables the proxy.
func WithProxy(address string) Option {
	return func(o *options) {
		o.proxyAddress = address
	}
}

// WithCookie sends a raw Cookie header (e.g. "session=abc") with every request.
func WithCookie(cookie string) Option {
	return func(o *options) {
		o.cookie = cookie
	}
}

// WithHeaders sends extra headers with every request.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		o.headers = headers
	}
}

// NewClient creates an HTTP client.
//
// The proxy address is validated but the proxy is not contacted.
func NewClient(opts ...Option) (*http.Client, error) {
	o := &options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(o)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}

	if o.proxyAddress != "" {
		if !isValidProxyAddress(o.proxyAddress) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, o.proxyAddress)
		}
		dialer, err := proxy.SOCKS5("tcp", o.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = dialContext(dialer)
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	client := &http.Client{
		Transport: transport,
		Timeout:   o.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	if o.cookie != "" || len(o.headers) > 0 {
		client.Transport = &headerInjectingTransport{
			base:    transport,
			cookie:  o.cookie,
			headers: o.headers,
		}
	}

	return client, nil
}

// dialContext adapts a proxy.Dialer to http.Transport.DialContext.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}

// isValidProxyAddress reports whether address is host:port with a port in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}

	return t.base.RoundTrip(clone)
}
