package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNewClient tests client construction.
func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Timeout != DefaultTimeout {
			t.Errorf("expected timeout %v, got %v", DefaultTimeout, client.Timeout)
		}
		if client.Jar == nil {
			t.Error("expected cookie jar")
		}
	})

	t.Run("custom timeout", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient(WithTimeout(5 * time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Timeout != 5*time.Second {
			t.Errorf("expected 5s, got %v", client.Timeout)
		}
	})

	t.Run("valid proxy address", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient(WithProxy("127.0.0.1:9050"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tr, ok := client.Transport.(*http.Transport)
		if !ok {
			t.Fatalf("unexpected transport type %T", client.Transport)
		}
		if tr.DialContext == nil {
			t.Error("expected proxy dialer")
		}
	})

	t.Run("invalid proxy address", func(t *testing.T) {
		t.Parallel()

		for _, addr := range []string{"localhost", ":9050", "host:0", "host:70000", "host:abc"} {
			if _, err := NewClient(WithProxy(addr)); !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("%q: expected ErrInvalidProxyAddress, got %v", addr, err)
			}
		}
	})
}

// TestHeaderInjection tests that cookies and headers reach the server.
func TestHeaderInjection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "session=abc" || r.Header.Get("X-Docs-Token") != "t0k3n" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := NewClient(
		WithCookie("session=abc"),
		WithHeaders(map[string]string{"X-Docs-Token": "t0k3n"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected injected credentials, got status %d", resp.StatusCode)
	}
}

// TestIsValidProxyAddress tests proxy address validation.
func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:9050", true},
		{"proxy.internal:1080", true},
		{"[::1]:1080", true},
		{"127.0.0.1", false},
		{":1080", false},
		{"host:", false},
		{"host:0", false},
		{"host:65536", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			t.Parallel()

			if got := isValidProxyAddress(tt.addr); got != tt.want {
				t.Errorf("isValidProxyAddress(%q) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}
