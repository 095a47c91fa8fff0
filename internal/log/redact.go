package log

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// Mask replaces every redacted value.
const Mask = "***"

// defaultSensitiveKeys are attribute keys that are always masked.
var defaultSensitiveKeys = []string{
	"cookie",
	"set-cookie",
	"authorization",
	"proxy-authorization",
	"x-api-key",
	"password",
	"token",
}

// sensitiveParams are URL query parameters whose values are masked.
var sensitiveParams = map[string]bool{
	"token":        true,
	"access_token": true,
	"api_key":      true,
	"apikey":       true,
	"key":          true,
	"password":     true,
	"secret":       true,
	"sig":          true,
	"signature":    true,
}

var (
	authValuePattern = regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`)
	urlPattern       = regexp.MustCompile(`https?://[^\s"'<>]+`)
)

// RedactHandler wraps an slog.Handler and masks credentials in attributes
// before passing records on.
type RedactHandler struct {
	handler slog.Handler
	keys    map[string]bool
}

// NewRedactHandler wraps handler. extraKeys are masked in addition to the
// built-in credential keys; matching is case-insensitive.
// If handler is nil, slog.Default().Handler() is used.
func NewRedactHandler(handler slog.Handler, extraKeys ...string) *RedactHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	keys := make(map[string]bool, len(defaultSensitiveKeys)+len(extraKeys))
	for _, k := range defaultSensitiveKeys {
		keys[k] = true
	}
	for _, k := range extraKeys {
		keys[strings.ToLower(k)] = true
	}
	return &RedactHandler{handler: handler, keys: keys}
}

// Enabled delegates to the wrapped handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and forwards it.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, redactText(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

// WithAttrs masks attrs before attaching them.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &RedactHandler{handler: h.handler.WithAttrs(redacted), keys: h.keys}
}

// WithGroup returns a handler that nests attributes under name.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{handler: h.handler.WithGroup(name), keys: h.keys}
}

func (h *RedactHandler) redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		redacted := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			redacted[i] = h.redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	}

	if h.keys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, Mask)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if authValuePattern.MatchString(s) {
			return slog.String(a.Key, Mask)
		}
		if r := redactText(s); r != s {
			return slog.String(a.Key, r)
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			s := err.Error()
			if r := redactText(s); r != s {
				return slog.String(a.Key, r)
			}
		}
	}
	return a
}

// redactText masks credentials in every URL found in s.
func redactText(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	return urlPattern.ReplaceAllStringFunc(s, RedactURL)
}

// RedactURL masks the userinfo password and credential query parameters of
// raw. Values that do not parse as URLs are returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	changed := false
	if u.User != nil {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), Mask)
			changed = true
		}
	}

	if u.RawQuery != "" {
		q := u.Query()
		masked := false
		for name := range q {
			if sensitiveParams[strings.ToLower(name)] {
				q.Set(name, Mask)
				masked = true
			}
		}
		if masked {
			u.RawQuery = q.Encode()
			changed = true
		}
	}

	if !changed {
		return raw
	}
	// url.URL.String escapes the mask; keep it readable.
	return strings.ReplaceAll(u.String(), url.QueryEscape(Mask), Mask)
}
