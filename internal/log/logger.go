package log

import (
	"io"
	"log/slog"
)

type options struct {
	verbose   bool
	json      bool
	extraKeys []string
}

// Option configures NewLogger.
type Option func(*options)

// WithVerbose lowers the level from Warn to Debug.
func WithVerbose(verbose bool) Option {
	return func(o *options) {
		o.verbose = verbose
	}
}

// WithJSON switches the output from text to JSON lines.
func WithJSON(json bool) Option {
	return func(o *options) {
		o.json = json
	}
}

// WithRedactedKeys masks additional attribute keys, typically the custom
// header names configured for a site.
func WithRedactedKeys(keys ...string) Option {
	return func(o *options) {
		o.extraKeys = append(o.extraKeys, keys...)
	}
}

// NewLogger creates a logger writing to w. The level is Warn, or Debug
// when verbose; all output passes through a RedactHandler.
func NewLogger(w io.Writer, opts ...Option) *slog.Logger {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if o.json {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(NewRedactHandler(handler, o.extraKeys...))
}
