package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() while still getting a human-readable message.
var (
	// ErrInvalidURL is returned when the seed URL is not an absolute
	// http or https URL with a host.
	ErrInvalidURL = errors.New("invalid URL: must be an absolute http or https URL with a host")

	// ErrInvalidDepth is returned when the crawl depth is negative.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidDelay is returned when the delay between requests is negative.
	// Use 0 for no delay.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidImageWorkers is returned when the number of concurrent image
	// downloads is not positive.
	ErrInvalidImageWorkers = errors.New("invalid image workers: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 for the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
