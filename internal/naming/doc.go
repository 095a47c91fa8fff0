// Package naming maps URLs to unique, filesystem-safe file names.
//
// Sanitize derives a deterministic base name from a page URL. Allocator and
// ImageAllocator turn base names into unique names: asking twice for the same
// URL returns the same name, while a different URL that sanitizes to a name
// already in use receives a numeric suffix (_1, _2, ...) before the extension.
//
// Both allocators are safe for concurrent use.
package naming
