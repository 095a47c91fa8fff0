// Package database stores the docrepo run manifest in SQLite.
//
// Each completed (or interrupted) run is recorded with its seed URL,
// output directory, timestamps, status and counters, together with the
// pages it wrote and the URLs that failed. The manifest is an audit log
// read by the history command; the crawler never consults it.
//
// The driver is modernc.org/sqlite, a CGO-free SQLite implementation, so
// the database is a single file in the XDG data directory.
package database
