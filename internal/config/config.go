package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "docrepo"

	// DefaultOutputDir is where the mirror is written.
	DefaultOutputDir = "docrepo"

	// DefaultMaxDepth is the number of link hops followed from the seed.
	DefaultMaxDepth = 3

	// DefaultDelay is the pause after every processed URL.
	DefaultDelay = 500 * time.Millisecond

	// DefaultUserAgent identifies the crawler in HTTP requests and is the
	// token robots.txt rules are fetched with.
	DefaultUserAgent = "DocRepo Crawler"

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize limits how much of a page body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultImageWorkers is the number of concurrent image downloads.
	DefaultImageWorkers = 4
)

// Config holds all configuration options for a run.
// It is populated from CLI flags and the site file and passed explicitly
// to the components that need it.
type Config struct {
	// SeedURL is the page the crawl starts from.
	SeedURL string

	// OutputDir is the directory the mirror is written to.
	OutputDir string

	// MaxDepth is the maximum number of link hops from the seed.
	// 0 means only the seed page is fetched.
	MaxDepth int

	// Delay is the pause after every processed URL, successful or not.
	Delay time.Duration

	// RespectRobots enables robots.txt enforcement.
	RespectRobots bool

	// DownloadImages enables downloading images into images/.
	DownloadImages bool

	// ImageWorkers is the number of concurrent image downloads.
	ImageWorkers int

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxBodySize is the maximum page body size in bytes. 0 means the default.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// Verbose enables debug logging.
	Verbose bool

	// JSONReport prints the run summary as JSON.
	JSONReport bool

	// ConfigFilePath is the path to the site file.
	// If empty, .docrepo is searched in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds the loaded site file, if any.
	SiteConfigs *File

	// DBDir is the directory of the run manifest database.
	// Defaults to the XDG data directory (~/.local/share/docrepo on Linux).
	DBDir string

	// SaveToDB enables recording the run in the manifest database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		OutputDir:      DefaultOutputDir,
		MaxDepth:       DefaultMaxDepth,
		Delay:          DefaultDelay,
		RespectRobots:  true,
		DownloadImages: true,
		ImageWorkers:   DefaultImageWorkers,
		UserAgent:      DefaultUserAgent,
		Timeout:        DefaultTimeout,
		MaxBodySize:    DefaultMaxBodySize,
		DBDir:          XDGDataDir(),
		SaveToDB:       true,
	}
}

// XDGDataDir returns the XDG data directory for docrepo.
// On Linux: ~/.local/share/docrepo
// On macOS: ~/Library/Application Support/docrepo
// On Windows: %LOCALAPPDATA%\docrepo
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for docrepo.
// On Linux: ~/.config/docrepo
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// EffectiveMaxBodySize returns MaxBodySize, or the default when it is 0.
func (c *Config) EffectiveMaxBodySize() int64 {
	if c.MaxBodySize == 0 {
		return DefaultMaxBodySize
	}
	return c.MaxBodySize
}

// SeedHost returns the host (with port, if any) of the seed URL.
func (c *Config) SeedHost() string {
	u, err := url.Parse(c.SeedURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if !isValidSeedURL(c.SeedURL) {
		return ErrInvalidURL
	}

	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.ImageWorkers <= 0 {
		return ErrInvalidImageWorkers
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}

// isValidSeedURL reports whether raw is an absolute http(s) URL with a host.
func isValidSeedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Hostname() != ""
}
