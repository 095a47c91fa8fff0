package config

// SiteConfig holds settings for a single site.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent with every request to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the crawl depth for this site. Nil means not set,
	// so an explicit 0 (seed page only) can be expressed.
	Depth *int `yaml:"depth,omitempty"`

	// IgnorePatterns are URL path globs that are never enqueued.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path globs; if set, only matching links are enqueued.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .docrepo site file.
type File struct {
	// Sites maps hosts to their site-specific configurations.
	// Keys are the host as it appears in the URL, with a port if one is
	// used (e.g., "docs.example.com" or "localhost:8080").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to all sites unless overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host, merged over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		if siteConfig.Depth != nil {
			result.Depth = siteConfig.Depth
		}
		if len(siteConfig.Headers) > 0 {
			merged := make(map[string]string, len(result.Headers)+len(siteConfig.Headers))
			for k, v := range result.Headers {
				merged[k] = v
			}
			for k, v := range siteConfig.Headers {
				merged[k] = v
			}
			result.Headers = merged
		}
		if len(siteConfig.IgnorePatterns) > 0 {
			result.IgnorePatterns = siteConfig.IgnorePatterns
		}
		if len(siteConfig.FollowPatterns) > 0 {
			result.FollowPatterns = siteConfig.FollowPatterns
		}
	}

	return result
}
