// Package config provides the configuration for a docrepo run: crawl limits,
// politeness settings, output locations and per-site overrides loaded from a
// YAML file.
package config
