package config

import (
	"maps"
	"net"
	"strings"
)

// SiteConfig holds overrides for one site, or the defaults for all sites.
// Pointer fields distinguish "not set" from a zero value.
type SiteConfig struct {
	// Depth overrides the crawl depth.
	Depth *int `yaml:"depth,omitempty"`

	// MaxPages overrides the pagination bound.
	MaxPages *int `yaml:"maxPages,omitempty"`

	// ExcludePaths replaces the exclude path substrings.
	ExcludePaths []string `yaml:"excludePaths,omitempty"`

	// Headers are extra HTTP headers sent to the site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Cookie is sent as the Cookie header.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	UserAgent     string `yaml:"userAgent,omitempty"`
	VerifySSL     *bool  `yaml:"verifySSL,omitempty"`
	TrustShortcut *bool  `yaml:"trustShortcut,omitempty"`
	Concurrency   *int   `yaml:"concurrency,omitempty"`
}

// File represents the structure of the .webspectre configuration file.
type File struct {
	// Sites maps a host or host:port to its overrides.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the defaults merged with the entry for host.
// host may carry a port; an entry for host:port wins over one for the
// bare host name. Keys are matched case-insensitively.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	site, ok := cf.lookup(host)
	if !ok {
		return result
	}

	if site.Depth != nil {
		result.Depth = site.Depth
	}
	if site.MaxPages != nil {
		result.MaxPages = site.MaxPages
	}
	if len(site.ExcludePaths) > 0 {
		result.ExcludePaths = site.ExcludePaths
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if site.VerifySSL != nil {
		result.VerifySSL = site.VerifySSL
	}
	if site.TrustShortcut != nil {
		result.TrustShortcut = site.TrustShortcut
	}
	if site.Concurrency != nil {
		result.Concurrency = site.Concurrency
	}
	return result
}

func (cf *File) lookup(host string) (SiteConfig, bool) {
	host = strings.ToLower(host)
	candidates := []string{host}
	if h, _, err := net.SplitHostPort(host); err == nil {
		candidates = append(candidates, h)
	}
	for _, c := range candidates {
		for key, site := range cf.Sites {
			if strings.EqualFold(key, c) {
				return site, true
			}
		}
	}
	return SiteConfig{}, false
}
