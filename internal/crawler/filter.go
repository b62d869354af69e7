package crawler

import (
	"net/url"
	"strings"
)

// DefaultExcludePaths are the path substrings skipped on every scan unless
// the configuration replaces them. They cover the WordPress API, feed and
// admin endpoints that never lead to new HTML pages.
var DefaultExcludePaths = []string{"wp-json", "feed", "wp-admin", "xmlrpc.php", "oembed"}

// excludedExtensions lists path suffixes of resources that are not HTML.
var excludedExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".ico",
	".css", ".js", ".pdf", ".svg",
}

// excludedSchemes lists prefixes of links that cannot be fetched.
var excludedSchemes = []string{"javascript:", "mailto:", "tel:", "#", "data:"}

// IsExcluded reports whether a candidate link must be dropped before it
// reaches the frontier. A link is excluded when it contains any of the
// given path substrings, when its path ends with a non-HTML extension, or
// when it starts with a non-fetchable scheme.
func IsExcluded(candidate string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern != "" && strings.Contains(candidate, pattern) {
			return true
		}
	}

	trimmed := strings.ToLower(strings.TrimSpace(candidate))
	for _, scheme := range excludedSchemes {
		if strings.HasPrefix(trimmed, scheme) {
			return true
		}
	}

	path := trimmed
	if u, err := url.Parse(trimmed); err == nil {
		path = u.Path
	}
	for _, ext := range excludedExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	return false
}
