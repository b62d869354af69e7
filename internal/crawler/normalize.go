package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// schemePrefix matches an explicit "scheme://" at the start of a raw URL.
var schemePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// Normalize canonicalizes raw into the form used for every set membership
// test in a scan.
//
// When base is empty, a raw value without a scheme is treated as
// "http://" + raw. When base is set, raw is resolved against it as a
// relative reference. The result has no query, no fragment and no trailing
// slash on its path, and its scheme and host are lower-cased.
// Normalizing an already normalized URL returns it unchanged.
func Normalize(raw, base string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty string", ErrInvalidURL)
	}

	var u *url.URL
	if base != "" {
		b, err := url.Parse(strings.TrimSpace(base))
		if err != nil || b.Host == "" {
			return "", fmt.Errorf("%w: bad base %q", ErrInvalidURL, base)
		}
		ref, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %w", ErrInvalidURL, raw, err)
		}
		u = b.ResolveReference(ref)
	} else {
		if !schemePrefix.MatchString(raw) {
			raw = "http://" + raw
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %w", ErrInvalidURL, raw, err)
		}
		u = parsed
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Opaque != "" || u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}

	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")

	return u.String(), nil
}

// SameAuthority reports whether a and b share scheme and host[:port].
// Unparsable input never matches.
func SameAuthority(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Host != "" &&
		strings.EqualFold(ua.Scheme, ub.Scheme) &&
		strings.EqualFold(ua.Host, ub.Host)
}

// Host returns the host[:port] of a normalized URL, or "" when it cannot be
// parsed.
func Host(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return ""
	}
	return u.Host
}
