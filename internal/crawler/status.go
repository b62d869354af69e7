package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Status is the resolved reachability of a URL.
type Status struct {
	// Valid is true when the probe answered with a status code below 400.
	Valid bool `json:"valid"`

	// Code is the HTTP status code, or 0 when the probe failed in transport.
	Code int `json:"code"`
}

// trustedStatus is returned by the trust shortcut without probing.
var trustedStatus = Status{Valid: true, Code: 200}

// trustedMarkers are path fragments of category listings and pagination,
// which are reachable whenever the site itself is.
var trustedMarkers = []string{"/category/", "/page/"}

// Prober checks whether a URL is reachable without downloading its body.
type Prober interface {
	// Probe returns the HTTP status code of rawURL or a transport error.
	Probe(ctx context.Context, rawURL string) (int, error)
}

// TrustShortcut reports whether rawURL is a category listing or a
// pagination page. Such URLs are classified valid without a probe.
// A marker only counts when a path segment follows it, so a bare
// "/category" or "/page" is probed like any other URL.
func TrustShortcut(rawURL string) bool {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	for _, marker := range trustedMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}

// StatusCache memoizes reachability probes for one scan.
// Entries never expire: a URL's reachability is assumed stable for the
// duration of a scan.
type StatusCache struct {
	prober        Prober
	trustShortcut bool
	logger        *slog.Logger

	mu      sync.RWMutex
	entries map[string]Status

	// group collapses concurrent probes of the same URL into one request.
	group  singleflight.Group
	probes atomic.Int64
}

// StatusCacheOption configures a StatusCache.
type StatusCacheOption func(*StatusCache)

// WithTrustShortcutRule enables or disables the trust shortcut.
func WithTrustShortcutRule(enabled bool) StatusCacheOption {
	return func(c *StatusCache) {
		c.trustShortcut = enabled
	}
}

// WithStatusLogger sets the logger used for probe diagnostics.
func WithStatusLogger(logger *slog.Logger) StatusCacheOption {
	return func(c *StatusCache) {
		c.logger = logger
	}
}

// NewStatusCache creates an empty cache backed by prober.
// The trust shortcut is enabled by default.
func NewStatusCache(prober Prober, opts ...StatusCacheOption) *StatusCache {
	c := &StatusCache{
		prober:        prober,
		trustShortcut: true,
		entries:       make(map[string]Status),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the cached status of u, if any.
func (c *StatusCache) Lookup(u string) (Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[u]
	return s, ok
}

// Record stores the status of u, replacing any previous entry.
func (c *StatusCache) Record(u string, s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[u] = s
}

// Len returns the number of cached entries.
func (c *StatusCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Probes returns how many probes have been sent so far.
func (c *StatusCache) Probes() int64 {
	return c.probes.Load()
}

// Resolve returns the reachability of u.
//
// Trusted URLs short-circuit to 200 without a probe and without touching
// the cache. Otherwise the cached entry is returned, or a probe is sent and
// its outcome cached. A transport failure is cached as {false, 0} and its
// error returned alongside; callers sharing the probe all receive it, and
// later lookups return the cached status with a nil error.
// A probe aborted because ctx was cancelled is not cached and returns no
// error.
func (c *StatusCache) Resolve(ctx context.Context, u string) (Status, error) {
	if c.trustShortcut && TrustShortcut(u) {
		return trustedStatus, nil
	}
	if s, ok := c.Lookup(u); ok {
		return s, nil
	}

	v, err, _ := c.group.Do(u, func() (any, error) {
		if s, ok := c.Lookup(u); ok {
			return s, nil
		}

		c.probes.Add(1)
		code, err := c.prober.Probe(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return Status{}, nil
			}
			c.logger.Debug("probe failed", "url", u, "error", err)
			c.Record(u, Status{})
			return Status{}, err
		}

		s := Status{Valid: code < 400, Code: code}
		c.Record(u, s)
		return s, nil
	})

	return v.(Status), err //nolint:forcetypeassert // the closure always returns Status
}
