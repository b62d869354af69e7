package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"maps"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultUserAgent is sent with every request unless overridden.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// DefaultTimeout bounds a page fetch.
	DefaultTimeout = 15 * time.Second

	// DefaultProbeTimeout bounds a reachability probe.
	DefaultProbeTimeout = 10 * time.Second

	// DefaultMaxBodySize caps how much of a page is read.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024

	// maxRedirects is the redirect limit for both fetches and probes.
	maxRedirects = 10
)

// Client is the HTTP side of a scan. It implements both the page fetcher
// and the reachability prober the crawl engine depends on.
type Client struct {
	httpClient *http.Client

	timeout      time.Duration
	probeTimeout time.Duration
	maxBodySize  int64
	verifySSL    bool
	proxyAddress string
	userAgent    string
	headers      map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the page fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithProbeTimeout sets the probe timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.probeTimeout = d
	}
}

// WithVerifySSL enables or disables TLS certificate verification.
func WithVerifySSL(verify bool) Option {
	return func(c *Client) {
		c.verifySSL = verify
	}
}

// WithProxy routes every connection through a proxy.
// A bare "host:port" or a "socks5://" URL selects a SOCKS5 proxy;
// "http://" and "https://" URLs select an HTTP CONNECT proxy.
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = strings.TrimSpace(address)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHeaders adds headers to every request. They override the defaults.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = maps.Clone(headers)
	}
}

// WithMaxBodySize sets the largest page body that is read.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		c.maxBodySize = n
	}
}

// NewClient creates a Client. It fails only when the proxy setting is invalid;
// it does not contact the proxy.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		timeout:      DefaultTimeout,
		probeTimeout: DefaultProbeTimeout,
		maxBodySize:  DefaultMaxBodySize,
		verifySSL:    true,
		userAgent:    DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !c.verifySSL, //nolint:gosec // user opt-in via --no-verify
		},
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if c.proxyAddress != "" {
		if err := configureProxy(transport, c.proxyAddress); err != nil {
			return nil, err
		}
	}

	c.httpClient = &http.Client{
		Transport: &headerInjectingTransport{
			base:    transport,
			headers: c.headers,
		},
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return c, nil
}

// configureProxy points transport at the proxy described by address.
func configureProxy(transport *http.Transport, address string) error {
	if !strings.Contains(address, "://") {
		address = "socks5://" + address
	}
	u, err := url.Parse(address)
	if err != nil || !isValidProxyAddress(u.Host) {
		return fmt.Errorf("%w: %q", ErrInvalidProxy, address)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
		return nil
	case "socks5", "socks5h":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}

	var auth *proxy.Auth
	if u.User != nil {
		password, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: password}
	}
	dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
	if err != nil {
		return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return nil
}

// isValidProxyAddress checks for a non-empty host and a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// ProxyAddress returns the configured proxy, or "" for direct connections.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// headerInjectingTransport adds the configured headers to every request,
// redirects included.
type headerInjectingTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}
	return t.base.RoundTrip(clone)
}

// CloseIdleConnections forwards to the base transport so that
// http.Client.CloseIdleConnections reaches it.
func (t *headerInjectingTransport) CloseIdleConnections() {
	type closeIdler interface{ CloseIdleConnections() }
	if ci, ok := t.base.(closeIdler); ok {
		ci.CloseIdleConnections()
	}
}
