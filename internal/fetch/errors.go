package fetch

import "errors"

var (
	// ErrTransport wraps every failure to get a response: DNS, connection
	// refused, TLS handshake, timeout, redirect loops and body read errors.
	ErrTransport = errors.New("transport error")

	// ErrExtraction is returned when a page body cannot be parsed for links.
	ErrExtraction = errors.New("link extraction failed")

	// ErrBodyTooLarge is returned when a page exceeds the configured body limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrInvalidProxy is returned when the proxy setting cannot be parsed.
	// Expected forms are "host:port", "socks5://host:port" and
	// "http://host:port".
	ErrInvalidProxy = errors.New("invalid proxy address")
)
