package crawler

import "errors"

// ErrInvalidURL is returned when a string cannot be normalized into an
// absolute http(s) URL with a host. It is fatal only for the seed URL.
var ErrInvalidURL = errors.New("invalid URL")
