package fetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/nao1215/webspectre/internal/crawler"
)

// FetchLinks downloads rawURL and returns the links found in it.
//
// Links are returned raw, together with the page's <base href>, and are
// resolved by the caller against the URL it requested; a redirect never
// changes what a relative link points to. Responses that are not HTML
// yield no page and no error. Failures to get a response wrap
// ErrTransport; parse failures wrap ErrExtraction.
func (c *Client) FetchLinks(ctx context.Context, rawURL string) (*crawler.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	c.setDefaultHeaders(req)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if !isHTML(resp.Header.Get("Content-Type")) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBodySize)) //nolint:errcheck // draining for connection reuse
		return nil, nil
	}

	body, err := c.readBody(resp)
	if err != nil {
		return nil, err
	}

	doc, err := parseDocument(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	return &crawler.Page{Links: doc.links, Base: doc.base}, nil
}

// Probe sends a HEAD request to rawURL, following up to 10 redirects, and
// returns the final status code. Servers that reject HEAD with 405 or 501
// are asked again with GET; the body is not read.
func (c *Client) Probe(ctx context.Context, rawURL string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	code, err := c.probe(ctx, http.MethodHead, rawURL)
	if err != nil {
		return 0, err
	}
	if code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented {
		return c.probe(ctx, http.MethodGet, rawURL)
	}
	return code, nil
}

func (c *Client) probe(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	c.setDefaultHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	resp.Body.Close()

	return resp.StatusCode, nil
}

func (c *Client) setDefaultHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
}

// readBody decodes the response body and enforces the size limit.
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip decode: %w", ErrTransport, err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	body, err := io.ReadAll(io.LimitReader(reader, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, c.maxBodySize)
	}
	return body, nil
}

// isHTML reports whether a Content-Type header describes an HTML document.
// A missing header is treated as HTML.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
