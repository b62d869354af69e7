// Package fetch is the HTTP collaborator of the crawl engine.
//
// Client implements the two capabilities the engine needs: FetchLinks
// downloads a page and returns its raw link values with its <base href>,
// leaving resolution to the engine, and Probe checks
// reachability with a HEAD request. Both honor a per-request timeout, the
// TLS verification flag and an optional SOCKS5 or HTTP proxy.
//
// ExtractLinks is the HTML side: a single pass over the DOM built by
// golang.org/x/net/html collecting a[href], link[href], script[src],
// iframe[src] and frame[src].
package fetch
