// Package crawler implements the webspectre crawl engine.
//
// # Architecture
//
// The engine is built around the Spider type. A Spider owns nothing between
// scans: every call to Crawl creates a fresh ScanState (visited, valid and
// invalid sets plus the error log) and a fresh StatusCache.
//
// Inside a scan a single coordinator goroutine owns the FIFO frontier and is
// the only writer of the ScanState sets. A fixed pool of workers receives
// frontier entries over a channel, resolves reachability, fetches the page's
// outbound links and sends the surviving candidates back to the coordinator,
// which performs the test-and-set admission into the visited set.
//
// # Components
//
//   - Normalize / SameAuthority: canonical URL form used for all comparisons
//   - IsExcluded: pure predicate applied to raw links before normalization
//   - StatusCache: memoized reachability probes with the trust shortcut rule
//   - ScanState: the synchronized aggregate of scan state
//   - Spider: the coordinator and worker pool
//
// # Usage
//
//	spider := crawler.NewSpider(fetcher, prober, crawler.WithMaxDepth(2))
//	result, err := spider.Crawl(ctx, "https://example.com")
package crawler
