// Package pipeline runs a scan of one target as a sequence of steps and
// scans several targets concurrently.
//
// A Pipeline has regular steps (the crawl) and final steps (report
// assembly, report files, history). Regular steps stop at the first
// failure or at cancellation. Final steps always run, on a context that
// is no longer cancelled, so an interrupted scan still leaves a partial
// report behind. A panic inside any step is recovered and recorded as the
// scan's error.
//
// BatchProcessor scans a list of targets with an errgroup bounded to the
// configured concurrency; every target is an independent scan.
package pipeline
