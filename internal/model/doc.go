// Package model defines the data structures shared by the scanner, the
// report writers and the history database.
//
// The central type is ScanReport, assembled by NewScanReport from the
// state of a finished or interrupted crawl. It is serialized to the JSON
// report file as is, so its field tags are part of the output format.
//
// The package has no dependencies on other webspectre packages so that
// crawler, report, database and pipeline can all import it.
package model
