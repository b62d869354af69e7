// Package database stores the scan history of webspectre in SQLite
// (modernc.org/sqlite, no cgo).
//
// Every finished or partial scan is saved as one row of the scans table
// holding the JSON report, its SHA3-256 digest and the report statistics.
// The per-link verdicts of each scan are kept in scan_links so the
// history of a single URL can be queried without decoding reports.
package database
