package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database file does
	// not exist and CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrScanNotFound is returned when no scan has the requested ID.
	ErrScanNotFound = errors.New("scan not found")

	// ErrDigestMismatch is returned when a stored report does not match
	// the digest saved with it.
	ErrDigestMismatch = errors.New("stored report digest mismatch")
)
