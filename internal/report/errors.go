package report

import "errors"

var (
	// ErrReportExists is returned when a report file with the same name
	// already exists. Report files are never overwritten.
	ErrReportExists = errors.New("report file already exists")

	// ErrInvalidOutputDir is returned when the output directory is neither
	// absolute nor empty.
	ErrInvalidOutputDir = errors.New("output directory must be an absolute path")

	// ErrNilReport is returned when a writer is given a nil report.
	ErrNilReport = errors.New("nil report")
)
