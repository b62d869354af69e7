package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no URL to scan was given.
	ErrNoTarget = errors.New("no target specified: provide at least one URL")

	// ErrInvalidDepth is returned when the crawl depth is negative.
	ErrInvalidDepth = errors.New("invalid depth: must be zero or positive")

	// ErrInvalidMaxPages is returned when the pagination bound is below 1.
	ErrInvalidMaxPages = errors.New("invalid max pages per section: must be positive")

	// ErrInvalidConcurrency is returned when the worker count is below 1.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the fetch or probe timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when the politeness delay bounds are
	// negative or inverted.
	ErrInvalidDelay = errors.New("invalid delay: bounds must be non-negative and min <= max")

	// ErrInvalidBatchSize is returned when the batch size is below 1.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
