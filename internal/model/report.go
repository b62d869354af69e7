package model

import (
	"maps"
	"math"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScanDateLayout is the layout of ScanMetadata.ScanDate.
const ScanDateLayout = "2006-01-02 15:04:05"

// UnknownTarget is the report target when the seed has no host.
const UnknownTarget = "unknown"

// ScanReport is the result of one scan.
// It serializes to the JSON report file and is stored in the history database.
type ScanReport struct {
	Metadata ScanMetadata `json:"metadata"`
	Stats    ScanStats    `json:"stats"`

	// ValidLinks are the reachable URLs, sorted.
	ValidLinks []string `json:"valid_links"`

	// InvalidLinks are the unreachable URLs, sorted.
	InvalidLinks []string `json:"invalid_links"`

	// Errors are the fetch and probe failures in the order they happened.
	Errors []string `json:"errors"`

	// Drops counts admission decisions by reason.
	Drops map[string]int `json:"drops,omitempty"`
}

// ScanMetadata describes how and when a scan ran.
type ScanMetadata struct {
	// ScanID is a random UUID identifying the scan.
	ScanID string `json:"scan_id"`

	// Target is the host[:port] of the seed URL.
	Target string `json:"target"`

	// Seed is the normalized seed URL.
	Seed string `json:"seed"`

	// ScanDate is the local time the scan finished, in ScanDateLayout.
	ScanDate string `json:"scan_date"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// DurationSec is the wall-clock duration rounded to two decimals.
	DurationSec float64 `json:"duration_sec"`

	// Partial is true when the scan was interrupted or aborted.
	Partial bool `json:"partial"`

	// Phase is the crawl phase the report was taken in.
	Phase string `json:"phase"`

	Config ScanConfig `json:"config"`

	// Error is set when the scan aborted on an unexpected failure.
	Error string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// ScanStats are the cardinalities of the report's sets.
type ScanStats struct {
	VisitedURLs int `json:"visited_urls"`
	ValidURLs   int `json:"valid_urls"`
	InvalidURLs int `json:"invalid_urls"`
	ErrorCount  int `json:"error_count"`
}

// ScanConfig is the crawl configuration echoed into the report.
// It is immutable for the duration of a scan.
type ScanConfig struct {
	MaxDepth           int      `json:"max_depth"`
	MaxPagesPerSection int      `json:"max_pages"`
	ExcludePaths       []string `json:"excluded_paths"`
	VerifySSL          bool     `json:"verify_ssl"`
	Concurrency        int      `json:"concurrency"`
	TrustShortcut      bool     `json:"trust_shortcut"`
	FastScan           bool     `json:"fast_scan"`
}

// AssembleInput is everything NewScanReport needs. The slices may come
// from a partial scan; they are copied, never retained.
type AssembleInput struct {
	Seed    string
	Visited []string
	Valid   []string
	Invalid []string
	Errors  []string
	Drops   map[string]int

	StartedAt  time.Time
	FinishedAt time.Time

	Config  ScanConfig
	Phase   string
	Partial bool
}

// NewScanReport assembles a report from the state of a finished or
// interrupted scan.
func NewScanReport(in AssembleInput) *ScanReport {
	finished := in.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	started := in.StartedAt
	if started.IsZero() {
		started = finished
	}

	valid := sortedCopy(in.Valid)
	invalid := sortedCopy(in.Invalid)
	errs := append(make([]string, 0, len(in.Errors)), in.Errors...)

	cfg := in.Config
	cfg.ExcludePaths = append(make([]string, 0, len(in.Config.ExcludePaths)), in.Config.ExcludePaths...)

	return &ScanReport{
		Metadata: ScanMetadata{
			ScanID:      uuid.NewString(),
			Target:      TargetOf(in.Seed),
			Seed:        in.Seed,
			ScanDate:    finished.Format(ScanDateLayout),
			StartedAt:   started,
			FinishedAt:  finished,
			DurationSec: roundSeconds(finished.Sub(started)),
			Partial:     in.Partial,
			Phase:       in.Phase,
			Config:      cfg,
		},
		Stats: ScanStats{
			VisitedURLs: len(in.Visited),
			ValidURLs:   len(valid),
			InvalidURLs: len(invalid),
			ErrorCount:  len(errs),
		},
		ValidLinks:   valid,
		InvalidLinks: invalid,
		Errors:       errs,
		Drops:        maps.Clone(in.Drops),
	}
}

// SetError records an abort cause and marks the report partial.
func (r *ScanReport) SetError(err error) {
	if err == nil {
		return
	}
	r.Metadata.Error = err.Error()
	r.Metadata.Partial = true
}

// Duration returns the scan duration.
func (r *ScanReport) Duration() time.Duration {
	return r.Metadata.FinishedAt.Sub(r.Metadata.StartedAt)
}

// TargetOf returns the host[:port] of rawURL, lower-cased, or UnknownTarget.
func TargetOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return UnknownTarget
	}
	return strings.ToLower(u.Host)
}

func sortedCopy(in []string) []string {
	out := append(make([]string, 0, len(in)), in...)
	slices.Sort(out)
	return out
}

func roundSeconds(d time.Duration) float64 {
	if d < 0 {
		d = 0
	}
	return math.Round(d.Seconds()*100) / 100
}
