package pipeline

import (
	"github.com/nao1215/webspectre/internal/crawler"
	"github.com/nao1215/webspectre/internal/model"
)

// Scan carries one target through a Pipeline. Steps fill it in as they run.
type Scan struct {
	// Target is the seed URL as given by the user.
	Target string

	// Config is echoed into the report. The crawl step sets it.
	Config model.ScanConfig

	// Result is set by the crawl step. It may describe an interrupted crawl.
	Result *crawler.CrawlResult

	// Report is set by the assemble step.
	Report *model.ScanReport

	// Paths lists the report files written.
	Paths []string

	// HistoryID is the row ID of the scan in the history database, or 0.
	HistoryID int64

	// Err is the first error a step returned.
	Err error

	// Steps lists the steps that ran, in order.
	Steps []string
}

// NewScan creates a Scan for target.
func NewScan(target string) *Scan {
	return &Scan{Target: target}
}

// Partial reports whether the scan did not run to completion.
func (s *Scan) Partial() bool {
	if s.Err != nil {
		return true
	}
	return s.Result == nil || s.Result.Phase != crawler.PhaseDone
}
