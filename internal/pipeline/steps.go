package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/webspectre/internal/crawler"
	"github.com/nao1215/webspectre/internal/model"
)

// Crawler runs one crawl. *crawler.Spider implements it.
type Crawler interface {
	Crawl(ctx context.Context, seed string) (*crawler.CrawlResult, error)
}

// ReportSaver persists report files. *report.FileSink implements it.
type ReportSaver interface {
	Save(report *model.ScanReport) ([]string, error)
}

// HistoryStore records reports. *database.HistoryDB implements it.
type HistoryStore interface {
	SaveScanReport(ctx context.Context, report *model.ScanReport) (int64, error)
}

// CrawlStep runs the crawl engine on the scan target.
type CrawlStep struct {
	crawler Crawler
	config  model.ScanConfig
	logger  *slog.Logger
}

// NewCrawlStep creates a CrawlStep. cfg is the configuration c was built
// with; it is recorded on the scan.
func NewCrawlStep(c Crawler, cfg model.ScanConfig, logger *slog.Logger) *CrawlStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlStep{crawler: c, config: cfg, logger: logger}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls the target. An interrupted crawl is not a failure: its result
// is kept and the report is marked partial later. An invalid seed is.
func (s *CrawlStep) Do(ctx context.Context, scan *Scan) error {
	scan.Config = s.config
	result, err := s.crawler.Crawl(ctx, scan.Target)
	if result == nil {
		if err == nil {
			err = errors.New("crawler returned no result")
		}
		return fmt.Errorf("crawl %s: %w", scan.Target, err)
	}
	scan.Result = result
	if err != nil {
		s.logger.Warn("crawl interrupted", "target", scan.Target, "reason", err)
	}
	return nil
}

// AssembleStep turns the crawl result into a model.ScanReport.
type AssembleStep struct{}

// NewAssembleStep creates an AssembleStep.
func NewAssembleStep() *AssembleStep {
	return &AssembleStep{}
}

// Name returns the step name.
func (s *AssembleStep) Name() string {
	return "assemble_report"
}

// Do builds the report. A scan rejected for an invalid seed gets no report.
// A scan that failed before producing a result gets an empty partial
// report carrying the failure.
func (s *AssembleStep) Do(_ context.Context, scan *Scan) error {
	if scan.Result == nil {
		if scan.Err == nil || errors.Is(scan.Err, crawler.ErrInvalidURL) {
			return nil
		}
		scan.Report = model.NewScanReport(model.AssembleInput{
			Seed:    scan.Target,
			Config:  scan.Config,
			Phase:   crawler.PhaseInterrupted.String(),
			Partial: true,
		})
		scan.Report.SetError(scan.Err)
		return nil
	}

	scan.Report = model.NewScanReport(AssembleInputFrom(scan.Result, scan.Config, scan.Partial()))
	if scan.Err != nil {
		scan.Report.SetError(scan.Err)
	}
	return nil
}

// AssembleInputFrom converts a crawl result into the report assembler input.
func AssembleInputFrom(result *crawler.CrawlResult, cfg model.ScanConfig, partial bool) model.AssembleInput {
	drops := make(map[string]int, len(result.Drops))
	for admission, n := range result.Drops {
		drops[admission.String()] = n
	}
	return model.AssembleInput{
		Seed:       result.Seed,
		Visited:    result.Snapshot.Visited,
		Valid:      result.Snapshot.Valid,
		Invalid:    result.Snapshot.Invalid,
		Errors:     result.Snapshot.Errors,
		Drops:      drops,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Config:     cfg,
		Phase:      result.Phase.String(),
		Partial:    partial,
	}
}

// ReportFileStep writes the report files.
type ReportFileStep struct {
	saver  ReportSaver
	logger *slog.Logger
}

// NewReportFileStep creates a ReportFileStep.
func NewReportFileStep(saver ReportSaver, logger *slog.Logger) *ReportFileStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportFileStep{saver: saver, logger: logger}
}

// Name returns the step name.
func (s *ReportFileStep) Name() string {
	return "report_files"
}

// Do saves the report, if there is one.
func (s *ReportFileStep) Do(_ context.Context, scan *Scan) error {
	if scan.Report == nil {
		return nil
	}
	paths, err := s.saver.Save(scan.Report)
	scan.Paths = append(scan.Paths, paths...)
	if err != nil {
		return fmt.Errorf("failed to save report files: %w", err)
	}
	s.logger.Info("report files saved", "target", scan.Report.Metadata.Target, "files", len(paths))
	return nil
}

// HistoryStep stores the report in the history database.
type HistoryStep struct {
	store  HistoryStore
	logger *slog.Logger
}

// NewHistoryStep creates a HistoryStep.
func NewHistoryStep(store HistoryStore, logger *slog.Logger) *HistoryStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "history"
}

// Do records the report, if there is one.
func (s *HistoryStep) Do(ctx context.Context, scan *Scan) error {
	if scan.Report == nil {
		return nil
	}
	id, err := s.store.SaveScanReport(ctx, scan.Report)
	if err != nil {
		return fmt.Errorf("failed to record scan history: %w", err)
	}
	scan.HistoryID = id
	s.logger.Debug("scan recorded", "target", scan.Report.Metadata.Target, "id", id)
	return nil
}

// Components are the collaborators of a standard scan pipeline. Saver and
// History are optional.
type Components struct {
	Crawler Crawler
	Config  model.ScanConfig
	Saver   ReportSaver
	History HistoryStore
	Logger  *slog.Logger
}

// DefaultPipeline creates the standard scan pipeline: crawl, then assemble,
// save and record as final steps.
func DefaultPipeline(c Components, opts ...Option) *Pipeline {
	if c.Logger != nil {
		opts = append([]Option{WithLogger(c.Logger)}, opts...)
	}
	p := New(opts...)
	p.AddStep(NewCrawlStep(c.Crawler, c.Config, c.Logger))
	p.AddFinalSteps(NewAssembleStep())
	if c.Saver != nil {
		p.AddFinalSteps(NewReportFileStep(c.Saver, c.Logger))
	}
	if c.History != nil {
		p.AddFinalSteps(NewHistoryStep(c.History, c.Logger))
	}
	return p
}
