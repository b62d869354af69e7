package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchProcessor scans several targets concurrently, one Pipeline each.
type BatchProcessor struct {
	pipelineFactory func(target string) *Pipeline
	concurrency     int
	logger          *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger. nil keeps slog.Default().
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets how many targets are scanned at once.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a processor that builds a fresh Pipeline per
// target with pipelineFactory, so each target can get its own settings.
func NewBatchProcessor(pipelineFactory func(target string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     1,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch scans every target and returns the scans in input order.
//
// A failed scan does not stop the others; its error is on the Scan. When
// ctx is cancelled, targets that have not started are skipped (their Scan
// has a nil Report) and running ones finish as interrupted scans. The
// returned error is ctx.Err() in that case.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*Scan, error) {
	bp.logger.Info("starting batch",
		"targets", len(targets),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	scans := make([]*Scan, len(targets))
	for i, target := range targets {
		scans[i] = NewScan(target)
	}

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		if ctx.Err() != nil {
			bp.logger.Warn("batch cancelled, skipping target", "target", target)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			bp.logger.Info("scanning target", "target", target, "index", i+1, "total", len(targets))

			if err := bp.pipelineFactory(target).Execute(ctx, scans[i]); err != nil {
				bp.logger.Warn("scan ended early", "target", target, "error", err)
				return nil
			}
			bp.logger.Info("scan completed", "target", target)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return scans, err
	}

	bp.logger.Info("batch complete",
		"targets", len(targets),
		"elapsed", time.Since(start),
	)
	return scans, ctx.Err()
}
