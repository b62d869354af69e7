package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/webspectre/internal/model"
)

// SimpleWriter outputs the plain-text summary shown in the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose lists the valid links and the drop counts too.
	verbose bool

	// paths are the report files to mention in the footer.
	paths []string
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the valid-link listing and drop counts.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithReportPaths lists saved report files at the end of the summary.
func WithReportPaths(paths ...string) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.paths = append([]string(nil), paths...)
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report summary.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	if report == nil {
		return 0, ErrNilReport
	}

	var sb strings.Builder
	w.writeHeader(&sb, report)
	w.writeStats(&sb, report)
	w.writeLinks(&sb, "INVALID LINKS", report.InvalidLinks)
	if w.verbose {
		w.writeLinks(&sb, "VALID LINKS", report.ValidLinks)
		w.writeDrops(&sb, report)
	}
	w.writeLinks(&sb, "ERRORS", report.Errors)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.ScanReport) {
	md := report.Metadata
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        WEBSPECTRE REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Target:         %s\n", md.Target)
	fmt.Fprintf(sb, "Seed:           %s\n", md.Seed)
	fmt.Fprintf(sb, "Scan Date:      %s\n", md.ScanDate)
	fmt.Fprintf(sb, "Duration:       %.2fs\n", md.DurationSec)
	fmt.Fprintf(sb, "Phase:          %s\n", label(md.Phase))
	fmt.Fprintf(sb, "Status:         %s\n", statusText(report))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeStats(sb *strings.Builder, report *model.ScanReport) {
	sectionHeader(sb, "SUMMARY")
	fmt.Fprintf(sb, "  Visited:  %d\n", report.Stats.VisitedURLs)
	fmt.Fprintf(sb, "  Valid:    %d\n", report.Stats.ValidURLs)
	fmt.Fprintf(sb, "  Invalid:  %d\n", report.Stats.InvalidURLs)
	fmt.Fprintf(sb, "  Errors:   %d\n", report.Stats.ErrorCount)
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeLinks(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sectionHeader(sb, title)
	for _, item := range items {
		fmt.Fprintf(sb, "  * %s\n", item)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeDrops(sb *strings.Builder, report *model.ScanReport) {
	if len(report.Drops) == 0 {
		return
	}
	sectionHeader(sb, "ADMISSION DECISIONS")
	for _, reason := range sortedDrops(report.Drops) {
		fmt.Fprintf(sb, "  %-20s %d\n", label(reason)+":", report.Drops[reason])
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	if len(w.paths) > 0 {
		sb.WriteString("Reports saved to:\n")
		for _, p := range w.paths {
			fmt.Fprintf(sb, "  %s\n", p)
		}
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func sectionHeader(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}
