package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/webspectre/internal/model"
)

// MarkdownWriter outputs reports in Markdown format, built with
// nao1215/markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	if report == nil {
		return 0, ErrNilReport
	}

	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeLinkSection(md, "Invalid Links", "No invalid links found.", report.InvalidLinks)
	w.writeLinkSection(md, "Valid Links", "No valid links found.", report.ValidLinks)
	w.writeErrors(md, report)
	w.writeConfig(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ScanReport) {
	meta := report.Metadata
	md.H1("WebSpectre Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + meta.Target + "`"},
			{"Seed", "`" + meta.Seed + "`"},
			{"Scan ID", meta.ScanID},
			{"Scan Date", meta.ScanDate},
			{"Duration", strconv.FormatFloat(meta.DurationSec, 'f', 2, 64) + "s"},
			{"Phase", label(meta.Phase)},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.ScanReport) {
	stats := report.Stats
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Visited URLs", strconv.Itoa(stats.VisitedURLs)},
			{"✅ Valid", strconv.Itoa(stats.ValidURLs)},
			{"❌ Invalid", strconv.Itoa(stats.InvalidURLs)},
			{"⚠️ Errors", strconv.Itoa(stats.ErrorCount)},
		},
	})
	md.PlainText("")

	if stats.ValidURLs+stats.InvalidURLs > 0 {
		w.writePieChart(md, report)
	}
	w.writeAlert(md, report)

	if len(report.Drops) > 0 {
		rows := make([][]string, 0, len(report.Drops))
		for _, reason := range sortedDrops(report.Drops) {
			rows = append(rows, []string{label(reason), strconv.Itoa(report.Drops[reason])})
		}
		md.H3("Admission Decisions")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Decision", "Count"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.ScanReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Link Status"),
		piechart.WithShowData(true),
	)
	if report.Stats.ValidURLs > 0 {
		chart.LabelAndIntValue("Valid", uint64(report.Stats.ValidURLs))
	}
	if report.Stats.InvalidURLs > 0 {
		chart.LabelAndIntValue("Invalid", uint64(report.Stats.InvalidURLs))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.ScanReport) {
	switch {
	case report.Metadata.Error != "":
		md.Cautionf("The scan aborted: %s", report.Metadata.Error)
	case report.Metadata.Partial:
		md.Warningf("The scan was interrupted. The report covers %d visited URL(s) only.",
			report.Stats.VisitedURLs)
	case report.Stats.InvalidURLs > 0:
		md.Importantf("%d invalid link(s) found.", report.Stats.InvalidURLs)
	default:
		md.Tip("No invalid links found.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeLinkSection(md *markdown.Markdown, title, empty string, links []string) {
	md.H2(title)
	md.PlainText("")
	if len(links) == 0 {
		md.PlainText(empty)
		md.PlainText("")
		return
	}

	items := make([]string, len(links))
	for i, l := range links {
		items[i] = "`" + l + "`"
	}
	md.BulletList(items...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Errors")
	md.PlainText("")
	if len(report.Errors) == 0 {
		md.PlainText("No errors.")
		md.PlainText("")
		return
	}
	md.BulletList(report.Errors...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeConfig(md *markdown.Markdown, report *model.ScanReport) {
	cfg := report.Metadata.Config
	md.H2("Configuration")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Setting", "Value"},
		Rows: [][]string{
			{"Max depth", strconv.Itoa(cfg.MaxDepth)},
			{"Max pages per section", strconv.Itoa(cfg.MaxPagesPerSection)},
			{"Concurrency", strconv.Itoa(cfg.Concurrency)},
			{"Verify SSL", strconv.FormatBool(cfg.VerifySSL)},
			{"Trust shortcut", strconv.FormatBool(cfg.TrustShortcut)},
			{"Fast scan", strconv.FormatBool(cfg.FastScan)},
			{"Excluded paths", excludedText(cfg.ExcludePaths)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [WebSpectre](https://github.com/nao1215/webspectre)*")
}

func excludedText(paths []string) string {
	if len(paths) == 0 {
		return "-"
	}
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = "`" + p + "`"
	}
	return strings.Join(quoted, ", ")
}
