package report

import (
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/nao1215/webspectre/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Writer renders a scan report to some destination.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *model.ScanReport) (int, error)
}

// MultiWriter writes one report to several Writers in order.
// It stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
func (m *MultiWriter) Write(report *model.ScanReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// label turns a snake_case identifier such as a phase or admission name
// into a display label ("already_visited" -> "Already Visited").
func label(s string) string {
	if s == "" {
		return "Unknown"
	}
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// statusText describes how a scan ended.
func statusText(report *model.ScanReport) string {
	switch {
	case report.Metadata.Error != "":
		return "Aborted: " + report.Metadata.Error
	case report.Metadata.Partial:
		return "Partial (" + label(report.Metadata.Phase) + ")"
	default:
		return "Complete"
	}
}

// sortedDrops returns the drop reasons in a stable order.
func sortedDrops(drops map[string]int) []string {
	return slices.Sorted(maps.Keys(drops))
}
