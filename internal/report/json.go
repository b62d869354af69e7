package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/webspectre/internal/model"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report as a single JSON document followed by a newline.
func (w *JSONWriter) Write(report *model.ScanReport) (int, error) {
	if report == nil {
		return 0, ErrNilReport
	}
	data, err := w.marshal(report)
	if err != nil {
		return 0, err
	}
	return w.output.Write(append(data, '\n'))
}

func (w *JSONWriter) marshal(v any) ([]byte, error) {
	if w.indent {
		return json.MarshalIndent(v, w.indentPrefix, w.indentString)
	}
	return json.Marshal(v)
}
