package report

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/webspectre/internal/model"
)

// FileTimestampLayout is the timestamp part of report file names.
const FileTimestampLayout = "20060102_150405"

// targetReplacer makes a host[:port] safe to use in a file name.
var targetReplacer = strings.NewReplacer(":", "_", "/", "_", "\\", "_", "[", "", "]", "")

// FileSink saves reports as files under one directory.
type FileSink struct {
	dir    string
	logger *slog.Logger
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithSinkLogger sets the logger used for saved-file messages.
func WithSinkLogger(logger *slog.Logger) FileSinkOption {
	return func(s *FileSink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileSink creates a sink writing to dir. An empty dir means the
// current directory; any other value must be absolute.
func NewFileSink(dir string, opts ...FileSinkOption) (*FileSink, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	if !filepath.IsAbs(dir) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOutputDir, dir)
	}

	s := &FileSink{
		dir:    filepath.Clean(dir),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the output directory.
func (s *FileSink) Dir() string {
	return s.dir
}

// BaseName returns the file name of the report without extension:
// scan_<target>_<timestamp>, or partial_scan_<target>_<timestamp> for a
// partial report. The timestamp is the local time the scan finished.
func BaseName(report *model.ScanReport) string {
	finished := report.Metadata.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	target := targetReplacer.Replace(report.Metadata.Target)
	if target == "" {
		target = model.UnknownTarget
	}
	name := "scan_" + target + "_" + finished.Local().Format(FileTimestampLayout)
	if report.Metadata.Partial {
		name = "partial_" + name
	}
	return name
}

// Save writes the JSON and Markdown renditions of report and returns the
// paths written. The directory is created if missing. An existing file is
// never overwritten: Save fails with ErrReportExists instead. Paths written
// before a failure are still returned.
func (s *FileSink) Save(report *model.ScanReport) ([]string, error) {
	if report == nil {
		return nil, ErrNilReport
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", s.dir, err)
	}

	base := filepath.Join(s.dir, BaseName(report))
	renditions := []struct {
		ext    string
		writer func(io.Writer) Writer
	}{
		{".json", func(w io.Writer) Writer { return NewJSONWriter(w, WithPrettyPrint()) }},
		{".md", func(w io.Writer) Writer { return NewMarkdownWriter(w) }},
	}

	paths := make([]string, 0, len(renditions))
	for _, r := range renditions {
		path := base + r.ext
		if err := writeNewFile(path, func(f io.Writer) error {
			_, err := r.writer(f).Write(report)
			return err
		}); err != nil {
			return paths, err
		}
		s.logger.Debug("report saved", "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}

// writeNewFile creates path exclusively and fills it with write.
func writeNewFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrReportExists, path)
		}
		return fmt.Errorf("failed to create report file %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close report file %s: %w", path, cerr)
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write report file %s: %w", path, err)
	}
	return nil
}
