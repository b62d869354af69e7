package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/webspectre/internal/model"
)

func TestNewFileSink(t *testing.T) {
	t.Parallel()

	t.Run("relative directory is rejected", func(t *testing.T) {
		t.Parallel()

		if _, err := NewFileSink("reports"); !errors.Is(err, ErrInvalidOutputDir) {
			t.Errorf("err = %v, want ErrInvalidOutputDir", err)
		}
	})

	t.Run("empty directory means working directory", func(t *testing.T) {
		t.Parallel()

		sink, err := NewFileSink("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		wd, err := os.Getwd()
		if err != nil {
			t.Fatal(err)
		}
		if sink.Dir() != wd {
			t.Errorf("Dir() = %q, want %q", sink.Dir(), wd)
		}
	})
}

func TestBaseName(t *testing.T) {
	t.Parallel()

	finished := time.Date(2026, 5, 1, 10, 0, 3, 0, time.Local)
	tests := []struct {
		name    string
		target  string
		partial bool
		want    string
	}{
		{"complete", "example.com", false, "scan_example.com_20260501_100003"},
		{"partial", "example.com", true, "partial_scan_example.com_20260501_100003"},
		{"port", "localhost:8080", false, "scan_localhost_8080_20260501_100003"},
		{"ipv6", "[::1]:443", false, "scan___1_443_20260501_100003"},
		{"empty target", "", false, "scan_unknown_20260501_100003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			report := &model.ScanReport{Metadata: model.ScanMetadata{
				Target:     tt.target,
				FinishedAt: finished,
				Partial:    tt.partial,
			}}
			if got := BaseName(report); got != tt.want {
				t.Errorf("BaseName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileSinkSave(t *testing.T) {
	t.Parallel()

	t.Run("writes json and markdown into a new directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested", "reports")
		sink, err := NewFileSink(dir)
		if err != nil {
			t.Fatalf("NewFileSink: %v", err)
		}

		report := createTestReport()
		paths, err := sink.Save(report)
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		if len(paths) != 2 {
			t.Fatalf("paths = %v, want 2 files", paths)
		}
		if filepath.Ext(paths[0]) != ".json" || filepath.Ext(paths[1]) != ".md" {
			t.Errorf("unexpected extensions: %v", paths)
		}
		for _, p := range paths {
			if filepath.Dir(p) != dir {
				t.Errorf("%s not under %s", p, dir)
			}
			if !strings.HasPrefix(filepath.Base(p), "scan_example.com_") {
				t.Errorf("unexpected file name %s", filepath.Base(p))
			}
		}

		data, err := os.ReadFile(paths[0])
		if err != nil {
			t.Fatal(err)
		}
		var decoded model.ScanReport
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("json report is invalid: %v", err)
		}
		if decoded.Metadata.ScanID != report.Metadata.ScanID {
			t.Error("json report does not match the saved report")
		}

		md, err := os.ReadFile(paths[1])
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(md), "# WebSpectre Report") {
			t.Error("markdown report lacks its title")
		}
	})

	t.Run("partial report prefix", func(t *testing.T) {
		t.Parallel()

		sink, err := NewFileSink(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		report := createTestReport()
		report.Metadata.Partial = true

		paths, err := sink.Save(report)
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		for _, p := range paths {
			if !strings.HasPrefix(filepath.Base(p), "partial_scan_") {
				t.Errorf("unexpected file name %s", filepath.Base(p))
			}
		}
	})

	t.Run("existing file is never overwritten", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		sink, err := NewFileSink(dir)
		if err != nil {
			t.Fatal(err)
		}
		report := createTestReport()

		existing := filepath.Join(dir, BaseName(report)+".json")
		if err := os.WriteFile(existing, []byte("keep"), 0o600); err != nil {
			t.Fatal(err)
		}

		paths, err := sink.Save(report)
		if !errors.Is(err, ErrReportExists) {
			t.Fatalf("err = %v, want ErrReportExists", err)
		}
		if len(paths) != 0 {
			t.Errorf("paths = %v, want none", paths)
		}
		data, err := os.ReadFile(existing)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "keep" {
			t.Error("existing report was overwritten")
		}
	})

	t.Run("nil report", func(t *testing.T) {
		t.Parallel()

		sink, err := NewFileSink(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := sink.Save(nil); !errors.Is(err, ErrNilReport) {
			t.Errorf("err = %v, want ErrNilReport", err)
		}
	})
}
