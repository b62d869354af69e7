package model

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
)

func sampleInput() AssembleInput {
	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)
	return AssembleInput{
		Seed:       "https://Example.com:8443",
		Visited:    []string{"https://example.com:8443", "https://example.com:8443/b", "https://example.com:8443/a", "https://example.com:8443/x"},
		Valid:      []string{"https://example.com:8443/b", "https://example.com:8443", "https://example.com:8443/a"},
		Invalid:    []string{"https://example.com:8443/x"},
		Errors:     []string{"error checking https://example.com:8443/x: refused", "error crawling https://example.com:8443/a: timeout"},
		Drops:      map[string]int{"admitted": 4, "excluded": 2},
		StartedAt:  start,
		FinishedAt: start.Add(12340 * time.Millisecond),
		Config: ScanConfig{
			MaxDepth:           2,
			MaxPagesPerSection: 20,
			ExcludePaths:       []string{"feed"},
			VerifySSL:          true,
			Concurrency:        3,
			TrustShortcut:      true,
		},
		Phase: "done",
	}
}

func TestNewScanReport(t *testing.T) {
	t.Parallel()

	in := sampleInput()
	report := NewScanReport(in)

	t.Run("metadata", func(t *testing.T) {
		t.Parallel()

		md := report.Metadata
		if md.Target != "example.com:8443" {
			t.Errorf("Target = %q", md.Target)
		}
		if _, err := uuid.Parse(md.ScanID); err != nil {
			t.Errorf("ScanID %q is not a UUID: %v", md.ScanID, err)
		}
		if md.ScanDate != "2026-03-14 09:27:05" {
			t.Errorf("ScanDate = %q", md.ScanDate)
		}
		if md.DurationSec != 12.34 {
			t.Errorf("DurationSec = %v, want 12.34", md.DurationSec)
		}
		if md.Partial {
			t.Error("complete scan marked partial")
		}
		if md.Phase != "done" {
			t.Errorf("Phase = %q", md.Phase)
		}
	})

	t.Run("stats match set cardinalities", func(t *testing.T) {
		t.Parallel()

		want := ScanStats{VisitedURLs: 4, ValidURLs: 3, InvalidURLs: 1, ErrorCount: 2}
		if report.Stats != want {
			t.Errorf("Stats = %+v, want %+v", report.Stats, want)
		}
		if report.Stats.ValidURLs != len(report.ValidLinks) || report.Stats.InvalidURLs != len(report.InvalidLinks) {
			t.Error("stats disagree with link lists")
		}
	})

	t.Run("links are sorted and errors keep order", func(t *testing.T) {
		t.Parallel()

		if !slices.IsSorted(report.ValidLinks) {
			t.Errorf("ValidLinks not sorted: %v", report.ValidLinks)
		}
		if !slices.Equal(report.Errors, in.Errors) {
			t.Errorf("Errors = %v, want %v", report.Errors, in.Errors)
		}
	})

	t.Run("input is copied", func(t *testing.T) {
		t.Parallel()

		local := sampleInput()
		r := NewScanReport(local)
		local.Valid[0] = "mutated"
		local.Errors[0] = "mutated"
		local.Config.ExcludePaths[0] = "mutated"
		local.Drops["admitted"] = 99

		if slices.Contains(r.ValidLinks, "mutated") || r.Errors[0] == "mutated" {
			t.Error("report shares slices with its input")
		}
		if r.Metadata.Config.ExcludePaths[0] != "feed" {
			t.Error("report shares config slices with its input")
		}
		if r.Drops["admitted"] != 4 {
			t.Error("report shares drops map with its input")
		}
	})

	t.Run("each report gets its own ID", func(t *testing.T) {
		t.Parallel()

		if NewScanReport(sampleInput()).Metadata.ScanID == report.Metadata.ScanID {
			t.Error("scan IDs collide")
		}
	})
}

func TestNewScanReportPartialState(t *testing.T) {
	t.Parallel()

	report := NewScanReport(AssembleInput{
		Seed:    "https://example.com",
		Visited: []string{"https://example.com"},
		Phase:   "interrupted",
		Partial: true,
	})

	if !report.Metadata.Partial {
		t.Error("expected partial report")
	}
	if report.Metadata.DurationSec != 0 {
		t.Errorf("DurationSec = %v, want 0 without a start time", report.Metadata.DurationSec)
	}
	if report.ValidLinks == nil || report.InvalidLinks == nil || report.Errors == nil {
		t.Error("empty lists should serialize as [] not null")
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"metadata", "stats", "valid_links", "invalid_links", "errors"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("JSON report lacks %q", key)
		}
	}
	if _, ok := decoded["drops"]; ok {
		t.Error("empty drops should be omitted")
	}
}

func TestScanReportSetError(t *testing.T) {
	t.Parallel()

	report := NewScanReport(sampleInput())
	report.SetError(nil)
	if report.Metadata.Error != "" || report.Metadata.Partial {
		t.Error("SetError(nil) changed the report")
	}

	report.SetError(errors.New("worker pool crashed"))
	if report.Metadata.Error != "worker pool crashed" {
		t.Errorf("Error = %q", report.Metadata.Error)
	}
	if !report.Metadata.Partial {
		t.Error("aborted report should be partial")
	}
}

func TestTargetOf(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://Example.com/a":  "example.com",
		"http://localhost:8080":  "localhost:8080",
		"":                       UnknownTarget,
		"not a url":              UnknownTarget,
		"https://[::1]:443/path": "[::1]:443",
	}
	for in, want := range tests {
		if got := TargetOf(in); got != want {
			t.Errorf("TargetOf(%q) = %q, want %q", in, got, want)
		}
	}
}
