package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/webspectre/internal/model"
)

func sampleComparison() *model.Comparison {
	finished := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &model.Comparison{
		Target: "example.com",
		Previous: model.ScanPointer{
			ScanID:     "prev",
			FinishedAt: finished,
			Stats:      model.ScanStats{VisitedURLs: 10, ValidURLs: 8, InvalidURLs: 2, ErrorCount: 2},
		},
		Current: model.ScanPointer{
			ScanID:     "cur",
			FinishedAt: finished.Add(24 * time.Hour),
			Stats:      model.ScanStats{VisitedURLs: 11, ValidURLs: 8, InvalidURLs: 3, ErrorCount: 3},
			Partial:    true,
		},
		NewlyBroken:  []string{"https://example.com/gone"},
		Added:        []string{"https://example.com/gone"},
		InvalidDelta: 1,
		Trend:        model.TrendWorsened,
	}
}

func TestWriteComparisonText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteComparisonText(&buf, sampleComparison()); err != nil {
		t.Fatalf("WriteComparisonText: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Scan Comparison: example.com",
		"Trend: WORSENED",
		"(partial)",
		"Newly Broken (1):",
		"[!] https://example.com/gone",
		"Added (1):",
		"+1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Fixed (") || strings.Contains(out, "Removed (") {
		t.Errorf("empty sections printed:\n%s", out)
	}
}

func TestWriteComparisonMarkdown(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteComparisonMarkdown(&buf, sampleComparison()); err != nil {
		t.Fatalf("WriteComparisonMarkdown: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Scan Comparison: example.com",
		"**Trend:** WORSENED",
		"## Newly Broken (1)",
		"`https://example.com/gone`",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if !strings.Contains(strings.ToLower(out), "previous") {
		t.Errorf("comparison table missing:\n%s", out)
	}
}

func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := map[int]string{3: "+3", 0: "0", -2: "-2"}
	for in, want := range tests {
		if got := formatDelta(in); got != want {
			t.Errorf("formatDelta(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestTrendText(t *testing.T) {
	t.Parallel()

	if got := trendText(model.TrendImproved); !strings.HasPrefix(got, "IMPROVED") {
		t.Errorf("trendText(improved) = %q", got)
	}
	if got := trendText(""); got != "UNCHANGED" {
		t.Errorf("trendText(\"\") = %q", got)
	}
}
