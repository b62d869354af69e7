package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/nao1215/webspectre/internal/model"
)

// comparisonDateLayout is how scan times are shown in comparisons.
const comparisonDateLayout = "2006-01-02 15:04:05"

// WriteComparisonText writes c as plain text.
func WriteComparisonText(out io.Writer, c *model.Comparison) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Scan Comparison: %s\n", c.Target)
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "\nTrend: %s\n", trendText(c.Trend))
	fmt.Fprintf(&sb, "\nPrevious scan: %s%s\n", c.Previous.FinishedAt.Local().Format(comparisonDateLayout), partialMark(c.Previous))
	fmt.Fprintf(&sb, "Current scan:  %s%s\n", c.Current.FinishedAt.Local().Format(comparisonDateLayout), partialMark(c.Current))

	sb.WriteString("\nLinks Summary:\n")
	fmt.Fprintf(&sb, "  %-10s  %-10s  %-10s  %-10s\n", "", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 45) + "\n")
	for _, row := range comparisonRows(c) {
		fmt.Fprintf(&sb, "  %-10s  %-10s  %-10s  %-10s\n", row[0], row[1], row[2], row[3])
	}

	writeTextList(&sb, "Newly Broken", "[!]", c.NewlyBroken)
	writeTextList(&sb, "Fixed", "[✓]", c.Fixed)
	writeTextList(&sb, "Added", "[+]", c.Added)
	writeTextList(&sb, "Removed", "[-]", c.Removed)

	_, err := io.WriteString(out, sb.String())
	return err
}

func writeTextList(sb *strings.Builder, title, mark string, links []string) {
	if len(links) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s (%d):\n", title, len(links))
	for _, l := range links {
		fmt.Fprintf(sb, "  %s %s\n", mark, l)
	}
}

// WriteComparisonMarkdown writes c as Markdown.
func WriteComparisonMarkdown(out io.Writer, c *model.Comparison) error {
	md := markdown.NewMarkdown(out)

	md.H1("Scan Comparison: " + c.Target)
	md.PlainText("")
	md.PlainTextf("**Trend:** %s", trendText(c.Trend))
	md.PlainText("")

	rows := [][]string{{
		"Date",
		c.Previous.FinishedAt.Local().Format(comparisonDateLayout) + partialMark(c.Previous),
		c.Current.FinishedAt.Local().Format(comparisonDateLayout) + partialMark(c.Current),
		"-",
	}}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows:   append(rows, comparisonRows(c)...),
	})
	md.PlainText("")

	writeMarkdownList(md, "Newly Broken", c.NewlyBroken)
	writeMarkdownList(md, "Fixed", c.Fixed)
	writeMarkdownList(md, "Added", c.Added)
	writeMarkdownList(md, "Removed", c.Removed)

	return md.Build()
}

func writeMarkdownList(md *markdown.Markdown, title string, links []string) {
	if len(links) == 0 {
		return
	}
	md.H2(fmt.Sprintf("%s (%d)", title, len(links)))
	md.PlainText("")
	items := make([]string, len(links))
	for i, l := range links {
		items[i] = "`" + l + "`"
	}
	md.BulletList(items...)
	md.PlainText("")
}

func comparisonRows(c *model.Comparison) [][]string {
	p, n := c.Previous.Stats, c.Current.Stats
	return [][]string{
		{"Visited", strconv.Itoa(p.VisitedURLs), strconv.Itoa(n.VisitedURLs), formatDelta(n.VisitedURLs - p.VisitedURLs)},
		{"Valid", strconv.Itoa(p.ValidURLs), strconv.Itoa(n.ValidURLs), formatDelta(c.ValidDelta)},
		{"Invalid", strconv.Itoa(p.InvalidURLs), strconv.Itoa(n.InvalidURLs), formatDelta(c.InvalidDelta)},
		{"Errors", strconv.Itoa(p.ErrorCount), strconv.Itoa(n.ErrorCount), formatDelta(n.ErrorCount - p.ErrorCount)},
	}
}

func partialMark(p model.ScanPointer) string {
	if p.Partial {
		return " (partial)"
	}
	return ""
}

func trendText(trend string) string {
	switch trend {
	case model.TrendImproved:
		return "IMPROVED (fewer broken links)"
	case model.TrendWorsened:
		return "WORSENED (more broken links)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with its sign.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
