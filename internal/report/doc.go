// Package report renders scan reports and writes them to disk.
//
// Writers:
//   - JSONWriter: the machine-readable report, the same document stored
//     in the history database
//   - MarkdownWriter: a shareable document with a mermaid pie chart
//   - SimpleWriter: the plain-text summary printed after a scan
//
// FileSink saves the JSON and Markdown renditions of one report under an
// output directory, never overwriting an existing file.
package report
