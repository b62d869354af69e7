package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/webspectre/internal/config"
	"github.com/nao1215/webspectre/internal/crawler"
	"github.com/nao1215/webspectre/internal/database"
	"github.com/nao1215/webspectre/internal/model"
	"github.com/nao1215/webspectre/internal/report"
)

// historyDateLayout is how scan times are shown in listings.
const historyDateLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [target]",
		Short: "Show past scans recorded in the history database",
		Long: `History lists the scans recorded by 'webspectre scan'.

The target is a URL or a host[:port]; without one, every scan is listed.

Examples:
  # List every recorded scan
  webspectre history

  # List the scans of one site
  webspectre history https://example.com

  # Print a stored report as JSON
  webspectre history --id 12

  # List the sites that have been scanned
  webspectre history --list-targets

  # Show how a link was classified over time
  webspectre history --link https://example.com/about`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("id", "i", 0,
		"Print the stored report with this ID as JSON")
	cmd.Flags().BoolP("list-targets", "L", false,
		"List every target in the database")
	cmd.Flags().String("link", "",
		"Show the classification history of one URL")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: $XDG_DATA_HOME/webspectre)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	id, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}
	listTargets, err := cmd.Flags().GetBool("list-targets")
	if err != nil {
		return err
	}
	link, err := cmd.Flags().GetString("link")
	if err != nil {
		return err
	}

	var target string
	if len(args) == 1 {
		if target, err = targetArg(args[0]); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	db, err := openHistory(cmd)
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(out, "No scan history found.")
		fmt.Fprintln(out, "\nUse 'webspectre scan <url>' to scan a site.")
		return nil
	}
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	switch {
	case id > 0:
		return printStoredReport(ctx, out, db, id)
	case listTargets:
		return printTargets(ctx, out, db)
	case link != "":
		return printLinkHistory(ctx, out, db, link)
	default:
		return printScanList(ctx, out, db, target)
	}
}

// openHistory opens the existing history database named by --db-dir.
func openHistory(cmd *cobra.Command) (*database.HistoryDB, error) {
	dir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = config.XDGDataDir()
	}
	return database.Open(dir, database.Options{CreateIfNotExists: false, EnableWAL: true})
}

// targetArg turns a URL or host[:port] argument into a report target.
func targetArg(arg string) (string, error) {
	seed, err := crawler.Normalize(arg, "")
	if err != nil {
		return "", fmt.Errorf("invalid target %q: %w", arg, err)
	}
	return model.TargetOf(seed), nil
}

func printStoredReport(ctx context.Context, out io.Writer, db *database.HistoryDB, id int64) error {
	r, err := db.GetScanReport(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get scan %d: %w", id, err)
	}
	_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).Write(r)
	return err
}

func printTargets(ctx context.Context, out io.Writer, db *database.HistoryDB) error {
	targets, err := db.ListTargets(ctx)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Fprintln(out, "No scanned targets found in the database.")
		return nil
	}

	fmt.Fprintf(out, "Scanned targets (%d):\n\n", len(targets))
	for _, t := range targets {
		fmt.Fprintf(out, "  • %s\n", t)
	}
	fmt.Fprintln(out, "\nUse 'webspectre history <target>' to see the scans of a target.")
	return nil
}

func printScanList(ctx context.Context, out io.Writer, db *database.HistoryDB, target string) error {
	scans, err := db.ListScans(ctx, target)
	if err != nil {
		return err
	}
	if len(scans) == 0 {
		if target == "" {
			fmt.Fprintln(out, "No scan history found.")
		} else {
			fmt.Fprintf(out, "No scan history found for %s\n", target)
		}
		return nil
	}

	if target == "" {
		fmt.Fprintf(out, "Scan history (%d scans):\n\n", len(scans))
	} else {
		fmt.Fprintf(out, "Scan history for %s (%d scans):\n\n", target, len(scans))
	}
	fmt.Fprintf(out, "  %-6s  %-19s  %-24s  %7s  %7s  %7s  %6s  %s\n",
		"ID", "Date", "Target", "Visited", "Valid", "Invalid", "Errors", "Status")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 98))
	for _, s := range scans {
		status := "complete"
		if s.Partial {
			status = "partial"
		}
		fmt.Fprintf(out, "  %-6d  %-19s  %-24s  %7d  %7d  %7d  %6d  %s\n",
			s.ID,
			s.Timestamp.Local().Format(historyDateLayout),
			s.Target,
			s.Stats.VisitedURLs, s.Stats.ValidURLs, s.Stats.InvalidURLs, s.Stats.ErrorCount,
			status,
		)
	}

	fmt.Fprintln(out, "\nUse 'webspectre history --id <id>' to print a stored report.")
	fmt.Fprintln(out, "Use 'webspectre compare <target>' to compare the latest two scans.")
	return nil
}

func printLinkHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, rawURL string) error {
	link, err := crawler.Normalize(rawURL, "")
	if err != nil {
		return fmt.Errorf("invalid link %q: %w", rawURL, err)
	}
	verdicts, err := db.LinkHistory(ctx, link)
	if err != nil {
		return err
	}
	if len(verdicts) == 0 {
		fmt.Fprintf(out, "%s was not found in any recorded scan.\n", link)
		return nil
	}

	fmt.Fprintf(out, "History of %s (%d scans):\n\n", link, len(verdicts))
	for _, v := range verdicts {
		verdict := "valid"
		if !v.Valid {
			verdict = "INVALID"
		}
		fmt.Fprintf(out, "  %-6d  %-19s  %s\n", v.ScanRef, v.Timestamp.Local().Format(historyDateLayout), verdict)
	}
	return nil
}
