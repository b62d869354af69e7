package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/webspectre/internal/database"
	"github.com/nao1215/webspectre/internal/model"
	"github.com/nao1215/webspectre/internal/report"
)

// sinceLayout is the date format of --since.
const sinceLayout = "2006-01-02"

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <target>",
		Short: "Compare the latest scan of a site with an earlier one",
		Long: `Compare shows how the links of a site changed between two recorded scans:
- Newly broken links (valid or unseen before, invalid now)
- Fixed links (invalid before, valid now)
- Links that appeared or disappeared

The latest scan is compared with the one before it unless --with-scan-id
or --since picks the earlier scan. Use 'webspectre history <target>' to
see the recorded scans and their IDs.

Examples:
  # Compare the latest two scans
  webspectre compare https://example.com

  # Compare with a specific scan by ID
  webspectre compare --with-scan-id 5 example.com

  # Compare with the first scan since a date
  webspectre compare --since 2026-01-01 example.com

  # Output the comparison as JSON
  webspectre compare --json example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().Int64P("with-scan-id", "i", 0,
		"Compare with the scan with this ID")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first scan on or after this date (format: YYYY-MM-DD)")
	cmd.Flags().BoolP("json", "j", false,
		"Output the comparison in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the comparison in Markdown format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: $XDG_DATA_HOME/webspectre)")

	cmd.MarkFlagsMutuallyExclusive("with-scan-id", "since")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	target, err := targetArg(args[0])
	if err != nil {
		return err
	}
	withScanID, err := cmd.Flags().GetInt64("with-scan-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	var since time.Time
	if sinceDate != "" {
		since, err = time.ParseInLocation(sinceLayout, sinceDate, time.Local)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
	}

	db, err := openHistory(cmd)
	if errors.Is(err, database.ErrDatabaseNotFound) {
		return fmt.Errorf("no scan history found for %s", target)
	}
	if err != nil {
		return err
	}
	defer db.Close()

	comparison, err := compareScans(cmd.Context(), db, target, withScanID, since)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		return writeComparisonJSON(out, comparison)
	case markdownOutput:
		return report.WriteComparisonMarkdown(out, comparison)
	default:
		return report.WriteComparisonText(out, comparison)
	}
}

// compareScans compares the latest scan of target with an earlier one:
// the scan with ID withScanID, the oldest scan finished on or after since,
// or else the scan before the latest.
func compareScans(ctx context.Context, db *database.HistoryDB, target string, withScanID int64, since time.Time) (*model.Comparison, error) {
	scans, err := db.ListScans(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	if len(scans) == 0 {
		return nil, fmt.Errorf("no scan history found for %s", target)
	}

	current := scans[0]
	var previousID int64

	switch {
	case withScanID > 0:
		if withScanID == current.ID {
			return nil, fmt.Errorf("scan %d is the latest scan of %s; pick an earlier one", withScanID, target)
		}
		previousID = withScanID
	case !since.IsZero():
		// scans are newest first; walk backwards to find the oldest match.
		for i := len(scans) - 1; i >= 0; i-- {
			if !scans[i].Timestamp.Before(since) {
				previousID = scans[i].ID
				break
			}
		}
		if previousID == 0 {
			return nil, fmt.Errorf("no scans of %s found since %s", target, since.Format(sinceLayout))
		}
		if previousID == current.ID {
			return nil, fmt.Errorf("only one scan of %s found since %s; at least 2 scans are required for comparison",
				target, since.Format(sinceLayout))
		}
	default:
		if len(scans) < 2 {
			return nil, fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(scans))
		}
		previousID = scans[1].ID
	}

	previousReport, err := db.GetScanReport(ctx, previousID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan with ID %d: %w", previousID, err)
	}
	if previousReport.Metadata.Target != target {
		return nil, fmt.Errorf("scan ID %d belongs to %s, not %s", previousID, previousReport.Metadata.Target, target)
	}
	currentReport, err := db.GetScanReport(ctx, current.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan with ID %d: %w", current.ID, err)
	}

	return model.CompareReports(previousReport, currentReport), nil
}

func writeComparisonJSON(out io.Writer, c *model.Comparison) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(c)
}
