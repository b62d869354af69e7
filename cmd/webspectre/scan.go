package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/webspectre/internal/config"
	"github.com/nao1215/webspectre/internal/crawler"
	"github.com/nao1215/webspectre/internal/database"
	"github.com/nao1215/webspectre/internal/fetch"
	applog "github.com/nao1215/webspectre/internal/log"
	"github.com/nao1215/webspectre/internal/model"
	"github.com/nao1215/webspectre/internal/pipeline"
	"github.com/nao1215/webspectre/internal/report"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Crawl websites and report broken links",
		Long: `Scan crawls each website breadth-first from the given seed URL.

Only links on the seed's own scheme and host are followed. Every link
found is classified as valid or invalid; invalid links are the broken
ones. Each scan writes a JSON and a Markdown report and is recorded in
the history database.

Press Ctrl+C to stop a scan: the links checked so far are saved to a
partial_scan_* report.

Examples:
  # Scan a site with the defaults (depth 2, 3 workers)
  webspectre scan https://example.com

  # Prompt for the URL
  webspectre scan

  # Deeper scan, reports written to ./reports
  webspectre scan -d 4 -o reports https://example.com

  # Fast profile: fewer pagination pages, skip api and ajax paths
  webspectre scan --fast-scan https://example.com

  # Scan two sites at once through a SOCKS5 proxy
  webspectre scan -b 2 --proxy socks5://127.0.0.1:9050 https://a.example https://b.example

  # Print the JSON report instead of the summary
  webspectre scan --json https://example.com

Configuration file (.webspectre) example:
  defaults:
    depth: 2
  sites:
    example.com:
      cookie: "session_id=abc123"
      excludePaths:
        - logout`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the seed URL (0 = seed only)")
	cmd.Flags().Int("max-pages", config.DefaultMaxPagesPerSection,
		"Highest N fetched for .../page/<N> pagination URLs")
	cmd.Flags().StringSliceP("exclude", "x", nil,
		"Additional URL substrings to skip (repeatable)")
	cmd.Flags().Bool("fast-scan", false,
		"Fast profile: max pages 10, trust shortcut on, skip api and ajax paths")
	cmd.Flags().Bool("no-trust-shortcut", false,
		"Probe /category/ and /page/ links instead of trusting them")
	cmd.Flags().IntP("concurrency", "w", config.DefaultConcurrency,
		"Number of crawl workers per scan")
	cmd.Flags().Duration("delay-min", config.DefaultDelayMin,
		"Minimum pause of a worker between two pages")
	cmd.Flags().Duration("delay-max", config.DefaultDelayMax,
		"Maximum pause of a worker between two pages")

	// HTTP flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page download")
	cmd.Flags().Duration("probe-timeout", config.DefaultProbeTimeout,
		"Timeout for each link probe")
	cmd.Flags().Bool("no-verify", false,
		"Disable TLS certificate verification")
	cmd.Flags().String("proxy", "",
		"SOCKS5 or HTTP proxy (e.g. socks5://127.0.0.1:9050)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")

	// Batch scanning flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of targets scanned concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webspectre in current or home directory)")

	// Output flags
	cmd.Flags().StringP("output", "o", "",
		"Directory for report files (default: current directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Print the JSON report to stdout instead of the summary")
	cmd.Flags().Bool("no-history", false,
		"Do not record the scan in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: $XDG_DATA_HOME/webspectre)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		target, err := promptTarget(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		args = []string{target}
	}

	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := applog.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cmd, cfg, logger)
}

// promptTarget asks for the seed URL when none is given on the command line.
func promptTarget(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter the URL to scan: ")
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read URL: %w", err)
		}
		return "", config.ErrNoTarget
	}
	target := strings.TrimSpace(scanner.Text())
	if target == "" {
		return "", config.ErrNoTarget
	}
	return target, nil
}

// buildConfig creates a Config from cobra command flags and the
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	if err := applyScanFlags(cmd, cfg, false); err != nil {
		return nil, err
	}

	var err error
	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}
	cfg.OutputDir, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}
	cfg.JSONOutput, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}
	cfg.Verbose = getVerboseFlag(cmd)

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit config path must exist; otherwise a missing file is fine.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Targets = args
	return cfg, nil
}

// applyScanFlags copies the per-scan flags into cfg. With onlyChanged, only
// flags given on the command line are applied, so that they win over the
// configuration file.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config, onlyChanged bool) error {
	flags := cmd.Flags()
	set := func(name string) bool {
		return !onlyChanged || flags.Changed(name)
	}

	fastScan, err := flags.GetBool("fast-scan")
	if err != nil {
		return err
	}
	if fastScan {
		cfg.ApplyFastScan()
	}

	if set("depth") {
		if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
			return err
		}
	}
	// --max-pages given explicitly beats --fast-scan; its default does not.
	if flags.Changed("max-pages") || (!onlyChanged && !fastScan) {
		if cfg.MaxPagesPerSection, err = flags.GetInt("max-pages"); err != nil {
			return err
		}
	}
	if set("exclude") {
		extra, err := flags.GetStringSlice("exclude")
		if err != nil {
			return err
		}
		for _, p := range extra {
			if p != "" && !slices.Contains(cfg.ExcludePaths, p) {
				cfg.ExcludePaths = append(cfg.ExcludePaths, p)
			}
		}
	}
	if flags.Changed("no-trust-shortcut") {
		noTrust, err := flags.GetBool("no-trust-shortcut")
		if err != nil {
			return err
		}
		cfg.TrustShortcut = !noTrust
	}
	if set("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return err
		}
	}
	if set("delay-min") {
		if cfg.DelayMin, err = flags.GetDuration("delay-min"); err != nil {
			return err
		}
	}
	if set("delay-max") {
		if cfg.DelayMax, err = flags.GetDuration("delay-max"); err != nil {
			return err
		}
	}
	if set("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if set("probe-timeout") {
		if cfg.ProbeTimeout, err = flags.GetDuration("probe-timeout"); err != nil {
			return err
		}
	}
	if set("no-verify") {
		noVerify, err := flags.GetBool("no-verify")
		if err != nil {
			return err
		}
		cfg.VerifySSL = !noVerify
	}
	if set("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return err
		}
	}
	if set("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return err
		}
	}
	return nil
}

// targetConfig returns the configuration for one target: base, then the
// configuration file entry for its host, then the flags given explicitly.
func targetConfig(cmd *cobra.Command, base *config.Config, target string) (*config.Config, error) {
	cfg := base.Clone()
	cfg.Targets = []string{target}
	if base.SiteConfigs == nil {
		return cfg, nil
	}

	seed, err := crawler.Normalize(target, "")
	if err != nil {
		// The crawl step rejects the seed and reports it.
		return cfg, nil //nolint:nilerr
	}
	cfg.ApplySite(base.SiteConfigs.GetSiteConfig(model.TargetOf(seed)))
	if err := applyScanFlags(cmd, cfg, true); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newFetchClient creates the HTTP client of one target.
func newFetchClient(cfg *config.Config) (*fetch.Client, error) {
	return fetch.NewClient(
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithProbeTimeout(cfg.ProbeTimeout),
		fetch.WithVerifySSL(cfg.VerifySSL),
		fetch.WithProxy(cfg.ProxyAddress),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithHeaders(cfg.Headers),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
	)
}

// newSpider creates the crawl engine of one target.
func newSpider(client *fetch.Client, cfg *config.Config, logger *slog.Logger) *crawler.Spider {
	return crawler.NewSpider(client, client,
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithMaxPagesPerSection(cfg.MaxPagesPerSection),
		crawler.WithExcludePaths(cfg.ExcludePaths),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithTrustShortcut(cfg.TrustShortcut),
		crawler.WithDelay(cfg.DelayMin, cfg.DelayMax),
		crawler.WithLogger(logger.With("target", seedOf(cfg))),
	)
}

// seedOf returns the target a per-target configuration was built for.
func seedOf(cfg *config.Config) string {
	if len(cfg.Targets) == 0 {
		return ""
	}
	return cfg.Targets[0]
}

// runScan scans every target of cfg and prints the results.
func runScan(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	outputDir := cfg.OutputDir
	if outputDir != "" {
		abs, err := filepath.Abs(outputDir)
		if err != nil {
			return fmt.Errorf("invalid output directory %q: %w", outputDir, err)
		}
		outputDir = abs
	}
	sink, err := report.NewFileSink(outputDir, report.WithSinkLogger(logger))
	if err != nil {
		return err
	}

	// A nil *HistoryDB must not end up in the interface.
	var history pipeline.HistoryStore
	if cfg.SaveHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		history = db
		logger.Debug("history database opened", "path", db.Path())
	}

	configs := make(map[string]*config.Config, len(cfg.Targets))
	clients := make(map[string]*fetch.Client, len(cfg.Targets))
	defer func() {
		for _, c := range clients {
			c.Close()
		}
	}()

	for _, t := range cfg.Targets {
		if _, ok := configs[t]; ok {
			continue
		}
		tc, err := targetConfig(cmd, cfg, t)
		if err != nil {
			return err
		}
		if err := tc.Validate(); err != nil {
			return fmt.Errorf("configuration error for %s: %w", t, err)
		}
		client, err := newFetchClient(tc)
		if err != nil {
			return fmt.Errorf("configuration error for %s: %w", t, err)
		}
		configs[t] = tc
		clients[t] = client

		if !cfg.JSONOutput {
			printScanConfig(out, tc, sink.Dir())
		}
	}

	bp := pipeline.NewBatchProcessor(
		func(t string) *pipeline.Pipeline {
			tc := configs[t]
			return pipeline.DefaultPipeline(pipeline.Components{
				Crawler: newSpider(clients[t], tc, logger),
				Config:  tc.ScanConfig(),
				Saver:   sink,
				History: history,
				Logger:  logger,
			})
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	if !cfg.JSONOutput {
		fmt.Fprintf(out, "Scanning %d target(s)...\n\n", len(cfg.Targets))
	}
	scans, batchErr := bp.ProcessBatch(ctx, cfg.Targets)

	failures := printScanResults(out, errOut, cfg, scans)
	if batchErr != nil {
		fmt.Fprintln(errOut, "Scan interrupted; partial results were saved.")
	}
	return errors.Join(failures...)
}

// printScanConfig echoes the configuration of one target before it is scanned.
func printScanConfig(w io.Writer, cfg *config.Config, outputDir string) {
	fmt.Fprintf(w, "Target:            %s\n", seedOf(cfg))
	fmt.Fprintf(w, "  Max depth:       %d\n", cfg.MaxDepth)
	fmt.Fprintf(w, "  Max pages:       %d\n", cfg.MaxPagesPerSection)
	fmt.Fprintf(w, "  Concurrency:     %d\n", cfg.Concurrency)
	fmt.Fprintf(w, "  Verify SSL:      %t\n", cfg.VerifySSL)
	fmt.Fprintf(w, "  Trust shortcut:  %t\n", cfg.TrustShortcut)
	fmt.Fprintf(w, "  Fast scan:       %t\n", cfg.FastScan)
	fmt.Fprintf(w, "  Excluded paths:  %s\n", strings.Join(cfg.ExcludePaths, ", "))
	if cfg.ProxyAddress != "" {
		fmt.Fprintf(w, "  Proxy:           %s\n", redactProxy(cfg.ProxyAddress))
	}
	fmt.Fprintf(w, "  Output dir:      %s\n\n", outputDir)
}

// redactProxy strips the user info from a proxy address so credentials are
// never echoed. Addresses without a scheme lose everything up to the last '@'.
func redactProxy(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		u.User = nil
		return u.String()
	}
	if i := strings.LastIndex(raw, "@"); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

// printScanResults writes the summary (or JSON report) of every scan and
// returns the scan errors.
func printScanResults(out, errOut io.Writer, cfg *config.Config, scans []*pipeline.Scan) []error {
	var failures []error
	for _, scan := range scans {
		if scan.Err != nil {
			fmt.Fprintf(errOut, "Scan error for %s: %v\n", scan.Target, scan.Err)
			failures = append(failures, scan.Err)
		}
		if scan.Report == nil {
			if scan.Err == nil {
				fmt.Fprintf(errOut, "Skipped %s: scan was cancelled before it started\n", scan.Target)
			}
			continue
		}

		var w report.Writer
		if cfg.JSONOutput {
			w = report.NewJSONWriter(out, report.WithPrettyPrint())
		} else {
			w = report.NewSimpleWriter(out,
				report.WithVerbose(cfg.Verbose),
				report.WithReportPaths(scan.Paths...),
			)
		}
		if _, err := w.Write(scan.Report); err != nil {
			failures = append(failures, fmt.Errorf("failed to print report for %s: %w", scan.Target, err))
		}
	}
	return failures
}
