package config

import (
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/webspectre/internal/crawler"
	"github.com/nao1215/webspectre/internal/fetch"
	"github.com/nao1215/webspectre/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "webspectre"

	// DefaultMaxDepth crawls the seed, its links and their links.
	DefaultMaxDepth = 2

	// DefaultMaxPagesPerSection bounds N in "/page/<N>" URLs.
	DefaultMaxPagesPerSection = 20

	// DefaultConcurrency is the number of crawl workers per scan.
	DefaultConcurrency = 3

	// DefaultTimeout applies to each page download.
	DefaultTimeout = fetch.DefaultTimeout

	// DefaultProbeTimeout applies to each reachability probe.
	DefaultProbeTimeout = fetch.DefaultProbeTimeout

	// DefaultDelayMin and DefaultDelayMax bound the random pause a worker
	// takes after each page.
	DefaultDelayMin = 1 * time.Second
	DefaultDelayMax = 3 * time.Second

	// DefaultBatchSize is the number of targets scanned at once.
	DefaultBatchSize = 1

	// DefaultUserAgent identifies webspectre in HTTP requests.
	DefaultUserAgent = fetch.DefaultUserAgent

	// DefaultMaxBodySize limits the size of a downloaded page.
	DefaultMaxBodySize = fetch.DefaultMaxBodySize

	// FastScanMaxPagesPerSection is the pagination bound of --fast-scan.
	FastScanMaxPagesPerSection = 10
)

// FastScanExcludePaths are added to the exclude paths by --fast-scan.
var FastScanExcludePaths = []string{"api", "ajax"}

// Config holds every option of a scan run. It is populated from defaults,
// the configuration file and CLI flags, in that order of precedence.
type Config struct {
	// Targets are the seed URLs to scan.
	Targets []string

	// MaxDepth is the maximum BFS distance from the seed. 0 = seed only.
	MaxDepth int

	// MaxPagesPerSection bounds N in "/page/<N>" pagination URLs.
	MaxPagesPerSection int

	// ExcludePaths are URL substrings that are never crawled.
	ExcludePaths []string

	// Concurrency is the number of crawl workers per scan.
	Concurrency int

	// VerifySSL enables TLS certificate verification.
	VerifySSL bool

	// TrustShortcut treats /category/ and /page/ URLs as valid without a probe.
	TrustShortcut bool

	// FastScan records that the fast-scan profile was applied.
	FastScan bool

	Timeout      time.Duration
	ProbeTimeout time.Duration
	DelayMin     time.Duration
	DelayMax     time.Duration

	// ProxyAddress is an optional SOCKS5 or HTTP proxy.
	ProxyAddress string

	UserAgent   string
	Headers     map[string]string
	MaxBodySize int64

	// BatchSize is the number of targets scanned concurrently.
	BatchSize int

	// OutputDir is where report files are written. Empty = current directory.
	OutputDir string

	// DBDir is the directory of the history database.
	DBDir string

	// SaveHistory records every scan in the history database.
	SaveHistory bool

	// JSONOutput prints the JSON report to stdout instead of the summary.
	JSONOutput bool

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the configuration file given with --config.
	ConfigFilePath string

	// SiteConfigs is the loaded configuration file, if any.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxDepth:           DefaultMaxDepth,
		MaxPagesPerSection: DefaultMaxPagesPerSection,
		ExcludePaths:       slices.Clone(crawler.DefaultExcludePaths),
		Concurrency:        DefaultConcurrency,
		VerifySSL:          true,
		TrustShortcut:      true,
		Timeout:            DefaultTimeout,
		ProbeTimeout:       DefaultProbeTimeout,
		DelayMin:           DefaultDelayMin,
		DelayMax:           DefaultDelayMax,
		UserAgent:          DefaultUserAgent,
		MaxBodySize:        DefaultMaxBodySize,
		BatchSize:          DefaultBatchSize,
		DBDir:              XDGDataDir(),
		SaveHistory:        true,
	}
}

// Clone returns a deep copy of c. The loaded configuration file is shared.
func (c *Config) Clone() *Config {
	out := *c
	out.Targets = slices.Clone(c.Targets)
	out.ExcludePaths = slices.Clone(c.ExcludePaths)
	out.Headers = maps.Clone(c.Headers)
	return &out
}

// ApplyFastScan switches to the fast-scan profile: a lower pagination
// bound, the trust shortcut, and API endpoints excluded.
func (c *Config) ApplyFastScan() {
	c.FastScan = true
	c.MaxPagesPerSection = FastScanMaxPagesPerSection
	c.TrustShortcut = true
	for _, p := range FastScanExcludePaths {
		if !slices.Contains(c.ExcludePaths, p) {
			c.ExcludePaths = append(c.ExcludePaths, p)
		}
	}
}

// ApplySite overrides c with the values set in sc.
func (c *Config) ApplySite(sc SiteConfig) {
	if sc.Depth != nil {
		c.MaxDepth = *sc.Depth
	}
	if sc.MaxPages != nil {
		c.MaxPagesPerSection = *sc.MaxPages
	}
	if len(sc.ExcludePaths) > 0 {
		c.ExcludePaths = slices.Clone(sc.ExcludePaths)
	}
	if sc.Concurrency != nil {
		c.Concurrency = *sc.Concurrency
	}
	if sc.VerifySSL != nil {
		c.VerifySSL = *sc.VerifySSL
	}
	if sc.TrustShortcut != nil {
		c.TrustShortcut = *sc.TrustShortcut
	}
	if sc.UserAgent != "" {
		c.UserAgent = sc.UserAgent
	}
	if len(sc.Headers) > 0 || sc.Cookie != "" {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(sc.Headers)+1)
		}
		maps.Copy(c.Headers, sc.Headers)
		if sc.Cookie != "" {
			c.Headers["Cookie"] = sc.Cookie
		}
	}
}

// ScanConfig returns the part of c that is echoed into reports.
func (c *Config) ScanConfig() model.ScanConfig {
	return model.ScanConfig{
		MaxDepth:           c.MaxDepth,
		MaxPagesPerSection: c.MaxPagesPerSection,
		ExcludePaths:       slices.Clone(c.ExcludePaths),
		VerifySSL:          c.VerifySSL,
		Concurrency:        c.Concurrency,
		TrustShortcut:      c.TrustShortcut,
		FastScan:           c.FastScan,
	}
}

// XDGDataDir returns the directory of the history database
// (~/.local/share/webspectre on Linux).
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the webspectre config directory
// (~/.config/webspectre on Linux).
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks that the configuration can drive a scan and returns the
// first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}
	if c.MaxPagesPerSection < 1 {
		return ErrInvalidMaxPages
	}
	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.Timeout <= 0 || c.ProbeTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.DelayMin < 0 || c.DelayMax < c.DelayMin {
		return ErrInvalidDelay
	}
	if c.BatchSize < 1 {
		return ErrInvalidBatchSize
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
