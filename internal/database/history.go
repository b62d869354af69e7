package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/webspectre/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "webspectre.db"

// timestampLayout is how scan times are stored. It is fixed-width so that
// text ordering is chronological.
const timestampLayout = "2006-01-02 15:04:05.000"

// HistoryDB is the SQLite store of past scans.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		mode = "rw"
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode+"&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := hdb.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id TEXT NOT NULL UNIQUE,
		target TEXT NOT NULL,
		seed TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		partial INTEGER NOT NULL DEFAULT 0,
		visited_urls INTEGER NOT NULL DEFAULT 0,
		valid_urls INTEGER NOT NULL DEFAULT 0,
		invalid_urls INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		duration_sec REAL NOT NULL DEFAULT 0,
		digest TEXT NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scans_target ON scans(target);
	CREATE INDEX IF NOT EXISTS idx_scans_timestamp ON scans(timestamp);

	CREATE TABLE IF NOT EXISTS scan_links (
		scan_ref INTEGER NOT NULL REFERENCES scans(id),
		url TEXT NOT NULL,
		valid INTEGER NOT NULL,
		PRIMARY KEY (scan_ref, url)
	);

	CREATE INDEX IF NOT EXISTS idx_scan_links_url ON scan_links(url);
	`
	_, err := h.db.ExecContext(ctx, schema)
	return err
}

// ScanSummary is one row of the scan history, without the report body.
type ScanSummary struct {
	ID          int64
	ScanID      string
	Target      string
	Seed        string
	Timestamp   time.Time
	Partial     bool
	Stats       model.ScanStats
	DurationSec float64
	Digest      string
}

// LinkVerdict is the classification of one URL in one scan.
type LinkVerdict struct {
	ScanRef   int64
	URL       string
	Valid     bool
	Timestamp time.Time
}

// Digest returns the hex SHA3-256 digest of a stored report body.
func Digest(reportJSON []byte) string {
	sum := sha3.Sum256(reportJSON)
	return hex.EncodeToString(sum[:])
}

// SaveScanReport stores report and its link verdicts in one transaction
// and returns the row ID of the scan.
func (h *HistoryDB) SaveScanReport(ctx context.Context, report *model.ScanReport) (id int64, err error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	finished := report.Metadata.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	result, err := tx.ExecContext(ctx, `
	INSERT INTO scans (scan_id, target, seed, timestamp, partial,
		visited_urls, valid_urls, invalid_urls, error_count, duration_sec, digest, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.Metadata.ScanID,
		report.Metadata.Target,
		report.Metadata.Seed,
		finished.UTC().Format(timestampLayout),
		report.Metadata.Partial,
		report.Stats.VisitedURLs,
		report.Stats.ValidURLs,
		report.Stats.InvalidURLs,
		report.Stats.ErrorCount,
		report.Metadata.DurationSec,
		Digest(reportJSON),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save scan report: %w", err)
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get scan row id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO scan_links (scan_ref, url, valid) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare link insert: %w", err)
	}
	defer stmt.Close()

	for _, link := range report.ValidLinks {
		if _, err = stmt.ExecContext(ctx, id, link, true); err != nil {
			return 0, fmt.Errorf("failed to save link verdict: %w", err)
		}
	}
	for _, link := range report.InvalidLinks {
		if _, err = stmt.ExecContext(ctx, id, link, false); err != nil {
			return 0, fmt.Errorf("failed to save link verdict: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scan report: %w", err)
	}
	return id, nil
}

// ListTargets returns every target that has at least one stored scan.
func (h *HistoryDB) ListTargets(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT target FROM scans ORDER BY target`)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}
	return targets, rows.Err()
}

// ListScans returns the stored scans of target, newest first. An empty
// target lists every scan.
func (h *HistoryDB) ListScans(ctx context.Context, target string) ([]ScanSummary, error) {
	query := `
	SELECT id, scan_id, target, seed, timestamp, partial,
		visited_urls, valid_urls, invalid_urls, error_count, duration_sec, digest
	FROM scans
	`
	args := make([]any, 0, 1)
	if target != "" {
		query += " WHERE target = ?"
		args = append(args, target)
	}
	query += " ORDER BY timestamp DESC, id DESC"

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var results []ScanSummary
	for rows.Next() {
		var s ScanSummary
		var timestamp string
		if err := rows.Scan(
			&s.ID, &s.ScanID, &s.Target, &s.Seed, &timestamp, &s.Partial,
			&s.Stats.VisitedURLs, &s.Stats.ValidURLs, &s.Stats.InvalidURLs, &s.Stats.ErrorCount,
			&s.DurationSec, &s.Digest,
		); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		s.Timestamp = parseTimestamp(timestamp)
		results = append(results, s)
	}
	return results, rows.Err()
}

// GetScanReport returns the stored report with the given row ID. The
// report body is checked against its digest.
func (h *HistoryDB) GetScanReport(ctx context.Context, id int64) (*model.ScanReport, error) {
	var reportJSON, digest string
	err := h.db.QueryRowContext(ctx, `SELECT report_json, digest FROM scans WHERE id = ?`, id).
		Scan(&reportJSON, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrScanNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}
	return decodeReport(reportJSON, digest)
}

// GetScanHistory returns every stored report of target, newest first.
// Reports failing their digest check are skipped.
func (h *HistoryDB) GetScanHistory(ctx context.Context, target string) ([]*model.ScanReport, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT report_json, digest FROM scans
	WHERE target = ?
	ORDER BY timestamp DESC, id DESC
	`, target)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var reports []*model.ScanReport
	for rows.Next() {
		var reportJSON, digest string
		if err := rows.Scan(&reportJSON, &digest); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		report, err := decodeReport(reportJSON, digest)
		if err != nil {
			continue
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// LinkHistory returns the verdicts recorded for url across all scans,
// newest first.
func (h *HistoryDB) LinkHistory(ctx context.Context, url string) ([]LinkVerdict, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT l.scan_ref, l.url, l.valid, s.timestamp
	FROM scan_links l JOIN scans s ON s.id = l.scan_ref
	WHERE l.url = ?
	ORDER BY s.timestamp DESC, s.id DESC
	`, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get link history: %w", err)
	}
	defer rows.Close()

	var verdicts []LinkVerdict
	for rows.Next() {
		var v LinkVerdict
		var timestamp string
		if err := rows.Scan(&v.ScanRef, &v.URL, &v.Valid, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan link verdict: %w", err)
		}
		v.Timestamp = parseTimestamp(timestamp)
		verdicts = append(verdicts, v)
	}
	return verdicts, rows.Err()
}

func decodeReport(reportJSON, digest string) (*model.ScanReport, error) {
	if Digest([]byte(reportJSON)) != digest {
		return nil, ErrDigestMismatch
	}
	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// timestampFormats are the layouts SQLite may hand back.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp returns the zero time when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
