package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/docrepo/internal/model"
)

// FileName is the manifest database file inside the database directory.
const FileName = "docrepo.db"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// ManifestDB records runs and the files they produced.
type ManifestDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures ManifestDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	// History lookups open with this off so that they never create files.
	CreateIfNotExists bool

	// EnableWAL enables write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used when recording a run.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the manifest in dbDir.
func Open(dbDir string, opts Options) (*ManifestDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	mdb := &ManifestDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := mdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return mdb, nil
}

// Path returns the database file path.
func (m *ManifestDB) Path() string {
	return m.dbPath
}

// Close closes the database connection.
func (m *ManifestDB) Close() error {
	return m.db.Close()
}

func (m *ManifestDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed_url TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		pages_crawled INTEGER DEFAULT 0,
		pages_failed INTEGER DEFAULT 0,
		pages_disallowed INTEGER DEFAULT 0,
		images_downloaded INTEGER DEFAULT 0,
		images_failed INTEGER DEFAULT 0,
		robots_warning TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		title TEXT NOT NULL,
		filename TEXT NOT NULL,
		hash TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);

	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		status_code INTEGER,
		reason TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);
	`

	_, err := m.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is a stored run without its page list.
type RunRecord struct {
	ID               int64
	SeedURL          string
	OutputDir        string
	StartedAt        time.Time
	FinishedAt       time.Time
	Status           model.RunStatus
	Error            string
	PagesCrawled     int
	PagesFailed      int
	PagesDisallowed  int
	ImagesDownloaded int
	ImagesFailed     int
	RobotsWarning    string
}

// SaveRun stores a run summary with its pages and failures in a single
// transaction and returns the new run ID.
func (m *ManifestDB) SaveRun(ctx context.Context, s *model.RunSummary) (int64, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // Rollback after Commit is a no-op

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (seed_url, output_dir, started_at, finished_at, status, error,
		pages_crawled, pages_failed, pages_disallowed, images_downloaded, images_failed, robots_warning)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.SeedURL,
		s.OutputDir,
		formatTimestamp(s.StartedAt),
		formatTimestamp(s.FinishedAt),
		string(s.Status),
		s.Error,
		s.PagesCrawled,
		s.PagesFailed,
		s.PagesDisallowed,
		s.ImagesDownloaded,
		s.ImagesFailed,
		s.RobotsWarning,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for _, p := range s.Pages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pages (run_id, url, depth, title, filename, hash) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, p.URL, p.Depth, p.Title, p.Filename, p.Hash,
		); err != nil {
			return 0, fmt.Errorf("failed to insert page %s: %w", p.URL, err)
		}
	}

	for _, f := range s.Failures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO failures (run_id, url, depth, status_code, reason) VALUES (?, ?, ?, ?, ?)`,
			runID, f.URL, f.Depth, f.StatusCode, f.Reason,
		); err != nil {
			return 0, fmt.Errorf("failed to insert failure %s: %w", f.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

const runColumns = `id, seed_url, output_dir, started_at, finished_at, status, COALESCE(error, ''),
	pages_crawled, pages_failed, pages_disallowed, images_downloaded, images_failed, COALESCE(robots_warning, '')`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		rec               RunRecord
		started, finished string
		status            string
	)
	err := row.Scan(
		&rec.ID,
		&rec.SeedURL,
		&rec.OutputDir,
		&started,
		&finished,
		&status,
		&rec.Error,
		&rec.PagesCrawled,
		&rec.PagesFailed,
		&rec.PagesDisallowed,
		&rec.ImagesDownloaded,
		&rec.ImagesFailed,
		&rec.RobotsWarning,
	)
	if err != nil {
		return rec, err
	}
	rec.StartedAt = parseTimestamp(started)
	rec.FinishedAt = parseTimestamp(finished)
	rec.Status = model.RunStatus(status)
	return rec, nil
}

// ListRuns returns stored runs, newest first. A non-empty seedURL limits
// the result to runs of that seed; limit <= 0 means no limit.
func (m *ManifestDB) ListRuns(ctx context.Context, seedURL string, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	args := make([]any, 0, 2)

	if seedURL != "" {
		query += " AND seed_url = ?"
		args = append(args, seedURL)
	}
	query += " ORDER BY started_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// GetRun returns a single run. It returns ErrRunNotFound if id is unknown.
func (m *ManifestDB) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &rec, nil
}

// GetRunPages returns the pages written by a run, in the order they were
// written.
func (m *ManifestDB) GetRunPages(ctx context.Context, runID int64) ([]model.WrittenPage, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT url, depth, title, filename, hash FROM pages WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run pages: %w", err)
	}
	defer rows.Close()

	var pages []model.WrittenPage
	for rows.Next() {
		var p model.WrittenPage
		if err := rows.Scan(&p.URL, &p.Depth, &p.Title, &p.Filename, &p.Hash); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// GetRunFailures returns the fetch failures recorded for a run.
func (m *ManifestDB) GetRunFailures(ctx context.Context, runID int64) ([]model.FetchFailure, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT url, depth, COALESCE(status_code, 0), reason FROM failures WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run failures: %w", err)
	}
	defer rows.Close()

	var failures []model.FetchFailure
	for rows.Next() {
		var f model.FetchFailure
		if err := rows.Scan(&f.URL, &f.Depth, &f.StatusCode, &f.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// timestampLayout is fixed width so that text ordering of stored UTC
// timestamps matches chronological ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats are tried in order by parseTimestamp.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time when s matches no known format.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
