package database

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/docrepo/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *ManifestDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleSummary(seed string, started time.Time) *model.RunSummary {
	return &model.RunSummary{
		SeedURL:          seed,
		OutputDir:        "out",
		StartedAt:        started,
		FinishedAt:       started.Add(3 * time.Second),
		Status:           model.RunStatusComplete,
		PagesCrawled:     2,
		PagesFailed:      1,
		PagesDisallowed:  1,
		ImagesDownloaded: 3,
		ImagesFailed:     1,
		IndexFile:        "index.md",
		Pages: []model.WrittenPage{
			{URL: seed, Title: "Home", Depth: 0, Filename: "example.com_index.md", Hash: "9f86d081"},
			{URL: seed + "guide", Title: "Guide", Depth: 1, Filename: "example.com_guide.md"},
		},
		Failures: []model.FetchFailure{
			{URL: seed + "missing", Depth: 1, StatusCode: 404, Reason: "unexpected status 404"},
		},
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("does not create database when CreateIfNotExists is false", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		_, err := Open(dbDir, Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("unexpected error: %v", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("directory should not have been created")
		}
	})

	t.Run("reopens existing database read-write", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		if _, err := db1.SaveRun(t.Context(), sampleSummary("https://example.com/", time.Now())); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
		_ = db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db2.Close()

		runs, err := db2.ListRuns(t.Context(), "", 0)
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		if len(runs) != 1 {
			t.Errorf("expected 1 run, got %d", len(runs))
		}
	})
}

func TestSaveRunAndGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	summary := sampleSummary("https://example.com/", started)
	summary.RobotsWarning = "robots.txt unavailable"

	id, err := db.SaveRun(ctx, summary)
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	rec, err := db.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}

	if rec.SeedURL != "https://example.com/" || rec.OutputDir != "out" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Status != model.RunStatusComplete {
		t.Errorf("expected status complete, got %q", rec.Status)
	}
	if !rec.StartedAt.Equal(started) {
		t.Errorf("expected StartedAt %v, got %v", started, rec.StartedAt)
	}
	if !rec.FinishedAt.Equal(started.Add(3 * time.Second)) {
		t.Errorf("unexpected FinishedAt %v", rec.FinishedAt)
	}
	if rec.PagesCrawled != 2 || rec.PagesFailed != 1 || rec.PagesDisallowed != 1 {
		t.Errorf("unexpected page counters: %+v", rec)
	}
	if rec.ImagesDownloaded != 3 || rec.ImagesFailed != 1 {
		t.Errorf("unexpected image counters: %+v", rec)
	}
	if rec.RobotsWarning != "robots.txt unavailable" {
		t.Errorf("unexpected robots warning %q", rec.RobotsWarning)
	}

	pages, err := db.GetRunPages(ctx, id)
	if err != nil {
		t.Fatalf("GetRunPages failed: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0] != summary.Pages[0] || pages[1] != summary.Pages[1] {
		t.Errorf("pages not stored in order: %+v", pages)
	}

	failures, err := db.GetRunFailures(ctx, id)
	if err != nil {
		t.Fatalf("GetRunFailures failed: %v", err)
	}
	if len(failures) != 1 || failures[0] != summary.Failures[0] {
		t.Errorf("unexpected failures: %+v", failures)
	}
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)

	_, err := db.GetRun(t.Context(), 42)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}

	pages, err := db.GetRunPages(t.Context(), 42)
	if err != nil {
		t.Fatalf("GetRunPages failed: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("expected no pages, got %d", len(pages))
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	seeds := []struct {
		seed    string
		started time.Time
	}{
		{"https://a.example.com/", base},
		{"https://b.example.com/", base.Add(time.Minute)},
		{"https://a.example.com/", base.Add(2 * time.Minute)},
		{"https://a.example.com/", base.Add(2*time.Minute + 500*time.Millisecond)},
	}
	for _, s := range seeds {
		if _, err := db.SaveRun(ctx, sampleSummary(s.seed, s.started)); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	tests := []struct {
		name      string
		seed      string
		limit     int
		wantCount int
		wantFirst time.Time
	}{
		{name: "all runs newest first", wantCount: 4, wantFirst: base.Add(2*time.Minute + 500*time.Millisecond)},
		{name: "filtered by seed", seed: "https://b.example.com/", wantCount: 1, wantFirst: base.Add(time.Minute)},
		{name: "limited", seed: "https://a.example.com/", limit: 2, wantCount: 2, wantFirst: base.Add(2*time.Minute + 500*time.Millisecond)},
		{name: "unknown seed", seed: "https://c.example.com/", wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runs, err := db.ListRuns(t.Context(), tt.seed, tt.limit)
			if err != nil {
				t.Fatalf("ListRuns failed: %v", err)
			}
			if len(runs) != tt.wantCount {
				t.Fatalf("expected %d runs, got %d", tt.wantCount, len(runs))
			}
			if tt.wantCount > 0 && !runs[0].StartedAt.Equal(tt.wantFirst) {
				t.Errorf("expected newest run first (%v), got %v", tt.wantFirst, runs[0].StartedAt)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []string{
		"2025-03-01T10:00:00.000000000Z",
		"2025-03-01T10:00:00Z",
		"2025-03-01 10:00:00",
		"2025-03-01T10:00:00",
	}
	for _, in := range tests {
		if got := parseTimestamp(in); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}
	if got := parseTimestamp("not a time"); !got.IsZero() {
		t.Errorf("expected zero time, got %v", got)
	}
}
