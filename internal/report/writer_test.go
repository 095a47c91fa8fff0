package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/docrepo/internal/model"
)

// createTestSummary creates a summary with sample data for testing.
func createTestSummary() *model.RunSummary {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return &model.RunSummary{
		SeedURL:          "https://docs.example.com/",
		OutputDir:        "out",
		StartedAt:        started,
		FinishedAt:       started.Add(2500 * time.Millisecond),
		Status:           model.RunStatusComplete,
		PagesCrawled:     2,
		PagesFailed:      2,
		PagesDisallowed:  1,
		ImagesDownloaded: 4,
		ImagesFailed:     1,
		IndexFile:        "index.md",
		Pages: []model.WrittenPage{
			{URL: "https://docs.example.com/", Title: "Zeta Home", Depth: 0, Filename: "docs.example.com_index.md"},
			{URL: "https://docs.example.com/guide", Title: "Alpha Guide", Depth: 1, Filename: "docs.example.com_guide.md"},
		},
		Failures: []model.FetchFailure{
			{URL: "https://docs.example.com/missing", Depth: 1, StatusCode: 404, Reason: "unexpected status 404"},
			{URL: "https://docs.example.com/slow", Depth: 1, Reason: "context deadline exceeded"},
		},
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and counters", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"DOCUMENTATION REPOSITORY",
			"https://docs.example.com/",
			"Status:     Complete",
			"Duration:   2.5s",
			"Pages written:      2",
			"Blocked by robots:  1",
			"Images downloaded:  4",
			"Images kept remote: 1",
			"index.md",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
	})

	t.Run("lists failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[404] https://docs.example.com/missing") {
			t.Errorf("expected HTTP failure line:\n%s", output)
		}
		if !strings.Contains(output, "[---] https://docs.example.com/slow") {
			t.Errorf("expected transport failure line:\n%s", output)
		}
	})

	t.Run("pages only in verbose mode, sorted by title", func(t *testing.T) {
		t.Parallel()

		var quiet bytes.Buffer
		if _, err := NewSimpleWriter(&quiet).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(quiet.String(), "PAGES") {
			t.Error("expected no page list without verbose")
		}

		var verbose bytes.Buffer
		if _, err := NewSimpleWriter(&verbose, WithVerbose(true)).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := verbose.String()
		alpha := strings.Index(output, "Alpha Guide")
		zeta := strings.Index(output, "Zeta Home")
		if alpha < 0 || zeta < 0 || alpha > zeta {
			t.Errorf("expected pages sorted by title:\n%s", output)
		}
	})

	t.Run("status texts", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			status model.RunStatus
			err    string
			want   string
		}{
			{status: model.RunStatusEmpty, want: "No pages captured"},
			{status: model.RunStatusCancelled, want: "Cancelled (partial results)"},
			{status: model.RunStatusFailed, err: "disk full", want: "Failed - disk full"},
		}
		for _, tt := range tests {
			s := createTestSummary()
			s.Status = tt.status
			s.Error = tt.err

			var buf bytes.Buffer
			if _, err := NewSimpleWriter(&buf).Write(s); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q in output:\n%s", tt.want, buf.String())
			}
		}
	})

	t.Run("shows robots warning", func(t *testing.T) {
		t.Parallel()

		s := createTestSummary()
		s.RobotsWarning = "robots.txt unavailable, crawling without restrictions"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Warning:    robots.txt unavailable") {
			t.Errorf("expected warning line:\n%s", buf.String())
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewJSONWriter(&buf).Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
		}

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["seed_url"] != "https://docs.example.com/" {
			t.Errorf("unexpected seed_url: %v", decoded["seed_url"])
		}
		if decoded["status"] != "complete" {
			t.Errorf("unexpected status: %v", decoded["status"])
		}
		pages, ok := decoded["pages"].([]any)
		if !ok || len(pages) != 2 {
			t.Errorf("expected 2 pages, got %v", decoded["pages"])
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Errorf("expected a single line, got:\n%s", buf.String())
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"seed_url\"") {
			t.Errorf("expected indented output:\n%s", buf.String())
		}
	})

	t.Run("version envelope", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithVersion("v1.2.3")).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded JSONReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Version != "v1.2.3" {
			t.Errorf("unexpected version %q", decoded.Version)
		}
		if decoded.Run == nil || decoded.Run.PagesCrawled != 2 {
			t.Errorf("unexpected run: %+v", decoded.Run)
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("write failed") }

func TestWritersPropagateErrors(t *testing.T) {
	t.Parallel()

	writers := map[string]Writer{
		"simple": NewSimpleWriter(failingWriter{}),
		"json":   NewJSONWriter(failingWriter{}),
	}
	for name, w := range writers {
		if _, err := w.Write(createTestSummary()); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
