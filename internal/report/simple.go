package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/docrepo/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs a plain-text summary for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose lists every written page, not only the counters.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every written page in the output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary.
func (w *SimpleWriter) Write(s *model.RunSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, s)
	w.writeCounters(&sb, s)
	w.writePages(&sb, s)
	w.writeFailures(&sb, s)
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *model.RunSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                    DOCUMENTATION REPOSITORY\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed URL:   %s\n", s.SeedURL)
	fmt.Fprintf(sb, "Output:     %s\n", s.OutputDir)
	fmt.Fprintf(sb, "Started:    %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:   %s\n", s.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Status:     %s\n", statusText(s))
	if s.RobotsWarning != "" {
		fmt.Fprintf(sb, "Warning:    %s\n", s.RobotsWarning)
	}
	sb.WriteString("\n")
}

func statusText(s *model.RunSummary) string {
	switch s.Status {
	case model.RunStatusComplete:
		return "Complete"
	case model.RunStatusEmpty:
		return "No pages captured"
	case model.RunStatusCancelled:
		return "Cancelled (partial results)"
	case model.RunStatusFailed:
		if s.Error != "" {
			return "Failed - " + s.Error
		}
		return "Failed"
	default:
		return string(s.Status)
	}
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeCounters(sb *strings.Builder, s *model.RunSummary) {
	writeSection(sb, "SUMMARY")

	fmt.Fprintf(sb, "  Pages written:      %d\n", s.PagesCrawled)
	fmt.Fprintf(sb, "  Fetch failures:     %d\n", s.PagesFailed)
	fmt.Fprintf(sb, "  Blocked by robots:  %d\n", s.PagesDisallowed)
	fmt.Fprintf(sb, "  Images downloaded:  %d\n", s.ImagesDownloaded)
	fmt.Fprintf(sb, "  Images kept remote: %d\n", s.ImagesFailed)
	if s.IndexFile != "" {
		fmt.Fprintf(sb, "  Index:              %s\n", filepath.Join(s.OutputDir, s.IndexFile))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePages(sb *strings.Builder, s *model.RunSummary) {
	if !w.verbose || len(s.Pages) == 0 {
		return
	}

	writeSection(sb, "PAGES")
	for _, p := range s.SortedPages() {
		fmt.Fprintf(sb, "  * %s\n", p.Title)
		fmt.Fprintf(sb, "    File: %s\n", p.Filename)
		fmt.Fprintf(sb, "    URL:  %s (depth %d)\n", p.URL, p.Depth)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, s *model.RunSummary) {
	if len(s.Failures) == 0 {
		return
	}

	writeSection(sb, "FAILURES")
	for _, f := range s.Failures {
		if f.StatusCode != 0 {
			fmt.Fprintf(sb, "  [%d] %s\n", f.StatusCode, f.URL)
		} else {
			fmt.Fprintf(sb, "  [---] %s\n", f.URL)
		}
		fmt.Fprintf(sb, "        %s\n", f.Reason)
	}
	sb.WriteString("\n")
}
