package report

import (
	"io"

	"github.com/nao1215/docrepo/internal/model"
)

// Writer writes a run summary to its destination.
type Writer interface {
	// Write outputs the summary and returns the number of bytes written.
	Write(summary *model.RunSummary) (int, error)
}

// baseWriter holds the output destination shared by the writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
