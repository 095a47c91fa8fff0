// Package report prints the summary of a finished run.
//
//   - SimpleWriter: human-readable text for the terminal
//   - JSONWriter: the RunSummary as JSON, optionally wrapped with the
//     docrepo version
//
// Both implement Writer, so the CLI picks one from the --json flag and
// treats them the same way afterwards.
package report
