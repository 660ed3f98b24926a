// Package report renders hunt findings for operators.
//
// The text format is the human-readable stream operators already rely on;
// the structured formats wrap the same findings in export events.
package report

import (
	"io"

	"github.com/railwayapp/ctfhunter/internal/hunter"
)

// Run describes the parameters printed in the opening banner.
type Run struct {
	ID       string
	StartDir string
	Search   string
	Targets  hunter.TargetSet
}

// Reporter is a hunter.Reporter with an opening and closing banner.
type Reporter interface {
	hunter.Reporter

	// Start writes the opening banner
	Start(run Run) error

	// Finish writes the closing banner and flushes the stream
	Finish(summary hunter.Summary) error
}

// Options controls reporter construction.
type Options struct {
	// Format is "text" or one of export.Formats()
	Format string

	// Color enables ANSI markers in the text format
	Color bool
}

// New returns the reporter for opts.Format writing to w.
func New(w io.Writer, opts Options) (Reporter, error) {
	if opts.Format == "" || opts.Format == FormatText {
		return NewTextReporter(w, opts.Color), nil
	}
	r, err := NewStructuredReporter(w, opts.Format)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// FormatText selects the human-readable report.
const FormatText = "text"
