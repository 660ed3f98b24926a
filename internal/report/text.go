package report

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/railwayapp/ctfhunter/internal/hunter"
)

const (
	flagMarker  = "[FLAG FILE FOUND]"
	matchMarker = "[STRING MATCH]"
)

// TextReporter writes the human-readable report. Each finding is written as
// one unit under the lock, so concurrent workers never tear a block.
type TextReporter struct {
	mu    sync.Mutex
	w     *bufio.Writer
	flag  *color.Color
	match *color.Color
	color bool
}

// NewTextReporter creates a TextReporter. When colored is true the markers
// are highlighted with ANSI escapes.
func NewTextReporter(w io.Writer, colored bool) *TextReporter {
	flag := color.New(color.FgRed, color.Bold)
	match := color.New(color.FgGreen)
	if colored {
		flag.EnableColor()
		match.EnableColor()
	}

	return &TextReporter{
		w:     bufio.NewWriter(w),
		flag:  flag,
		match: match,
		color: colored,
	}
}

func (r *TextReporter) marker(c *color.Color, text string) string {
	if !r.color {
		return text
	}
	return c.Sprint(text)
}

func (r *TextReporter) Start(run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.w, "=== CTF Hunter ===\n")
	fmt.Fprintf(r.w, "Start dir    : %s\n", run.StartDir)
	fmt.Fprintf(r.w, "Search string: %s  (case-insensitive)\n", run.Search)
	fmt.Fprintf(r.w, "Target files : %s  (case-insensitive)\n", run.Targets)
	fmt.Fprintf(r.w, "==================\n\n")
	return r.w.Flush()
}

func (r *TextReporter) FlagFile(path string, open func() (io.ReadCloser, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.w, "%s %s\n", r.marker(r.flag, flagMarker), path)

	f, err := open()
	if err != nil {
		fmt.Fprintf(r.w, "  [!] Could not open file for reading.\n")
		return r.w.Flush()
	}
	defer f.Close()

	fmt.Fprintf(r.w, "  --- Contents of %s ---\n", path)
	if _, err := io.Copy(r.w, f); err != nil {
		// Keep the block well-formed even when the read dies halfway
		fmt.Fprintf(r.w, "\n  [!] Read interrupted: %v", err)
	}
	fmt.Fprintf(r.w, "\n  --- End of file ---\n")
	return r.w.Flush()
}

func (r *TextReporter) StringMatch(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.w, "%s   %s\n", r.marker(r.match, matchMarker), path)
	return r.w.Flush()
}

func (r *TextReporter) Finish(_ hunter.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.w, "\n=== Done ===\n")
	return r.w.Flush()
}
