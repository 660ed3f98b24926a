package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/railwayapp/ctfhunter/internal/export"
	"github.com/railwayapp/ctfhunter/internal/hunter"
)

// StructuredReporter emits one export.Event per finding.
type StructuredReporter struct {
	mu    sync.Mutex
	enc   export.Encoder
	runID string
	now   func() time.Time
}

// NewStructuredReporter creates a reporter for a structured export format.
func NewStructuredReporter(w io.Writer, format string) (*StructuredReporter, error) {
	enc, err := export.NewEncoder(format, w)
	if err != nil {
		return nil, err
	}
	return &StructuredReporter{enc: enc, now: time.Now}, nil
}

func (r *StructuredReporter) emit(event export.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event.RunID = r.runID
	event.Time = r.now().UTC()
	if err := r.enc.Encode(event); err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Kind, err)
	}
	return nil
}

func (r *StructuredReporter) Start(run Run) error {
	r.mu.Lock()
	r.runID = run.ID
	r.mu.Unlock()

	search := run.Search
	return r.emit(export.Event{
		Kind:     export.KindStart,
		StartDir: run.StartDir,
		Search:   &search,
		Targets:  run.Targets.Names(),
	})
}

// FlagFile reads the whole file into the event, since a record cannot be
// streamed in pieces.
func (r *StructuredReporter) FlagFile(path string, open func() (io.ReadCloser, error)) error {
	f, err := open()
	if err != nil {
		return r.emit(export.Event{Kind: export.KindFlagFileUnreadable, Path: path, Error: err.Error()})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return r.emit(export.Event{Kind: export.KindFlagFileUnreadable, Path: path, Error: err.Error()})
	}

	contents := string(data)
	return r.emit(export.Event{Kind: export.KindFlagFile, Path: path, Contents: &contents})
}

func (r *StructuredReporter) StringMatch(path string) error {
	return r.emit(export.Event{Kind: export.KindStringMatch, Path: path})
}

func (r *StructuredReporter) Finish(summary hunter.Summary) error {
	if err := r.emit(export.Event{Kind: export.KindFinish, Summary: &summary}); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Close()
}
