// Package export encodes report events in machine-readable formats.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/railwayapp/ctfhunter/internal/hunter"
)

// Kind names what an Event reports.
type Kind string

const (
	KindStart              Kind = "start"
	KindFlagFile           Kind = "flag_file"
	KindFlagFileUnreadable Kind = "flag_file_unreadable"
	KindStringMatch        Kind = "string_match"
	KindFinish             Kind = "finish"
)

// Event is one structured report record.
//
// Path, Contents, StartDir and Search carry raw filesystem or operator bytes.
// Encoders move any of them that is not valid UTF-8 into the matching
// *_base64 field; use the Raw accessors to read them back.
type Event struct {
	RunID          string          `json:"run_id" yaml:"run_id" toml:"run_id"`
	Kind           Kind            `json:"kind" yaml:"kind" toml:"kind"`
	Time           time.Time       `json:"time" yaml:"time" toml:"time"`
	Path           string          `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
	PathBase64     string          `json:"path_base64,omitempty" yaml:"path_base64,omitempty" toml:"path_base64,omitempty"`
	Contents       *string         `json:"contents,omitempty" yaml:"contents,omitempty" toml:"contents,omitempty"`
	ContentsBase64 string          `json:"contents_base64,omitempty" yaml:"contents_base64,omitempty" toml:"contents_base64,omitempty"`
	Error          string          `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
	StartDir       string          `json:"start_dir,omitempty" yaml:"start_dir,omitempty" toml:"start_dir,omitempty"`
	StartDirBase64 string          `json:"start_dir_base64,omitempty" yaml:"start_dir_base64,omitempty" toml:"start_dir_base64,omitempty"`
	Search         *string         `json:"search,omitempty" yaml:"search,omitempty" toml:"search,omitempty"`
	SearchBase64   string          `json:"search_base64,omitempty" yaml:"search_base64,omitempty" toml:"search_base64,omitempty"`
	Targets        []string        `json:"targets,omitempty" yaml:"targets,omitempty" toml:"targets,omitempty"`
	Summary        *hunter.Summary `json:"summary,omitempty" yaml:"summary,omitempty" toml:"summary,omitempty"`
}

// Encoder writes events to a stream, one complete record per call
type Encoder interface {
	// Encode writes a single event
	Encode(event Event) error

	// Name returns the format name (e.g., "json", "yaml", "toml")
	Name() string

	// Close terminates the stream; it does not close the underlying writer
	Close() error
}

var encoders = map[string]func(w io.Writer) Encoder{
	"json": NewJSONEncoder,
	"yaml": NewYAMLEncoder,
	"toml": NewTOMLEncoder,
}

// Formats lists the supported structured format names.
func Formats() []string {
	names := make([]string, 0, len(encoders))
	for name := range encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewEncoder returns the encoder registered for format.
func NewEncoder(format string, w io.Writer) (Encoder, error) {
	factory, ok := encoders[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unsupported export format %q (supported: %s)", format, strings.Join(Formats(), ", "))
	}
	return factory(w), nil
}
