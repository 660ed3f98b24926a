package export

import (
	"io"

	"github.com/BurntSushi/toml"
)

// TOMLEncoder writes each event as an [[event]] array-of-tables entry, so the
// concatenated stream is a single valid TOML document.
type TOMLEncoder struct {
	w io.Writer
}

type tomlEnvelope struct {
	Event []Event `toml:"event"`
}

func NewTOMLEncoder(w io.Writer) Encoder {
	return &TOMLEncoder{w: w}
}

func (e *TOMLEncoder) Name() string {
	return "toml"
}

func (e *TOMLEncoder) Encode(event Event) error {
	if err := toml.NewEncoder(e.w).Encode(tomlEnvelope{Event: []Event{event.portable()}}); err != nil {
		return err
	}
	_, err := io.WriteString(e.w, "\n")
	return err
}

func (e *TOMLEncoder) Close() error {
	return nil
}
