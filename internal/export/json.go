package export

import (
	"encoding/json"
	"io"
)

// JSONEncoder writes one JSON object per line.
type JSONEncoder struct {
	enc *json.Encoder
}

func NewJSONEncoder(w io.Writer) Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONEncoder{enc: enc}
}

func (e *JSONEncoder) Name() string {
	return "json"
}

func (e *JSONEncoder) Encode(event Event) error {
	return e.enc.Encode(event.portable())
}

func (e *JSONEncoder) Close() error {
	return nil
}
