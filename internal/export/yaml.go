package export

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLEncoder writes a multi-document YAML stream, one document per event.
type YAMLEncoder struct {
	enc *yaml.Encoder
}

func NewYAMLEncoder(w io.Writer) Encoder {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &YAMLEncoder{enc: enc}
}

func (e *YAMLEncoder) Name() string {
	return "yaml"
}

func (e *YAMLEncoder) Encode(event Event) error {
	return e.enc.Encode(event.portable())
}

func (e *YAMLEncoder) Close() error {
	return e.enc.Close()
}
