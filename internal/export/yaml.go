package export

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/iksnae/dietchat/internal/chat"
)

// YAMLExporter writes the same document as JSONExporter in YAML, which keeps
// multi-line replies readable as block scalars.
type YAMLExporter struct{}

func (e *YAMLExporter) Export(transcript *chat.Transcript, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(transcript); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}
