package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/dietchat/internal/chat"
)

// JSONExporter writes a transcript as one indented JSON document: the
// session (omitted for the session-less history), the messages in display
// order without the welcome message, and the export time. Message content
// is the source text, never rendered markup.
type JSONExporter struct{}

func (e *JSONExporter) Export(transcript *chat.Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	// replies quote food names like "Mac & Cheese" verbatim
	enc.SetEscapeHTML(false)
	return enc.Encode(transcript)
}

func (e *JSONExporter) Extension() string {
	return "json"
}
