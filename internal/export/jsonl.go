package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/iksnae/dietchat/internal/chat"
)

// JSONLExporter exports transcripts in JSONL format (one message per line)
type JSONLExporter struct{}

// Export exports a transcript to JSONL format
func (e *JSONLExporter) Export(transcript *chat.Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range transcript.Messages {
		obj := map[string]interface{}{
			"id":      msg.ID,
			"type":    msg.Type,
			"content": msg.Content,
		}
		if transcript.Session != nil {
			obj["session_id"] = transcript.Session.ID
		}
		if !msg.Timestamp.IsZero() {
			obj["timestamp"] = msg.Timestamp.UTC().Format(time.RFC3339)
		}
		if msg.Agent != "" {
			obj["agent"] = msg.Agent
		}
		if msg.Error {
			obj["error"] = true
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
