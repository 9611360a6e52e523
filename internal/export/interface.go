package export

import (
	"fmt"
	"io"

	"github.com/iksnae/dietchat/internal/chat"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(transcript *chat.Transcript, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	case "html":
		return &HTMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: jsonl, md, yaml, json, html)", format)
	}
}

// speaker returns the label shown for the author of m
func speaker(m chat.Message) string {
	if m.Type == chat.RoleUser {
		return "You"
	}
	if m.Agent == "" {
		return chat.DefaultAgentName
	}
	return chat.AgentName(m.Agent)
}
