package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/dietchat/internal/chat"
)

// MarkdownExporter exports transcripts in Markdown format
type MarkdownExporter struct{}

// Export exports a transcript to Markdown format. Assistant replies already
// carry markdown and are written as-is; user text is escaped.
func (e *MarkdownExporter) Export(transcript *chat.Transcript, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# %s\n\n", transcript.Title())

	if s := transcript.Session; s != nil {
		_, _ = fmt.Fprintf(w, "**Session:** %s  \n", s.ID)
		if s.CreatedAt != "" {
			_, _ = fmt.Fprintf(w, "**Created:** %s  \n", s.CreatedAt)
		}
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d  \n", len(transcript.Messages))
	_, _ = fmt.Fprintf(w, "**Exported:** %s\n\n", transcript.ExportedAt.UTC().Format(time.RFC3339))

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, msg := range transcript.Messages {
		timestamp := ""
		if !msg.Timestamp.IsZero() {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp.UTC().Format(time.RFC3339))
		}

		content := msg.Content
		if msg.Type == chat.RoleUser {
			content = escapeMarkdown(content)
		}
		if msg.Error {
			content = "> ⚠️ " + strings.ReplaceAll(content, "\n", "\n> ")
		}

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", speaker(msg), timestamp, content)

		if i < len(transcript.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			if strings.HasPrefix(line, "#") {
				line = "\\" + line
			}
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
