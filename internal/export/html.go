package export

import (
	"fmt"
	"html"
	"io"
	"time"

	"github.com/iksnae/dietchat/internal/chat"
)

const htmlStyle = `body{font-family:system-ui,sans-serif;max-width:760px;margin:2rem auto;padding:0 1rem;color:#222}
.message{border-radius:8px;padding:.75rem 1rem;margin:1rem 0}
.user{background:#e8f0fe}
.ai{background:#f4f4f4}
.error{background:#fdecea;border:1px solid #f5c2c0}
.meta{font-size:.8rem;color:#666;margin-bottom:.25rem}`

// HTMLExporter exports transcripts as a standalone HTML page
type HTMLExporter struct{}

// Export exports a transcript to HTML. Message text is escaped first and then
// converted with chat.ToMarkup, once per message.
func (e *HTMLExporter) Export(transcript *chat.Transcript, w io.Writer) error {
	title := html.EscapeString(transcript.Title())

	if _, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n<style>\n%s\n</style>\n</head>\n<body>\n<h1>%s</h1>\n", title, htmlStyle, title); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "<p class=\"meta\">%d messages, exported %s</p>\n", len(transcript.Messages), transcript.ExportedAt.UTC().Format(time.RFC3339))

	for _, msg := range transcript.Messages {
		class := string(msg.Type)
		if msg.Error {
			class += " error"
		}
		_, _ = fmt.Fprintf(w, "<div class=\"message %s\" id=\"%s\">\n", class, html.EscapeString(msg.ID))

		meta := html.EscapeString(speaker(msg))
		if !msg.Timestamp.IsZero() {
			meta += " &middot; " + msg.Timestamp.UTC().Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "<div class=\"meta\">%s</div>\n", meta)
		_, _ = fmt.Fprintf(w, "%s\n</div>\n", chat.ToMarkup(html.EscapeString(msg.Content)))
	}

	_, err := fmt.Fprint(w, "</body>\n</html>\n")
	return err
}

// Extension returns the file extension for this format
func (e *HTMLExporter) Extension() string {
	return "html"
}
