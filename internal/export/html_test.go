package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iksnae/dietchat/internal/chat"
)

func TestHTMLExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&HTMLExporter{}).Export(sampleTranscript(), &buf); err != nil {
		t.Fatalf("HTMLExporter.Export() error = %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Breakfast ideas</title>",
		"4 messages",
		`<div class="message user" id="t1-user-0">`,
		`<div class="message ai" id="t1-ai-0">`,
		"<p>What is a <strong>good</strong> breakfast?</p>",
		"<ul><li>Oats</li><li>Eggs</li></ul>",
		"Nutrition Calculator &middot; 2024-03-01T08:30:00Z",
		"&lt;b&gt;lunch&lt;/b&gt;",
		"</html>",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output should contain %q, got:\n%s", want, output)
		}
	}
	if strings.Contains(output, "<b>lunch</b>") {
		t.Errorf("message text must be escaped, got:\n%s", output)
	}
}

func TestHTMLExporter_ErrorClass(t *testing.T) {
	var buf bytes.Buffer
	tr := &chat.Transcript{Messages: []chat.Message{{ID: "m1", Type: chat.RoleAI, Content: "failed", Error: true}}}
	if err := (&HTMLExporter{}).Export(tr, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `class="message ai error"`) {
		t.Errorf("error message should carry the error class, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "<title>Chat History</title>") {
		t.Errorf("session-less transcript should use the generic title")
	}
}

func TestHTMLExporter_Extension(t *testing.T) {
	if got := (&HTMLExporter{}).Extension(); got != "html" {
		t.Errorf("HTMLExporter.Extension() = %v, want html", got)
	}
}
