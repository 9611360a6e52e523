package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/iksnae/dietchat/internal"
	"github.com/iksnae/dietchat/internal/api"
	"github.com/iksnae/dietchat/internal/chat"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	agentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)
)

// printer writes styled output when w is a terminal and plain text otherwise
type printer struct {
	w        io.Writer
	tty      bool
	markdown *glamour.TermRenderer
}

func newPrinter(w io.Writer, renderMarkdown bool) *printer {
	p := &printer{w: w, tty: internal.IsTerminal(w)}
	if p.tty && renderMarkdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(internal.TerminalWidth(w, 80)),
		)
		if err != nil {
			internal.LogDebug("Markdown rendering disabled: %v", err)
		} else {
			p.markdown = r
		}
	}
	return p
}

func (p *printer) style(s lipgloss.Style, text string) string {
	if !p.tty {
		return text
	}
	return s.Render(text)
}

func (p *printer) Section(title string) {
	fmt.Fprintln(p.w, p.style(sectionStyle, title))
}

func (p *printer) Line(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) Muted(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.style(mutedStyle, fmt.Sprintf(format, args...)))
}

// Markdown renders content with glamour on a terminal and verbatim elsewhere
func (p *printer) Markdown(content string) {
	if p.markdown != nil {
		if rendered, err := p.markdown.Render(content); err == nil {
			fmt.Fprint(p.w, rendered)
			return
		}
	}
	fmt.Fprintln(p.w, content)
}

// Message prints one transcript entry
func (p *printer) Message(m chat.Message) {
	var header string
	switch {
	case m.Type == chat.RoleUser:
		header = p.style(userStyle, "You")
	case m.Error:
		header = p.style(errorStyle, "Error")
	case m.IsWelcome():
		header = p.style(agentStyle, "Assistant")
	default:
		name := chat.DefaultAgentName
		if m.Agent != "" {
			name = chat.AgentName(m.Agent)
		}
		header = p.style(agentStyle, name)
	}
	if !m.Timestamp.IsZero() && !m.IsWelcome() {
		header += " " + p.style(mutedStyle, m.Timestamp.Local().Format("Jan 2 15:04"))
	}
	fmt.Fprintln(p.w, header)

	switch {
	case m.Type == chat.RoleUser:
		fmt.Fprintln(p.w, m.Content)
	case m.Error:
		fmt.Fprintln(p.w, p.style(errorStyle, m.Content))
	default:
		p.Markdown(m.Content)
	}
	fmt.Fprintln(p.w)
}

// Sessions prints the session list, marking the active one
func (p *printer) Sessions(sessions []api.Session, activeID string) {
	if len(sessions) == 0 {
		p.Muted("No chat sessions yet.")
		return
	}
	for _, s := range sessions {
		marker := "  "
		if s.ID == activeID || (activeID == "" && s.IsActive) {
			marker = p.style(successStyle, "* ")
		}
		p.Line("%s%-12s %-34s %3d msgs  %s", marker, s.ID, truncate(s.Title, 34), s.MessageCount, formatWhen(s.UpdatedAt))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatWhen renders a backend timestamp for listings
func formatWhen(ts string) string {
	t := chat.ParseTimestamp(ts)
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

// joinOrDash joins values or returns "-" when there are none
func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func today() string {
	return api.FormatDate(time.Now())
}

// writeStructured encodes v as json or yaml. It reports false for the text
// format so the caller prints its own view.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case "text", "":
		return false, nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return true, fmt.Errorf("unsupported output: %s (supported: text, json, yaml)", format)
	}
}
