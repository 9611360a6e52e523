// Package chat implements the session and chat controller: session
// lifecycle, optimistic sending, expansion of stored turns into display
// messages, and formatting of structured agent responses.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/iksnae/dietchat/internal/api"
)

// Role identifies who authored a display message
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// WelcomeID is the id of the synthetic welcome message
const WelcomeID = "welcome"

// WelcomeContent is shown when a transcript has no real messages.
const WelcomeContent = "👋 Hi! I'm your AI nutrition assistant.\n\n" +
	"I can help you with:\n" +
	"• Nutrition facts for any food\n" +
	"• Healthy recipe ideas\n" +
	"• Tracking and analyzing your daily intake\n\n" +
	"What would you like to know?"

// SuggestedPrompts are offered while only the welcome message is shown
var SuggestedPrompts = []string{
	"How many calories are in a banana?",
	"Find me a high-protein vegetarian recipe",
	"Analyze what I ate today",
	"What's a healthy breakfast for weight loss?",
}

// Message is one display entry of a transcript
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	Type      Role      `json:"type" yaml:"type"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Agent     string    `json:"agent,omitempty" yaml:"agent,omitempty"`
	Error     bool      `json:"error,omitempty" yaml:"error,omitempty"`
}

// IsWelcome reports whether m is the synthetic welcome message
func (m Message) IsWelcome() bool {
	return m.ID == WelcomeID
}

// Welcome returns a fresh welcome message
func Welcome() Message {
	return Message{ID: WelcomeID, Type: RoleAI, Content: WelcomeContent, Timestamp: time.Now()}
}

// WelcomeTranscript returns the one-element transcript shown for an empty session
func WelcomeTranscript() []Message {
	return []Message{Welcome()}
}

// ExpandTurns converts stored turns into display messages. A turn yields a
// user message when its utterance is non-blank and an assistant message when
// its answer is non-blank. Ids combine the turn id, the role, and the turn's
// position so both entries of one turn stay unique.
func ExpandTurns(turns []api.Turn) []Message {
	messages := make([]Message, 0, len(turns)*2)
	for i, turn := range turns {
		ts := ParseTimestamp(turn.Timestamp)
		turnID := turn.ID
		if turnID == "" {
			turnID = "turn"
		}
		if strings.TrimSpace(turn.Message) != "" {
			messages = append(messages, Message{
				ID:        fmt.Sprintf("%s-%s-%d", turnID, RoleUser, i),
				Type:      RoleUser,
				Content:   turn.Message,
				Timestamp: ts,
			})
		}
		if strings.TrimSpace(turn.Response) != "" {
			messages = append(messages, Message{
				ID:        fmt.Sprintf("%s-%s-%d", turnID, RoleAI, i),
				Type:      RoleAI,
				Content:   turn.Response,
				Timestamp: ts,
				Agent:     turn.AgentName,
			})
		}
	}
	return messages
}

// TranscriptFromTurns expands turns, substituting the welcome transcript when
// nothing displayable remains.
func TranscriptFromTurns(turns []api.Turn) []Message {
	messages := ExpandTurns(turns)
	if len(messages) == 0 {
		return WelcomeTranscript()
	}
	return messages
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the timestamp formats emitted by the backend. Values
// without a zone are read as UTC. Unparseable values yield the zero time.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Transcript is an exportable snapshot of one conversation
type Transcript struct {
	Session    *api.Session `json:"session,omitempty" yaml:"session,omitempty"`
	Messages   []Message    `json:"messages" yaml:"messages"`
	ExportedAt time.Time    `json:"exported_at" yaml:"exported_at"`
}

// Title returns the session title, or a generic one for session-less history
func (t *Transcript) Title() string {
	if t.Session != nil && t.Session.Title != "" {
		return t.Session.Title
	}
	return "Chat History"
}

// NewTranscript builds a transcript from stored turns. The welcome message is
// not part of an exported transcript.
func NewTranscript(session *api.Session, turns []api.Turn) *Transcript {
	return &Transcript{
		Session:    session,
		Messages:   ExpandTurns(turns),
		ExportedAt: time.Now().UTC(),
	}
}
