package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iksnae/dietchat/internal"
	"github.com/iksnae/dietchat/internal/api"
)

// DefaultSessionTitle is the title given to sessions created without one
const DefaultSessionTitle = "New Chat"

const (
	// ServerUnreachableMessage replaces a reply when the request got no HTTP response.
	ServerUnreachableMessage = "Unable to reach the server. Please check that the backend is running and try again."

	// GenericErrorMessage replaces a reply when nothing more specific is known.
	GenericErrorMessage = "Sorry, I encountered an error processing your request. Please try again."
)

// Backend is the part of the API client the controller drives. *api.Client
// satisfies it.
type Backend interface {
	ListSessions(ctx context.Context) ([]api.Session, error)
	SessionMessages(ctx context.Context, id string) (*api.SessionMessages, error)
	CreateSession(ctx context.Context, title string) (*api.Session, error)
	ActivateSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
	RenameSession(ctx context.Context, id, title string) error
	SendChat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
	History(ctx context.Context, limit int) ([]api.Turn, error)
	ClearHistory(ctx context.Context) error
}

// NoticeLevel grades a transient notice
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notifier shows transient notices, the equivalent of a toast
type Notifier interface {
	Notify(level NoticeLevel, message string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(level NoticeLevel, message string)

func (f NotifierFunc) Notify(level NoticeLevel, message string) { f(level, message) }

// State is the observable state of a Controller
type State struct {
	Sessions        []api.Session
	ActiveSession   *api.Session
	Messages        []Message
	InputDraft      string
	Pending         bool
	SessionsLoading bool
}

func (s State) clone() State {
	out := s
	out.Sessions = append([]api.Session(nil), s.Sessions...)
	out.Messages = append([]Message(nil), s.Messages...)
	if s.ActiveSession != nil {
		active := *s.ActiveSession
		out.ActiveSession = &active
	}
	return out
}

// Controller owns the chat view: the session list, the active session and
// its transcript. Operations never hold the lock across a network call.
// Reentrancy is not fenced; callers disable input while Pending or
// SessionsLoading is set.
type Controller struct {
	backend  Backend
	notifier Notifier
	newID    func() string
	now      func() time.Time

	mu       sync.Mutex
	state    State
	closed   bool
	onChange func(State)
}

// NewController creates a controller showing the welcome transcript.
// notifier may be nil.
func NewController(backend Backend, notifier Notifier) *Controller {
	return &Controller{
		backend:  backend,
		notifier: notifier,
		newID:    newMessageID,
		now:      time.Now,
		state:    State{Messages: WelcomeTranscript()},
	}
}

// newMessageID returns a time-ordered id for a client-side message
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// OnChange registers fn to receive a snapshot after every state change
func (c *Controller) OnChange(fn func(State)) *Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
	return c
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Close marks the view as gone. Responses that arrive afterwards are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// update applies fn under the lock and reports whether it ran
func (c *Controller) update(fn func(s *State)) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	fn(&c.state)
	snap, hook := c.state.clone(), c.onChange
	c.mu.Unlock()

	if hook != nil {
		hook(snap)
	}
	return true
}

func (c *Controller) notify(level NoticeLevel, message string) {
	internal.LogDebug("notice (%s): %s", level, message)
	if c.notifier != nil {
		c.notifier.Notify(level, message)
	}
}

func (c *Controller) fail(action string, err error) error {
	c.notify(NoticeError, fmt.Sprintf("Failed to %s: %s", action, describeError(err, err.Error())))
	return err
}

// Initialize loads the session list and opens the session the backend marks
// active, else the first one, else a new one. Failures leave the welcome
// transcript in place and raise a warning notice.
func (c *Controller) Initialize(ctx context.Context) {
	c.update(func(s *State) { s.SessionsLoading = true })
	defer c.update(func(s *State) { s.SessionsLoading = false })

	sessions, err := c.backend.ListSessions(ctx)
	if err != nil {
		c.degrade("load chat sessions", err)
		return
	}
	c.update(func(s *State) { s.Sessions = sessions })

	if target := pickInitialSession(sessions); target != "" {
		if err := c.loadSessionMessages(ctx, target); err != nil {
			c.degrade("load session messages", err)
		}
		return
	}

	session, err := c.backend.CreateSession(ctx, DefaultSessionTitle)
	if err != nil {
		c.degrade("create a chat session", err)
		return
	}
	c.update(func(s *State) {
		s.Sessions = []api.Session{*session}
		s.ActiveSession = session
		s.Messages = WelcomeTranscript()
	})
}

func (c *Controller) degrade(action string, err error) {
	internal.LogWarn("Failed to %s: %v", action, err)
	c.update(func(s *State) { s.Messages = WelcomeTranscript() })
	c.notify(NoticeWarning, fmt.Sprintf("Could not %s. Starting with an empty chat.", action))
}

func pickInitialSession(sessions []api.Session) string {
	for _, s := range sessions {
		if s.IsActive {
			return s.ID
		}
	}
	if len(sessions) > 0 {
		return sessions[0].ID
	}
	return ""
}

// LoadSessionMessages makes id the active session and shows its transcript.
// The transcript is updated before the backend is told to activate the
// session; activation failure is logged and does not roll anything back.
func (c *Controller) LoadSessionMessages(ctx context.Context, id string) error {
	if err := c.loadSessionMessages(ctx, id); err != nil {
		return c.fail("load session messages", err)
	}
	return nil
}

func (c *Controller) loadSessionMessages(ctx context.Context, id string) error {
	res, err := c.backend.SessionMessages(ctx, id)
	if err != nil {
		return err
	}
	messages := TranscriptFromTurns(res.Turns)

	c.update(func(s *State) {
		s.Messages = messages
		s.ActiveSession = resolveSession(res.Session, s.Sessions, id)
	})

	if err := c.backend.ActivateSession(ctx, id); err != nil {
		internal.LogWarn("Failed to activate session %s: %v", id, err)
	}
	return nil
}

// resolveSession prefers the metadata returned with the messages, then the
// list entry, then a bare placeholder.
func resolveSession(meta *api.Session, sessions []api.Session, id string) *api.Session {
	if meta != nil {
		out := *meta
		return &out
	}
	for _, s := range sessions {
		if s.ID == id {
			out := s
			return &out
		}
	}
	return &api.Session{ID: id}
}

// CreateSession creates a session, makes it active and shows the welcome
// transcript. The session list is left alone; the caller merges the returned
// session or refreshes the list.
func (c *Controller) CreateSession(ctx context.Context, title string) (*api.Session, error) {
	if strings.TrimSpace(title) == "" {
		title = DefaultSessionTitle
	}
	session, err := c.backend.CreateSession(ctx, title)
	if err != nil {
		return nil, c.fail("create session", err)
	}
	c.update(func(s *State) {
		active := *session
		s.ActiveSession = &active
		s.Messages = WelcomeTranscript()
	})
	return session, nil
}

// SwitchSession loads id unless it is already active
func (c *Controller) SwitchSession(ctx context.Context, id string) error {
	c.mu.Lock()
	current := c.state.ActiveSession != nil && c.state.ActiveSession.ID == id
	c.mu.Unlock()
	if current {
		return nil
	}
	return c.LoadSessionMessages(ctx, id)
}

// DeleteSession deletes a session and trims it from the list. Deleting the
// active session switches to the first remaining one, or creates a fresh
// session when none remain.
func (c *Controller) DeleteSession(ctx context.Context, id string) error {
	if err := c.backend.DeleteSession(ctx, id); err != nil {
		return c.fail("delete session", err)
	}

	var wasActive bool
	var remaining []api.Session
	c.update(func(s *State) {
		kept := make([]api.Session, 0, len(s.Sessions))
		for _, session := range s.Sessions {
			if session.ID != id {
				kept = append(kept, session)
			}
		}
		s.Sessions = kept
		remaining = append(remaining, kept...)

		if s.ActiveSession != nil && s.ActiveSession.ID == id {
			wasActive = true
			s.ActiveSession = nil
			s.Messages = WelcomeTranscript()
		}
	})
	if !wasActive {
		return nil
	}

	if len(remaining) > 0 {
		return c.SwitchSession(ctx, remaining[0].ID)
	}
	session, err := c.CreateSession(ctx, DefaultSessionTitle)
	if err != nil {
		return err
	}
	c.update(func(s *State) { s.Sessions = []api.Session{*session} })
	return nil
}

// RenameSession renames a session once the backend has accepted the title
func (c *Controller) RenameSession(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		err := &internal.UserError{Message: "Session title cannot be empty"}
		c.notify(NoticeError, err.Message)
		return err
	}
	if err := c.backend.RenameSession(ctx, id, title); err != nil {
		return c.fail("rename session", err)
	}
	c.update(func(s *State) {
		for i := range s.Sessions {
			if s.Sessions[i].ID == id {
				s.Sessions[i].Title = title
			}
		}
		if s.ActiveSession != nil && s.ActiveSession.ID == id {
			s.ActiveSession.Title = title
		}
	})
	return nil
}

// RefreshSessions replaces the session list with the backend's
func (c *Controller) RefreshSessions(ctx context.Context) error {
	sessions, err := c.backend.ListSessions(ctx)
	if err != nil {
		return err
	}
	c.update(func(s *State) { s.Sessions = sessions })
	return nil
}

// SetDraft records the text being composed
func (c *Controller) SetDraft(text string) {
	c.update(func(s *State) { s.InputDraft = text })
}

// SendMessage sends text to the active session. It returns false without
// doing anything when text is blank or another send is pending. The user
// message is shown immediately; the reply, or an error message standing in
// for it, is appended when the call completes.
func (c *Controller) SendMessage(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	c.mu.Lock()
	if c.closed || c.state.Pending {
		c.mu.Unlock()
		return false
	}
	var sessionID string
	if c.state.ActiveSession != nil {
		sessionID = c.state.ActiveSession.ID
	}
	c.state.Messages = append(c.state.Messages, Message{
		ID:        c.newID(),
		Type:      RoleUser,
		Content:   text,
		Timestamp: c.now(),
	})
	c.state.InputDraft = ""
	c.state.Pending = true
	snap, hook := c.state.clone(), c.onChange
	c.mu.Unlock()
	if hook != nil {
		hook(snap)
	}
	defer c.update(func(s *State) { s.Pending = false })

	resp, err := c.backend.SendChat(ctx, api.ChatRequest{Message: text, SessionID: sessionID})
	if err != nil {
		internal.LogWarn("Failed to send message: %v", err)
		c.update(func(s *State) {
			s.Messages = append(s.Messages, Message{
				ID:        c.newID(),
				Type:      RoleAI,
				Content:   FailureMessage(err),
				Timestamp: c.now(),
				Error:     true,
			})
		})
		return true
	}

	c.update(func(s *State) {
		s.Messages = append(s.Messages, Message{
			ID:        c.newID(),
			Type:      RoleAI,
			Content:   FormatResponse(resp),
			Timestamp: c.now(),
			Agent:     resp.PrimaryAgent,
		})
	})

	if err := c.RefreshSessions(ctx); err != nil {
		internal.LogWarn("Failed to refresh sessions: %v", err)
	}
	return true
}

// LoadHistory shows the flat history that is kept outside any session
func (c *Controller) LoadHistory(ctx context.Context, limit int) error {
	turns, err := c.backend.History(ctx, limit)
	if err != nil {
		return c.fail("load chat history", err)
	}
	messages := TranscriptFromTurns(turns)
	c.update(func(s *State) {
		s.ActiveSession = nil
		s.Messages = messages
	})
	return nil
}

// ClearHistory deletes the flat history and resets the transcript. It does
// not ask for confirmation.
func (c *Controller) ClearHistory(ctx context.Context) error {
	if err := c.backend.ClearHistory(ctx); err != nil {
		return c.fail("clear chat history", err)
	}
	c.update(func(s *State) { s.Messages = WelcomeTranscript() })
	c.notify(NoticeInfo, "Chat history cleared")
	return nil
}

// ShowSuggestions reports whether suggested prompts should be offered
func (c *Controller) ShowSuggestions() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.state.Messages) == 1
}

// FailureMessage chooses the text shown in place of a reply that failed
func FailureMessage(err error) string {
	return describeError(err, GenericErrorMessage)
}

// describeError picks the most specific user-facing text for err: an
// attached user message, the unreachable-server message, the body's error
// field, then its detail field. fallback covers everything else.
func describeError(err error, fallback string) string {
	var userErr *internal.UserError
	if errors.As(err, &userErr) && userErr.Message != "" {
		return userErr.Message
	}
	var transportErr *internal.TransportError
	if errors.As(err, &transportErr) {
		return ServerUnreachableMessage
	}
	var apiErr *internal.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
	}
	return fallback
}
