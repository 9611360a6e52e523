package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iksnae/dietchat/internal"
)

// SendChat sends one message to the agent coordinator. A successful
// transport response that carries only an "error" field is a coordinator
// failure and is returned as an *internal.APIError.
func (c *Client) SendChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Context == nil {
		req.Context = map[string]any{}
	}
	raw, err := c.doRaw(ctx, http.MethodPost, "/chat", nil, req)
	if err != nil {
		return nil, err
	}
	var out ChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if out.Error != "" && out.PrimaryAgent == "" && len(out.PrimaryResponse) == 0 {
		return nil, &internal.APIError{Method: http.MethodPost, Path: "/chat", Status: http.StatusOK, Message: out.Error}
	}
	return &out, nil
}

// History fetches the flat, session-less turn history
func (c *Client) History(ctx context.Context, limit int) ([]Turn, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	raw, err := c.doRaw(ctx, http.MethodGet, "/chat/history", query, nil)
	if err != nil {
		return nil, err
	}
	turns, err := decodeList[Turn](raw, "history", "messages")
	if err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return turns, nil
}

// ClearHistory deletes the flat history
func (c *Client) ClearHistory(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/chat/history", nil, nil, nil)
}

// ListSessions returns the sessions in server order
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	raw, err := c.doRaw(ctx, http.MethodGet, "/chat/sessions", nil, nil)
	if err != nil {
		return nil, err
	}
	sessions, err := decodeList[Session](raw, "sessions")
	if err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// CreateSession creates a session with title
func (c *Client) CreateSession(ctx context.Context, title string) (*Session, error) {
	raw, err := c.doRaw(ctx, http.MethodPost, "/chat/sessions", nil, map[string]string{"title": title})
	if err != nil {
		return nil, err
	}
	session, err := decodeObject[Session](raw, "session")
	if err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("create session response carried no session id")
	}
	return session, nil
}

// SessionMessages fetches the turn history of a session and its metadata.
// Session is nil when the response carries no metadata.
func (c *Client) SessionMessages(ctx context.Context, id string) (*SessionMessages, error) {
	raw, err := c.doRaw(ctx, http.MethodGet, sessionPath(id, "messages"), nil, nil)
	if err != nil {
		return nil, err
	}

	out := &SessionMessages{}
	turns, err := decodeList[Turn](raw, "messages", "history", "turns")
	if err != nil {
		return nil, fmt.Errorf("failed to decode session messages: %w", err)
	}
	out.Turns = turns

	var envelope struct {
		Session *Session `json:"session"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Session != nil && envelope.Session.ID != "" {
		out.Session = envelope.Session
	}
	return out, nil
}

// ActivateSession marks a session as current on the server
func (c *Client) ActivateSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, sessionPath(id, "activate"), nil, nil, nil)
}

// DeleteSession deletes a session
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil, nil)
}

// RenameSession sets the title of a session
func (c *Client) RenameSession(ctx context.Context, id, title string) error {
	return c.do(ctx, http.MethodPut, sessionPath(id, "title"), nil, map[string]string{"title": title}, nil)
}

func sessionPath(id, suffix string) string {
	p := "/chat/sessions/" + url.PathEscape(id)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}
