package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/dietchat/internal"
)

// recordingNavigator counts navigations
type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

func newJSONServer(t *testing.T, status int, body string) (*httptest.Server, *[]string) {
	t.Helper()
	var (
		mu      sync.Mutex
		headers []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = append(headers, r.Header.Get("Authorization"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &headers
}

func TestClient_BearerReadAtCallTime(t *testing.T) {
	srv, headers := newJSONServer(t, http.StatusOK, `[]`)
	store := internal.NewMemoryStore("")
	client := NewClient(srv.URL+"/api", store)
	ctx := context.Background()

	_, err := client.ListSessions(ctx)
	require.NoError(t, err)

	require.NoError(t, store.SetToken("first"))
	_, err = client.ListSessions(ctx)
	require.NoError(t, err)

	require.NoError(t, store.SetToken("second"))
	_, err = client.ListSessions(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "Bearer first", "Bearer second"}, *headers)
}

func TestClient_UnauthorizedClearsAndNavigatesOnce(t *testing.T) {
	srv, _ := newJSONServer(t, http.StatusUnauthorized, `{"detail":"Invalid authentication credentials"}`)
	store := internal.NewMemoryStore("stale")
	nav := &recordingNavigator{}
	client := NewClient(srv.URL+"/api", store).WithNavigator(nav)

	_, err := client.ListSessions(context.Background())
	require.Error(t, err)

	assert.True(t, errors.Is(err, internal.ErrUnauthorized))
	var apiErr *internal.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid authentication credentials", apiErr.Detail)

	token, _ := store.Token()
	assert.Empty(t, token, "401 must clear the stored credential")
	assert.Equal(t, []string{LoginPath}, nav.Paths(), "navigation must fire exactly once")
}

func TestClient_UnauthorizedOnEveryEndpoint(t *testing.T) {
	srv, _ := newJSONServer(t, http.StatusUnauthorized, `{"detail":"expired"}`)
	ctx := context.Background()

	calls := map[string]func(*Client) error{
		"profile":        func(c *Client) error { _, err := c.Profile(ctx); return err },
		"update profile": func(c *Client) error { return c.UpdateProfile(ctx, ProfileUpdate{Name: "x"}) },
		"chat":           func(c *Client) error { _, err := c.SendChat(ctx, ChatRequest{Message: "hi"}); return err },
		"history":        func(c *Client) error { _, err := c.History(ctx, 10); return err },
		"clear history":  func(c *Client) error { return c.ClearHistory(ctx) },
		"create session": func(c *Client) error { _, err := c.CreateSession(ctx, "New Chat"); return err },
		"messages":       func(c *Client) error { _, err := c.SessionMessages(ctx, "s1"); return err },
		"activate":       func(c *Client) error { return c.ActivateSession(ctx, "s1") },
		"delete session": func(c *Client) error { return c.DeleteSession(ctx, "s1") },
		"rename":         func(c *Client) error { return c.RenameSession(ctx, "s1", "t") },
		"meals":          func(c *Client) error { _, err := c.Meals(ctx, "2025-01-02"); return err },
		"delete meal":    func(c *Client) error { return c.DeleteMeal(ctx, "m1") },
		"analyze":        func(c *Client) error { _, err := c.AnalyzeAndSuggest(ctx, "2025-01-02"); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			store := internal.NewMemoryStore("token")
			nav := &recordingNavigator{}
			client := NewClient(srv.URL+"/api", store).WithNavigator(nav)

			err := call(client)
			assert.ErrorIs(t, err, internal.ErrUnauthorized)
			token, _ := store.Token()
			assert.Empty(t, token)
			assert.Len(t, nav.Paths(), 1)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv, _ := newJSONServer(t, http.StatusOK, `[]`)
	url := srv.URL
	srv.Close()

	store := internal.NewMemoryStore("keep")
	nav := &recordingNavigator{}
	client := NewClient(url+"/api", store).WithNavigator(nav)

	_, err := client.ListSessions(context.Background())
	var transportErr *internal.TransportError
	require.True(t, errors.As(err, &transportErr), "got %v", err)
	assert.Equal(t, "/chat/sessions", transportErr.Path)

	token, _ := store.Token()
	assert.Equal(t, "keep", token, "transport failures must not touch the credential")
	assert.Empty(t, nav.Paths())
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL+"/api", internal.NewMemoryStore("")).WithTimeout(50 * time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, client.Timeout())

	_, err := client.ListSessions(context.Background())
	var transportErr *internal.TransportError
	assert.True(t, errors.As(err, &transportErr), "timeout should surface as a transport error, got %v", err)
}

func TestClient_ErrorBodies(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantDetail  string
	}{
		{name: "error field", status: 400, body: `{"error":"Quota exceeded","status":"quota_exceeded"}`, wantMessage: "Quota exceeded"},
		{name: "detail string", status: 404, body: `{"detail":"Session not found"}`, wantDetail: "Session not found"},
		{name: "detail list", status: 422, body: `{"detail":[{"loc":["body","title"],"msg":"field required"},{"msg":"too short"}]}`, wantDetail: "field required; too short"},
		{name: "non json", status: 502, body: `<html>Bad Gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newJSONServer(t, tt.status, tt.body)
			client := NewClient(srv.URL+"/api", internal.NewMemoryStore(""))

			err := client.RenameSession(context.Background(), "s1", "title")
			var apiErr *internal.APIError
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
		})
	}
}

func TestClient_ChatErrorWithSuccessStatus(t *testing.T) {
	srv, _ := newJSONServer(t, http.StatusOK, `{"error":"⚠️ API quota limit reached.","status":"quota_exceeded"}`)
	client := NewClient(srv.URL+"/api", internal.NewMemoryStore("t"))

	_, err := client.SendChat(context.Background(), ChatRequest{Message: "hello"})
	var apiErr *internal.APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, "⚠️ API quota limit reached.", apiErr.Message)
	assert.False(t, errors.Is(err, internal.ErrUnauthorized))
}

func TestClient_EnvelopeShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bare list", body: `[{"id":"s1","title":"Breakfast ideas","message_count":4,"is_active":true}]`},
		{name: "enveloped list", body: `{"sessions":[{"id":"s1","title":"Breakfast ideas","message_count":4,"is_active":true}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newJSONServer(t, http.StatusOK, tt.body)
			client := NewClient(srv.URL+"/api", internal.NewMemoryStore(""))

			sessions, err := client.ListSessions(context.Background())
			require.NoError(t, err)
			require.Len(t, sessions, 1)
			assert.Equal(t, Session{ID: "s1", Title: "Breakfast ideas", MessageCount: 4, IsActive: true}, sessions[0])
		})
	}
}

func TestClient_EmptyListBodies(t *testing.T) {
	for _, body := range []string{`[]`, `{"sessions":[]}`, `{"sessions":null}`, `null`} {
		srv, _ := newJSONServer(t, http.StatusOK, body)
		client := NewClient(srv.URL+"/api", internal.NewMemoryStore(""))

		sessions, err := client.ListSessions(context.Background())
		require.NoError(t, err, body)
		assert.NotNil(t, sessions, body)
		assert.Empty(t, sessions, body)
	}
}

func TestClient_CustomInterceptors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Client", r.Header.Get("X-Client"))
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	var seen []int
	client := NewClient(srv.URL+"/api", internal.NewMemoryStore("")).
		WithRequestInterceptor(func(req *http.Request) error {
			req.Header.Set("X-Client", "dietchat")
			return nil
		}).
		WithResponseInterceptor(func(resp *http.Response, err error) error {
			if resp != nil {
				seen = append(seen, resp.StatusCode)
				assert.Equal(t, "dietchat", resp.Header.Get("X-Seen-Client"))
			}
			return err
		})

	_, err := client.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{http.StatusOK}, seen)

	blocked := errors.New("blocked")
	client.WithRequestInterceptor(func(*http.Request) error { return blocked })
	_, err = client.ListSessions(context.Background())
	assert.ErrorIs(t, err, blocked)
}

func TestNewClient_TrimsBaseURL(t *testing.T) {
	client := NewClient("http://localhost:8000/api/", internal.NewMemoryStore(""))
	assert.Equal(t, "http://localhost:8000/api", client.BaseURL())
	assert.Equal(t, DefaultTimeout, client.Timeout())
}

func newTruncatingServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"detail":`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_UnreadableBody(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		unauthorized bool
	}{
		{"success status", http.StatusOK, false},
		{"server error", http.StatusInternalServerError, false},
		{"unauthorized", http.StatusUnauthorized, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTruncatingServer(t, tt.status)
			store := internal.NewMemoryStore("token")
			nav := &recordingNavigator{}
			client := NewClient(srv.URL+"/api", store).WithNavigator(nav)

			_, err := client.ListSessions(context.Background())
			require.Error(t, err)

			var transportErr *internal.TransportError
			assert.False(t, errors.As(err, &transportErr), "a received response is not a transport failure")
			var apiErr *internal.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Empty(t, apiErr.Message)
			assert.Empty(t, apiErr.Detail)

			assert.Equal(t, tt.unauthorized, errors.Is(err, internal.ErrUnauthorized))
			if tt.unauthorized {
				assert.Equal(t, []string{LoginPath}, nav.Paths())
				token, _ := store.Token()
				assert.Empty(t, token)
			} else {
				assert.Empty(t, nav.Paths())
			}
		})
	}
}
