package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/dietchat/internal/api"
	"github.com/iksnae/dietchat/testutil"
)

func activeSessionID(b *testutil.Backend) string {
	for _, s := range b.Sessions() {
		if s.IsActive {
			return s.ID
		}
	}
	return ""
}

func TestSessionsList(t *testing.T) {
	c := newCLI(t)
	c.login()
	c.backend.AddSession("Breakfast ideas", false)
	c.backend.AddSession("Protein goals", true)

	stdout, _, err := c.run("sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Breakfast ideas")
	assert.Contains(t, stdout, "* s2")
}

func TestSessionsList_JSON(t *testing.T) {
	c := newCLI(t)
	c.login()
	c.backend.AddSession("Breakfast ideas", false)

	stdout, _, err := c.run("sessions", "list", "-o", "json")
	require.NoError(t, err)
	var sessions []api.Session
	require.NoError(t, json.Unmarshal([]byte(stdout), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "Breakfast ideas", sessions[0].Title)
}

func TestSessionsList_Empty(t *testing.T) {
	c := newCLI(t)
	c.login()
	stdout, _, err := c.run("sessions", "ls")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No chat sessions yet.")
}

func TestSessionsNew(t *testing.T) {
	c := newCLI(t)
	c.login()

	stdout, _, err := c.run("sessions", "new", "Meal", "prep")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Created session s1 (Meal prep)")
	assert.Equal(t, "s1", activeSessionID(c.backend))

	stdout, _, err = c.run("sessions", "new")
	require.NoError(t, err)
	assert.Contains(t, stdout, "(New Chat)")
}

func TestSessionsShow(t *testing.T) {
	c := newCLI(t)
	c.login()
	id := c.backend.AddSession("Breakfast ideas", false,
		testutil.FakeTurn{ID: "t1", Message: "Quick breakfast?", Response: "Try overnight oats.", AgentName: "recipe_finder"})

	stdout, _, err := c.run("sessions", "show", id)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Breakfast ideas")
	assert.Contains(t, stdout, "Quick breakfast?")
	assert.Contains(t, stdout, "Recipe Finder")
	assert.Contains(t, stdout, "Try overnight oats.")
	assert.Empty(t, activeSessionID(c.backend), "show does not activate")
}

func TestSessionsShow_Active(t *testing.T) {
	c := newCLI(t)
	c.login()
	c.backend.AddSession("Old", false)
	c.backend.AddSession("Current", true, testutil.FakeTurn{ID: "t1", Message: "hello", Response: "hi"})

	stdout, _, err := c.run("sessions", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Current")
	assert.Contains(t, stdout, "hello")
}

func TestSessionsShow_NotFound(t *testing.T) {
	c := newCLI(t)
	c.login()
	_, _, err := c.run("sessions", "show", "missing")
	assert.ErrorContains(t, err, "Session not found")
}

func TestSessionsSwitch(t *testing.T) {
	c := newCLI(t)
	c.login()
	c.backend.AddSession("First", true)
	second := c.backend.AddSession("Second", false)

	stdout, _, err := c.run("sessions", "switch", second)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Switched to s2 (Second)")
	assert.Equal(t, second, activeSessionID(c.backend))
}

func TestSessionsRename(t *testing.T) {
	c := newCLI(t)
	c.login()
	id := c.backend.AddSession("New Chat", true)

	_, _, err := c.run("sessions", "rename", id, "Weekly", "plan")
	require.NoError(t, err)
	assert.Equal(t, "Weekly plan", c.backend.Sessions()[0].Title)

	_, _, err = c.run("sessions", "rename", id, "   ")
	require.Error(t, err)
	assert.Equal(t, "Session title cannot be empty", errorText(err))
}

func TestSessionsDelete(t *testing.T) {
	tests := []struct {
		name          string
		seed          func(b *testutil.Backend) string
		wantActive    string
		backendActive string
	}{
		{
			name:          "inactive session",
			seed:          func(b *testutil.Backend) string { b.AddSession("Keep", true); return b.AddSession("Drop", false) },
			wantActive:    "s1 (Keep)",
			backendActive: "s1",
		},
		{
			name:          "active session with others",
			seed:          func(b *testutil.Backend) string { id := b.AddSession("Drop", true); b.AddSession("Next", false); return id },
			wantActive:    "s2 (Next)",
			backendActive: "s2",
		},
		{
			// the replacement session is created, not activated
			name:       "only session",
			seed:       func(b *testutil.Backend) string { return b.AddSession("Drop", true) },
			wantActive: "s2 (New Chat)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCLI(t)
			c.login()
			id := tt.seed(c.backend)

			stdout, _, err := c.run("sessions", "delete", id)
			require.NoError(t, err)
			assert.Contains(t, stdout, "Deleted session "+id)
			assert.Contains(t, stdout, "Active session: "+tt.wantActive)
			assert.Len(t, c.backend.Sessions(), 1)
			assert.Equal(t, tt.backendActive, activeSessionID(c.backend))
		})
	}
}

func TestSessionsDelete_NotFound(t *testing.T) {
	c := newCLI(t)
	c.login()
	c.backend.AddSession("Keep", true)
	_, _, err := c.run("sessions", "rm", "missing")
	assert.ErrorContains(t, err, "Session not found")
}
