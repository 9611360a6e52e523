package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultEmail and DefaultPassword are the account every Backend starts with.
	DefaultEmail    = "ada@example.com"
	DefaultPassword = "correct horse"

	jwtSecret = "dietchat-test-secret"
)

// FakeSession mirrors the backend session document
type FakeSession struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
	IsActive     bool   `json:"is_active"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// FakeTurn mirrors one stored chat exchange
type FakeTurn struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Response  string `json:"response"`
	AgentName string `json:"agent_name"`
	Timestamp string `json:"timestamp"`
}

type fakeUser struct {
	ID       string
	Email    string
	Password string
	Profile  map[string]any
}

type failure struct {
	status int
	body   gin.H
}

// Backend is an in-process fake of the diet planning API built on gin. Routes
// mirror the real service under /api; the server root answers health checks.
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	users     map[string]*fakeUser
	sessions  []*FakeSession
	turns     map[string][]FakeTurn
	history   []FakeTurn
	meals     []map[string]any
	chatReply gin.H
	failures  map[string]failure
	calls     map[string]int
	revoked   bool
	nextID    int

	lastChat map[string]any
}

// NewBackend starts a fake backend that is closed when the test ends
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &Backend{
		users:    map[string]*fakeUser{},
		turns:    map[string][]FakeTurn{},
		failures: map[string]failure{},
		calls:    map[string]int{},
	}
	b.users[DefaultEmail] = &fakeUser{
		ID:       "u-1",
		Email:    DefaultEmail,
		Password: DefaultPassword,
		Profile: map[string]any{
			"id":                  "u-1",
			"email":               DefaultEmail,
			"name":                "Ada",
			"dietary_preferences": []string{"vegetarian"},
			"health_goals":        []string{"maintain weight"},
		},
	}

	b.Server = httptest.NewServer(b.router())
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the API base URL including the /api prefix
func (b *Backend) URL() string {
	return b.Server.URL + "/api"
}

func (b *Backend) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(b.record)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Diet Plan AI Agents API", "status": "active", "version": "1.0.0"})
	})

	api := r.Group("/api")
	api.POST("/auth/login", b.login)
	api.POST("/auth/register", b.register)

	authed := api.Group("/")
	authed.Use(b.authRequired)
	authed.GET("/user/profile", b.getProfile)
	authed.PUT("/user/profile", b.updateProfile)
	authed.POST("/chat", b.chat)
	authed.GET("/chat/history", b.getHistory)
	authed.DELETE("/chat/history", b.clearHistory)
	authed.GET("/chat/sessions", b.listSessions)
	authed.POST("/chat/sessions", b.createSession)
	authed.GET("/chat/sessions/:id/messages", b.sessionMessages)
	authed.PUT("/chat/sessions/:id/activate", b.activateSession)
	authed.DELETE("/chat/sessions/:id", b.deleteSession)
	authed.PUT("/chat/sessions/:id/title", b.renameSession)
	authed.GET("/nutrition/meals", b.listMeals)
	authed.POST("/nutrition/meals", b.createMeal)
	authed.DELETE("/nutrition/meals/:id", b.deleteMeal)
	authed.POST("/nutrition/analyze-and-suggest", b.analyze)
	return r
}

// record counts calls per route and applies injected failures
func (b *Backend) record(c *gin.Context) {
	key := c.Request.Method + " " + c.FullPath()
	b.mu.Lock()
	b.calls[key]++
	f, failing := b.failures[key]
	b.mu.Unlock()

	if failing {
		c.AbortWithStatusJSON(f.status, f.body)
		return
	}
	c.Next()
}

func (b *Backend) authRequired(c *gin.Context) {
	header := c.GetHeader("Authorization")
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenStr == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})

	b.mu.Lock()
	revoked := b.revoked
	b.mu.Unlock()
	if err != nil || !token.Valid || revoked {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid authentication credentials"})
		return
	}
	claims, _ := token.Claims.(jwt.MapClaims)
	sub, _ := claims["sub"].(string)
	c.Set("email", sub)
	c.Next()
}

// --- test controls ---

// IssueToken mints a signed token for email that expires after ttl (negative for an expired token)
func (b *Backend) IssueToken(email string, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"sub": email,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		panic(err)
	}
	return signed
}

// Revoke makes every authenticated route answer 401
func (b *Backend) Revoke() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked = true
}

// Fail makes route ("METHOD /api/path/:param") answer status with body until Restore
func (b *Backend) Fail(route string, status int, body map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, body: body}
}

// Restore removes every injected failure
func (b *Backend) Restore() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = map[string]failure{}
	b.revoked = false
}

// Calls returns how often route was hit
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// AddSession seeds a session with turns and returns its id
func (b *Backend) AddSession(title string, active bool, turns ...FakeTurn) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.newSessionLocked(title)
	s.IsActive = active
	s.MessageCount = len(turns)
	b.turns[s.ID] = append([]FakeTurn(nil), turns...)
	return s.ID
}

// Sessions returns a copy of the stored sessions
func (b *Backend) Sessions() []FakeSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]FakeSession, len(b.sessions))
	for i, s := range b.sessions {
		out[i] = *s
	}
	return out
}

// SetHistory seeds the flat history
func (b *Backend) SetHistory(turns ...FakeTurn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append([]FakeTurn(nil), turns...)
}

// SetChatReply sets the body returned by POST /api/chat
func (b *Backend) SetChatReply(reply map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chatReply = reply
}

// LastChatRequest returns the body of the most recent POST /api/chat
func (b *Backend) LastChatRequest() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastChat
}

// AddMeal seeds a meal entry and returns its id
func (b *Backend) AddMeal(meal map[string]any) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addMealLocked(meal)
}

func (b *Backend) newIDLocked(prefix string) string {
	b.nextID++
	return prefix + strconv.Itoa(b.nextID)
}

func (b *Backend) newSessionLocked(title string) *FakeSession {
	now := time.Now().UTC().Format(time.RFC3339)
	s := &FakeSession{ID: b.newIDLocked("s"), Title: title, CreatedAt: now, UpdatedAt: now}
	b.sessions = append(b.sessions, s)
	return s
}

func (b *Backend) findSessionLocked(id string) *FakeSession {
	for _, s := range b.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (b *Backend) addMealLocked(meal map[string]any) string {
	id := b.newIDLocked("m")
	stored := map[string]any{"id": id}
	for k, v := range meal {
		if k != "id" {
			stored[k] = v
		}
	}
	b.meals = append(b.meals, stored)
	return id
}

// --- handlers ---

func (b *Backend) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid json"})
		return
	}
	b.mu.Lock()
	u, ok := b.users[req.Email]
	b.mu.Unlock()
	if !ok || u.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid email or password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": b.IssueToken(req.Email, time.Hour), "token_type": "bearer"})
}

func (b *Backend) register(c *gin.Context) {
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid json"})
		return
	}
	email, _ := req["email"].(string)
	password, _ := req["password"].(string)
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "email and password required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[email]; exists {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Email already registered"})
		return
	}
	id := b.newIDLocked("u")
	profile := map[string]any{"id": id, "email": email, "name": req["name"]}
	b.users[email] = &fakeUser{ID: id, Email: email, Password: password, Profile: profile}
	c.JSON(http.StatusOK, gin.H{"message": "User registered successfully", "user_id": id})
}

func (b *Backend) getProfile(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[c.GetString("email")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
		return
	}
	c.JSON(http.StatusOK, u.Profile)
}

func (b *Backend) updateProfile(c *gin.Context) {
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid json"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[c.GetString("email")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
		return
	}
	for k, v := range req {
		u.Profile[k] = v
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

func (b *Backend) chat(c *gin.Context) {
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid json"})
		return
	}
	message, _ := req["message"].(string)
	sessionID, _ := req["session_id"].(string)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastChat = req

	reply := b.chatReply
	if reply == nil {
		reply = gin.H{
			"coordinator":      "active",
			"primary_agent":    "nutrition_calculator",
			"primary_response": gin.H{"response": "Here is what I found about " + message + "."},
			"status":           "success",
		}
	}

	turn := FakeTurn{
		ID:        b.newIDLocked("t"),
		Message:   message,
		Response:  replyText(reply["primary_response"]),
		AgentName: fmt.Sprint(reply["primary_agent"]),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	b.history = append(b.history, turn)
	if s := b.findSessionLocked(sessionID); s != nil {
		b.turns[s.ID] = append(b.turns[s.ID], turn)
		s.MessageCount++
		if s.Title == "New Chat" && message != "" {
			s.Title = message
			if len(s.Title) > 30 {
				s.Title = s.Title[:30] + "..."
			}
		}
		s.UpdatedAt = turn.Timestamp
	}
	c.JSON(http.StatusOK, reply)
}

func replyText(v any) string {
	switch r := v.(type) {
	case string:
		return r
	case map[string]any:
		if text, ok := r["response"].(string); ok {
			return text
		}
	case gin.H:
		if text, ok := r["response"].(string); ok {
			return text
		}
	}
	return ""
}

func (b *Backend) getHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	history := b.history
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (b *Backend) clearHistory(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
	c.JSON(http.StatusOK, gin.H{"message": "Chat history cleared"})
}

func (b *Backend) listSessions(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]FakeSession, len(b.sessions))
	for i, s := range b.sessions {
		out[i] = *s
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (b *Backend) createSession(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Title == "" {
		req.Title = "New Chat"
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.newSessionLocked(req.Title)
	c.JSON(http.StatusOK, gin.H{"session": *s})
}

func (b *Backend) sessionMessages(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.findSessionLocked(c.Param("id"))
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Session not found"})
		return
	}
	turns := b.turns[s.ID]
	if turns == nil {
		turns = []FakeTurn{}
	}
	c.JSON(http.StatusOK, gin.H{"session": *s, "messages": turns})
}

func (b *Backend) activateSession(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	target := b.findSessionLocked(c.Param("id"))
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Session not found"})
		return
	}
	for _, s := range b.sessions {
		s.IsActive = s.ID == target.ID
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session activated"})
}

func (b *Backend) deleteSession(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := c.Param("id")
	for i, s := range b.sessions {
		if s.ID == id {
			b.sessions = append(b.sessions[:i], b.sessions[i+1:]...)
			delete(b.turns, id)
			c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Session not found"})
}

func (b *Backend) renameSession(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "title required"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.findSessionLocked(c.Param("id"))
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Session not found"})
		return
	}
	s.Title = req.Title
	c.JSON(http.StatusOK, gin.H{"message": "Session title updated"})
}

func (b *Backend) listMeals(c *gin.Context) {
	date := c.Query("date")
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []map[string]any{}
	for _, m := range b.meals {
		if date == "" || m["date"] == date {
			out = append(out, m)
		}
	}
	c.JSON(http.StatusOK, gin.H{"meals": out})
}

func (b *Backend) createMeal(c *gin.Context) {
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid json"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.addMealLocked(req)
	c.JSON(http.StatusOK, gin.H{"message": "Meal logged successfully", "meal_id": id})
}

func (b *Backend) deleteMeal(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := c.Param("id")
	for i, m := range b.meals {
		if m["id"] == id {
			b.meals = append(b.meals[:i], b.meals[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"message": "Meal deleted"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Meal not found"})
}

func (b *Backend) analyze(c *gin.Context) {
	var req struct {
		Date string `json:"date"`
	}
	_ = c.ShouldBindJSON(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	var calories float64
	count := 0
	for _, m := range b.meals {
		if m["date"] == req.Date {
			count++
			if v, ok := m["calories"].(float64); ok {
				calories += v
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"date":        req.Date,
		"analysis":    fmt.Sprintf("You logged %d meals totalling %.0f kcal.", count, calories),
		"suggestions": []string{"Add a portion of leafy greens", "Drink more water"},
	})
}
