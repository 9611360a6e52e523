package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Session is a server-tracked chat conversation
type Session struct {
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title" yaml:"title"`
	MessageCount int    `json:"message_count" yaml:"message_count"`
	IsActive     bool   `json:"is_active" yaml:"is_active"`
	CreatedAt    string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Turn is one persisted exchange: a user utterance and the assistant answer
type Turn struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Response  string `json:"response"`
	AgentName string `json:"agent_name,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// SessionMessages is the turn history of one session plus its metadata
type SessionMessages struct {
	Session *Session
	Turns   []Turn
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Message   string         `json:"message"`
	Context   map[string]any `json:"context"`
	SessionID string         `json:"session_id,omitempty"`
}

// ChatResponse is the structured coordinator response to a chat message.
// PrimaryResponse is either a JSON string or an agent-specific object and is
// interpreted by the chat package.
type ChatResponse struct {
	Coordinator     string                     `json:"coordinator,omitempty"`
	PrimaryAgent    string                     `json:"primary_agent,omitempty"`
	PrimaryResponse json.RawMessage            `json:"primary_response,omitempty"`
	Status          string                     `json:"status,omitempty"`
	Synthesis       string                     `json:"synthesis,omitempty"`
	Collaborations  map[string]json.RawMessage `json:"collaborations,omitempty"`
	Communication   json.RawMessage            `json:"communication,omitempty"`
	SessionID       string                     `json:"session_id,omitempty"`
	Error           string                     `json:"error,omitempty"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /auth/login
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email              string   `json:"email"`
	Password           string   `json:"password"`
	Name               string   `json:"name"`
	DietaryPreferences []string `json:"dietary_preferences,omitempty"`
	HealthGoals        []string `json:"health_goals,omitempty"`
}

// RegisterResponse is returned by POST /auth/register
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// Profile holds the optional body metrics of a user
type Profile struct {
	Age              int      `json:"age,omitempty" yaml:"age,omitempty"`
	Gender           string   `json:"gender,omitempty" yaml:"gender,omitempty"`
	Weight           float64  `json:"weight,omitempty" yaml:"weight,omitempty"`
	Height           float64  `json:"height,omitempty" yaml:"height,omitempty"`
	ActivityLevel    string   `json:"activity_level,omitempty" yaml:"activity_level,omitempty"`
	Allergies        []string `json:"allergies,omitempty" yaml:"allergies,omitempty"`
	HealthConditions []string `json:"health_conditions,omitempty" yaml:"health_conditions,omitempty"`
}

// User is the current account as returned by GET /user/profile
type User struct {
	ID                 string   `json:"id" yaml:"id"`
	Email              string   `json:"email" yaml:"email"`
	Name               string   `json:"name" yaml:"name"`
	DietaryPreferences []string `json:"dietary_preferences,omitempty" yaml:"dietary_preferences,omitempty"`
	HealthGoals        []string `json:"health_goals,omitempty" yaml:"health_goals,omitempty"`
	Profile            *Profile `json:"profile,omitempty" yaml:"profile,omitempty"`
}

// ProfileUpdate is the body of PUT /user/profile; only set fields are sent
type ProfileUpdate struct {
	Name               string   `json:"name,omitempty"`
	DietaryPreferences []string `json:"dietary_preferences,omitempty"`
	HealthGoals        []string `json:"health_goals,omitempty"`
	Profile            *Profile `json:"profile,omitempty"`
}

// IsEmpty reports whether the update carries no fields
func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == "" && len(u.DietaryPreferences) == 0 && len(u.HealthGoals) == 0 && u.Profile == nil
}

// Meal is one logged meal entry
type Meal struct {
	ID          string  `json:"id,omitempty" yaml:"id,omitempty"`
	MealName    string  `json:"meal_name" yaml:"meal_name"`
	MealType    string  `json:"meal_type" yaml:"meal_type"`
	Calories    float64 `json:"calories" yaml:"calories"`
	Protein     float64 `json:"protein" yaml:"protein"`
	Carbs       float64 `json:"carbs" yaml:"carbs"`
	Fats        float64 `json:"fats" yaml:"fats"`
	Fiber       float64 `json:"fiber,omitempty" yaml:"fiber,omitempty"`
	ServingSize string  `json:"serving_size,omitempty" yaml:"serving_size,omitempty"`
	Notes       string  `json:"notes,omitempty" yaml:"notes,omitempty"`
	Date        string  `json:"date,omitempty" yaml:"date,omitempty"`
}

// MealTypes lists the meal_type values accepted by the backend
var MealTypes = []string{"breakfast", "lunch", "dinner", "snack"}

// DateLayout is the date format used by the nutrition endpoints
const DateLayout = "2006-01-02"

// FormatDate renders t in DateLayout
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ValidateDate checks that s is a YYYY-MM-DD date
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return nil
}

// Analysis is the response of POST /nutrition/analyze-and-suggest
type Analysis struct {
	Date        string
	Analysis    string
	Suggestions []string
	Raw         json.RawMessage
}

// Health is the response of the server root
type Health struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Version string `json:"version"`
}

// unwrap returns the value stored under the first matching key when raw is a
// JSON object carrying one of keys; otherwise raw itself. It lets one decoder
// accept both bare and enveloped response shapes.
func unwrap(raw []byte, keys ...string) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return trimmed
	}
	for _, key := range keys {
		if v, ok := obj[key]; ok {
			return bytes.TrimSpace(v)
		}
	}
	return trimmed
}

// decodeList decodes a list that may arrive bare or enveloped under one of keys
func decodeList[T any](raw []byte, keys ...string) ([]T, error) {
	data := unwrap(raw, keys...)
	if len(data) == 0 || string(data) == "null" {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// decodeObject decodes an object that may arrive bare or enveloped under one of keys
func decodeObject[T any](raw []byte, keys ...string) (*T, error) {
	data := unwrap(raw, keys...)
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
