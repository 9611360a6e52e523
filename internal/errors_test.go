package internal

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		contains string
		is401    bool
	}{
		{
			name:     "error field",
			err:      &APIError{Method: "POST", Path: "/chat", Status: 400, Message: "bad message"},
			contains: "bad message",
		},
		{
			name:     "detail field",
			err:      &APIError{Method: "GET", Path: "/user/profile", Status: 404, Detail: "User not found"},
			contains: "User not found",
		},
		{
			name:     "status text fallback",
			err:      &APIError{Method: "GET", Path: "/chat/sessions", Status: 500},
			contains: "Internal Server Error",
		},
		{
			name:     "unauthorized",
			err:      &APIError{Method: "GET", Path: "/chat/sessions", Status: 401, Detail: "Invalid authentication credentials"},
			contains: "HTTP 401",
			is401:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("Error() = %q, want to contain %q", tt.err.Error(), tt.contains)
			}
			wrapped := fmt.Errorf("wrapped: %w", tt.err)
			if got := errors.Is(wrapped, ErrUnauthorized); got != tt.is401 {
				t.Errorf("errors.Is(ErrUnauthorized) = %v, want %v", got, tt.is401)
			}
			var apiErr *APIError
			if !errors.As(wrapped, &apiErr) {
				t.Error("errors.As should find *APIError")
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	inner := errors.New("connection refused")
	err := &TransportError{Method: "POST", Path: "/chat", Err: inner}

	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("TransportError should unwrap to the inner error")
	}
}

func TestStoreError(t *testing.T) {
	inner := errors.New("permission denied")
	err := &StoreError{Path: "/tmp/credentials.yaml", Op: "write", Err: inner}

	want := "store error: write /tmp/credentials.yaml: permission denied"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, inner) {
		t.Error("StoreError should unwrap to the inner error")
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "api_url", Err: errors.New("must not be empty")}
	if err.Error() != "config error [api_url]: must not be empty" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWithUserMessage(t *testing.T) {
	if WithUserMessage(nil, "ignored") != nil {
		t.Error("WithUserMessage(nil) should return nil")
	}

	inner := &TransportError{Method: "GET", Path: "/", Err: errors.New("timeout")}
	err := WithUserMessage(inner, "The nutrition service is busy")

	var userErr *UserError
	if !errors.As(err, &userErr) {
		t.Fatal("errors.As should find *UserError")
	}
	if userErr.Message != "The nutrition service is busy" {
		t.Errorf("Message = %q", userErr.Message)
	}
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Error("UserError should unwrap to the transport error")
	}
}
