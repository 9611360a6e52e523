// Package auth holds the authentication context: the stored bearer
// credential and the user it belongs to. A Context is created once per
// process, initialized from the credential store, and torn down on logout or
// when the API client reports an authentication failure.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iksnae/dietchat/internal"
	"github.com/iksnae/dietchat/internal/api"
)

// ErrTokenExpired is returned by Init when the stored token had already expired.
var ErrTokenExpired = errors.New("stored token has expired")

// Backend is the subset of the API client the authentication context needs
type Backend interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error)
	Profile(ctx context.Context) (*api.User, error)
	UpdateProfile(ctx context.Context, upd api.ProfileUpdate) error
}

// Context is the authentication state of the client
type Context struct {
	backend Backend
	store   internal.CredentialStore
	now     func() time.Time

	mu   sync.RWMutex
	user *api.User
}

// New creates an authentication context. Call Init to restore a stored session.
func New(backend Backend, store internal.CredentialStore) *Context {
	return &Context{backend: backend, store: store, now: time.Now}
}

// Init restores the session from the credential store. An expired token is
// discarded without a network call; otherwise the profile is fetched and any
// failure logs out. The returned error explains why no session was restored;
// the context is consistent either way.
func (a *Context) Init(ctx context.Context) error {
	token, err := a.store.Token()
	if err != nil {
		return err
	}
	if token == "" {
		a.setUser(nil)
		return nil
	}

	if exp, ok := TokenExpiry(token); ok && !exp.After(a.now()) {
		internal.LogInfo("Stored token expired at %s", exp.Format(time.RFC3339))
		a.Logout()
		return ErrTokenExpired
	}

	user, err := a.backend.Profile(ctx)
	if err != nil {
		internal.LogWarn("Failed to restore session: %v", err)
		a.Logout()
		return fmt.Errorf("failed to restore session: %w", err)
	}
	a.setUser(user)
	return nil
}

// Login exchanges credentials for a token, stores it, and loads the profile.
// On any failure the context is left logged out.
func (a *Context) Login(ctx context.Context, email, password string) (*api.User, error) {
	token, err := a.backend.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := a.store.SetToken(token); err != nil {
		return nil, err
	}

	user, err := a.backend.Profile(ctx)
	if err != nil {
		a.Logout()
		return nil, fmt.Errorf("logged in but failed to load profile: %w", err)
	}
	a.setUser(user)
	internal.LogDebug("Logged in as %s", user.Email)
	return user, nil
}

// Register creates an account. The caller logs in separately.
func (a *Context) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	return a.backend.Register(ctx, req)
}

// Logout clears the stored token and the current user. It is idempotent.
func (a *Context) Logout() {
	if err := a.store.ClearToken(); err != nil {
		internal.LogWarn("Failed to clear credential: %v", err)
	}
	a.setUser(nil)
}

// Expire tears the session down after the backend rejected the credential.
func (a *Context) Expire() {
	internal.LogDebug("Credential rejected by backend, logging out")
	a.Logout()
}

// Navigator wraps next so that an authentication failure reported by the API
// client also tears down this context before navigating.
func (a *Context) Navigator(next api.Navigator) api.Navigator {
	return api.NavigatorFunc(func(path string) {
		a.Expire()
		if next != nil {
			next.Navigate(path)
		}
	})
}

// User returns a copy of the current user, or nil when logged out
func (a *Context) User() *api.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// IsAuthenticated reports whether a user is loaded
func (a *Context) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user != nil
}

// TokenExpiry returns the expiry of the stored token, if it carries one
func (a *Context) TokenExpiry() (time.Time, bool) {
	token, err := a.store.Token()
	if err != nil || token == "" {
		return time.Time{}, false
	}
	return TokenExpiry(token)
}

// UpdateProfile updates the profile and reloads the current user
func (a *Context) UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*api.User, error) {
	if !a.IsAuthenticated() {
		return nil, internal.ErrNotLoggedIn
	}
	if err := a.backend.UpdateProfile(ctx, upd); err != nil {
		return nil, err
	}
	user, err := a.backend.Profile(ctx)
	if err != nil {
		return nil, err
	}
	a.setUser(user)
	return user, nil
}

func (a *Context) setUser(u *api.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = u
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// ok is false for opaque tokens and tokens without an expiry.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
