package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Health checks the server root. It is the only call made outside the /api prefix.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	root := strings.TrimSuffix(c.baseURL, "/api") + "/"
	raw, err := c.send(ctx, http.MethodGet, root, "/", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeObject[Health](raw)
}

// Login exchanges credentials for a bearer token. The token is returned, not stored.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, LoginRequest{Email: email, Password: password}, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("login response carried no access token")
	}
	return out.AccessToken, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile fetches the current user and profile
func (c *Client) Profile(ctx context.Context) (*User, error) {
	raw, err := c.doRaw(ctx, http.MethodGet, "/user/profile", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeObject[User](raw, "user")
}

// UpdateProfile updates the profile fields set in upd
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) error {
	return c.do(ctx, http.MethodPut, "/user/profile", nil, upd, nil)
}
