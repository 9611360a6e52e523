// Package api is the single point of outbound HTTP traffic to the diet
// planning backend. Every request passes through a request interceptor chain
// (bearer credential attachment) and every outcome through a response
// interceptor chain (401 handling) before reaching the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iksnae/dietchat/internal"
)

const (
	// DefaultTimeout is the single fixed ceiling applied to every call.
	DefaultTimeout = internal.DefaultTimeout

	// MaxResponseSize bounds how much of a response body is read.
	MaxResponseSize = 10 * 1024 * 1024

	// LoginPath is where the client navigates after an authentication failure.
	LoginPath = "/login"
)

// Navigator moves the user interface to another entry point
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to the Navigator interface
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// RequestInterceptor may modify an outgoing request. A non-nil error aborts the call.
type RequestInterceptor func(req *http.Request) error

// ResponseInterceptor observes the outcome of a call. resp is nil when no
// HTTP response was received. The returned error replaces err; interceptors
// that only react to a failure return err unchanged.
type ResponseInterceptor func(resp *http.Response, err error) error

// Client talks to the backend REST API
type Client struct {
	baseURL    string
	store      internal.CredentialStore
	httpClient *http.Client
	navigator  Navigator

	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewClient creates a client for baseURL (including the /api prefix). The
// bearer credential is read from store on every request.
func NewClient(baseURL string, store internal.CredentialStore) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		store:      store,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	c.requestInterceptors = []RequestInterceptor{c.attachBearer}
	c.responseInterceptors = []ResponseInterceptor{c.handleUnauthorized}
	return c
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithNavigator sets the navigator invoked on authentication failure.
func (c *Client) WithNavigator(n Navigator) *Client {
	c.navigator = n
	return c
}

// WithHTTPClient replaces the underlying HTTP client, keeping the configured timeout.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	timeout := c.httpClient.Timeout
	c.httpClient = hc
	if c.httpClient.Timeout == 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithRequestInterceptor appends a request interceptor after the built-in ones.
func (c *Client) WithRequestInterceptor(i RequestInterceptor) *Client {
	c.requestInterceptors = append(c.requestInterceptors, i)
	return c
}

// WithResponseInterceptor appends a response interceptor after the built-in ones.
func (c *Client) WithResponseInterceptor(i ResponseInterceptor) *Client {
	c.responseInterceptors = append(c.responseInterceptors, i)
	return c
}

// BaseURL returns the configured base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the request timeout
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// Store returns the credential store backing the client
func (c *Client) Store() internal.CredentialStore {
	return c.store
}

func (c *Client) attachBearer(req *http.Request) error {
	token, err := c.store.Token()
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func (c *Client) handleUnauthorized(_ *http.Response, err error) error {
	if !errors.Is(err, internal.ErrUnauthorized) {
		return err
	}
	if clearErr := c.store.ClearToken(); clearErr != nil {
		internal.LogWarn("Failed to clear credential after 401: %v", clearErr)
	}
	if c.navigator != nil {
		c.navigator.Navigate(LoginPath)
	}
	return err
}

// do performs one request against path (relative to the base URL) and
// decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	raw, err := c.doRaw(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// doRaw performs one request and returns the raw body of a 2xx response.
func (c *Client) doRaw(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	return c.send(ctx, method, c.baseURL+path, path, query, body)
}

// send runs the round trip and then the response interceptor chain.
func (c *Client) send(ctx context.Context, method, fullURL, path string, query url.Values, body any) ([]byte, error) {
	resp, raw, err := c.roundTrip(ctx, method, fullURL, path, query, body)
	for _, intercept := range c.responseInterceptors {
		err = intercept(resp, err)
	}
	return raw, err
}

func (c *Client) roundTrip(ctx context.Context, method, fullURL, path string, query url.Values, body any) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, intercept := range c.requestInterceptors {
		if err := intercept(req); err != nil {
			return nil, nil, err
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		internal.LogDebug("%s %s failed after %s: %v", method, path, time.Since(start), err)
		return nil, nil, &internal.TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()
	internal.LogDebug("%s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start))

	raw, err := readResponse(resp)
	if err != nil {
		// a response arrived, so this is not a transport failure
		internal.LogWarn("%s %s: %v", method, path, err)
		return resp, nil, &internal.APIError{Method: method, Path: path, Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, raw, newAPIError(method, path, resp.StatusCode, raw)
	}
	return resp, raw, nil
}

// readResponse reads the response body with a size limit
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// errorBody is the error envelope used by the backend: coordinator failures
// carry "error", framework errors carry "detail".
type errorBody struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

func newAPIError(method, path string, status int, raw []byte) *internal.APIError {
	apiErr := &internal.APIError{Method: method, Path: path, Status: status}
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil {
		apiErr.Message = eb.Error
		apiErr.Detail = detailText(eb.Detail)
	}
	return apiErr
}

// detailText flattens a "detail" value, which is a string for most errors and
// a list of objects with a "msg" field for request validation errors.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(raw)
}
