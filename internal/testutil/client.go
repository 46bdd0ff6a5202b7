package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bissquit/timesheet/internal/domain"
	"github.com/bissquit/timesheet/internal/identity"
)

// Client calls the timesheet API in integration tests. Every response is
// checked against the OpenAPI document when a validator is set.
type Client struct {
	t         *testing.T
	baseURL   string
	http      *http.Client
	validator *OpenAPIValidator
	actor     *domain.Actor
}

// NewClient creates a client reporting contract violations on t.
// A nil validator disables the checks, which goroutines other than the
// test's own must use.
func NewClient(t *testing.T, baseURL string, validator *OpenAPIValidator) *Client {
	return &Client{
		t:         t,
		baseURL:   baseURL,
		http:      &http.Client{Timeout: 30 * time.Second},
		validator: validator,
	}
}

// SetT points contract failures at t, typically a subtest.
func (c *Client) SetT(t *testing.T) {
	c.t = t
}

// As returns a copy of the client acting as the given user.
func (c *Client) As(id string, role domain.Role) *Client {
	clone := *c
	clone.actor = &domain.Actor{ID: id, Role: role}
	return &clone
}

// Anonymous returns a copy of the client that sends no actor.
func (c *Client) Anonymous() *Client {
	clone := *c
	clone.actor = nil
	return &clone
}

// GET performs a GET request.
func (c *Client) GET(path string) (*http.Response, error) {
	return c.Do(http.MethodGet, path, nil)
}

// POST performs a POST request with a JSON body.
func (c *Client) POST(path string, body interface{}) (*http.Response, error) {
	return c.Do(http.MethodPost, path, body)
}

// PUT performs a PUT request with a JSON body.
func (c *Client) PUT(path string, body interface{}) (*http.Response, error) {
	return c.Do(http.MethodPut, path, body)
}

// DELETE performs a DELETE request.
func (c *Client) DELETE(path string) (*http.Response, error) {
	return c.Do(http.MethodDelete, path, nil)
}

// Do sends body encoded as JSON when it is not nil.
func (c *Client) Do(method, path string, body interface{}) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.actor != nil {
		req.Header.Set(identity.HeaderUserID, c.actor.ID)
		req.Header.Set(identity.HeaderUserRole, string(c.actor.Role))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if c.validator != nil && c.t != nil {
		c.validator.Validate(c.t, req, payload, resp)
	}
	return resp, nil
}

// RandomName returns prefix with a random suffix, for unique usernames.
func RandomName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// DecodeJSON decodes and closes the response body.
func DecodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// ReadBody reads and closes the response body.
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}
