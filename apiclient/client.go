// Package apiclient talks to the joseki HTTP API and turns its responses
// into store actions.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/VacantAardvark/joseki/types"
)

const clientIDHeader = "X-Client-Id"

const defaultRequestTimeout = 30 * time.Second

// Client represents the main joseki API client
type Client struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	accessToken string
	mu          sync.RWMutex // Protects accessToken
}

// ClientOption represents a functional option for configuring the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout bounds every request except Poll, which waits as long as the
// server holds it open or until its context is done. Zero disables the bound.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithAccessToken starts the client with an existing token
func WithAccessToken(token string) ClientOption {
	return func(c *Client) {
		c.accessToken = token
	}
}

func NewClient(baseURL string, options ...ClientOption) *Client {
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		timeout:    defaultRequestTimeout,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *Client) setAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

// makeRequest performs an HTTP request with authentication headers
func (c *Client) makeRequest(ctx context.Context, method, path string, body any, headers map[string]string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewNetworkError("request failed", err)
	}
	return resp, nil
}

// doJSON performs a request and decodes a successful JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.makeRequest(ctx, method, path, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return WrapHTTPError(resp, fmt.Sprintf("%s %s failed", method, path))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from %s: %w", path, err)
	}
	return nil
}

// Login exchanges a facebook ID for an access token, creating the user on
// first login. The token is used for every later request.
func (c *Client) Login(ctx context.Context, username, facebookID string) (*types.User, error) {
	var resp types.LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/login", types.LoginRequest{
		Username:   username,
		FacebookID: facebookID,
	}, nil, &resp)
	if err != nil {
		return nil, err
	}
	c.setAccessToken(resp.Token)
	return &resp.User, nil
}

func (c *Client) Me(ctx context.Context) (*types.User, error) {
	var user types.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Status returns the ID of the latest committed action.
func (c *Client) Status(ctx context.Context) (int, error) {
	var resp types.StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/status", nil, nil, &resp); err != nil {
		return 0, err
	}
	return resp.CurrentActionID, nil
}

// Poll waits for an action newer than lastSeen. It returns the new current
// action ID and true, or lastSeen and false when the server times out. Only
// ctx bounds the wait.
func (c *Client) Poll(ctx context.Context, lastSeen int) (int, bool, error) {
	resp, err := c.makeRequest(ctx, http.MethodGet, "/api/poll?id="+strconv.Itoa(lastSeen), nil, nil)
	if err != nil {
		return lastSeen, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return lastSeen, false, nil
	case http.StatusOK:
		var status types.StatusResponse
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return lastSeen, false, fmt.Errorf("invalid poll response: %w", err)
		}
		return status.CurrentActionID, true, nil
	}
	return lastSeen, false, WrapHTTPError(resp, "poll failed")
}

func (c *Client) GetShepherdEvents(ctx context.Context) ([]types.Event, error) {
	return c.getEvents(ctx, "/api/events/shepherd")
}

func (c *Client) GetNotShepherdEvents(ctx context.Context) ([]types.Event, error) {
	return c.getEvents(ctx, "/api/events/not-shepherd")
}

func (c *Client) GetSheepEvents(ctx context.Context) ([]types.Event, error) {
	return c.getEvents(ctx, "/api/events/sheep")
}

func (c *Client) getEvents(ctx context.Context, path string) ([]types.Event, error) {
	var resp types.EventsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// CreateEvent creates an event with the caller as shepherd. A non-empty
// clientID makes retries idempotent.
func (c *Client) CreateEvent(ctx context.Context, event types.Event, clientID string) (*types.Event, error) {
	var headers map[string]string
	if clientID != "" {
		headers = map[string]string{clientIDHeader: clientID}
	}
	var created types.Event
	if err := c.doJSON(ctx, http.MethodPost, "/api/events", event, headers, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteEvent(ctx context.Context, eventID int) (*types.Event, error) {
	var deleted types.Event
	if err := c.doJSON(ctx, http.MethodDelete, "/api/events/"+strconv.Itoa(eventID), nil, nil, &deleted); err != nil {
		return nil, err
	}
	return &deleted, nil
}

func (c *Client) JoinEvent(ctx context.Context, eventID, userID int) ([]types.User, error) {
	var resp types.UsersResponse
	path := fmt.Sprintf("/api/events/%d/sheep/%d", eventID, userID)
	if err := c.doJSON(ctx, http.MethodPut, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}
