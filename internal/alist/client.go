// Package alist is a client for the alist file index server. It owns the
// cached auth token and the bounded refresh-and-retry protocol around it.
package alist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Request timeouts, sized per operation criticality.
const (
	loginTimeout = 5 * time.Second
	listTimeout  = 10 * time.Second
	statTimeout  = 5 * time.Second
)

// listPerPage is the single-request page size for directory listings.
// Pagination shown to the user is sliced in memory from this fetch.
const listPerPage = 200

// Entry is one row of a directory listing.
type Entry struct {
	Name  string          `json:"name"`
	IsDir bool            `json:"is_dir"`
	Size  int64           `json:"size"`
	Raw   json.RawMessage `json:"-"`
}

// FileInfo is the metadata for a single file from /api/fs/get.
type FileInfo struct {
	Name   string `json:"name"`
	IsDir  bool   `json:"is_dir"`
	Size   int64  `json:"size"`
	RawURL string `json:"raw_url"`
	Sign   string `json:"sign"`
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	BaseURL  string
	Username string
	Password string
	// Token, when set, is used verbatim for every request. It is never
	// invalidated: if it is wrong, every call fails and the operator is
	// expected to fix the config, rather than the client looping on
	// invalidate/retry.
	Token string
	// HTTPClient overrides the transport (for tests).
	HTTPClient *http.Client
}

// Client talks to one alist server and memoizes its auth token.
type Client struct {
	baseURL  string
	username string
	password string
	override string
	http     *http.Client

	mu     sync.Mutex
	cached string
}

// NewClient creates a Client.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("alist: base url is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	username := opts.Username
	if username == "" {
		username = "admin"
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		username: username,
		password: opts.Password,
		override: opts.Token,
		http:     hc,
	}, nil
}

// BaseURL returns the configured index server address.
func (c *Client) BaseURL() string { return c.baseURL }

// envelope is the common alist response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Token resolves the auth token: override first, then the cached value,
// then a password login. With no credential source it fails without any
// network call.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c.override != "" {
		return c.override, nil
	}

	c.mu.Lock()
	cached := c.cached
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	if c.password == "" {
		return "", ErrCredentialUnavailable
	}

	tok, err := c.login(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.cached = tok
	c.mu.Unlock()
	return tok, nil
}

// Invalidate clears the memoized token so the next call logs in again.
// It is a no-op when an override token is configured.
func (c *Client) Invalidate() {
	if c.override != "" {
		return
	}
	c.mu.Lock()
	c.cached = ""
	c.mu.Unlock()
}

// login exchanges the configured password for a token.
func (c *Client) login(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	body := map[string]string{"username": c.username, "password": c.password}
	env, err := c.post(ctx, "/api/auth/login", "", body)
	if err != nil {
		return "", fmt.Errorf("alist: login: %w", err)
	}
	if env.Code != 200 {
		return "", &AuthError{Code: env.Code, Message: env.Message}
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("alist: login: decode token: %w", err)
	}
	if data.Token == "" {
		return "", &AuthError{Code: env.Code, Message: "login returned empty token"}
	}
	return data.Token, nil
}

// List fetches the full directory listing for a path in one generously
// sized request.
func (c *Client) List(ctx context.Context, path string) ([]Entry, error) {
	body := map[string]any{
		"path":     path,
		"page":     1,
		"per_page": listPerPage,
		"refresh":  false,
	}

	env, err := c.authed(ctx, "/api/fs/list", body, listTimeout)
	if err != nil {
		return nil, err
	}

	var data struct {
		Content []json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("alist: list %s: decode: %w", path, err)
	}

	entries := make([]Entry, 0, len(data.Content))
	for _, raw := range data.Content {
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("alist: list %s: decode entry: %w", path, err)
		}
		e.Raw = raw
		entries = append(entries, e)
	}
	return entries, nil
}

// Stat fetches metadata for a single file.
func (c *Client) Stat(ctx context.Context, path string) (*FileInfo, error) {
	env, err := c.authed(ctx, "/api/fs/get", map[string]any{"path": path}, statTimeout)
	if err != nil {
		return nil, err
	}
	var info FileInfo
	if err := json.Unmarshal(env.Data, &info); err != nil {
		return nil, fmt.Errorf("alist: stat %s: decode: %w", path, err)
	}
	return &info, nil
}

// authed performs an authenticated POST with the bounded retry protocol:
// a 401/403 body code invalidates the token, re-resolves it, and retries
// exactly once; the second failure is surfaced verbatim. This never loops.
func (c *Client) authed(ctx context.Context, endpoint string, body any, timeout time.Duration) (*envelope, error) {
	tok, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	env, err := c.post(callCtx, endpoint, tok, body)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("alist: %s: %w", endpoint, err)
	}
	if env.Code == 200 {
		return env, nil
	}
	if !isAuthCode(env.Code) {
		return nil, &APIError{Code: env.Code, Message: env.Message}
	}

	// Token rejected: refresh once and retry.
	c.Invalidate()
	tok, err = c.Token(ctx)
	if err != nil {
		return nil, err
	}

	callCtx, cancel = context.WithTimeout(ctx, timeout)
	env, err = c.post(callCtx, endpoint, tok, body)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("alist: %s (retry): %w", endpoint, err)
	}
	switch {
	case env.Code == 200:
		return env, nil
	case isAuthCode(env.Code):
		return nil, &AuthError{Code: env.Code, Message: env.Message}
	default:
		return nil, &APIError{Code: env.Code, Message: env.Message}
	}
}

// post issues one JSON POST and decodes the response envelope.
func (c *Client) post(ctx context.Context, endpoint, token string, body any) (*envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &env, nil
}
