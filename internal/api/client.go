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

	"pos-admin/internal/rbac"
)

const (
	pathIssueToken   = "/api/token/"
	pathRefreshToken = "/api/token/refresh/"
	pathCurrentUser  = "/api/users/me/"
)

// Client talks to the POS backend's session endpoints. It holds no session
// state of its own; credentials are passed per call.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient validates the backend origin and returns a client.
// timeout <= 0 leaves the transport default in place.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http(s), got %q", baseURL)
	}
	if u.Host == "" {
		return nil, errors.New("base url host is required")
	}
	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string { return c.baseURL }

// TokenPair is the body of both token endpoints. Refresh is optional; the
// issuing server decides whether it rotates refresh tokens.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// IssueToken exchanges credentials for a token pair.
func (c *Client) IssueToken(ctx context.Context, username, password string) (TokenPair, error) {
	var pair TokenPair
	err := c.postJSON(ctx, pathIssueToken, map[string]string{
		"username": username,
		"password": password,
	}, &pair)
	return pair, err
}

// RefreshToken exchanges a refresh token for a new token pair.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (TokenPair, error) {
	var pair TokenPair
	err := c.postJSON(ctx, pathRefreshToken, map[string]string{
		"refresh": refresh,
	}, &pair)
	return pair, err
}

// CurrentUser resolves an access token into the authenticated user's profile.
// The returned user always carries a non-nil permission list on its role.
func (c *Client) CurrentUser(ctx context.Context, access string) (rbac.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathCurrentUser, nil)
	if err != nil {
		return rbac.User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+access)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return rbac.User{}, &Error{Kind: KindConnectivity, cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return rbac.User{}, &Error{Kind: KindConnectivity, cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return rbac.User{}, c.statusError(resp.StatusCode, body)
	}

	var u rbac.User
	if err := json.Unmarshal(body, &u); err != nil {
		return rbac.User{}, &Error{Kind: KindServer, Status: resp.StatusCode, cause: fmt.Errorf("decode user profile: %w", err)}
	}
	u.Normalize()
	return u, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in any, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindConnectivity, cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Kind: KindConnectivity, cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindServer, Status: resp.StatusCode, cause: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) statusError(status int, body []byte) *Error {
	if status == http.StatusUnauthorized {
		return &Error{Kind: KindCredential, Status: status}
	}
	if status >= 400 && status < 500 {
		if fields := parseFieldErrors(body); fields != nil {
			return &Error{Kind: KindValidation, Status: status, Fields: fields}
		}
	}
	return &Error{Kind: KindServer, Status: status}
}
