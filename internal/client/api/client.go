// Package api is the HTTP client for the tiergate server. It keeps the
// issued token pair in memory and attaches the access token to every
// authenticated call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("already exists")
	ErrServer       = errors.New("server error")
)

// User is the public user representation returned by the server.
type User struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Tier   int64  `json:"tier"`
}

type tokenInfo struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type tokenPair struct {
	Access  tokenInfo `json:"access"`
	Refresh tokenInfo `json:"refresh"`
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  *tokenPair
	userID  int64
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// IsLoggedIn reports whether the client currently holds a token pair.
func (c *Client) IsLoggedIn() bool {
	return c.tokens != nil
}

// UserID returns the id of the logged-in user, zero when logged out.
func (c *Client) UserID() int64 {
	return c.userID
}

func statusError(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusConflict:
		return ErrConflict
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrServer, code)
	}
}

// do sends one JSON request and decodes a 2xx response into out.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		req.Header.Set("Authorization", "Bearer "+c.tokens.Access.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type authResponse struct {
	User   User      `json:"user"`
	Tokens tokenPair `json:"tokens"`
}

// Register creates an account and stores the issued token pair.
func (c *Client) Register(ctx context.Context, name, email, password string, tier int64) (*User, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/register", map[string]any{
		"name": name, "email": email, "password": password, "tier": tier,
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.tokens = &resp.Tokens
	c.userID = resp.User.UserID
	return &resp.User, nil
}

// Login authenticates and stores the issued token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", map[string]any{
		"email": email, "password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.tokens = &resp.Tokens
	c.userID = resp.User.UserID
	return &resp.User, nil
}

// Logout revokes every outstanding token server-side and drops the
// local pair. The local pair is dropped even if the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil)
	c.tokens = nil
	c.userID = 0
	return err
}

// Refresh exchanges the stored refresh token for a fresh pair.
func (c *Client) Refresh(ctx context.Context) error {
	if c.tokens == nil {
		return ErrUnauthorized
	}

	var resp struct {
		Tokens tokenPair `json:"tokens"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/auth/refresh", map[string]any{
		"refreshToken": c.tokens.Refresh.Token,
	}, &resp)
	if err != nil {
		return err
	}

	c.tokens = &resp.Tokens
	return nil
}

// GetUser fetches one user by id.
func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/users/%d", id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers fetches a page of users.
func (c *Client) ListUsers(ctx context.Context, page, limit int64) ([]User, int64, error) {
	var resp struct {
		Count int64  `json:"count"`
		Rows  []User `json:"rows"`
	}
	path := fmt.Sprintf("/v1/users?page=%d&limit=%d", page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, 0, err
	}
	return resp.Rows, resp.Count, nil
}
