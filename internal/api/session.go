package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/infernoscraper/inferno/internal/normalize"
)

// Health is the /health payload
type Health struct {
	Status string
	Time   string
	Uptime string
}

// Health checks whether the service is up. Any transport error or non-2xx
// answer is an error.
func (c *Client) Health(ctx context.Context) (Health, error) {
	body, err := c.call(ctx, request{method: http.MethodGet, path: "/health"})
	if err != nil {
		return Health{}, err
	}

	payload, err := decodeAny(body)
	if err != nil {
		return Health{}, err
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return Health{}, fmt.Errorf("unexpected health payload %T", payload)
	}
	return Health{
		Status: normalize.Value(obj["status"]),
		Time:   normalize.Value(obj["time"]),
		Uptime: normalize.Value(obj["uptime"]),
	}, nil
}

// Wake nudges a sleeping service
func (c *Client) Wake(ctx context.Context) error {
	_, err := c.call(ctx, request{method: http.MethodPost, path: "/wake"})
	return err
}

type loginResponse struct {
	OK        bool   `json:"ok"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// Login exchanges the password for a bearer token and stores it. It returns
// how long the token stays valid, zero if the server did not say.
func (c *Client) Login(ctx context.Context, password string) (time.Duration, error) {
	r, err := jsonRequest(http.MethodPost, "/auth/login", map[string]string{"password": password}, false)
	if err != nil {
		return 0, err
	}

	body, status, err := c.do(ctx, r)
	if err != nil {
		return 0, err
	}

	switch {
	case status == http.StatusUnauthorized:
		return 0, ErrInvalidPassword
	case status == http.StatusTooManyRequests:
		return 0, ErrTooManyAttempts
	case status < 200 || status > 299:
		return 0, &APIError{Status: status, Message: errorMessage(body)}
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to parse login response: %w", err)
	}
	if !resp.OK || strings.TrimSpace(resp.Token) == "" {
		return 0, ErrInvalidPassword
	}

	c.SetToken(resp.Token)
	c.logger.Info("Logged in", "expires_in", resp.ExpiresIn)
	return time.Duration(resp.ExpiresIn) * time.Second, nil
}

// AuthStatus asks whether the held token is still valid
func (c *Client) AuthStatus(ctx context.Context) (bool, error) {
	body, err := c.call(ctx, request{method: http.MethodGet, path: "/auth/status", auth: true})
	if err != nil {
		return false, err
	}

	var resp struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("failed to parse auth status: %w", err)
	}
	return resp.Authenticated, nil
}

// Logout invalidates the token on the server. The local token is cleared
// even when the request fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.ClearToken()
	_, err := c.call(ctx, request{method: http.MethodPost, path: "/auth/logout", auth: true})
	return err
}

// SendFeedback submits a keyword as a plain text body
func (c *Client) SendFeedback(ctx context.Context, keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return fmt.Errorf("empty feedback")
	}
	_, err := c.call(ctx, request{
		method:      http.MethodPost,
		path:        "/feedback",
		body:        strings.NewReader(keyword),
		contentType: "text/plain; charset=utf-8",
		auth:        true,
	})
	return err
}
