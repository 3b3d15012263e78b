// Package api talks to the remote scrape-job service and maps its loosely
// shaped payloads onto the types in internal/models.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultBaseURL = "https://web-production-ec52.up.railway.app"
	defaultTimeout = 30 * time.Second
	userAgent      = "inferno/1.0"
)

var (
	// ErrUnauthorized means the session expired; the token has been cleared
	ErrUnauthorized = errors.New("prihlásenie vypršalo, prihláste sa prosím znova")
	// ErrInvalidPassword is returned by Login for a rejected password
	ErrInvalidPassword = errors.New("nesprávne heslo")
	// ErrTooManyAttempts is returned by Login when the server throttles logins
	ErrTooManyAttempts = errors.New("príliš veľa pokusov o prihlásenie")
	// ErrJobInProgress is returned by StartScrape when a job is already running
	ErrJobInProgress = errors.New("zber už prebieha")
)

// APIError is a non-2xx response that has no dedicated sentinel
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chyba pri spracovaní (kód %d)", e.Status)
	}
	return fmt.Sprintf("%s (kód %d)", e.Message, e.Status)
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another server (tests, staging)
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the HTTP client. Its cookie jar is kept if set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger enables request logging
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUnauthorizedHandler registers fn to run after any authenticated call
// answered 401
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// Client is the scrape service client. The bearer token lives in memory only.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         *log.Logger
	onUnauthorized func()

	mu    sync.RWMutex
	token string
}

// NewClient creates a client with a cookie jar for the service's session
// cookie
func NewClient(opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Jar == nil {
		c.httpClient.Jar = jar
	}
	return c, nil
}

// BaseURL returns the service URL the client talks to
func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearToken forgets the bearer token
func (c *Client) ClearToken() { c.SetToken("") }

// HasToken reports whether a login token is held
func (c *Client) HasToken() bool { return c.Token() != "" }

// request describes one call to the service
type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	auth        bool // send the bearer token and treat 401 as session expiry
}

func jsonRequest(method, path string, payload any, auth bool) (request, error) {
	req := request{method: method, path: path, auth: auth}
	if payload == nil {
		return req, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("failed to encode request: %w", err)
	}
	req.body = bytes.NewReader(data)
	req.contentType = "application/json"
	return req, nil
}

// do executes r and returns the body of any response that is not a 401 on an
// authenticated call
func (c *Client) do(ctx context.Context, r request) ([]byte, int, error) {
	url := c.baseURL + r.path
	req, err := http.NewRequestWithContext(ctx, r.method, url, r.body)
	if err != nil {
		c.logger.Error("Failed to create request", "url", url, "error", err)
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.auth {
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Request failed", "method", r.method, "path", r.path, "error", err)
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("Request done", "method", r.method, "path", r.path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if r.auth && resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("Session expired", "path", r.path)
		c.ClearToken()
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return nil, resp.StatusCode, ErrUnauthorized
	}

	return body, resp.StatusCode, nil
}

// call runs r and turns non-2xx responses into *APIError
func (c *Client) call(ctx context.Context, r request) ([]byte, error) {
	body, status, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &APIError{Status: status, Message: errorMessage(body)}
	}
	return body, nil
}

// errorMessage pulls a readable message out of an error body: the "error"
// field of a JSON object, or the raw text
func errorMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"error", "message", "detail"} {
			if msg, ok := payload[key].(string); ok && strings.TrimSpace(msg) != "" {
				return strings.TrimSpace(msg)
			}
		}
		return ""
	}

	return ansi.Truncate(text, 200, "")
}
