package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/config"
	"github.com/jafarshop/storefront/pkg/errors"
)

type sessionCookieKey struct{}

// WithSessionCookie attaches the customer's backend session cookie to ctx.
// Calls made with the returned context forward it as the Cookie header.
func WithSessionCookie(ctx context.Context, cookie string) context.Context {
	if cookie == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionCookieKey{}, cookie)
}

// SessionCookieFrom returns the backend session cookie carried by ctx
func SessionCookieFrom(ctx context.Context) string {
	v, _ := ctx.Value(sessionCookieKey{}).(string)
	return v
}

// Client calls the storefront backend REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a backend HTTP client
func NewClient(cfg config.BackendConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Response is a raw backend reply. SetCookie carries any session cookies the
// backend issued (login, logout).
type Response struct {
	StatusCode int
	Body       []byte
	SetCookie  []string
}

// errorBody is the backend's error envelope
type errorBody struct {
	Message string `json:"message"`
	Success *bool  `json:"success,omitempty"`
}

// do executes a JSON request. body may be nil; query may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (*Response, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, path)
}

// send executes a prepared request and maps non-2xx statuses to typed errors
func (c *Client) send(req *http.Request, path string) (*Response, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if cookie := SessionCookieFrom(req.Context()); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Backend request failed",
			zap.String("method", req.Method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(respBody, &eb)
		if resp.StatusCode == http.StatusNotFound {
			return nil, &errors.ErrNotFound{Resource: "backend resource", ID: path}
		}
		c.logger.Debug("Backend returned error status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", eb.Message),
		)
		return nil, &errors.ErrUpstream{Status: resp.StatusCode, Message: eb.Message}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		SetCookie:  resp.Header.Values("Set-Cookie"),
	}, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// decode unmarshals a response body into out
func decode(resp *Response, out interface{}) error {
	if len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// requireSuccess fails when the backend answered 2xx but {"success": false}
func requireSuccess(resp *Response, fallback string) error {
	var eb errorBody
	if err := json.Unmarshal(resp.Body, &eb); err != nil {
		return nil
	}
	if eb.Success != nil && !*eb.Success {
		msg := eb.Message
		if msg == "" {
			msg = fallback
		}
		return &errors.ErrUpstream{Status: resp.StatusCode, Message: msg}
	}
	return nil
}

// Pagination is the backend's page envelope
type Pagination struct {
	Page       int `json:"page,omitempty"`
	Limit      int `json:"limit,omitempty"`
	Total      int `json:"total,omitempty"`
	TotalPages int `json:"totalPages"`
}
