// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is where `folio serve` listens by default.
	DefaultBaseURL = "http://127.0.0.1:8000"

	// ChatPath is the chat endpoint path.
	ChatPath = "/api/chat"

	// SessionHeader scopes server-side history to one client session.
	SessionHeader = "X-Session-ID"

	// DefaultTimeout bounds one request when the caller's context has no
	// deadline of its own.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum accepted response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 1 * 1024 * 1024
)

// ErrMalformedResponse indicates a 2xx reply without a usable response field.
var ErrMalformedResponse = errors.New("malformed chat response")

// ChatRequest is the request body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the success body of POST /api/chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is the optional failure body.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// =============================================================================
// STATUS ERROR
// =============================================================================

// StatusError is returned for every response that carries an HTTP status
// but no usable answer.
type StatusError struct {
	Status int
	Detail string // parsed from {"detail": ...}, "" if absent
	Body   string // raw body, truncated, for logs
	Err    error  // ErrMalformedResponse for 2xx replies, or a body read error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chat backend (HTTP %d): %v", e.Status, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("chat backend (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("chat backend (HTTP %d)", e.Status)
}

// Unwrap exposes the wrapped sentinel, if any.
func (e *StatusError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	session    string
}

// NewClient creates a client for baseURL. An empty baseURL uses
// DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: "folio",
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithTimeout sets the HTTP client timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithUserAgent sets the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// WithSession sends id in SessionHeader on every request.
func (c *Client) WithSession(id string) *Client {
	c.session = id
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chat sends one message and returns the assistant's reply.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(ChatRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ChatPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.session != "" {
		req.Header.Set(SessionHeader, c.session)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := readResponse(resp)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", handleErrorResponse(resp.StatusCode, raw)
	}

	var parsed struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Response == nil || strings.TrimSpace(*parsed.Response) == "" {
		return "", &StatusError{
			Status: resp.StatusCode,
			Detail: parseDetail(raw),
			Body:   truncate(string(raw), 512),
			Err:    ErrMalformedResponse,
		}
	}
	return *parsed.Response, nil
}

// readResponse reads the body up to MaxResponseSize. A failed read of a
// non-2xx body still reports the status so a cut-off 429 or 401 keeps its
// meaning.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		err = fmt.Errorf("failed to read response: %w", err)
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &StatusError{Status: resp.StatusCode, Err: err}
		}
		return nil, err
	}
	if len(raw) > MaxResponseSize {
		return nil, &StatusError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%w: response exceeds %d bytes", ErrMalformedResponse, MaxResponseSize),
		}
	}
	return raw, nil
}

// handleErrorResponse builds a StatusError, pulling detail out of the body
// when it is a JSON object with a string detail field.
func handleErrorResponse(status int, body []byte) error {
	return &StatusError{
		Status: status,
		Detail: parseDetail(body),
		Body:   truncate(string(body), 512),
	}
}

// parseDetail returns the string detail field of a JSON object body, or "".
func parseDetail(body []byte) string {
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return ""
	}
	return er.Detail
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
