// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// Configuration defaults for the Mistral API.
const (
	// DefaultMistralURL is the OpenAI-compatible Mistral endpoint.
	DefaultMistralURL = "https://api.mistral.ai/v1"

	// DefaultModel is the model the portfolio assistant runs on.
	DefaultModel = "mistral-small-latest"

	// DefaultTimeout bounds one upstream call including retries.
	DefaultTimeout = 60 * time.Second

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 8 * time.Second
)

// Error variables for provider failures.
var (
	ErrNotConfigured = errors.New("upstream API key not configured")
	ErrAuthFailed    = errors.New("upstream authentication failed")
	ErrRateLimited   = errors.New("upstream rate limited")
	ErrEmptyResponse = errors.New("upstream returned no content")
)

// Role values accepted by the provider.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// ChatMessage is a single provider-facing message.
type ChatMessage struct {
	Role    string
	Content string
}

// Config holds client settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

// Client talks to the upstream model.
type Client struct {
	api    *openai.Client
	cfg    Config
	logger zerolog.Logger
}

// NewClient creates a client. A missing key is allowed; Chat then fails
// with ErrNotConfigured so the server can still start and report it.
func NewClient(cfg Config) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultMistralURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		api:    openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		logger: zerolog.Nop(),
	}
}

// WithLogger sets the logger for retries and failures.
func (c *Client) WithLogger(l zerolog.Logger) *Client {
	c.logger = l
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.cfg.APIKey != ""
}

// Chat sends messages and returns the first choice's content.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	var reply string
	err := c.doWithRetry(ctx, func() error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return mapError(err)
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return ErrEmptyResponse
		}
		reply = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

// doWithRetry retries transient failures with exponential backoff. Auth,
// rate-limit and empty-response errors are returned immediately.
func (c *Client) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
		if attempt == c.cfg.MaxRetries {
			break
		}

		delay := retryBaseDelay << attempt
		if delay > retryMaxDelay {
			delay = retryMaxDelay
		}
		c.logger.Debug().Err(lastErr).Int("attempt", attempt+1).Dur("wait", delay).Msg("upstream call failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrAuthFailed),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrEmptyResponse),
		errors.Is(err, ErrNotConfigured),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	var status *statusError
	if errors.As(err, &status) {
		return status.code >= 500
	}
	return true
}

// statusError carries a provider status that has no sentinel.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream error (HTTP %d): %v", e.code, e.err)
}

func (e *statusError) Unwrap() error { return e.err }

// mapError converts go-openai errors to package sentinels.
func mapError(err error) error {
	code := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		code = reqErr.HTTPStatusCode
	default:
		return err
	}

	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	default:
		return &statusError{code: code, err: err}
	}
}
