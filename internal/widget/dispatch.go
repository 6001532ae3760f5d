// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/folio/internal/backend"
	"github.com/jeranaias/folio/internal/model"
)

// DefaultTimeout bounds a single dispatched request.
const DefaultTimeout = 30 * time.Second

// ErrEmptyMessage is reported when Dispatch is handed blank text.
var ErrEmptyMessage = errors.New("widget: message is empty")

// Sender performs one chat round trip. *backend.Client implements it.
type Sender interface {
	Chat(ctx context.Context, message string) (string, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, message string) (string, error)

// Chat calls f.
func (f SenderFunc) Chat(ctx context.Context, message string) (string, error) {
	return f(ctx, message)
}

// Observer is notified once per dispatched request.
type Observer func(result Result, elapsed time.Duration)

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher turns one submission into exactly one Sender call and folds
// every outcome into a Result. It holds no per-request state and may be
// shared.
type Dispatcher struct {
	sender   Sender
	timeout  time.Duration
	logger   zerolog.Logger
	observer Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout sets the per-request timeout. Zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) { disp.timeout = d }
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l zerolog.Logger) Option {
	return func(disp *Dispatcher) { disp.logger = l }
}

// WithObserver registers a callback run after every request.
func WithObserver(o Observer) Option {
	return func(disp *Dispatcher) { disp.observer = o }
}

// NewDispatcher creates a dispatcher around sender.
func NewDispatcher(sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:  sender,
		timeout: DefaultTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch sends text and returns the outcome. It never panics and never
// returns an error: a panicking sender becomes a generic failure.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) (result Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Msg("chat sender panicked")
			result = Failure(KindGeneric, 0, "")
		}
		if d.observer != nil {
			d.observer(result, time.Since(start))
		}
	}()

	if strings.TrimSpace(text) == "" {
		d.logger.Warn().Err(ErrEmptyMessage).Msg("refusing to dispatch")
		return Failure(KindGeneric, 0, "")
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	reply, err := d.sender.Chat(ctx, text)
	if err != nil {
		result = resultFromError(err)
		d.logger.Warn().
			Err(err).
			Str("kind", result.Kind.String()).
			Int("status", result.Status).
			Msg("chat request failed")
		return result
	}
	if strings.TrimSpace(reply) == "" {
		return Failure(KindMalformedResponse, 0, "")
	}
	return Success(reply)
}

// resultFromError maps a Sender error to a failed Result.
func resultFromError(err error) Result {
	var se *backend.StatusError
	if errors.As(err, &se) {
		if errors.Is(err, backend.ErrMalformedResponse) {
			return Failure(KindMalformedResponse, se.Status, se.Detail)
		}
		return Failure(KindForStatus(se.Status), se.Status, se.Detail)
	}
	if errors.Is(err, backend.ErrMalformedResponse) {
		return Failure(KindMalformedResponse, 0, "")
	}
	// Anything without a status never reached a usable HTTP exchange:
	// refused connections, DNS, TLS, timeouts and cancellation.
	return Failure(KindTransportFailure, 0, "")
}

// =============================================================================
// SYNCHRONOUS SUBMISSION
// =============================================================================

// Exchange is one completed submission.
type Exchange struct {
	Question model.Message
	Reply    model.Message
	Result   Result
}

// Submit runs a full submission against conv on the calling goroutine:
// begin, dispatch, settle. ok is false when the submission was a no-op
// (blank draft or already pending).
func (d *Dispatcher) Submit(ctx context.Context, conv *Conversation) (Exchange, bool, error) {
	text, ok := conv.BeginSubmission()
	if !ok {
		return Exchange{}, false, nil
	}
	question := conv.Last()

	result := d.Dispatch(ctx, text)
	reply, err := conv.Settle(result)
	if err != nil {
		return Exchange{}, true, fmt.Errorf("settle submission: %w", err)
	}
	return Exchange{Question: question, Reply: reply, Result: result}, true, nil
}
