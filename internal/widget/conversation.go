// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widget

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/folio/internal/model"
)

// Greeting seeds every new conversation.
const Greeting = "Hi! I am Anmol's AI assistant. Ask me anything about his experience, skills, or projects!"

var (
	// ErrNotPending is returned by SettleSubmission when no submission is
	// in flight. A submission never gets two replies.
	ErrNotPending = errors.New("widget: no submission in flight")

	// ErrNotAssistant is returned when a settlement carries a user message.
	ErrNotAssistant = errors.New("widget: settlement must be an assistant message")
)

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation holds the state of one widget session. It is owned by a
// single goroutine and is not safe for concurrent use.
type Conversation struct {
	ids     model.IDGenerator
	history []model.Message
	draft   string
	open    bool
	pending bool
}

// NewConversation creates a closed, idle conversation seeded with one
// assistant greeting. An empty greeting uses Greeting.
func NewConversation(ids model.IDGenerator, greeting string) *Conversation {
	if ids == nil {
		ids = model.NewClockIDs(nil)
	}
	if strings.TrimSpace(greeting) == "" {
		greeting = Greeting
	}
	seed, _ := model.NewMessage(ids, model.RoleAssistant, greeting)
	return &Conversation{
		ids:     ids,
		history: []model.Message{seed},
	}
}

// History returns a copy of the messages in insertion order.
func (c *Conversation) History() []model.Message {
	out := make([]model.Message, len(c.history))
	copy(out, c.history)
	return out
}

// Len returns the number of messages in the history.
func (c *Conversation) Len() int {
	return len(c.history)
}

// Last returns the newest message.
func (c *Conversation) Last() model.Message {
	return c.history[len(c.history)-1]
}

// Draft returns the current unsent input.
func (c *Conversation) Draft() string {
	return c.draft
}

// IsOpen reports whether the widget panel is visible.
func (c *Conversation) IsOpen() bool {
	return c.open
}

// IsPending reports whether a request is in flight.
func (c *Conversation) IsPending() bool {
	return c.pending
}

// ToggleVisibility flips the open flag. History, draft and any in-flight
// request are unaffected.
func (c *Conversation) ToggleVisibility() {
	c.open = !c.open
}

// UpdateDraft replaces the draft. No validation happens here.
func (c *Conversation) UpdateDraft(text string) {
	c.draft = text
}

// AppendMessage adds msg at the tail. No reordering or deduplication.
func (c *Conversation) AppendMessage(msg model.Message) {
	c.history = append(c.history, msg)
}

// BeginSubmission starts a request from the draft. It is a no-op returning
// ok=false when a request is already pending or the draft is blank. On
// success the user message (trimmed, NFC-normalised) is appended, the draft
// is cleared, the conversation goes pending, and the text to send is
// returned.
func (c *Conversation) BeginSubmission() (content string, ok bool) {
	if c.pending {
		return "", false
	}
	content = norm.NFC.String(strings.TrimSpace(c.draft))
	if content == "" {
		return "", false
	}
	msg, err := model.NewMessage(c.ids, model.RoleUser, content)
	if err != nil {
		return "", false
	}
	c.AppendMessage(msg)
	c.draft = ""
	c.pending = true
	return content, true
}

// SettleSubmission appends the assistant reply and clears pending. It must
// be called exactly once per successful BeginSubmission.
func (c *Conversation) SettleSubmission(msg model.Message) error {
	if !c.pending {
		return ErrNotPending
	}
	if !msg.IsAssistant() {
		return ErrNotAssistant
	}
	c.AppendMessage(msg)
	c.pending = false
	return nil
}

// Settle builds the assistant message for result and settles with it.
func (c *Conversation) Settle(result Result) (model.Message, error) {
	if !c.pending {
		return model.Message{}, ErrNotPending
	}
	text := result.Text()
	msg, err := model.NewMessage(c.ids, model.RoleAssistant, text)
	if err != nil {
		// Success content is validated upstream; this only guards a
		// hand-built Result with blank content.
		msg, err = model.NewMessage(c.ids, model.RoleAssistant, GenericMessage)
		if err != nil {
			return model.Message{}, fmt.Errorf("build reply: %w", err)
		}
	}
	if err := c.SettleSubmission(msg); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Snapshot captures the view-relevant state at one point in time.
type Snapshot struct {
	Messages int
	LastID   string
	Pending  bool
	Open     bool
}

// Snapshot returns the current view-relevant state.
func (c *Conversation) Snapshot() Snapshot {
	return Snapshot{
		Messages: len(c.history),
		LastID:   c.Last().ID,
		Pending:  c.pending,
		Open:     c.open,
	}
}

// NeedsScroll reports whether the message list should jump to the newest
// entry after moving from prev to next: the widget is open and either the
// history or the pending flag changed.
func NeedsScroll(prev, next Snapshot) bool {
	if !next.Open {
		return false
	}
	historyChanged := prev.Messages != next.Messages || prev.LastID != next.LastID
	return historyChanged || prev.Pending != next.Pending
}
