// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// ErrEmptyContent is returned when a message would carry only whitespace.
var ErrEmptyContent = errors.New("message content is empty")

// ErrInvalidRole is returned for roles outside the closed set.
var ErrInvalidRole = errors.New("invalid message role")

// Message is a single entry in a conversation. Values are never mutated
// after construction; copies are handed out freely.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage builds a message with an ID drawn from ids. Content must be
// non-empty after trimming; it is stored as given.
func NewMessage(ids IDGenerator, role Role, content string) (Message, error) {
	if !role.Valid() {
		return Message{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if strings.TrimSpace(content) == "" {
		return Message{}, ErrEmptyContent
	}
	return Message{
		ID:        ids.NextID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}, nil
}

// IsUser returns true for messages typed by the visitor.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant returns true for messages produced by the assistant.
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
