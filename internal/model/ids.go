// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ID POLICIES
// =============================================================================

// IDGenerator produces message IDs that are unique within a session.
type IDGenerator interface {
	NextID() string
}

// IDGeneratorFunc adapts a plain function to IDGenerator.
type IDGeneratorFunc func() string

// NextID calls f.
func (f IDGeneratorFunc) NextID() string { return f() }

// Counter is a deterministic generator yielding msg_1, msg_2, ...
// Intended for tests and for the seed greeting.
type Counter struct {
	mu   sync.Mutex
	next uint64
}

// NewCounter returns a Counter starting at msg_1.
func NewCounter() *Counter {
	return &Counter{}
}

// NextID returns the next sequential ID.
func (c *Counter) NextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	return "msg_" + strconv.FormatUint(c.next, 10)
}

// ClockIDs derives IDs from a clock reading in milliseconds. Two calls in
// the same millisecond (or a clock that steps backwards) still produce
// strictly increasing values.
type ClockIDs struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewClockIDs returns a clock-based generator. A nil now uses time.Now.
func NewClockIDs(now func() time.Time) *ClockIDs {
	if now == nil {
		now = time.Now
	}
	return &ClockIDs{now: now}
}

// NextID returns a millisecond timestamp, bumped past the previous value
// when necessary.
func (c *ClockIDs) NextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return strconv.FormatInt(ms, 10)
}

// UUIDs yields random version 4 UUIDs.
type UUIDs struct{}

// NextID returns a fresh UUID string.
func (UUIDs) NextID() string {
	return uuid.NewString()
}

// NewIDGenerator returns the policy named by kind ("counter", "clock",
// "uuid"). Unknown kinds fall back to the clock policy.
func NewIDGenerator(kind string) IDGenerator {
	switch kind {
	case "counter":
		return NewCounter()
	case "uuid":
		return UUIDs{}
	default:
		return NewClockIDs(nil)
	}
}
