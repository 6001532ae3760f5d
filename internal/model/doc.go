// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages.
//
// Messages are immutable once created. Their IDs come from an injected
// IDGenerator so that tests can predict them and production code can pick
// a collision-free policy.
//
// # Key Types
//
//   - Role: closed set of senders (user, assistant)
//   - Message: single chat entry with ID, role, content and timestamp
//   - IDGenerator: policy producing session-unique message IDs
//   - Counter, ClockIDs, UUIDs: the available ID policies
//
// # Usage
//
// Build messages through a generator:
//
//	ids := model.NewCounter()
//	msg, err := model.NewMessage(ids, model.RoleUser, "Hello")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(msg.ID) // msg_1
package model
