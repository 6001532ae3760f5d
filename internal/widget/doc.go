// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package widget implements the chat widget's interaction state machine.
//
// A widget session is one Conversation (history, draft, open and pending
// flags) plus a Dispatcher that turns a submission into exactly one backend
// call. Failures never escape: every outcome becomes an explicit Result,
// and Classify maps failed results to the text shown as the assistant's
// reply.
//
// # Ownership
//
// A Conversation has a single owner and no locks. In the terminal UI the
// Bubble Tea update loop is that owner; the backend call runs as a tea.Cmd
// and its Result is applied back on the loop. The pending flag is the only
// guard against overlapping requests.
//
// # Key Types
//
//   - Conversation: ordered history, draft input, open and pending flags
//   - Dispatcher: sends one message through a Sender and returns a Result
//   - Result: Success(content) or Failure(kind, status, detail)
//   - Snapshot: view-facing state used by NeedsScroll
//
// # Usage
//
//	conv := widget.NewConversation(model.NewClockIDs(nil), widget.Greeting)
//	d := widget.NewDispatcher(backend.NewClient(url))
//
//	conv.UpdateDraft("Hello")
//	if text, ok := conv.BeginSubmission(); ok {
//	    result := d.Dispatch(ctx, text)
//	    reply, err := conv.Settle(result)
//	    ...
//	}
package widget
