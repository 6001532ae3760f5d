// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat backend history in SQLite.
//
// The chat_history table keeps every user and assistant turn the backend
// has seen, keyed by session. The server reads the most recent rows back
// as context for the next upstream call.
//
// # Usage
//
//	store, err := storage.Open(ctx, "~/.folio/chat.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	_, _ = store.Append(ctx, session, "user", "Hello")
//	recent, _ := store.Recent(ctx, session, 10) // oldest first
package storage
