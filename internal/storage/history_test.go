// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHistoryStore_AppendAndRecent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	for i := 0; i < 12; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		if _, err := store.Append(ctx, "s1", role, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}

	recent, err := store.Recent(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 10 {
		t.Fatalf("len(Recent) = %d, want 10", len(recent))
	}
	if recent[0].Content != "m2" || recent[9].Content != "m11" {
		t.Errorf("Recent order = %q..%q, want m2..m11", recent[0].Content, recent[9].Content)
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].ID <= recent[i-1].ID {
			t.Errorf("entries not oldest-first at %d", i)
		}
	}
}

func TestHistoryStore_SessionsIsolated(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, _ = store.Append(ctx, "a", RoleUser, "from a")
	_, _ = store.Append(ctx, "b", RoleUser, "from b")

	got, err := store.Recent(ctx, "a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "from a" {
		t.Errorf("Recent(a) = %+v", got)
	}
	if n, _ := store.Count(ctx, "b"); n != 1 {
		t.Errorf("Count(b) = %d, want 1", n)
	}
}

func TestHistoryStore_RejectsRole(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Append(context.Background(), "s", "system", "x")
	if !errors.Is(err, ErrInvalidRole) {
		t.Errorf("Append(system) error = %v, want ErrInvalidRole", err)
	}
}

func TestHistoryStore_RecentZeroLimit(t *testing.T) {
	store := openTestStore(t)
	_, _ = store.Append(context.Background(), "s", RoleUser, "x")
	got, err := store.Recent(context.Background(), "s", 0)
	if err != nil || len(got) != 0 {
		t.Errorf("Recent(0) = %v, %v", got, err)
	}
}

func TestHistoryStore_Prune(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	_, _ = store.Append(ctx, "s", RoleUser, "old")

	removed, err := store.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("Prune removed %d, want 1", removed)
	}
}

func TestHistoryStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat.db")

	store, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = store.Append(ctx, "s", RoleUser, "persisted")
	store.Close()

	store, err = Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if n, _ := store.Count(ctx, "s"); n != 1 {
		t.Errorf("Count after reopen = %d, want 1", n)
	}
}
