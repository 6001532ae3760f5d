// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widget

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/folio/internal/model"
)

func newTestConversation() *Conversation {
	return NewConversation(model.NewCounter(), "")
}

func assistantMsg(t *testing.T, content string) model.Message {
	t.Helper()
	msg, err := model.NewMessage(model.NewCounter(), model.RoleAssistant, content)
	require.NoError(t, err)
	return msg
}

// =============================================================================
// SEEDING AND FLAGS
// =============================================================================

func TestNewConversation_Seed(t *testing.T) {
	conv := newTestConversation()

	history := conv.History()
	require.Len(t, history, 1)
	assert.Equal(t, model.RoleAssistant, history[0].Role)
	assert.Equal(t, Greeting, history[0].Content)
	assert.Equal(t, "msg_1", history[0].ID)
	assert.False(t, conv.IsOpen())
	assert.False(t, conv.IsPending())
	assert.Empty(t, conv.Draft())
}

func TestConversation_ToggleVisibility(t *testing.T) {
	conv := newTestConversation()
	conv.UpdateDraft("keep me")

	conv.ToggleVisibility()
	assert.True(t, conv.IsOpen())
	conv.ToggleVisibility()
	assert.False(t, conv.IsOpen())

	assert.Equal(t, 1, conv.Len())
	assert.Equal(t, "keep me", conv.Draft())
}

func TestConversation_UpdateDraft_NoValidation(t *testing.T) {
	conv := newTestConversation()
	for _, s := range []string{"", "   ", "hello", "\n\tmulti\nline"} {
		conv.UpdateDraft(s)
		assert.Equal(t, s, conv.Draft())
	}
}

func TestConversation_HistoryIsCopy(t *testing.T) {
	conv := newTestConversation()
	h := conv.History()
	h[0].Content = "mutated"
	assert.Equal(t, Greeting, conv.History()[0].Content)
}

// =============================================================================
// BEGIN SUBMISSION
// =============================================================================

func TestBeginSubmission_BlankDraftIsNoop(t *testing.T) {
	for _, draft := range []string{"", " ", "\t\n", "\u00a0 "} {
		conv := newTestConversation()
		conv.UpdateDraft(draft)

		text, ok := conv.BeginSubmission()

		assert.False(t, ok, "draft %q", draft)
		assert.Empty(t, text)
		assert.Equal(t, 1, conv.Len())
		assert.False(t, conv.IsPending())
		assert.Equal(t, draft, conv.Draft(), "no-op must leave the draft alone")
	}
}

func TestBeginSubmission_WhilePendingIsNoop(t *testing.T) {
	conv := newTestConversation()
	conv.UpdateDraft("first")
	_, ok := conv.BeginSubmission()
	require.True(t, ok)

	conv.UpdateDraft("second")
	text, ok := conv.BeginSubmission()

	assert.False(t, ok)
	assert.Empty(t, text)
	assert.Equal(t, 2, conv.Len())
	assert.True(t, conv.IsPending())
	assert.Equal(t, "second", conv.Draft())
}

func TestBeginSubmission_TrimsAndClearsDraft(t *testing.T) {
	conv := newTestConversation()
	conv.UpdateDraft("  Hello  \n")

	text, ok := conv.BeginSubmission()

	require.True(t, ok)
	assert.Equal(t, "Hello", text)
	assert.Empty(t, conv.Draft(), "draft must be cleared as soon as the submission proceeds")
	assert.True(t, conv.IsPending())

	last := conv.Last()
	assert.Equal(t, model.RoleUser, last.Role)
	assert.Equal(t, "Hello", last.Content)
}

func TestBeginSubmission_NormalizesNFC(t *testing.T) {
	conv := newTestConversation()
	conv.UpdateDraft("cafe\u0301")

	text, ok := conv.BeginSubmission()

	require.True(t, ok)
	assert.Equal(t, "caf\u00e9", text)
}

// =============================================================================
// SETTLEMENT
// =============================================================================

func TestSettleSubmission_WithoutPending(t *testing.T) {
	conv := newTestConversation()

	err := conv.SettleSubmission(assistantMsg(t, "stray"))

	assert.True(t, errors.Is(err, ErrNotPending))
	assert.Equal(t, 1, conv.Len())
}

func TestSettleSubmission_ExactlyOnce(t *testing.T) {
	conv := newTestConversation()
	conv.UpdateDraft("Hello")
	_, ok := conv.BeginSubmission()
	require.True(t, ok)

	require.NoError(t, conv.SettleSubmission(assistantMsg(t, "one")))
	err := conv.SettleSubmission(assistantMsg(t, "two"))

	assert.ErrorIs(t, err, ErrNotPending)
	assert.Equal(t, 3, conv.Len())
	assert.False(t, conv.IsPending())
}

func TestSettleSubmission_RejectsUserMessage(t *testing.T) {
	conv := newTestConversation()
	conv.UpdateDraft("Hello")
	_, _ = conv.BeginSubmission()

	userMsg, err := model.NewMessage(model.NewCounter(), model.RoleUser, "echo")
	require.NoError(t, err)

	assert.ErrorIs(t, conv.SettleSubmission(userMsg), ErrNotAssistant)
	assert.True(t, conv.IsPending())
}

func TestSettle_BuildsReplyFromResult(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   string
	}{
		{"success", Success("Hi there"), "Hi there"},
		{"quota", Failure(KindQuotaExceeded, 429, ""), QuotaMessage},
		{"blank success falls back", Success("  "), GenericMessage},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conv := newTestConversation()
			conv.UpdateDraft("Hello")
			_, _ = conv.BeginSubmission()

			reply, err := conv.Settle(tc.result)

			require.NoError(t, err)
			assert.Equal(t, tc.want, reply.Content)
			assert.Equal(t, model.RoleAssistant, reply.Role)
			assert.False(t, conv.IsPending())
		})
	}
}

func TestConversation_IDsUnique(t *testing.T) {
	conv := newTestConversation()
	for _, q := range []string{"a", "b", "c"} {
		conv.UpdateDraft(q)
		_, ok := conv.BeginSubmission()
		require.True(t, ok)
		_, err := conv.Settle(Success("ok"))
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	for _, m := range conv.History() {
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
	}
	assert.Len(t, seen, 7)
}

func TestConversation_SettleWhileClosed(t *testing.T) {
	conv := newTestConversation()
	conv.ToggleVisibility()
	conv.UpdateDraft("Hello")
	_, _ = conv.BeginSubmission()
	conv.ToggleVisibility()

	_, err := conv.Settle(Success("late reply"))

	require.NoError(t, err)
	assert.False(t, conv.IsOpen())
	assert.Equal(t, "late reply", conv.Last().Content)
}

// =============================================================================
// SCROLL PREDICATE
// =============================================================================

func TestNeedsScroll(t *testing.T) {
	base := Snapshot{Messages: 1, LastID: "msg_1", Open: true}

	tests := []struct {
		name string
		prev Snapshot
		next Snapshot
		want bool
	}{
		{"nothing changed", base, base, false},
		{"message appended", base, Snapshot{Messages: 2, LastID: "msg_2", Open: true}, true},
		{"pending flipped", base, Snapshot{Messages: 1, LastID: "msg_1", Open: true, Pending: true}, true},
		{"closed widget", base, Snapshot{Messages: 2, LastID: "msg_2"}, false},
		{"just opened", Snapshot{Messages: 1, LastID: "msg_1"}, base, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NeedsScroll(tc.prev, tc.next))
		})
	}
}
