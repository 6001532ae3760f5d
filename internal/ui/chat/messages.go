// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/folio/internal/widget"
)

// ReplyMsg carries the outcome of the one in-flight backend call back into
// the Update loop.
type ReplyMsg struct {
	Result  widget.Result
	Elapsed time.Duration
}

// dispatchCmd runs one backend call off the Update loop. The dispatcher
// never panics and always yields a Result, so the returned Cmd always
// produces exactly one ReplyMsg.
func dispatchCmd(ctx context.Context, d *widget.Dispatcher, text string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		result := d.Dispatch(ctx, text)
		return ReplyMsg{Result: result, Elapsed: time.Since(start)}
	}
}
