// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/folio/internal/widget"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ReplyMsg:
		return m.handleReply(msg)

	case spinner.TickMsg:
		if !m.conv.IsPending() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshMessages()
		return m, cmd
	}

	if m.conv.IsOpen() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.ready = true
	m.layout()
	m.renderPage()
	m.refreshMessages()
	m.messages.GotoBottom()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		return m.toggle()

	case m.conv.IsOpen() && key.Matches(msg, m.keys.Close):
		return m.toggle()
	}

	if !m.conv.IsOpen() {
		return m.handlePageKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.PageUp):
		m.messages.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.messages.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.conv.UpdateDraft(m.input.Value())
	return m, cmd
}

func (m Model) handlePageKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancel()
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.page, cmd = m.page.Update(msg)
	return m, cmd
}

// toggle flips widget visibility. A pending request keeps running while the
// panel is hidden; its reply is still applied.
func (m Model) toggle() (tea.Model, tea.Cmd) {
	m.conv.ToggleVisibility()
	m.layout()
	if !m.conv.IsOpen() {
		m.input.Blur()
		m.afterChange()
		return m, nil
	}
	m.input.SetValue(m.conv.Draft())
	m.input.CursorEnd()
	m.refreshMessages()
	m.afterChange()
	return m, tea.Batch(m.input.Focus(), textinput.Blink)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	m.conv.UpdateDraft(m.input.Value())
	text, ok := m.conv.BeginSubmission()
	if !ok {
		return m, nil
	}
	m.input.Reset()
	m.log.Debug().Int("chars", len(text)).Msg("submitting")
	m.refreshMessages()
	m.afterChange()

	if m.dispatcher == nil {
		return m, func() tea.Msg {
			return ReplyMsg{Result: widget.Failure(widget.KindTransportFailure, 0, "")}
		}
	}
	return m, tea.Batch(dispatchCmd(m.ctx, m.dispatcher, text), m.spinner.Tick)
}

// handleReply settles the conversation before any view work, so a failure
// while rendering can never leave the submission pending.
func (m Model) handleReply(msg ReplyMsg) (tea.Model, tea.Cmd) {
	reply, err := m.conv.Settle(msg.Result)
	if err != nil {
		m.log.Warn().Err(err).Msg("reply without a pending submission")
		return m, nil
	}
	ev := m.log.Debug()
	if !msg.Result.OK() {
		ev = m.log.Warn().Str("kind", msg.Result.Kind.String()).Int("status", msg.Result.Status)
	}
	ev.Dur("elapsed", msg.Elapsed).Str("reply", reply.ID).Msg("reply settled")

	m.redraw()
	return m, nil
}

// redraw refreshes the history view after a settled reply. A render panic
// is logged; the conversation keeps the settled state either way.
func (m *Model) redraw() {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("render after reply failed")
		}
	}()
	m.refreshMessages()
	m.afterChange()
}

// afterChange scrolls to the newest message when the widget is open and the
// history or the pending flag changed since it was last seen open.
func (m *Model) afterChange() {
	next := m.conv.Snapshot()
	if widget.NeedsScroll(m.last, next) {
		m.messages.GotoBottom()
	}
	if next.Open {
		m.last = next
	}
}
