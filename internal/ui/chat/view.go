// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/folio/internal/model"
	"github.com/jeranaias/folio/internal/util"
)

// Fixed heights inside the layout.
const (
	footerHeight      = 1
	panelBorderHeight = 2 // rounded border top and bottom
	panelHeaderHeight = 2 // title + subtitle
	panelInputHeight  = 2 // separator + input line
	panelHorizFrame   = 4 // border + padding, both sides
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	footer := m.renderFooter()

	if !m.conv.IsOpen() {
		return lipgloss.JoinVertical(lipgloss.Left, m.page.View(), footer)
	}

	panel := m.renderPanel()
	if m.pageWidth() == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, panel, footer)
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.page.View(), panel)
	return lipgloss.JoinVertical(lipgloss.Left, body, footer)
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) panelWidth() int {
	if !m.conv.IsOpen() {
		return 0
	}
	return min(m.theme.PanelWidth(), m.width)
}

// pageWidth is 0 when the open panel takes the whole terminal.
func (m Model) pageWidth() int {
	w := m.width - m.panelWidth()
	if w < 20 {
		return 0
	}
	return w
}

func (m *Model) layout() {
	bodyHeight := max(m.height-footerHeight, 1)

	m.page.Width = m.pageWidth()
	if !m.conv.IsOpen() {
		m.page.Width = m.width
	}
	m.page.Height = bodyHeight

	inner := max(m.panelWidth()-panelHorizFrame, 10)
	m.messages.Width = inner
	m.messages.Height = max(bodyHeight-panelBorderHeight-panelHeaderHeight-panelInputHeight, 1)
	m.input.Width = max(inner-lipgloss.Width(m.input.Prompt)-1, 1)

	if m.page.Width != m.rendered {
		m.renderPage()
	}
}

// =============================================================================
// LANDING PAGE
// =============================================================================

// renderPage renders the landing markdown at the current page width. When
// glamour fails the raw markdown is shown.
func (m *Model) renderPage() {
	width := m.page.Width
	if width <= 0 {
		return
	}
	wrap := max(width-2, 20)
	if m.renderer == nil || m.rendered != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.theme.GlamourStyle()),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			m.log.Warn().Err(err).Msg("markdown renderer unavailable")
			m.renderer = nil
		} else {
			m.renderer = r
		}
	}
	m.rendered = width

	content := m.pageMD
	if m.renderer != nil {
		if out, err := m.renderer.Render(m.pageMD); err == nil {
			content = out
		} else {
			m.log.Warn().Err(err).Msg("render landing page")
		}
	}
	m.page.SetContent(strings.TrimRight(content, "\n"))
}

// =============================================================================
// WIDGET PANEL
// =============================================================================

func (m Model) renderPanel() string {
	inner := m.messages.Width

	title := m.theme.PanelTitle.Render(util.TruncateWidth(m.title, max(inner-2, 1)))
	subtitle := m.theme.PanelSubtitle.Render("● Online")
	if m.conv.IsPending() {
		subtitle = m.theme.Typing.Render("typing" + m.spinner.View())
	}

	sep := m.theme.Muted.Render(strings.Repeat("─", inner))
	input := m.input.View()

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		subtitle,
		m.messages.View(),
		sep,
		input,
	)
	return m.theme.Panel.
		Width(inner + 2).
		Height(m.messages.Height + panelHeaderHeight + panelInputHeight).
		Render(content)
}

// refreshMessages rebuilds the message list content. It never mutates the
// conversation.
func (m *Model) refreshMessages() {
	width := m.messages.Width
	if width <= 0 {
		return
	}
	bubbleWidth := max(width*4/5, 8)

	var b strings.Builder
	for i, msg := range m.conv.History() {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg, width, bubbleWidth))
	}
	if m.conv.IsPending() {
		b.WriteString("\n\n")
		b.WriteString(m.theme.AssistantBubble.Render(m.spinner.View()))
	}
	m.messages.SetContent(b.String())
}

func (m Model) renderMessage(msg model.Message, width, bubbleWidth int) string {
	lines := util.Wrap(msg.Content, bubbleWidth-2)
	text := strings.Join(lines, "\n")
	stamp := m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

	if msg.IsUser() {
		bubble := m.theme.UserBubble.Render(text)
		return lipgloss.JoinVertical(lipgloss.Right,
			lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble),
			lipgloss.PlaceHorizontal(width, lipgloss.Right, stamp),
		)
	}
	bubble := m.theme.AssistantBubble.Render(text)
	return lipgloss.JoinVertical(lipgloss.Left, bubble, stamp)
}

// =============================================================================
// FOOTER
// =============================================================================

func (m Model) renderFooter() string {
	var parts []string
	bindings := m.keys.PageHelp()
	if m.conv.IsOpen() {
		bindings = m.keys.WidgetHelp()
	} else {
		parts = append(parts, m.theme.Launcher.Render("💬 Chat"))
	}
	parts = append(parts, renderBindings(m, bindings))
	return m.theme.Footer.
		Width(m.width).
		MaxWidth(m.width).
		MaxHeight(footerHeight).
		Render(strings.Join(parts, "  "))
}

func renderBindings(m Model, bindings []key.Binding) string {
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, m.theme.KeyHint.Render(h.Key)+" "+m.theme.KeyLabel.Render(h.Desc))
	}
	return strings.Join(hints, "  ")
}
