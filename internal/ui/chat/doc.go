// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat is the folio terminal UI: the landing page with the chat
widget toggled over it.

# Model (model.go, update.go)

Model wraps a widget.Conversation and a widget.Dispatcher. The Bubble Tea
Update loop is the only place the conversation changes:

  - ctrl+o and esc toggle the widget panel
  - typing updates the draft; enter begins a submission
  - the backend call runs as a tea.Cmd and comes back as a ReplyMsg
  - ReplyMsg settles the conversation first, then refreshes the view

# View (view.go)

The landing page is markdown rendered with glamour in a viewport. The
open panel shows the history in a second viewport, a typing indicator
while a reply is pending, and a textinput composer. On narrow terminals
the panel takes the full width.
*/
package chat
