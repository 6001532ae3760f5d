// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"github.com/jeranaias/folio/internal/model"
	"github.com/jeranaias/folio/internal/ui/styles"
	"github.com/jeranaias/folio/internal/widget"
)

// MaxInputLength caps the composer.
const MaxInputLength = 2000

// Options configures a Model.
type Options struct {
	Theme      *styles.Theme
	Dispatcher *widget.Dispatcher
	IDs        model.IDGenerator

	// Page is the landing page markdown.
	Page string

	// Title is shown on the widget header, e.g. "Anmol's AI Assistant".
	Title    string
	Greeting string

	StartOpen bool
	Logger    zerolog.Logger

	// Context bounds every backend call; cancelled on quit.
	Context context.Context
}

// Model is the top-level Bubble Tea model: the landing page with the chat
// widget over it. The Update loop is the only place the conversation is
// mutated.
type Model struct {
	theme      *styles.Theme
	keys       KeyMap
	conv       *widget.Conversation
	dispatcher *widget.Dispatcher
	log        zerolog.Logger
	ctx        context.Context
	cancel     context.CancelFunc

	page     viewport.Model
	pageMD   string
	renderer *glamour.TermRenderer
	rendered int // width the page was last rendered at

	messages viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	title    string

	last   widget.Snapshot
	width  int
	height int
	ready  bool
}

// New creates the model. A nil Theme or IDs gets a default.
func New(opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme()
	}
	if opts.IDs == nil {
		opts.IDs = model.NewClockIDs(nil)
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Title == "" {
		opts.Title = "AI Assistant"
	}
	ctx, cancel := context.WithCancel(opts.Context)

	conv := widget.NewConversation(opts.IDs, opts.Greeting)
	if opts.StartOpen {
		conv.ToggleVisibility()
	}

	input := textinput.New()
	input.Placeholder = "Ask me anything..."
	input.CharLimit = MaxInputLength
	input.Prompt = "> "
	input.PromptStyle = opts.Theme.InputPrompt
	input.TextStyle = opts.Theme.InputText
	input.PlaceholderStyle = opts.Theme.Placeholder
	if conv.IsOpen() {
		input.Focus()
	}

	sp := spinner.New()
	sp.Spinner = styles.TypingSpinner.Spinner()
	sp.Style = opts.Theme.Typing

	m := Model{
		theme:      opts.Theme,
		keys:       DefaultKeyMap(),
		conv:       conv,
		dispatcher: opts.Dispatcher,
		log:        opts.Logger,
		ctx:        ctx,
		cancel:     cancel,
		page:       viewport.New(0, 0),
		pageMD:     opts.Page,
		messages:   viewport.New(0, 0),
		input:      input,
		spinner:    sp,
		title:      opts.Title,
	}
	m.last = conv.Snapshot()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.conv.IsOpen() {
		return textinput.Blink
	}
	return nil
}

// Conversation exposes the widget state, read-only by convention.
func (m Model) Conversation() *widget.Conversation {
	return m.conv
}

// IsOpen reports whether the widget panel is shown.
func (m Model) IsOpen() bool {
	return m.conv.IsOpen()
}

// IsPending reports whether a reply is awaited.
func (m Model) IsPending() bool {
	return m.conv.IsPending()
}
