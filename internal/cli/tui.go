// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/folio/internal/config"
	"github.com/jeranaias/folio/internal/model"
	"github.com/jeranaias/folio/internal/ui/chat"
	"github.com/jeranaias/folio/internal/ui/styles"
)

// HandleTUI opens the portfolio page with the chat widget.
func HandleTUI(ctx context.Context, cfg *config.Config, args Args) error {
	if !IsTTY() || !IsStdoutTTY() {
		return UsageError("the portfolio view needs a terminal; try 'folio ask'")
	}

	log, closer := fileLogger(cfg)
	defer closer.Close()

	profile, err := loadProfile(cfg)
	if err != nil {
		return err
	}

	m := chat.New(chat.Options{
		Theme:      styles.NewTheme(),
		Dispatcher: newDispatcher(cfg, log.Widget()),
		IDs:        model.NewIDGenerator(cfg.Widget.IDPolicy),
		Page:       profile.Markdown(),
		Title:      assistantTitle(profile.Name),
		Greeting:   cfg.Widget.Greeting,
		StartOpen:  cfg.Widget.StartOpen || args.Open,
		Logger:     log.Widget(),
		Context:    ctx,
	})

	zl := log.Zerolog()
	zl.Info().Str("backend", cfg.Widget.BackendURL).Msg("tui starting")
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// assistantTitle is the widget header, e.g. "Anmol's AI Assistant".
func assistantTitle(name string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(name), " ")
	if first == "" {
		return "AI Assistant"
	}
	return fmt.Sprintf("%s's AI Assistant", first)
}
