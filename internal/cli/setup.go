// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/folio/internal/backend"
	"github.com/jeranaias/folio/internal/config"
	"github.com/jeranaias/folio/internal/logger"
	"github.com/jeranaias/folio/internal/model"
	"github.com/jeranaias/folio/internal/portfolio"
	"github.com/jeranaias/folio/internal/widget"
)

// LoadConfig loads the configuration named by args and applies the
// command-line overrides on top of it.
func LoadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if args.BackendURL != "" {
		cfg.Widget.BackendURL = args.BackendURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if args.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// loadProfile returns the configured profile, or the built-in one.
func loadProfile(cfg *config.Config) (*portfolio.Profile, error) {
	return portfolio.Load(cfg.Profile.Path)
}

// newDispatcher builds a widget dispatcher talking to the configured chat
// backend. Every dispatcher gets its own session so the backend keeps its
// history apart from other clients behind the same address.
func newDispatcher(cfg *config.Config, log zerolog.Logger) *widget.Dispatcher {
	client := backend.NewClient(cfg.Widget.BackendURL).
		WithUserAgent("folio/" + Version).
		WithSession(uuid.NewString())

	return widget.NewDispatcher(client,
		widget.WithTimeout(cfg.WidgetTimeout()),
		widget.WithLogger(log),
		widget.WithObserver(func(r widget.Result, elapsed time.Duration) {
			log.Debug().Stringer("result", r).Dur("elapsed", elapsed).Msg("chat request finished")
		}),
	)
}

// newConversation seeds a conversation from the widget config.
func newConversation(cfg *config.Config) *widget.Conversation {
	return widget.NewConversation(model.NewIDGenerator(cfg.Widget.IDPolicy), cfg.Widget.Greeting)
}

// fileLogger opens the log file for commands that own the terminal. The
// returned closer is never nil. When the file cannot be opened, logging is
// discarded.
func fileLogger(cfg *config.Config) (*logger.Logger, io.Closer) {
	path := cfg.LogPath()
	if path == "" {
		return logger.Nop(), io.NopCloser(nil)
	}
	f, err := logger.OpenFile(path)
	if err != nil {
		return logger.Nop(), io.NopCloser(nil)
	}
	return logger.New(logger.Config{Level: cfg.Log.Level, Output: f}), f
}

// stderrLogger is the logger for `folio serve`: JSON on stderr, or the
// console writer when asked for or when stderr is a terminal.
func stderrLogger(cfg *config.Config) (*logger.Logger, io.Closer) {
	if cfg.Log.File != "" {
		if f, err := logger.OpenFile(cfg.Log.File); err == nil {
			return logger.New(logger.Config{Level: cfg.Log.Level, Output: f}), f
		}
	}
	return logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty || IsStderrTTY(),
		Output: os.Stderr,
	}), io.NopCloser(nil)
}
