// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logger provides structured logging for folio on top of zerolog.
//
// The chat server logs JSON (or console output with Pretty) to stderr. The
// terminal UI owns the screen, so it logs to a file under the config
// directory instead, or nowhere at all.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // console writer instead of JSON
	Output     io.Writer
	WithCaller bool
}

// Logger wraps zerolog with folio-specific helpers.
type Logger struct {
	zlog zerolog.Logger
}

// ParseLevel maps a level name to a zerolog level. Unknown names are info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// SetLevel changes the process-wide minimum level.
func SetLevel(name string) {
	zerolog.SetGlobalLevel(ParseLevel(name))
}

// New creates a logger from cfg and applies its level globally.
func New(cfg Config) *Logger {
	SetLevel(cfg.Level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		With().
		Timestamp().
		Str("service", "folio").
		Logger()
	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}
	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Zerolog returns the underlying zerolog logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}

// Component returns a child logger tagged with component.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger()
}

// HTTP returns the logger for request handling.
func (l *Logger) HTTP() zerolog.Logger { return l.Component("http") }

// Store returns the logger for chat history storage.
func (l *Logger) Store() zerolog.Logger { return l.Component("store") }

// Upstream returns the logger for model provider calls.
func (l *Logger) Upstream() zerolog.Logger { return l.Component("upstream") }

// Widget returns the logger for the chat widget.
func (l *Logger) Widget() zerolog.Logger { return l.Component("widget") }

// LogServerStart logs server startup.
func (l *Logger) LogServerStart(addr, dbPath, model string) {
	l.zlog.Info().
		Str("event", "server_start").
		Str("addr", addr).
		Str("database", dbPath).
		Str("model", model).
		Msg("folio chat server starting")
}

// LogServerReady logs when the listener is up.
func (l *Logger) LogServerReady(addr string) {
	l.zlog.Info().
		Str("event", "server_ready").
		Str("addr", addr).
		Msg("folio chat server ready")
}

// LogServerShutdown logs shutdown.
func (l *Logger) LogServerShutdown(reason string) {
	l.zlog.Info().
		Str("event", "server_shutdown").
		Str("reason", reason).
		Msg("folio chat server shutting down")
}

// OpenFile opens (or creates) an append-only log file, creating parent
// directories with owner-only permissions.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}
