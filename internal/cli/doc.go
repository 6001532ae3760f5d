// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses folio's command line and runs its commands.
//
// # Commands
//
//   - (none), tui: the portfolio page with the chat widget
//   - ask: one question, one reply (--json for scripts)
//   - chat: line-by-line conversation with input history
//   - serve: the chat backend the widget talks to
//   - config: show, path or init the TOML configuration
//   - version, help
//
// ask, chat and the TUI all drive the same widget.Conversation and
// widget.Dispatcher, so a failed request reads the same everywhere.
//
// # Usage
//
//	cmd, args, err := cli.ParseArgs(os.Args[1:])
//	if err == nil {
//	    err = cli.Run(ctx, os.Stdout, cmd, args)
//	}
//	cli.DisplayError(os.Stderr, err)
//	os.Exit(cli.ExitCode(err))
package cli
