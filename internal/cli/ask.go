// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - one-shot question to the portfolio assistant.
//
// Command: ask [question]
//
// Examples:
//
//	folio ask "What is your strongest skill?"
//	folio ask --json "Which projects use Go?"
//	folio --backend https://folio.example.com ask "Are you open to work?"
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/folio/internal/config"
	"github.com/jeranaias/folio/internal/logger"
)

// AskResult is the JSON form of `folio ask --json`.
type AskResult struct {
	Question  string `json:"question"`
	Reply     string `json:"reply"`
	OK        bool   `json:"ok"`
	Kind      string `json:"kind,omitempty"`
	Status    int    `json:"status,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// HandleAsk submits args.Query through a fresh conversation and prints the
// assistant's reply to w. A failed request still prints the classified
// message and then returns ErrReplyFailed.
func HandleAsk(ctx context.Context, w io.Writer, cfg *config.Config, args Args) error {
	log, closer := fileLogger(cfg)
	defer closer.Close()

	conv := newConversation(cfg)
	conv.ToggleVisibility()
	conv.UpdateDraft(args.Query)

	dispatcher := newDispatcher(cfg, log.Widget())

	start := time.Now()
	ex, ok, err := dispatcher.Submit(ctx, conv)
	if err != nil {
		return err
	}
	if !ok {
		return UsageError("question is empty")
	}
	elapsed := time.Since(start)

	if args.JSON {
		out := AskResult{
			Question:  ex.Question.Content,
			Reply:     ex.Reply.Content,
			OK:        ex.Result.OK(),
			ElapsedMS: elapsed.Milliseconds(),
		}
		if !ex.Result.OK() {
			out.Kind = ex.Result.Kind.String()
			out.Status = ex.Result.Status
		}
		if err := writeJSON(w, out); err != nil {
			return err
		}
	} else {
		printReply(w, ex.Reply.Content, ex.Result.OK(), args.Quiet)
		if args.Verbose {
			fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("(%s)", elapsed.Round(time.Millisecond))))
		}
	}

	if !ex.Result.OK() {
		logReplyFailure(log, ex.Result.String())
		return ErrReplyFailed
	}
	return nil
}

// printReply writes a reply, rendered as markdown when w is an interactive
// stdout.
func printReply(w io.Writer, text string, ok, quiet bool) {
	if !ok {
		fmt.Fprintln(w, errorStyle.Render(text))
		return
	}
	if w == os.Stdout && IsStdoutTTY() && ColorsEnabled() {
		if out, err := renderMarkdown(text, GetTerminalWidth()-4); err == nil {
			fmt.Fprint(w, out)
			return
		}
	}
	if !quiet && w == os.Stdout && IsStdoutTTY() {
		fmt.Fprintln(w, botStyle.Render("Assistant:"))
	}
	fmt.Fprintln(w, strings.TrimRight(text, "\n"))
}

// renderMarkdown renders text for the terminal at width columns.
func renderMarkdown(text string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(text)
}

func logReplyFailure(log *logger.Logger, result string) {
	wl := log.Widget()
	wl.Info().Str("result", result).Msg("ask returned an error message")
}
