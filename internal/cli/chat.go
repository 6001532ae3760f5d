// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/folio/internal/config"
	"github.com/jeranaias/folio/internal/widget"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader provides input history and line editing for `folio chat`.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader() *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	r := &lineReader{line: line, historyFile: filepath.Join(configDir, "chat_history")}
	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *lineReader) ReadInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history (0600) and restores the terminal.
func (r *lineReader) Close() {
	defer r.line.Close()
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = r.line.WriteHistory(f)
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// chatSession runs one conversation on the calling goroutine. cancel
// aborts the request in flight, if any.
type chatSession struct {
	conv       *widget.Conversation
	dispatcher *widget.Dispatcher
	out        io.Writer

	mu     sync.Mutex
	cancel context.CancelFunc
}

// HandleChat runs the interactive line-by-line chat.
func HandleChat(ctx context.Context, cfg *config.Config, args Args) error {
	log, closer := fileLogger(cfg)
	defer closer.Close()

	s := &chatSession{
		conv:       newConversation(cfg),
		dispatcher: newDispatcher(cfg, log.Widget()),
		out:        os.Stdout,
	}
	s.conv.ToggleVisibility()

	if !args.Quiet {
		s.printWelcome()
	}

	input := newLineReader()
	defer input.Close()

	ctx, endSession := context.WithCancel(ctx)
	defer endSession()

	// Ctrl+C while waiting on a reply cancels that request only. At the
	// prompt liner sees it first and ends the session. SIGTERM always ends
	// the session.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	stopWatch := s.watchSignals(sigChan, endSession)
	defer stopWatch()

	for {
		line, err := s.prompt(ctx, input)
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) && ctx.Err() == nil {
				return err
			}
			fmt.Fprintln(s.out)
			return nil
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "exit"), strings.EqualFold(line, "quit"), line == "/quit", line == "/q":
			return nil
		}

		s.ask(ctx, line)
	}
}

// ask submits one line and prints the reply or the classified error.
func (s *chatSession) ask(ctx context.Context, text string) {
	reqCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	s.conv.UpdateDraft(text)
	fmt.Fprintln(s.out, mutedStyle.Render("..."))
	ex, ok, err := s.dispatcher.Submit(reqCtx, s.conv)
	if err != nil {
		fmt.Fprintf(s.out, "%s %v\n", errorStyle.Render("[Error]"), err)
		return
	}
	if !ok {
		return
	}
	if !ex.Result.OK() {
		fmt.Fprintf(s.out, "%s %s\n\n", botStyle.Render("assistant>"), errorStyle.Render(ex.Reply.Content))
		return
	}
	if ColorsEnabled() {
		if out, err := renderMarkdown(ex.Reply.Content, GetTerminalWidth()-4); err == nil {
			fmt.Fprintln(s.out, botStyle.Render("assistant>"))
			fmt.Fprint(s.out, out)
			return
		}
	}
	fmt.Fprintf(s.out, "%s %s\n\n", botStyle.Render("assistant>"), ex.Reply.Content)
}

// lineSource reads one line of input.
type lineSource interface {
	ReadInput(prompt string) (string, error)
}

// prompt reads one line, giving up when ctx is done. The read itself cannot
// be interrupted and is left behind on the terminal being restored.
func (s *chatSession) prompt(ctx context.Context, input lineSource) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	type read struct {
		line string
		err  error
	}
	ch := make(chan read, 1)
	go func() {
		line, err := input.ReadInput(youStyle.Render("you> "))
		ch <- read{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}

// watchSignals handles sigs until the returned stop func is called.
// Interrupt cancels the request in flight. SIGTERM also ends the session.
func (s *chatSession) watchSignals(sigs <-chan os.Signal, endSession context.CancelFunc) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		for {
			select {
			case <-done:
				return
			case sig := <-sigs:
				s.cancelInFlight()
				if sig == syscall.SIGTERM {
					endSession()
				}
			}
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}

func (s *chatSession) cancelInFlight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		fmt.Fprintln(os.Stderr, "\n"+mutedStyle.Render("[Cancelled]"))
	}
}

func (s *chatSession) printWelcome() {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, successStyle.Render("folio chat"))
	fmt.Fprintln(s.out, mutedStyle.Render(strings.Repeat("─", 30)))
	fmt.Fprintf(s.out, "%s %s\n\n", botStyle.Render("assistant>"), s.conv.Last().Content)
	fmt.Fprintln(s.out, mutedStyle.Render("Type a question and press Enter. exit or Ctrl+D to leave."))
	fmt.Fprintln(s.out)
}
