// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/folio/internal/config"
)

// Exit codes returned by the folio binary.
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitReplyFailed  = 4
)

var (
	// ErrUsage marks invalid command usage.
	ErrUsage = errors.New("usage error")

	// ErrReplyFailed is returned by ask when the assistant answered with an
	// error message instead of a reply. The message itself is still printed.
	ErrReplyFailed = errors.New("assistant request failed")
)

// UsageError wraps a usage message so it maps to ExitUsageError.
func UsageError(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, a...))
}

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	var verr config.ValidateErrors
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrUsage):
		return ExitUsageError
	case errors.As(err, &verr):
		return ExitConfigError
	case errors.Is(err, ErrReplyFailed):
		return ExitReplyFailed
	default:
		return ExitGeneralError
	}
}

// DisplayError prints err to w. ErrReplyFailed is silent: the reply text
// already explained what happened.
func DisplayError(w io.Writer, err error) {
	if err == nil || errors.Is(err, ErrReplyFailed) {
		return
	}
	fmt.Fprintf(w, "%s %v\n", errorStyle.Render("Error:"), err)
	if errors.Is(err, ErrUsage) {
		fmt.Fprintln(w, "Run 'folio help' for usage.")
	}
}
