// folio - a terminal portfolio with an AI chat assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"

	"github.com/jeranaias/folio/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args, err := cli.ParseArgs(os.Args[1:])
	if err == nil {
		err = cli.Run(context.Background(), os.Stdout, cmd, args)
	}
	cli.DisplayError(os.Stderr, err)
	os.Exit(cli.ExitCode(err))
}
