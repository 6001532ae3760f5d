// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - config command.
//
// Subcommands:
//
//	show (default)   Print the effective configuration, secrets redacted
//	path             Print the config file location
//	init             Write a default config file
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/jeranaias/folio/internal/config"
)

// ConfigPathData is the JSON form of `folio config path --json`.
type ConfigPathData struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// HandleConfig dispatches the config subcommands.
func HandleConfig(w io.Writer, args Args) error {
	switch args.Subcommand {
	case "", "show":
		return handleConfigShow(w, args)
	case "path":
		return handleConfigPath(w, args)
	case "init":
		return handleConfigInit(w, args)
	default:
		return UsageError("unknown config subcommand %q", args.Subcommand)
	}
}

func resolveConfigPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPath()
}

func handleConfigShow(w io.Writer, args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	if args.JSON {
		return writeJSON(w, cfg.Redacted())
	}
	fmt.Fprint(w, cfg.String())
	return nil
}

func handleConfigPath(w io.Writer, args Args) error {
	path, err := resolveConfigPath(args)
	if err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	exists := statErr == nil

	if args.JSON {
		return writeJSON(w, ConfigPathData{Path: path, Exists: exists})
	}
	fmt.Fprintln(w, path)
	if !exists && !args.Quiet {
		fmt.Fprintln(w, mutedStyle.Render("(not created yet; run 'folio config init')"))
	}
	return nil
}

func handleConfigInit(w io.Writer, args Args) error {
	path, err := resolveConfigPath(args)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := config.SaveTOML(config.Default(), path); err != nil {
		return err
	}
	if !args.Quiet {
		fmt.Fprintf(w, "%s %s\n", successStyle.Render("Wrote"), path)
	}
	return nil
}
