// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for folio.
//
// # Key Types
//
//   - Config: top-level configuration
//   - WidgetConfig: chat widget client settings (backend URL, timeout, ID policy)
//   - ServerConfig: chat backend settings (listen address, CORS, quotas, storage)
//   - LLMConfig: upstream model settings (Mistral key, model, sampling)
//   - LogConfig: log level and destination
//   - Watcher: reloads the config file when it changes on disk
//
// # Configuration Precedence
//
// Highest first:
//   - Environment variables (FOLIO_*, MISTRAL_API_KEY, REDIS_URL)
//   - .env in the working directory, then ~/.folio/.env
//   - ~/.folio/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := backend.NewClient(cfg.Widget.BackendURL)
package config
