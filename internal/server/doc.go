// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server is the chat backend the portfolio widget posts to.
//
// # Endpoints
//
//   - POST /api/chat - {"message"} in, {"response"} or {"detail"} out
//   - GET  /health   - store and upstream status
//   - GET  /metrics  - Prometheus exposition (when enabled)
//
// Each chat request is checked against a per-client token bucket and a
// daily quota, persisted to the history store, and answered by the
// upstream model with the system prompt and the most recent history rows
// as context. Upstream credential and rate-limit failures map to 401 and
// 429 with a detail the widget shows verbatim.
//
// # Usage
//
//	srv := server.New(cloudClient, store, server.OptionsFromConfig(cfg))
//	if err := srv.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
