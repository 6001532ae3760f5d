// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend is the HTTP client for the portfolio chat backend.
//
// The contract is a single endpoint:
//
//	POST {base}/api/chat   {"message": "..."}
//	2xx                    {"response": "..."}
//	non-2xx                {"detail": "..."} (optional)
//
// Non-2xx answers surface as *StatusError. A 2xx without a usable string
// response surfaces as a *StatusError wrapping ErrMalformedResponse.
// Network failures are returned unchanged so callers can tell them apart.
package backend
