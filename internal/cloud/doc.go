// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud calls the upstream chat model for the folio backend.
//
// The provider is Mistral's OpenAI-compatible chat completions API, reached
// through go-openai with a custom base URL. Provider failures are mapped to
// sentinel errors so the HTTP layer can pick a status without knowing the
// SDK:
//
//   - ErrNotConfigured: no API key
//   - ErrAuthFailed: 401/403 from the provider
//   - ErrRateLimited: 429 from the provider
//   - ErrEmptyResponse: a completion without content
//
// Any other failure is returned wrapped and maps to a generic server error.
package cloud
