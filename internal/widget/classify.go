// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widget

import "strings"

// ContactEmail is the address visitors are pointed at when the demo quota
// runs out.
const ContactEmail = "anmolkashyap12420@gmail.com"

// User-facing failure messages.
const (
	QuotaMessage   = "⏳ Demo limit reached for today — free-tier quota exhausted. Try again tomorrow or email " + ContactEmail + "!"
	AuthMessage    = "🔑 API key not configured. Please check the backend .env file."
	GenericMessage = "Something went wrong. Please try again."
)

// Classify maps a failed result to display text. First match wins:
// backend detail, then 429, then 401, then the generic fallback.
// A detail that is blank after trimming counts as absent.
func Classify(r Result) string {
	if strings.TrimSpace(r.Detail) != "" {
		return r.Detail
	}
	switch r.Status {
	case 429:
		return QuotaMessage
	case 401:
		return AuthMessage
	default:
		return GenericMessage
	}
}
