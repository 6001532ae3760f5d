// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widget

import "fmt"

// =============================================================================
// FAILURE KINDS
// =============================================================================

// FailureKind tags why a request did not produce an answer.
type FailureKind int

const (
	// KindGeneric covers any failure not matched below.
	KindGeneric FailureKind = iota

	// KindQuotaExceeded is a 429 from the backend.
	KindQuotaExceeded

	// KindAuthMisconfigured is a 401: the backend's model credential is
	// missing or invalid.
	KindAuthMisconfigured

	// KindMalformedResponse is a 2xx whose body has no usable response.
	KindMalformedResponse

	// KindTransportFailure is a network, DNS, timeout or cancellation error.
	KindTransportFailure
)

// String returns the kind name used in logs and metrics.
func (k FailureKind) String() string {
	switch k {
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindAuthMisconfigured:
		return "auth_misconfigured"
	case KindMalformedResponse:
		return "malformed_response"
	case KindTransportFailure:
		return "transport_failure"
	default:
		return "generic"
	}
}

// KindForStatus maps an HTTP status to a failure kind.
func KindForStatus(status int) FailureKind {
	switch status {
	case 429:
		return KindQuotaExceeded
	case 401:
		return KindAuthMisconfigured
	default:
		return KindGeneric
	}
}

// =============================================================================
// RESULT
// =============================================================================

// Result is the outcome of one dispatched request.
type Result struct {
	ok      bool
	content string

	Kind   FailureKind
	Status int    // HTTP status, 0 when none was received
	Detail string // structured detail from the backend body, if any
}

// Success builds a successful result carrying the reply verbatim.
func Success(content string) Result {
	return Result{ok: true, content: content}
}

// Failure builds a failed result.
func Failure(kind FailureKind, status int, detail string) Result {
	return Result{Kind: kind, Status: status, Detail: detail}
}

// OK reports whether the request succeeded.
func (r Result) OK() bool {
	return r.ok
}

// Content returns the reply of a successful result, or "" for failures.
func (r Result) Content() string {
	return r.content
}

// Text is what the assistant message shows: the reply on success, the
// classified message otherwise.
func (r Result) Text() string {
	if r.ok {
		return r.content
	}
	return Classify(r)
}

// String implements fmt.Stringer for logging.
func (r Result) String() string {
	if r.ok {
		return fmt.Sprintf("success(%d bytes)", len(r.content))
	}
	return fmt.Sprintf("failure(%s, status=%d, detail=%q)", r.Kind, r.Status, r.Detail)
}
