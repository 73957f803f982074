// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package apierr defines the gateway's error kinds and their uniform
// mapping onto HTTP status codes and response envelopes.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for status-code mapping and logging.
type Kind string

const (
	KindAuth             Kind = "auth"              // missing/invalid/expired key -> 401
	KindAuthz            Kind = "authz"             // RBAC/quota/tenant mismatch -> 403
	KindAdmission        Kind = "admission"         // policy gate block -> 400, status=BLOCKED
	KindRateLimit        Kind = "rate_limit"        // -> 429 with Retry-After
	KindTranslation      Kind = "translation"       // provider failure after reflection -> 200 status=FAILED
	KindParse            Kind = "parse"             // DSL parse/compile failure -> 200 status=FAILED
	KindSandbox          Kind = "sandbox"           // timeout/OOM/grammar violation -> 200 status=UNSAFE|ERROR
	KindEngine           Kind = "engine"            // solver crash after retry -> 500
	KindConsensusDispute Kind = "consensus_dispute" // -> 200 status=DISPUTED
	KindInternal         Kind = "internal"          // -> 500
	KindDeadline         Kind = "deadline"          // -> 504
)

// Error is the gateway's uniform error type. Handlers switch on Kind to
// decide the HTTP status and whether to write a SecurityEvent.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter float64 // seconds, only meaningful for KindRateLimit
	Layer      string  // only meaningful for KindAdmission
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of kind with message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of kind wrapping err, matching the gateway's
// fmt.Errorf("...: %w", err) idiom elsewhere.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// HTTPStatus maps err onto a response status code per the gateway's error
// design. Errors that are not *Error default to 500.
func HTTPStatus(err error) int {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch apiErr.Kind {
	case KindAuth:
		return http.StatusUnauthorized
	case KindAuthz:
		return http.StatusForbidden
	case KindAdmission:
		return http.StatusBadRequest
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindDeadline:
		return http.StatusGatewayTimeout
	case KindTranslation, KindParse, KindSandbox, KindConsensusDispute:
		// These kinds terminate the pipeline with a 200 and a non-VERIFIED
		// status in the response envelope rather than an HTTP error.
		return http.StatusOK
	case KindEngine, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
