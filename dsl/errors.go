// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dsl

import "fmt"

// ErrorCode classifies a structured DSL failure.
type ErrorCode string

const (
	// ErrUnsafeDSL covers every parser-level rejection: disallowed
	// operator, dotted identifier, host attribute access, unbalanced
	// parens, malformed literal. The wire-level name is fixed by the
	// grammar ("UNSAFE_DSL") and must not vary across implementations.
	ErrUnsafeDSL ErrorCode = "UNSAFE_DSL"

	// ErrTypeMismatch covers compiler-level type inference failures:
	// mixed boolean/arithmetic typing, an identifier used at two types.
	ErrTypeMismatch ErrorCode = "TYPE_MISMATCH"
)

// Error is the DSL package's structured failure type. Offset is a byte
// offset into the original source, so callers can render a caret under the
// failing token without re-scanning.
type Error struct {
	Code    ErrorCode
	Message string
	Offset  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at byte %d: %s", e.Code, e.Offset, e.Message)
}
