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

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWellFormed(t *testing.T) {
	tests := []string{
		`(AND (GT x 5) (LT x 10))`,
		`(IMPLIES (GT x 0) (GT (MUL x x) 0))`,
		`(FORALL ((x Int)) (GE (MUL x x) 0))`,
		`(ITE (GT x 0) x (NEG x))`,
		`(PROGRAM (ASSERT (EQ x 5)))`,
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			node, err := Parse(src)
			require.NoError(t, err)
			require.NotNil(t, node)
		})
	}
}

func TestParseRejectsUnsafeInput(t *testing.T) {
	tests := []string{
		`(AND (GT x 5`,             // unbalanced
		`)`,                        // stray close paren
		`(EXEC (GT x 5))`,          // disallowed operator
		`(GT os.system 5)`,         // dotted identifier
		`(GT __import__ 5)`,        // double underscore
		`(and (gt x 5) (lt x 10))`, // lowercase operator not whitelisted
		`(GT "unterminated`,        // unterminated string
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			require.Error(t, err)
			var dslErr *Error
			require.True(t, errors.As(err, &dslErr))
			require.Equal(t, ErrUnsafeDSL, dslErr.Code)
		})
	}
}

func TestParseIsTotalNeverPanics(t *testing.T) {
	inputs := []string{
		"", "(", ")", "((((", "))))", "(((AND)))", `"`, "\x00\x01",
		"(AND (OR (NOT (GT x y))))",
	}
	for _, src := range inputs {
		require.NotPanics(t, func() {
			_, _ = Parse(src)
		})
	}
}

func TestCompileRejectsMixedTyping(t *testing.T) {
	node, err := Parse(`(AND (GT x 5) x)`)
	require.NoError(t, err)
	_, err = Compile(node)
	require.Error(t, err)
	var dslErr *Error
	require.True(t, errors.As(err, &dslErr))
	require.Equal(t, ErrTypeMismatch, dslErr.Code)
}

func TestCompileAcceptsWellTypedProgram(t *testing.T) {
	node, err := Parse(`(AND (GT x 5) (LT x 10))`)
	require.NoError(t, err)
	program, err := Compile(node)
	require.NoError(t, err)
	require.Equal(t, TypeInt, program.VarTypes["x"])
}
