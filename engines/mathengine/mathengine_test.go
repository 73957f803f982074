// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mathengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/engines/mathengine"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

func TestEvalOperatorPrecedenceAndAssociativity(t *testing.T) {
	v, err := mathengine.Eval("2 + 3 * 4 - 2 ^ 3 ^ 2")
	require.NoError(t, err)
	// 2^3^2 is right-associative => 2^9 = 512; 2 + 12 - 512 = -498.
	require.InDelta(t, -498, v, 1e-9)
}

func TestEvalDivisionByZero(t *testing.T) {
	_, err := mathengine.Eval("1 / 0")
	require.Error(t, err)
}

func TestEvalRejectsIdentifiers(t *testing.T) {
	_, err := mathengine.Eval("2 + x")
	require.Error(t, err)
}

func TestEvalWhitelistedFunctionCall(t *testing.T) {
	v, err := mathengine.Eval("sqrt(16) + abs(-4)")
	require.NoError(t, err)
	require.InDelta(t, 8, v, 1e-9)
}

func TestEvalDoubleStarIsAliasForCaret(t *testing.T) {
	v, err := mathengine.Eval("2 ** 10")
	require.NoError(t, err)
	require.InDelta(t, 1024, v, 1e-9)
}

func TestEngineVerifiesMatchingClaim(t *testing.T) {
	e := mathengine.New()
	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Math: &schema.MathTask{Expression: "7 * 6", ClaimedResult: 42, HasClaimed: true},
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictVerified, result.Verdict)
}

func TestEngineCorrectsMismatchedClaim(t *testing.T) {
	e := mathengine.New()
	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Math: &schema.MathTask{Expression: "7 * 6", ClaimedResult: 40, HasClaimed: true, Reasoning: "because"},
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictCorrected, result.Verdict)
	require.NotNil(t, result.Correction)
	require.InDelta(t, 2.0, result.Correction.Diff, 1e-9)
	require.Contains(t, result.Correction.Rendered, "computed")
}
