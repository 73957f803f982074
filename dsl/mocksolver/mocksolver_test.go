// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mocksolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/dsl"
)

func solve(t *testing.T, src string) *dsl.SolveResult {
	t.Helper()
	node, err := dsl.Parse(src)
	require.NoError(t, err)
	program, err := dsl.Compile(node)
	require.NoError(t, err)
	result, err := New().Solve(context.Background(), program)
	require.NoError(t, err)
	return result
}

func TestSolveSatisfiableConjunction(t *testing.T) {
	result := solve(t, `(AND (GT x 5) (LT x 10))`)
	require.Equal(t, dsl.StatusSAT, result.Status)
	x, ok := result.Model["x"].(int)
	require.True(t, ok)
	require.Greater(t, x, 5)
	require.Less(t, x, 10)
}

func TestSolveUnsatisfiableConjunction(t *testing.T) {
	result := solve(t, `(AND (GT x 5) (LT x 5))`)
	require.Equal(t, dsl.StatusUNSAT, result.Status)
}

func TestSolveGroundClaimWithNoFreeVariables(t *testing.T) {
	result := solve(t, `(GT 10 5)`)
	require.Equal(t, dsl.StatusSAT, result.Status)
	require.Empty(t, result.Model)
}

func TestSolveGroundClaimFalse(t *testing.T) {
	result := solve(t, `(LT 10 5)`)
	require.Equal(t, dsl.StatusUNSAT, result.Status)
}
