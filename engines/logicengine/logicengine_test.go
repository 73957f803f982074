// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logicengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/dsl/mocksolver"
	"github.com/qwed-gateway/qwed/engines/logicengine"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

func TestEngineSatisfiableClaim(t *testing.T) {
	e := logicengine.New(mocksolver.New())
	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Logic: &schema.LogicTask{DSL: "(ASSERT (AND (GT x 5) (LT x 10)))"},
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictSAT, result.Verdict)
}

func TestEngineUnsatisfiableClaim(t *testing.T) {
	e := logicengine.New(mocksolver.New())
	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Logic: &schema.LogicTask{DSL: "(ASSERT (AND (GT x 5) (LT x 5)))"},
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictUNSAT, result.Verdict)
}

func TestEngineRejectsUnsafeDSL(t *testing.T) {
	e := logicengine.New(mocksolver.New())
	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Logic: &schema.LogicTask{DSL: "(EXEC (EQ 1 1))"},
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictUnsafe, result.Verdict)
}
