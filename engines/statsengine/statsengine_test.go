// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package statsengine_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/engines/statsengine"
	"github.com/qwed-gateway/qwed/sandbox"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

type stubFrames struct {
	data []byte
	err  error
}

func (s stubFrames) LoadFrame(ctx context.Context, ref string) ([]byte, error) {
	return s.data, s.err
}

func newEngine(t *testing.T, frame []byte) *statsengine.Engine {
	t.Helper()
	runner := sandbox.New("", sandbox.DefaultLimits(), nil)
	return statsengine.New(runner, stubFrames{data: frame})
}

func TestEngineVerifiesStatsTask(t *testing.T) {
	frame, err := json.Marshal(map[string][]float64{"age": {10, 20, 30}})
	require.NoError(t, err)
	e := newEngine(t, frame)

	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Stats: &schema.StatsTask{Code: "mean(df.age)", FrameRef: "df", Columns: []string{"age"}},
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictVerified, result.Verdict)
	require.InDelta(t, 20, result.FinalAnswer.(float64), 1e-9)
}

func TestEngineRejectsUndeclaredColumnReference(t *testing.T) {
	frame, err := json.Marshal(map[string][]float64{"age": {10, 20, 30}})
	require.NoError(t, err)
	e := newEngine(t, frame)

	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Stats: &schema.StatsTask{Code: "mean(df.salary)", FrameRef: "df", Columns: []string{"age"}},
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictUnsafe, result.Verdict)
}
