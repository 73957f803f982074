// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sandbox_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/sandbox"
)

func TestFallbackEvaluatorComputesMean(t *testing.T) {
	f := sandbox.NewFallbackEvaluator()
	frame, _ := json.Marshal(map[string][]float64{"age": {10, 20, 30}})

	out, err := f.Eval(context.Background(), "mean(df.age)", frame)
	require.NoError(t, err)

	var decoded map[string]float64
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.InDelta(t, 20, decoded["result"], 1e-9)
}

func TestFallbackEvaluatorRejectsDisallowedToken(t *testing.T) {
	f := sandbox.NewFallbackEvaluator()
	frame, _ := json.Marshal(map[string][]float64{"age": {1, 2}})

	_, err := f.Eval(context.Background(), "__import__('os').system('rm -rf /')", frame)
	require.Error(t, err)
}

func TestFallbackEvaluatorRejectsColumnOutsideAggregateCall(t *testing.T) {
	f := sandbox.NewFallbackEvaluator()
	frame, _ := json.Marshal(map[string][]float64{"age": {1, 2}})

	_, err := f.Eval(context.Background(), "df.age + 1", frame)
	require.Error(t, err)
}

func TestFallbackEvaluatorCombinesArithmeticAcrossAggregates(t *testing.T) {
	f := sandbox.NewFallbackEvaluator()
	frame, _ := json.Marshal(map[string][]float64{"age": {10, 20, 30}})

	out, err := f.Eval(context.Background(), "max(df.age) - min(df.age)", frame)
	require.NoError(t, err)

	var decoded map[string]float64
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.InDelta(t, 20, decoded["result"], 1e-9)
}
