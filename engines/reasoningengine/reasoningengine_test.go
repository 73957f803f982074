// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reasoningengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/engines/reasoningengine"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

type stubDispatcher struct {
	results map[schema.Kind]schema.VerificationResult
	calls   []schema.Kind
}

func (s *stubDispatcher) Verify(ctx context.Context, kind schema.Kind, task schema.TranslationTask) (schema.VerificationResult, error) {
	s.calls = append(s.calls, kind)
	return s.results[kind], nil
}

func TestEngineVerifiesAllStepsInOrder(t *testing.T) {
	d := &stubDispatcher{results: map[schema.Kind]schema.VerificationResult{
		schema.KindLogic: {Verdict: schema.VerdictSAT},
		schema.KindFact:  {Verdict: schema.VerdictSupported},
	}}
	e := reasoningengine.New(d)
	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Reasoning: &schema.ReasoningTask{Steps: []schema.ReasoningStep{
			{Kind: schema.KindLogic, Text: "step one"},
			{Kind: schema.KindFact, Text: "step two"},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictVerified, result.Verdict)
	require.Equal(t, []schema.Kind{schema.KindLogic, schema.KindFact}, d.calls)
}

func TestEngineShortCircuitsOnFirstFailingStep(t *testing.T) {
	d := &stubDispatcher{results: map[schema.Kind]schema.VerificationResult{
		schema.KindLogic: {Verdict: schema.VerdictUNSAT},
		schema.KindFact:  {Verdict: schema.VerdictSupported},
	}}
	e := reasoningengine.New(d)
	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Reasoning: &schema.ReasoningTask{Steps: []schema.ReasoningStep{
			{Kind: schema.KindLogic, Text: "step one"},
			{Kind: schema.KindFact, Text: "never reached"},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictRefuted, result.Verdict)
	require.Equal(t, []schema.Kind{schema.KindLogic}, d.calls)
}

func TestEngineRejectsEmptyChain(t *testing.T) {
	e := reasoningengine.New(&stubDispatcher{})
	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Reasoning: &schema.ReasoningTask{},
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictError, result.Verdict)
}
