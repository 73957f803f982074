// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package factengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/engines/factengine"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

type stubRetriever struct {
	spans []factengine.CitationSpan
}

func (s stubRetriever) Retrieve(ctx context.Context, query string, limit int) ([]factengine.CitationSpan, error) {
	return s.spans, nil
}

type stubChecker struct {
	label factengine.Label
}

func (s stubChecker) Check(ctx context.Context, claim string, spans []factengine.CitationSpan) (factengine.Label, error) {
	return s.label, nil
}

func TestEngineSupportedVerdict(t *testing.T) {
	e := factengine.New(
		stubRetriever{spans: []factengine.CitationSpan{{DocumentID: "d1", Text: "the sky is blue"}}},
		stubChecker{label: factengine.LabelSupported},
	)
	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Fact: &schema.FactTask{Claim: "the sky is blue"},
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictSupported, result.Verdict)
}

func TestEngineRejectsOverlongClaim(t *testing.T) {
	e := factengine.New(stubRetriever{}, stubChecker{})
	longClaim := make([]byte, 2001)
	for i := range longClaim {
		longClaim[i] = 'a'
	}
	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Fact: &schema.FactTask{Claim: string(longClaim)},
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictUnsafe, result.Verdict)
}

func TestProviderFactCheckerNormalizesLabel(t *testing.T) {
	checker := factengine.NewProviderFactChecker(func(ctx context.Context, claim, contextText string) (*schema.FactTask, error) {
		return &schema.FactTask{Verdict: "REFUTED"}, nil
	})
	label, err := checker.Check(context.Background(), "claim", []factengine.CitationSpan{{Text: "x"}})
	require.NoError(t, err)
	require.Equal(t, factengine.LabelRefuted, label)
}
