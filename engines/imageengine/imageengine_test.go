// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package imageengine_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/engines/imageengine"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

type stubVerifier struct {
	label     imageengine.Label
	rationale string
	err       error
}

func (s stubVerifier) VerifyImage(ctx context.Context, imageBytes []byte, claim string) (imageengine.Label, string, error) {
	return s.label, s.rationale, s.err
}

func TestEngineSupportedVerdict(t *testing.T) {
	e := imageengine.New(stubVerifier{label: imageengine.LabelSupported, rationale: "the chart shows an upward trend"})
	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Image: &schema.ImageTask{ImageBytes: []byte{0xFF, 0xD8}, Claim: "the chart trends upward"},
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictSupported, result.Verdict)
}

func TestEngineRejectsOverlongClaim(t *testing.T) {
	e := imageengine.New(stubVerifier{})
	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Image: &schema.ImageTask{ImageBytes: []byte{0xFF}, Claim: strings.Repeat("a", 2001)},
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictUnsafe, result.Verdict)
}

func TestEngineRejectsEmptyImage(t *testing.T) {
	e := imageengine.New(stubVerifier{})
	result, err := e.Verify(context.Background(), schema.TranslationTask{
		Image: &schema.ImageTask{Claim: "anything"},
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictError, result.Verdict)
}
