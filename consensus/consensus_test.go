// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package consensus_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/consensus"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

func verdictVerifier(v schema.Verdict) consensus.Verifier {
	return func(ctx context.Context) (schema.VerificationResult, error) {
		return schema.VerificationResult{Verdict: v}, nil
	}
}

func TestAggregatorSingleModePassesThrough(t *testing.T) {
	agg := consensus.New()
	result, err := agg.Run(context.Background(), schema.ConsensusSingle, []consensus.Verifier{
		verdictVerifier(schema.VerdictVerified),
		verdictVerifier(schema.VerdictRefuted),
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictVerified, result.Verdict)
}

func TestAggregatorHighModeAgreementYieldsHighConfidence(t *testing.T) {
	agg := consensus.New()
	result, err := agg.Run(context.Background(), schema.ConsensusHigh, []consensus.Verifier{
		verdictVerifier(schema.VerdictVerified),
		verdictVerifier(schema.VerdictVerified),
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictVerified, result.Verdict)
	require.InDelta(t, 0.95, result.Confidence, 1e-9)
}

func TestAggregatorHighModeDisagreementIsDisputed(t *testing.T) {
	agg := consensus.New()
	result, err := agg.Run(context.Background(), schema.ConsensusHigh, []consensus.Verifier{
		verdictVerifier(schema.VerdictVerified),
		verdictVerifier(schema.VerdictRefuted),
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictDisputed, result.Verdict)
	require.InDelta(t, 0.55, result.Confidence, 1e-9)
}

func TestAggregatorMaximumModeStrictMajority(t *testing.T) {
	agg := consensus.New()
	result, err := agg.Run(context.Background(), schema.ConsensusMaximum, []consensus.Verifier{
		verdictVerifier(schema.VerdictVerified),
		verdictVerifier(schema.VerdictVerified),
		verdictVerifier(schema.VerdictRefuted),
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictVerified, result.Verdict)
	require.InDelta(t, 0.90, result.Confidence, 1e-9)
}

func TestAggregatorMaximumModeNoMajorityIsDisputedAtPluralityShare(t *testing.T) {
	agg := consensus.New()
	result, err := agg.Run(context.Background(), schema.ConsensusMaximum, []consensus.Verifier{
		verdictVerifier(schema.VerdictVerified),
		verdictVerifier(schema.VerdictRefuted),
		verdictVerifier(schema.VerdictUnknown),
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictDisputed, result.Verdict)
	require.InDelta(t, 1.0/3.0, result.Confidence, 1e-9)
}

func TestAggregatorDropsErrorVerdictsBeforeVoting(t *testing.T) {
	agg := consensus.New()
	result, err := agg.Run(context.Background(), schema.ConsensusHigh, []consensus.Verifier{
		verdictVerifier(schema.VerdictVerified),
		verdictVerifier(schema.VerdictError),
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictVerified, result.Verdict)
}

func TestAggregatorAllFailedReturnsError(t *testing.T) {
	agg := consensus.New()
	result, err := agg.Run(context.Background(), schema.ConsensusSingle, []consensus.Verifier{
		verdictVerifier(schema.VerdictError),
	})
	require.NoError(t, err)
	require.Equal(t, schema.VerdictError, result.Verdict)
}
