// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package consensus runs a request through multiple verification engines
// and aggregates their verdicts into a single confidence-scored result,
// per SINGLE/HIGH/MAXIMUM consensus modes.
package consensus

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// Verifier produces one engine's opinion on the same underlying request.
// The control plane supplies one closure per applicable engine (bound to
// its own translated task), in priority order; Run uses only as many as
// the requested mode calls for.
type Verifier func(ctx context.Context) (schema.VerificationResult, error)

// EngineOutcome is one engine's contribution to a consensus result.
type EngineOutcome struct {
	Index  int
	Result schema.VerificationResult
	Err    error
}

// Breakdown is the per-engine detail attached to a consensus result's
// Payload, letting a caller see exactly what each engine returned.
type Breakdown struct {
	AgreementStatus string // "unanimous", "majority", "split", "single", or "all_failed"
	Outcomes        []EngineOutcome
}

// Aggregator runs N verifiers concurrently under a shared deadline and
// combines their verdicts.
type Aggregator struct{}

// New builds an Aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// enginesForMode returns how many of the supplied verifiers mode calls for.
func enginesForMode(mode schema.ConsensusMode, available int) int {
	switch mode {
	case schema.ConsensusSingle:
		return min(1, available)
	case schema.ConsensusHigh:
		return min(2, available)
	case schema.ConsensusMaximum:
		return available
	default:
		return min(1, available)
	}
}

// Run executes as many verifiers as mode requires, in parallel, under
// ctx's deadline (golang.org/x/sync/errgroup.WithContext, matching the
// fan-out-with-shared-context idiom used throughout the translation and
// provider-routing layers), then computes the consensus verdict.
//
// An individual verifier's non-nil error (a crashed or unreachable
// engine) is treated the same as that engine returning VerdictError: it
// is recorded in the breakdown but dropped before voting, matching the
// success-filtering done before agreement is calculated.
func (a *Aggregator) Run(ctx context.Context, mode schema.ConsensusMode, verifiers []Verifier) (schema.VerificationResult, error) {
	n := enginesForMode(mode, len(verifiers))
	if n == 0 {
		return schema.VerificationResult{}, fmt.Errorf("consensus: no verifiers available for mode %s", mode)
	}

	outcomes := make([]EngineOutcome, n)
	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		group.Go(func() error {
			result, err := verifiers[i](groupCtx)
			outcomes[i] = EngineOutcome{Index: i, Result: result, Err: err}
			return nil // engine failures are data, not fatal to the fan-out
		})
	}
	if err := group.Wait(); err != nil {
		return schema.VerificationResult{}, fmt.Errorf("consensus: fan-out failed: %w", err)
	}

	successful := make([]EngineOutcome, 0, n)
	for _, o := range outcomes {
		if o.Err == nil && o.Result.Verdict != schema.VerdictError {
			successful = append(successful, o)
		}
	}
	if len(successful) == 0 {
		return schema.VerificationResult{
			Verdict:    schema.VerdictError,
			Diagnostic: "consensus: every engine failed or errored",
			Payload:    Breakdown{AgreementStatus: "all_failed", Outcomes: outcomes},
		}, nil
	}

	switch mode {
	case schema.ConsensusSingle:
		return successful[0].Result, nil
	case schema.ConsensusHigh:
		return a.aggregateHigh(successful, outcomes), nil
	default:
		return a.aggregateMaximum(successful, outcomes), nil
	}
}

// aggregateHigh implements §4.9's HIGH rule: both engines agree ⇒
// confidence 0.95; disagree ⇒ DISPUTED at confidence 0.55.
func (a *Aggregator) aggregateHigh(successful, all []EngineOutcome) schema.VerificationResult {
	if len(successful) == 1 {
		result := successful[0].Result
		result.Payload = Breakdown{AgreementStatus: "single", Outcomes: all}
		return result
	}

	agree := successful[0].Result.Verdict == successful[1].Result.Verdict
	if agree {
		result := successful[0].Result
		result.Confidence = 0.95
		result.Payload = Breakdown{AgreementStatus: "unanimous", Outcomes: all}
		return result
	}

	result := successful[0].Result
	result.Verdict = schema.VerdictDisputed
	result.Confidence = 0.55
	result.Payload = Breakdown{AgreementStatus: "split", Outcomes: all}
	return result
}

// aggregateMaximum implements §4.9's MAXIMUM rule: strict majority ⇒
// confidence 0.90; no majority ⇒ DISPUTED at the plurality's share.
func (a *Aggregator) aggregateMaximum(successful, all []EngineOutcome) schema.VerificationResult {
	counts := make(map[schema.Verdict]int)
	for _, o := range successful {
		counts[o.Result.Verdict]++
	}

	var pluralityCount int
	var pluralityResult schema.VerificationResult
	for _, o := range successful {
		if c := counts[o.Result.Verdict]; c > pluralityCount {
			pluralityCount = c
			pluralityResult = o.Result
		}
	}

	total := len(successful)
	if pluralityCount*2 > total {
		result := pluralityResult
		result.Confidence = 0.90
		result.Payload = Breakdown{AgreementStatus: "majority", Outcomes: all}
		return result
	}

	result := pluralityResult
	result.Verdict = schema.VerdictDisputed
	result.Confidence = float64(pluralityCount) / float64(total)
	result.Payload = Breakdown{AgreementStatus: "split", Outcomes: all}
	return result
}
