// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reasoningengine verifies a chain of independently-checkable
// claims by dispatching each step back through the shared engine
// dispatcher for its own declared kind, short-circuiting at the first
// step that fails to verify.
package reasoningengine

import (
	"context"
	"fmt"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// StepDispatcher is the subset of engines.Dispatcher reasoningengine
// needs; declared locally so this package does not import engines and
// create a dependency from the top-level package back down into one of
// its own registered engines.
type StepDispatcher interface {
	Verify(ctx context.Context, kind schema.Kind, task schema.TranslationTask) (schema.VerificationResult, error)
}

// Engine verifies schema.ReasoningTask payloads by checking every step
// in order.
type Engine struct {
	dispatcher StepDispatcher
}

// New builds a reasoning Engine bound to dispatcher, which it calls back
// into once per chain step.
func New(dispatcher StepDispatcher) *Engine {
	return &Engine{dispatcher: dispatcher}
}

// StepResult pairs one chain step's verdict with its index and source
// text, mirroring src/qwed_new/core/consensus_verifier.py's
// verification_chain record of every intermediate EngineResult.
type StepResult struct {
	Index  int
	Text   string
	Result schema.VerificationResult
}

func (e *Engine) Verify(ctx context.Context, task schema.TranslationTask) (schema.VerificationResult, error) {
	if task.Reasoning == nil {
		return schema.VerificationResult{}, fmt.Errorf("reasoningengine: task has no Reasoning payload")
	}
	if len(task.Reasoning.Steps) == 0 {
		return schema.VerificationResult{Verdict: schema.VerdictError, Diagnostic: "reasoning chain has no steps"}, nil
	}

	chain := make([]StepResult, 0, len(task.Reasoning.Steps))
	for i, step := range task.Reasoning.Steps {
		stepResult, err := e.dispatcher.Verify(ctx, step.Kind, step.Payload)
		if err != nil {
			return schema.VerificationResult{
				Verdict:    schema.VerdictError,
				Payload:    chain,
				Diagnostic: fmt.Sprintf("step %d (%s): %v", i, step.Kind, err),
			}, nil
		}
		chain = append(chain, StepResult{Index: i, Text: step.Text, Result: stepResult})

		if !stepSucceeded(stepResult.Verdict) {
			return schema.VerificationResult{
				Verdict:    schema.VerdictRefuted,
				Payload:    chain,
				Diagnostic: fmt.Sprintf("step %d (%s) failed: %s", i, step.Kind, stepResult.Verdict),
			}, nil
		}
	}

	return schema.VerificationResult{
		Verdict: schema.VerdictVerified,
		Payload: chain,
	}, nil
}

// stepSucceeded reports whether a step's verdict is strong enough to let
// the chain continue to its next step.
func stepSucceeded(v schema.Verdict) bool {
	switch v {
	case schema.VerdictVerified, schema.VerdictCorrected, schema.VerdictSupported, schema.VerdictSAT:
		return true
	default:
		return false
	}
}
