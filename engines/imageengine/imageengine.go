// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package imageengine verifies a claim against image bytes by
// delegating to a bound multimodal verifier, mirroring factengine's
// citation-retrieval-plus-judge split but for a single opaque
// verification call rather than a retrieval step.
package imageengine

import (
	"context"
	"fmt"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// maxClaimLength matches the admission-layer cap so a claim that would
// already have been blocked at the gate can't slip through an image
// task's free-text field instead.
const maxClaimLength = 2000

// MultimodalVerifier judges whether claim is supported by the given
// image bytes, returning a human-readable rationale alongside the
// verdict label.
type MultimodalVerifier interface {
	VerifyImage(ctx context.Context, imageBytes []byte, claim string) (Label, string, error)
}

// Label is the multimodal verifier's raw judgment.
type Label string

const (
	LabelSupported     Label = "supported"
	LabelRefuted       Label = "refuted"
	LabelNotEnoughInfo Label = "not_enough_info"
)

// Engine adapts a MultimodalVerifier to engines.Engine for
// schema.ImageTask payloads.
type Engine struct {
	verifier MultimodalVerifier
}

// New builds an image verification Engine.
func New(verifier MultimodalVerifier) *Engine {
	return &Engine{verifier: verifier}
}

func (e *Engine) Verify(ctx context.Context, task schema.TranslationTask) (schema.VerificationResult, error) {
	if task.Image == nil {
		return schema.VerificationResult{}, fmt.Errorf("imageengine: task has no Image payload")
	}
	if len(task.Image.Claim) > maxClaimLength {
		return schema.VerificationResult{
			Verdict:    schema.VerdictUnsafe,
			Diagnostic: fmt.Sprintf("claim exceeds %d characters", maxClaimLength),
		}, nil
	}
	if len(task.Image.ImageBytes) == 0 {
		return schema.VerificationResult{Verdict: schema.VerdictError, Diagnostic: "no image bytes provided"}, nil
	}

	label, rationale, err := e.verifier.VerifyImage(ctx, task.Image.ImageBytes, task.Image.Claim)
	if err != nil {
		return schema.VerificationResult{}, fmt.Errorf("imageengine: %w", err)
	}

	return schema.VerificationResult{
		Verdict:    verdictForLabel(label),
		Diagnostic: rationale,
	}, nil
}

func verdictForLabel(label Label) schema.Verdict {
	switch label {
	case LabelSupported:
		return schema.VerdictSupported
	case LabelRefuted:
		return schema.VerdictRefuted
	default:
		return schema.VerdictUnknown
	}
}
