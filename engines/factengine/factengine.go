// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package factengine verifies a claim against retrieved context, asking
// the bound FactChecker whether the citations it retrieved support,
// refute, or leave undetermined the claim.
package factengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

const maxClaimLength = 2000

// Label is a FactChecker's judgment of a claim against retrieved context.
type Label string

const (
	LabelSupported     Label = "SUPPORTED"
	LabelRefuted       Label = "REFUTED"
	LabelNotEnoughInfo Label = "NOT_ENOUGH_INFO"
)

// FactChecker labels a claim given the spans CitationRetriever surfaced.
type FactChecker interface {
	Check(ctx context.Context, claim string, spans []CitationSpan) (Label, error)
}

// Engine verifies FactTasks: it retrieves citation spans for the claim,
// then asks the bound FactChecker to label the claim against those
// spans — so every citation the caller sees was actually retrieved,
// never invented by the labeling step.
type Engine struct {
	retriever CitationRetriever
	checker   FactChecker
	topK      int
}

// New builds a fact verification Engine.
func New(retriever CitationRetriever, checker FactChecker) *Engine {
	return &Engine{retriever: retriever, checker: checker, topK: 5}
}

func (e *Engine) Verify(ctx context.Context, task schema.TranslationTask) (schema.VerificationResult, error) {
	if task.Fact == nil {
		return schema.VerificationResult{}, fmt.Errorf("factengine: no FactTask in translation payload")
	}
	f := task.Fact
	claim := strings.TrimSpace(f.Claim)
	if len(claim) > maxClaimLength {
		return schema.VerificationResult{
			Verdict:    schema.VerdictUnsafe,
			Diagnostic: fmt.Sprintf("factengine: claim exceeds %d character admission cap", maxClaimLength),
		}, nil
	}

	query := claim
	if f.ContextText != "" {
		query = f.ContextText + " " + claim
	}

	spans, err := e.retriever.Retrieve(ctx, query, e.topK)
	if err != nil {
		return schema.VerificationResult{Verdict: schema.VerdictError, Diagnostic: err.Error()}, nil
	}

	label, err := e.checker.Check(ctx, claim, spans)
	if err != nil {
		return schema.VerificationResult{Verdict: schema.VerdictError, Diagnostic: err.Error()}, nil
	}

	verdict := schema.VerdictUnknown
	switch label {
	case LabelSupported:
		verdict = schema.VerdictSupported
	case LabelRefuted:
		verdict = schema.VerdictRefuted
	case LabelNotEnoughInfo:
		verdict = schema.VerdictUnknown
	}

	return schema.VerificationResult{
		Verdict:     verdict,
		FinalAnswer: string(label),
		Payload:     spans,
	}, nil
}

// ProviderFactChecker adapts a providers.Provider's VerifyFact capability
// to the FactChecker interface, formatting the retrieved spans into the
// provider's context argument so the label it returns is always grounded
// in citations the engine actually fetched.
type ProviderFactChecker struct {
	verify func(ctx context.Context, claim, contextText string) (*schema.FactTask, error)
}

// NewProviderFactChecker builds a ProviderFactChecker around a
// providers.Provider's VerifyFact method.
func NewProviderFactChecker(verify func(ctx context.Context, claim, contextText string) (*schema.FactTask, error)) *ProviderFactChecker {
	return &ProviderFactChecker{verify: verify}
}

func (c *ProviderFactChecker) Check(ctx context.Context, claim string, spans []CitationSpan) (Label, error) {
	if len(spans) == 0 {
		return LabelNotEnoughInfo, nil
	}
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
		b.WriteString("\n")
	}
	task, err := c.verify(ctx, claim, b.String())
	if err != nil {
		return "", err
	}
	return normalizeLabel(task.Verdict), nil
}

func normalizeLabel(verdict string) Label {
	switch strings.ToLower(strings.TrimSpace(verdict)) {
	case "supported":
		return LabelSupported
	case "refuted":
		return LabelRefuted
	default:
		return LabelNotEnoughInfo
	}
}
