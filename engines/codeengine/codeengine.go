// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package codeengine

import (
	"context"
	"fmt"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// Engine verifies schema.CodeTask payloads by AST-scanning for dangerous
// patterns and tracing taint from known sources to known sinks. A
// CRITICAL or HIGH finding marks the code unsafe outright; any
// lower-severity finding still reaches the caller as advisory payload.
type Engine struct {
	scanner *Scanner
}

// New builds a code-security Engine.
func New() *Engine {
	return &Engine{scanner: NewScanner()}
}

func (e *Engine) Verify(ctx context.Context, task schema.TranslationTask) (schema.VerificationResult, error) {
	if task.Code == nil {
		return schema.VerificationResult{}, fmt.Errorf("codeengine: task has no Code payload")
	}
	code := task.Code.Code
	language := task.Code.Language

	findings, err := e.scanner.Scan(ctx, []byte(code), language)
	if err != nil {
		return schema.VerificationResult{Verdict: schema.VerdictError, Diagnostic: err.Error()}, nil
	}

	if lang := languageFor(language); lang != nil {
		if tree, parseErr := parseForTaint(ctx, []byte(code), lang); parseErr == nil {
			defer tree.Close()
			for _, tf := range traceTaint(tree.RootNode(), []byte(code), language) {
				findings = append(findings, tf.toFinding())
			}
		}
	}

	if hasBlocking(findings) {
		return schema.VerificationResult{
			Verdict:    schema.VerdictUnsafe,
			Payload:    findings,
			Diagnostic: fmt.Sprintf("%d security finding(s), including at least one critical/high", len(findings)),
		}, nil
	}

	return schema.VerificationResult{
		Verdict: schema.VerdictVerified,
		Payload: findings,
	}, nil
}
