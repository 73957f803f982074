// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package statsengine verifies statistics-DSL tasks by running them
// through the sandbox against a preloaded data frame, mirroring
// stats_verifier.py's generate → pre-execution check → execute shape
// (generation already happened in the translation layer by the time a
// StatsTask reaches this engine).
package statsengine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qwed-gateway/qwed/sandbox"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// FrameSource resolves a frame reference to its JSON-encoded column data.
type FrameSource interface {
	LoadFrame(ctx context.Context, ref string) ([]byte, error)
}

// Engine verifies StatsTasks.
type Engine struct {
	runner *sandbox.Runner
	frames FrameSource
}

// New builds a stats verification Engine.
func New(runner *sandbox.Runner, frames FrameSource) *Engine {
	return &Engine{runner: runner, frames: frames}
}

// preExecutionCheck rejects a statistics-DSL snippet that references a
// column outside the task's declared Columns before it ever reaches the
// sandbox, the same "check before execute" step stats_verifier.py
// performs ahead of invoking its Docker-isolated interpreter.
func preExecutionCheck(code string, columns []string) error {
	allowed := make(map[string]bool, len(columns))
	for _, c := range columns {
		allowed[c] = true
	}
	for _, ref := range extractColumnRefs(code) {
		if !allowed[ref] {
			return fmt.Errorf("statsengine: code references undeclared column %q", ref)
		}
	}
	return nil
}

func extractColumnRefs(code string) []string {
	var refs []string
	const prefix = "df."
	for {
		idx := strings.Index(code, prefix)
		if idx < 0 {
			break
		}
		rest := code[idx+len(prefix):]
		end := 0
		for end < len(rest) && (isIdentChar(rest[end])) {
			end++
		}
		if end > 0 {
			refs = append(refs, rest[:end])
		}
		code = rest[end:]
	}
	return refs
}

func isIdentChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func (e *Engine) Verify(ctx context.Context, task schema.TranslationTask) (schema.VerificationResult, error) {
	if task.Stats == nil {
		return schema.VerificationResult{}, fmt.Errorf("statsengine: no StatsTask in translation payload")
	}
	s := task.Stats

	if err := preExecutionCheck(s.Code, s.Columns); err != nil {
		return schema.VerificationResult{Verdict: schema.VerdictUnsafe, Diagnostic: err.Error()}, nil
	}

	frame, err := e.frames.LoadFrame(ctx, s.FrameRef)
	if err != nil {
		return schema.VerificationResult{Verdict: schema.VerdictError, Diagnostic: err.Error()}, nil
	}

	result, err := e.runner.Run(ctx, s.Code, frame)
	if err != nil {
		return schema.VerificationResult{Verdict: schema.VerdictError, Diagnostic: err.Error()}, nil
	}

	var decoded map[string]float64
	if jsonErr := json.Unmarshal([]byte(result.Output), &decoded); jsonErr != nil {
		return schema.VerificationResult{
			Verdict:    schema.VerdictError,
			Diagnostic: fmt.Sprintf("statsengine: interpreter output was not valid JSON: %v", jsonErr),
		}, nil
	}

	return schema.VerificationResult{
		Verdict:         schema.VerdictVerified,
		FinalAnswer:     decoded["result"],
		Payload:         decoded,
		SandboxFallback: result.Fallback,
	}, nil
}
