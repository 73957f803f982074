// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mathengine

import (
	"context"
	"fmt"
	"math"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

const toleranceAbs = 1e-9

// Engine verifies MathTasks by evaluating the safe-subset arithmetic
// expression and comparing it against the provider's claimed result.
type Engine struct{}

// New builds a math verification Engine.
func New() *Engine { return &Engine{} }

func (e *Engine) Verify(ctx context.Context, task schema.TranslationTask) (schema.VerificationResult, error) {
	if task.Math == nil {
		return schema.VerificationResult{}, fmt.Errorf("mathengine: no MathTask in translation payload")
	}
	m := task.Math

	computed, err := Eval(m.Expression)
	if err != nil {
		return schema.VerificationResult{
			Verdict:    schema.VerdictError,
			Diagnostic: err.Error(),
		}, nil
	}

	if !m.HasClaimed {
		return schema.VerificationResult{
			Verdict:     schema.VerdictVerified,
			FinalAnswer: computed,
			Payload:     computed,
		}, nil
	}

	if math.Abs(computed-m.ClaimedResult) <= toleranceAbs {
		return schema.VerificationResult{
			Verdict:     schema.VerdictVerified,
			FinalAnswer: computed,
			Payload:     computed,
		}, nil
	}

	correction := &schema.Correction{
		Claimed:  m.ClaimedResult,
		Computed: computed,
		Diff:     computed - m.ClaimedResult,
	}
	if m.Reasoning != "" {
		correction.Rendered = renderDiff(Describe(m.ClaimedResult), Describe(computed))
	}

	return schema.VerificationResult{
		Verdict:     schema.VerdictCorrected,
		FinalAnswer: computed,
		Payload:     computed,
		Correction:  correction,
	}, nil
}

// renderDiff produces a human-readable unified diff between the
// claimed and computed values, reusing go-diff's hunk printer — the
// same dependency the teacher uses to parse and re-render patch hunks
// in services/code_buddy/validate/patch.go, repointed here from
// source-file diffing to rendering a one-line correction diff since
// the gateway has no source files of its own to diff.
func renderDiff(claimed, computed string) string {
	fd := &diff.FileDiff{
		OrigName: "claimed",
		NewName:  "computed",
		Hunks: []*diff.Hunk{
			{
				OrigStartLine: 1,
				OrigLines:     1,
				NewStartLine:  1,
				NewLines:      1,
				Body:          []byte("-" + claimed + "\n" + "+" + computed + "\n"),
			},
		},
	}
	rendered, err := diff.PrintFileDiff(fd)
	if err != nil {
		return fmt.Sprintf("claimed %s, computed %s", claimed, computed)
	}
	return string(rendered)
}
