// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logicengine compiles a QWED-DSL translation task and runs it
// through a dsl.Solver, reporting SAT (with witnessing model), UNSAT, or
// UNKNOWN.
package logicengine

import (
	"context"
	"fmt"
	"time"

	"github.com/qwed-gateway/qwed/dsl"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

const defaultTimeout = 5 * time.Second

// Engine verifies LogicTasks by compiling their DSL source and handing
// the resulting Program to a bound Solver.
type Engine struct {
	solver  dsl.Solver
	timeout time.Duration
}

// New builds a logic verification Engine bound to solver.
func New(solver dsl.Solver) *Engine {
	return &Engine{solver: solver, timeout: defaultTimeout}
}

// WithTimeout overrides the default 5s solve timeout.
func (e *Engine) WithTimeout(d time.Duration) *Engine {
	e.timeout = d
	return e
}

func (e *Engine) Verify(ctx context.Context, task schema.TranslationTask) (schema.VerificationResult, error) {
	if task.Logic == nil {
		return schema.VerificationResult{}, fmt.Errorf("logicengine: no LogicTask in translation payload")
	}

	ast, err := dsl.Parse(task.Logic.DSL)
	if err != nil {
		return verdictForParseError(err), nil
	}

	program, err := dsl.Compile(ast)
	if err != nil {
		return verdictForParseError(err), nil
	}

	solveCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result, err := e.solver.Solve(solveCtx, program)
	if err != nil {
		return schema.VerificationResult{
			Verdict:    schema.VerdictUnknown,
			Diagnostic: err.Error(),
		}, nil
	}

	switch result.Status {
	case dsl.StatusSAT:
		return schema.VerificationResult{
			Verdict:     schema.VerdictSAT,
			FinalAnswer: result.Model,
			Payload:     result.Model,
		}, nil
	case dsl.StatusUNSAT:
		return schema.VerificationResult{
			Verdict: schema.VerdictUNSAT,
		}, nil
	default:
		return schema.VerificationResult{
			Verdict: schema.VerdictUnknown,
		}, nil
	}
}

// verdictForParseError reports DSL rejection as UNSAFE when the parser
// flagged the input as outside the whitelisted grammar, and as ERROR for
// any other structural problem (e.g. a type mismatch surfaced by the
// compiler), matching the admission-vs-translation-error distinction the
// gateway draws elsewhere.
func verdictForParseError(err error) schema.VerificationResult {
	if dslErr, ok := err.(*dsl.Error); ok && dslErr.Code == dsl.ErrUnsafeDSL {
		return schema.VerificationResult{Verdict: schema.VerdictUnsafe, Diagnostic: dslErr.Error()}
	}
	return schema.VerificationResult{Verdict: schema.VerdictError, Diagnostic: err.Error()}
}
