// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mocksolver implements dsl.Solver with a bounded brute-force
// search over free integer variables. It exists because no SMT binding is
// available; see the project's design notes for the justification. It is
// adequate for the small, low-arity claims (a handful of bounded
// integers) the logic engine actually receives, but it is not a general
// SMT solver and does not attempt real quantifier elimination — FORALL is
// checked over the same bounded domain rather than proven.
package mocksolver

import (
	"context"
	"fmt"

	"github.com/qwed-gateway/qwed/dsl"
)

const (
	searchLow  = -100
	searchHigh = 100
)

// Solver is a bounded-domain brute-force dsl.Solver.
type Solver struct{}

// New builds a Solver.
func New() *Solver { return &Solver{} }

// Solve evaluates program.Root over assignments to its free variables,
// drawn from a fixed bounded integer domain, and returns the first
// satisfying assignment found, or UNSAT if none exists in that domain.
func (s *Solver) Solve(ctx context.Context, program *dsl.Program) (*dsl.SolveResult, error) {
	freeVars := freeIntVars(program)
	if len(freeVars) == 0 {
		val, err := eval(program.Root, nil)
		if err != nil {
			return nil, err
		}
		b, ok := val.(bool)
		if !ok {
			return nil, fmt.Errorf("mocksolver: top-level claim did not evaluate to a boolean")
		}
		if b {
			return &dsl.SolveResult{Status: dsl.StatusSAT, Model: map[string]any{}}, nil
		}
		return &dsl.SolveResult{Status: dsl.StatusUNSAT}, nil
	}

	assignment := make(map[string]any, len(freeVars))
	result, err := search(ctx, program.Root, freeVars, 0, assignment)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func freeIntVars(program *dsl.Program) []string {
	var vars []string
	for name, t := range program.VarTypes {
		if t == "Int" {
			vars = append(vars, name)
		}
	}
	return vars
}

func search(ctx context.Context, root *dsl.Node, vars []string, idx int, assignment map[string]any) (*dsl.SolveResult, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if idx == len(vars) {
		val, err := eval(root, assignment)
		if err != nil {
			return nil, err
		}
		if b, ok := val.(bool); ok && b {
			model := make(map[string]any, len(assignment))
			for k, v := range assignment {
				model[k] = v
			}
			return &dsl.SolveResult{Status: dsl.StatusSAT, Model: model}, nil
		}
		return &dsl.SolveResult{Status: dsl.StatusUNSAT}, nil
	}

	name := vars[idx]
	for v := searchLow; v <= searchHigh; v++ {
		assignment[name] = v
		res, err := search(ctx, root, vars, idx+1, assignment)
		if err != nil {
			return nil, err
		}
		if res.Status == dsl.StatusSAT {
			return res, nil
		}
	}
	delete(assignment, name)
	return &dsl.SolveResult{Status: dsl.StatusUNSAT}, nil
}
