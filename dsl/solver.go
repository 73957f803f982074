// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dsl

import "context"

// SolveStatus is the outcome a Solver reaches for a compiled Program.
type SolveStatus string

const (
	StatusSAT     SolveStatus = "SAT"
	StatusUNSAT   SolveStatus = "UNSAT"
	StatusUnknown SolveStatus = "UNKNOWN"
)

// SolveResult is a Solver's verdict plus, for SAT, a satisfying model.
type SolveResult struct {
	Status SolveStatus
	Model  map[string]any // identifier -> value, present only when Status == StatusSAT
}

// Solver checks satisfiability of a compiled Program. Compile never calls
// out to the network, filesystem, or a language evaluator; Solve is the
// sole place a Program reaches an external binding, and that binding only
// ever receives the opaque, already-type-checked Program — never raw
// translator text.
type Solver interface {
	Solve(ctx context.Context, program *Program) (*SolveResult, error)
}
