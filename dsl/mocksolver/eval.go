// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mocksolver

import (
	"fmt"
	"math"

	"github.com/qwed-gateway/qwed/dsl"
)

// eval structurally interprets an already-parsed, already-type-checked
// dsl.Node. It switches only on dsl.Op values drawn from the compiler's
// closed whitelist; it never evaluates a string as code.
func eval(n *dsl.Node, assignment map[string]any) (any, error) {
	switch n.Kind {
	case dsl.NodeNumber:
		return n.NumberVal, nil
	case dsl.NodeBool:
		return n.BoolVal, nil
	case dsl.NodeIdent:
		v, ok := assignment[n.Ident]
		if !ok {
			return nil, fmt.Errorf("mocksolver: unbound identifier %q", n.Ident)
		}
		return v, nil
	case dsl.NodeForm:
		return evalForm(n, assignment)
	}
	return nil, fmt.Errorf("mocksolver: unsupported node kind")
}

func evalForm(n *dsl.Node, assignment map[string]any) (any, error) {
	switch n.Op {
	case dsl.OpAnd:
		for _, arg := range n.Args {
			b, err := evalBool(arg, assignment)
			if err != nil {
				return nil, err
			}
			if !b {
				return false, nil
			}
		}
		return true, nil

	case dsl.OpOr:
		for _, arg := range n.Args {
			b, err := evalBool(arg, assignment)
			if err != nil {
				return nil, err
			}
			if b {
				return true, nil
			}
		}
		return false, nil

	case dsl.OpNot:
		b, err := evalBool(n.Args[0], assignment)
		return !b, err

	case dsl.OpImplies:
		a, err := evalBool(n.Args[0], assignment)
		if err != nil {
			return nil, err
		}
		b, err := evalBool(n.Args[1], assignment)
		if err != nil {
			return nil, err
		}
		return !a || b, nil

	case dsl.OpIff:
		a, err := evalBool(n.Args[0], assignment)
		if err != nil {
			return nil, err
		}
		b, err := evalBool(n.Args[1], assignment)
		if err != nil {
			return nil, err
		}
		return a == b, nil

	case dsl.OpPlus, dsl.OpMinus, dsl.OpMul, dsl.OpDiv, dsl.OpMod, dsl.OpPow:
		return evalArith(n, assignment)

	case dsl.OpNeg:
		v, err := evalNum(n.Args[0], assignment)
		return -v, err

	case dsl.OpEq, dsl.OpNeq, dsl.OpLt, dsl.OpLe, dsl.OpGt, dsl.OpGe:
		a, err := evalNum(n.Args[0], assignment)
		if err != nil {
			return nil, err
		}
		b, err := evalNum(n.Args[1], assignment)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case dsl.OpEq:
			return a == b, nil
		case dsl.OpNeq:
			return a != b, nil
		case dsl.OpLt:
			return a < b, nil
		case dsl.OpLe:
			return a <= b, nil
		case dsl.OpGt:
			return a > b, nil
		case dsl.OpGe:
			return a >= b, nil
		}

	case dsl.OpIte:
		cond, err := evalBool(n.Args[0], assignment)
		if err != nil {
			return nil, err
		}
		if cond {
			return eval(n.Args[1], assignment)
		}
		return eval(n.Args[2], assignment)

	case dsl.OpForall:
		// Bounded-domain check, not a proof: true if the body holds for
		// every value currently bound in assignment for the quantified
		// variables (the search loop in Solve already enumerates them).
		return evalBool(n.Args[0], assignment)

	case dsl.OpExists:
		return evalBool(n.Args[0], assignment)

	case dsl.OpAssert, dsl.OpProgram:
		var last any = true
		for _, arg := range n.Args {
			v, err := eval(arg, assignment)
			if err != nil {
				return nil, err
			}
			b, ok := v.(bool)
			if !ok || !b {
				return false, nil
			}
			last = v
		}
		return last, nil
	}
	return nil, fmt.Errorf("mocksolver: unsupported operator %s", n.Op)
}

func evalBool(n *dsl.Node, assignment map[string]any) (bool, error) {
	v, err := eval(n, assignment)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("mocksolver: expected boolean, got %T", v)
	}
	return b, nil
}

func evalNum(n *dsl.Node, assignment map[string]any) (float64, error) {
	v, err := eval(n, assignment)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	}
	return 0, fmt.Errorf("mocksolver: expected number, got %T", v)
}

func evalArith(n *dsl.Node, assignment map[string]any) (any, error) {
	vals := make([]float64, len(n.Args))
	for i, arg := range n.Args {
		v, err := evalNum(arg, assignment)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	switch n.Op {
	case dsl.OpPlus:
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		return sum, nil
	case dsl.OpMul:
		prod := 1.0
		for _, v := range vals {
			prod *= v
		}
		return prod, nil
	case dsl.OpMinus:
		return vals[0] - vals[1], nil
	case dsl.OpDiv:
		if vals[1] == 0 {
			return nil, fmt.Errorf("mocksolver: division by zero")
		}
		return vals[0] / vals[1], nil
	case dsl.OpMod:
		if vals[1] == 0 {
			return nil, fmt.Errorf("mocksolver: modulo by zero")
		}
		return math.Mod(vals[0], vals[1]), nil
	case dsl.OpPow:
		return math.Pow(vals[0], vals[1]), nil
	}
	return nil, fmt.Errorf("mocksolver: unsupported arithmetic operator %s", n.Op)
}
