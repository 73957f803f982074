// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/qwed-gateway/qwed/engines/mathengine"
)

// FallbackEvaluator evaluates the statistics-DSL grammar in-process
// instead of shelling out to the interpreter binary. It is a lexical
// blacklist evaluator over a whitelist of aggregate function names and
// arithmetic/comparison operators — used only when the subprocess
// isolation primitives are unavailable at startup, never as the default
// execution path.
type FallbackEvaluator struct {
	callPattern *regexp.Regexp
}

// NewFallbackEvaluator builds a FallbackEvaluator.
func NewFallbackEvaluator() *FallbackEvaluator {
	return &FallbackEvaluator{
		callPattern: regexp.MustCompile(`(?i)\b(mean|median|std|sum|count|min|max)\s*\(\s*df\.([A-Za-z_][A-Za-z0-9_]*)\s*\)`),
	}
}

var aggregateAllowlist = map[string]bool{
	"mean": true, "median": true, "std": true, "sum": true,
	"count": true, "min": true, "max": true,
}

// disallowedTokens lists the import/exec-style keywords and dunder or
// os-level references a translator might still emit despite the system
// prompt; a snippet containing any of them is rejected before evaluation.
var disallowedTokens = []string{
	"import", "exec", "eval", "__", "os.", "subprocess", "open(", "lambda",
}

// Eval evaluates code, a statistics-DSL snippet referencing columns of
// frame (JSON-encoded {"column": [values...]}),  substituting every
// aggregate call with its computed value and evaluating the remaining
// arithmetic expression.
func (f *FallbackEvaluator) Eval(ctx context.Context, code string, frame []byte) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	lower := strings.ToLower(code)
	for _, tok := range disallowedTokens {
		if strings.Contains(lower, tok) {
			return nil, fmt.Errorf("sandbox: fallback evaluator rejected disallowed token %q", tok)
		}
	}

	var columns map[string][]float64
	if err := json.Unmarshal(frame, &columns); err != nil {
		return nil, fmt.Errorf("sandbox: fallback evaluator could not decode data frame: %w", err)
	}

	substituted := f.callPattern.ReplaceAllStringFunc(code, func(call string) string {
		m := f.callPattern.FindStringSubmatch(call)
		fn, col := strings.ToLower(m[1]), m[2]
		v, err := aggregate(fn, columns[col])
		if err != nil {
			return "NaN"
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	})

	if strings.Contains(strings.ToLower(substituted), "df.") {
		return nil, fmt.Errorf("sandbox: fallback evaluator found a column reference outside a whitelisted aggregate call")
	}

	result, err := evalArith(substituted)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]float64{"result": result})
}

func aggregate(fn string, values []float64) (float64, error) {
	if !aggregateAllowlist[fn] {
		return 0, fmt.Errorf("sandbox: %q is not a whitelisted aggregate function", fn)
	}
	if fn == "count" {
		return float64(len(values)), nil
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("sandbox: aggregate %q over an empty column", fn)
	}
	switch fn {
	case "sum":
		var s float64
		for _, v := range values {
			s += v
		}
		return s, nil
	case "mean":
		var s float64
		for _, v := range values {
			s += v
		}
		return s / float64(len(values)), nil
	case "min":
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return m, nil
	case "max":
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return m, nil
	case "median":
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			return (sorted[mid-1] + sorted[mid]) / 2, nil
		}
		return sorted[mid], nil
	case "std":
		mean, _ := aggregate("mean", values)
		var acc float64
		for _, v := range values {
			acc += (v - mean) * (v - mean)
		}
		return math.Sqrt(acc / float64(len(values))), nil
	}
	return 0, fmt.Errorf("sandbox: unreachable aggregate %q", fn)
}

// evalArith evaluates a fully-substituted arithmetic expression (numbers,
// +-*/(), no remaining identifiers) by delegating to the same safe-subset
// grammar the math engine evaluates natural-language claims against.
func evalArith(expr string) (float64, error) {
	v, err := mathengine.Eval(expr)
	if err != nil {
		return 0, fmt.Errorf("sandbox: %w", err)
	}
	return v, nil
}
