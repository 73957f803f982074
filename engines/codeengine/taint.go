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
	sitter "github.com/smacker/go-tree-sitter"
)

// taintSources are call targets or parameter-like names that introduce
// attacker-controlled data into a program, grounded on the zone
// classification services/code_buddy/safety/trust/zone_detector.go uses
// to tell untrusted input zones from trusted internal ones.
var taintSources = map[string]bool{
	"input": true, "sys.argv": true, "os.Getenv": true, "request.GET": true,
	"request.POST": true, "request.args": true, "r.URL.Query": true,
	"os.environ": true,
}

// taintSinks are call targets where untrusted data becomes dangerous if
// it reaches them unsanitized — the same surface patterns.go's
// criticalFunctions and dangerousModules already name, reused here as
// the sink catalogue for propagation rather than direct matching.
var taintSinks = map[string]bool{
	"eval": true, "exec": true, "os.system": true, "subprocess.call": true,
	"subprocess.run": true, "cursor.execute": true, "os/exec.Command": true,
}

const maxTaintHops = 2

// TaintFinding is a traced source-to-sink flow.
type TaintFinding struct {
	Source string
	Sink   string
	Line   int
	Hops   int
}

// traceTaint propagates taint from source assignments through simple
// variable aliasing (x = y, x := y) for up to maxTaintHops reassignments,
// flagging any tainted identifier that later reaches a sink call's
// argument list. This is a conservative, syntactic approximation, not a
// full dataflow analysis: it catches the direct-alias chains the
// sandbox's pre-execution check cannot see ahead of time, not reflection-
// obscured flows.
func traceTaint(root *sitter.Node, source []byte, language string) []TaintFinding {
	tainted := map[string]int{} // identifier -> hop count at which it became tainted
	var findings []TaintFinding

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		switch node.Type() {
		case "assignment_statement", "assignment", "short_var_declaration", "variable_declarator":
			target, value := assignmentParts(node, source)
			if target != "" && value != "" {
				if taintSources[value] {
					tainted[target] = 0
				} else if hop, ok := tainted[value]; ok && hop < maxTaintHops {
					tainted[target] = hop + 1
				}
			}
		case "call_expression", "call":
			if fn := node.ChildByFieldName("function"); fn != nil {
				fnName := string(source[fn.StartByte():fn.EndByte()])
				if taintSinks[fnName] {
					for _, arg := range callArgIdentifiers(node, source) {
						if hop, ok := tainted[arg]; ok {
							findings = append(findings, TaintFinding{
								Source: arg,
								Sink:   fnName,
								Line:   int(node.StartPoint().Row) + 1,
								Hops:   hop,
							})
						}
					}
				}
			}
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(root)
	return findings
}

func assignmentParts(node *sitter.Node, source []byte) (target, value string) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil {
		left = node.ChildByFieldName("name")
	}
	if right == nil {
		right = node.ChildByFieldName("value")
	}
	if left == nil || right == nil {
		return "", ""
	}
	return string(source[left.StartByte():left.EndByte()]), string(source[right.StartByte():right.EndByte()])
}

func callArgIdentifiers(node *sitter.Node, source []byte) []string {
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		if child != nil && (child.Type() == "identifier" || child.Type() == "selector_expression" || child.Type() == "attribute") {
			out = append(out, string(source[child.StartByte():child.EndByte()]))
		}
	}
	return out
}

// toFinding converts traced taint flows into the engine's Finding
// shape so the dispatcher can fold them into the same blocking/advisory
// split as the pattern-matched findings.
func (f TaintFinding) toFinding() Finding {
	return Finding{
		Rule:     "tainted_data_reaches_sink",
		Severity: SeverityHigh,
		Line:     f.Line,
		Message:  "value derived from " + f.Source + " reaches " + f.Sink + " unsanitized",
	}
}
