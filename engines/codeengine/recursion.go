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

// functionNodeTypes maps a language to its unconditional function/method
// declaration node type, enough to catch the trivial self-call case this
// rule targets: a function body whose only statement calls itself.
var functionNodeTypes = map[string]string{
	"go":         "function_declaration",
	"python":     "function_definition",
	"javascript": "function_declaration",
	"typescript": "function_declaration",
}

// scanInfiniteRecursion flags functions whose entire body is a single
// call to themselves with no enclosing conditional, a pattern the
// original implementation's static analysis does not catch but which
// spec.md §4.8 calls out as a guaranteed-hang pattern worth rejecting
// up front rather than letting the sandbox's wall-clock timeout catch it.
func scanInfiniteRecursion(root *sitter.Node, source []byte, language string) []Finding {
	declType, ok := functionNodeTypes[language]
	if !ok {
		return nil
	}
	var findings []Finding
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if node.Type() == declType {
			if name, body := functionNameAndBody(node, source, language); name != "" && body != nil {
				if bodyIsSoleSelfCall(body, source, name) {
					findings = append(findings, Finding{
						Rule:     "unconditional_self_recursion",
						Severity: SeverityCritical,
						Line:     int(node.StartPoint().Row) + 1,
						Message:  "function " + name + " calls itself unconditionally with no base case",
					})
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

func functionNameAndBody(node *sitter.Node, source []byte, language string) (string, *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	bodyNode := node.ChildByFieldName("body")
	if nameNode == nil || bodyNode == nil {
		return "", nil
	}
	return string(source[nameNode.StartByte():nameNode.EndByte()]), bodyNode
}

// bodyIsSoleSelfCall reports whether body contains exactly one
// statement and that statement is (or wraps) a call to funcName.
func bodyIsSoleSelfCall(body *sitter.Node, source []byte, funcName string) bool {
	statements := namedChildren(body)
	if len(statements) != 1 {
		return false
	}
	return containsCallTo(statements[0], source, funcName)
}

func namedChildren(node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		out = append(out, node.NamedChild(i))
	}
	return out
}

func containsCallTo(node *sitter.Node, source []byte, funcName string) bool {
	if node == nil {
		return false
	}
	if node.Type() == "call_expression" || node.Type() == "call" {
		if fn := node.ChildByFieldName("function"); fn != nil {
			if string(source[fn.StartByte():fn.EndByte()]) == funcName {
				return true
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if containsCallTo(node.Child(i), source, funcName) {
			return true
		}
	}
	return false
}
