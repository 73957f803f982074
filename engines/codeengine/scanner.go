// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package codeengine AST-scans a code task's source for the dangerous
// function calls, attribute accesses, module imports, and secret
// constants listed in §4.8, and traces tainted values from known sources
// to the sink catalogue.
package codeengine

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Scanner AST-walks source for dangerous patterns, grounded on
// services/code_buddy/validate/ast_scanner.go's ASTScanner.Scan.
//
// Thread safety: Scan is safe for concurrent use; a fresh tree-sitter
// parser is created per call.
type Scanner struct{}

// NewScanner builds a Scanner.
func NewScanner() *Scanner { return &Scanner{} }

// parseForTaint reparses source for taint tracing, kept as a second
// parse rather than threading the pattern scanner's tree out of Scan so
// the two passes stay independent and either can fail without the
// other losing its result.
func parseForTaint(ctx context.Context, source []byte, lang *sitter.Language) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)
	return parser.ParseCtx(ctx, nil, source)
}

func languageFor(name string) *sitter.Language {
	switch name {
	case "go":
		return golang.GetLanguage()
	case "python":
		return python.GetLanguage()
	case "javascript":
		return javascript.GetLanguage()
	case "typescript":
		return typescript.GetLanguage()
	}
	return nil
}

// Scan parses source as language and returns every dangerous-pattern,
// dangerous-attribute, and secret-constant finding.
func (s *Scanner) Scan(ctx context.Context, source []byte, language string) ([]Finding, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	lang := languageFor(language)
	if lang == nil {
		return nil, fmt.Errorf("codeengine: unsupported language %q", language)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("codeengine: parsing %s: %w", language, err)
	}
	defer tree.Close()

	var findings []Finding
	s.walk(tree.RootNode(), source, language, &findings)
	findings = append(findings, scanSecrets(source)...)
	findings = append(findings, scanInfiniteRecursion(tree.RootNode(), source, language)...)
	return findings, nil
}

func (s *Scanner) walk(node *sitter.Node, source []byte, language string, findings *[]Finding) {
	if node == nil {
		return
	}
	s.matchNode(node, source, language, findings)
	for i := 0; i < int(node.ChildCount()); i++ {
		s.walk(node.Child(i), source, language, findings)
	}
}

func (s *Scanner) matchNode(node *sitter.Node, source []byte, language string, findings *[]Finding) {
	line := int(node.StartPoint().Row) + 1
	nodeType := node.Type()

	if funcName := extractFunctionName(node, source, nodeType, language); funcName != "" {
		if matchesAny(funcName, criticalFunctions.FuncNames) {
			*findings = append(*findings, Finding{Rule: criticalFunctions.Name, Severity: criticalFunctions.Severity, Line: line, Message: criticalFunctions.Message + ": " + funcName})
		}
		if matchesAny(funcName, weakCryptoFunctions.FuncNames) {
			*findings = append(*findings, Finding{Rule: weakCryptoFunctions.Name, Severity: weakCryptoFunctions.Severity, Line: line, Message: weakCryptoFunctions.Message + ": " + funcName})
		}
		if matchesAny(funcName, dangerousShellFunctions.FuncNames) {
			*findings = append(*findings, Finding{Rule: dangerousShellFunctions.Name, Severity: dangerousShellFunctions.Severity, Line: line, Message: dangerousShellFunctions.Message + ": " + funcName})
		}
		if dynamicImportFuncs[funcName] && hasNonLiteralArg(node, source, language) {
			*findings = append(*findings, Finding{Rule: "dynamic_import", Severity: SeverityHigh, Line: line, Message: "dynamic import with a non-literal module name: " + funcName})
		}
		if reflectionDispatchFuncs[funcName] && hasNonLiteralArg(node, source, language) {
			*findings = append(*findings, Finding{Rule: "reflection_dispatch", Severity: SeverityHigh, Line: line, Message: "reflective dispatch with a non-literal name: " + funcName})
		}
	}

	if attr := extractAttribute(node, source, nodeType, language); attr != "" && dangerousAttributes[attr] {
		*findings = append(*findings, Finding{Rule: "dangerous_attribute", Severity: SeverityCritical, Line: line, Message: "access to dangerous attribute: " + attr})
	}

	if module := extractImportedModule(node, source, nodeType, language); module != "" {
		if sev, ok := dangerousModules[module]; ok {
			*findings = append(*findings, Finding{Rule: "dangerous_module", Severity: sev, Line: line, Message: "import of restricted module: " + module})
		}
	}
}

// extractFunctionName mirrors ast_scanner.go's per-language
// extractFunctionName dispatch.
func extractFunctionName(node *sitter.Node, source []byte, nodeType, language string) string {
	switch language {
	case "go":
		if nodeType == "call_expression" {
			if fn := node.ChildByFieldName("function"); fn != nil {
				return string(source[fn.StartByte():fn.EndByte()])
			}
		}
	case "python":
		if nodeType == "call" {
			if fn := node.ChildByFieldName("function"); fn != nil {
				return string(source[fn.StartByte():fn.EndByte()])
			}
		}
	case "javascript", "typescript":
		if nodeType == "call_expression" {
			if fn := node.ChildByFieldName("function"); fn != nil {
				return string(source[fn.StartByte():fn.EndByte()])
			}
		}
	}
	return ""
}

func extractAttribute(node *sitter.Node, source []byte, nodeType, language string) string {
	if language == "python" && nodeType == "attribute" {
		if attrNode := node.ChildByFieldName("attribute"); attrNode != nil {
			return "__" + strings.Trim(string(source[attrNode.StartByte():attrNode.EndByte()]), "_") + "__"
		}
	}
	if nodeType == "member_expression" || nodeType == "selector_expression" {
		text := string(source[node.StartByte():node.EndByte()])
		if idx := strings.LastIndex(text, "."); idx >= 0 {
			return text[idx+1:]
		}
	}
	return ""
}

func extractImportedModule(node *sitter.Node, source []byte, nodeType, language string) string {
	switch {
	case language == "python" && (nodeType == "import_statement" || nodeType == "import_from_statement"):
		text := string(source[node.StartByte():node.EndByte()])
		fields := strings.Fields(text)
		if len(fields) >= 2 {
			return strings.Split(fields[1], ".")[0]
		}
	case language == "go" && nodeType == "import_spec":
		text := strings.Trim(string(source[node.StartByte():node.EndByte()]), `"`)
		parts := strings.Split(text, "/")
		return parts[len(parts)-1]
	}
	return ""
}

func matchesAny(name string, candidates []string) bool {
	for _, c := range candidates {
		if name == c || strings.HasSuffix(name, "."+c) {
			return true
		}
	}
	return false
}

// hasNonLiteralArg reports whether a call node's first argument is
// anything other than a string/number literal, flagging the
// dynamic-import and reflection-dispatch cases §4.8 adds beyond
// original_source's static CRITICAL_FUNCTIONS catalogue.
func hasNonLiteralArg(node *sitter.Node, source []byte, language string) bool {
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return false
	}
	for i := 0; i < int(args.ChildCount()); i++ {
		child := args.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "string", "string_literal", "number", "interpreted_string_literal", ",", "(", ")":
			continue
		default:
			return true
		}
	}
	return false
}
