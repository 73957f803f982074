// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

// TranslationTask is the strictly-typed structured artifact a Provider
// returns for a given VerificationRequest. Exactly one of the pointer fields
// below is populated, matching the kind of the originating request.
type TranslationTask struct {
	Math      *MathTask
	Logic     *LogicTask
	Stats     *StatsTask
	Fact      *FactTask
	Code      *CodeTask
	SQL       *SqlTask
	Image     *ImageTask
	Reasoning *ReasoningTask
}

// MathTask is a safe-subset arithmetic expression plus the value the
// translator claims it evaluates to.
type MathTask struct {
	Expression    string
	ClaimedResult float64
	HasClaimed    bool
	Reasoning     string
}

// LogicTask carries a single QWED-DSL S-expression.
type LogicTask struct {
	DSL       string
	Variables []VariableDecl
}

// VariableDecl declares a bound identifier's inferred type for the DSL
// compiler ("Int", "Real", or "Bool").
type VariableDecl struct {
	Name string
	Type string
}

// StatsTask is statistics-DSL source referencing a preloaded data frame.
type StatsTask struct {
	Code     string
	FrameRef string
	Columns  []string
}

// FactTask asks whether Claim is supported by ContextText. Verdict, when
// set by a Provider, is the provider's raw label ("supported", "refuted",
// "not_enough_info") before factengine normalizes it against the spans
// it actually retrieved.
type FactTask struct {
	Claim       string
	ContextText string
	Verdict     string
}

// CodeTask is raw source plus its declared language.
type CodeTask struct {
	Code     string
	Language string
}

// SqlTask is a query plus the schema it must be checked against.
type SqlTask struct {
	Query   string
	Schema  SQLSchema
	Dialect string
}

// SQLSchema declares the tables and columns a query may reference.
type SQLSchema struct {
	Tables map[string][]string // table name -> column names
}

// ImageTask is image bytes plus the claim to verify against them.
type ImageTask struct {
	ImageBytes []byte
	Claim      string
}

// ReasoningTask is an ordered chain of atomic steps, each independently
// verifiable by one of the other seven engines.
type ReasoningTask struct {
	Steps []ReasoningStep
}

// ReasoningStep is one atomic, independently-verifiable claim in a chain.
type ReasoningStep struct {
	Kind    Kind
	Payload TranslationTask
	Text    string
}
