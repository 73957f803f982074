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

// Op is one whitelisted operator. There is no representation for an
// arbitrary, unvalidated operator name; Op values are only ever produced
// by the parser after a whitelist lookup.
type Op string

const (
	OpAnd     Op = "AND"
	OpOr      Op = "OR"
	OpNot     Op = "NOT"
	OpImplies Op = "IMPLIES"
	OpIff     Op = "IFF"

	OpPlus  Op = "PLUS"
	OpMinus Op = "MINUS"
	OpMul   Op = "MUL"
	OpDiv   Op = "DIV"
	OpMod   Op = "MOD"
	OpPow   Op = "POW"
	OpNeg   Op = "NEG"

	OpEq  Op = "EQ"
	OpNeq Op = "NEQ"
	OpLt  Op = "LT"
	OpLe  Op = "LE"
	OpGt  Op = "GT"
	OpGe  Op = "GE"

	OpIte     Op = "ITE"
	OpForall  Op = "FORALL"
	OpExists  Op = "EXISTS"
	OpAssert  Op = "ASSERT"
	OpProgram Op = "PROGRAM"
)

// whitelistedOps is the closed set of operator names the parser accepts.
// Anything else, including case variants and anything dotted, is rejected
// as UNSAFE_DSL.
var whitelistedOps = map[string]Op{
	"AND": OpAnd, "OR": OpOr, "NOT": OpNot, "IMPLIES": OpImplies, "IFF": OpIff,
	"PLUS": OpPlus, "MINUS": OpMinus, "MUL": OpMul, "DIV": OpDiv, "MOD": OpMod, "POW": OpPow, "NEG": OpNeg,
	"EQ": OpEq, "NEQ": OpNeq, "LT": OpLt, "LE": OpLe, "GT": OpGt, "GE": OpGe,
	"ITE": OpIte, "FORALL": OpForall, "EXISTS": OpExists, "ASSERT": OpAssert, "PROGRAM": OpProgram,
}

// NodeKind discriminates a parsed AST node.
type NodeKind int

const (
	NodeForm NodeKind = iota
	NodeNumber
	NodeIdent
	NodeBool
	NodeString
)

// Node is one parsed AST node: either an atom (number, identifier,
// boolean, string) or a form (OP arg...).
type Node struct {
	Kind NodeKind
	Op   Op // valid when Kind == NodeForm
	Args []*Node

	NumberVal float64
	BoolVal   bool
	StringVal string
	Ident     string

	// Bound is the quantifier variable list, valid for FORALL/EXISTS forms.
	Bound []Binding

	Offset int
}

// Binding declares one quantifier-bound identifier and its inferred type
// ("Int", "Real", or "Bool").
type Binding struct {
	Name string
	Type string
}
