// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package openai

import "github.com/tmc/langchaingo/prompts"

// These four task-specific system prompts constrain the model to emit
// exactly the structured task the spec's translation layer expects —
// a safe-subset arithmetic expression, a single QWED-DSL S-expression, a
// sandbox-DSL statistics snippet, or a supported/unsupported fact
// judgment — never free-form prose.

var mathPromptTemplate = prompts.NewPromptTemplate(
	`Translate the following natural-language question into a single
arithmetic expression using only +, -, *, /, %, ^ and parentheses, plus
your own claimed numeric answer. Do not explain your reasoning beyond a
short justification. Query: {query}`,
	[]string{"query"},
)

var logicPromptTemplate = prompts.NewPromptTemplate(
	`Translate the following natural-language claim into exactly one
QWED-DSL S-expression using only the whitelisted operators AND, OR, NOT,
IMPLIES, IFF, PLUS, MINUS, MUL, DIV, MOD, POW, NEG, EQ, NEQ, LT, LE, GT,
GE, ITE, FORALL, EXISTS, ASSERT. Never use any other operator or a dotted
identifier. Claim: {query}`,
	[]string{"query"},
)

var statsPromptTemplate = prompts.NewPromptTemplate(
	`Write a short statistics expression over the data frame variable "df"
with columns {columns} that answers: {query}. Use only arithmetic,
comparison, and the aggregate functions mean, median, std, sum, count,
min, max.`,
	[]string{"query", "columns"},
)

var factPromptTemplate = prompts.NewPromptTemplate(
	`Given the following context, judge whether the claim is supported,
refuted, or undetermined by the context alone. Respond with a "verdict"
field whose value is exactly one of "supported", "refuted", or
"not_enough_info". Context: {context}
Claim: {claim}`,
	[]string{"context", "claim"},
)
