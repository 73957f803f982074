// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sqlengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// sqlValidate is the shared validator instance, mirroring
// services/orchestrator/datatypes/chat.go's package-level chatValidate.
var sqlValidate = validator.New()

// sqlRequest is the struct-tag-validated shape of an incoming SqlTask,
// checked before the hand-rolled grammar ever sees the query text.
type sqlRequest struct {
	Query   string `validate:"required,max=8192"`
	Dialect string `validate:"omitempty,oneof=postgres mysql sqlite ansi"`
}

// Engine verifies a SqlTask by parsing it under a SELECT-only grammar
// and checking every table/column reference against the caller-declared
// schema, never executing the query against a live database.
type Engine struct{}

// New builds a SQL verification Engine.
func New() *Engine { return &Engine{} }

func (e *Engine) Verify(ctx context.Context, task schema.TranslationTask) (schema.VerificationResult, error) {
	if task.SQL == nil {
		return schema.VerificationResult{}, fmt.Errorf("sqlengine: task has no SQL payload")
	}
	req := sqlRequest{Query: task.SQL.Query, Dialect: task.SQL.Dialect}
	if err := sqlValidate.Struct(req); err != nil {
		return schema.VerificationResult{Verdict: schema.VerdictUnsafe, Diagnostic: err.Error()}, nil
	}

	stmt, lexViolations, err := Parse(task.SQL.Query)
	if err != nil {
		return schema.VerificationResult{Verdict: schema.VerdictUnsafe, Diagnostic: err.Error()}, nil
	}
	if len(lexViolations) > 0 {
		return schema.VerificationResult{
			Verdict:    schema.VerdictUnsafe,
			Payload:    lexViolations,
			Diagnostic: fmt.Sprintf("%d statement violation(s): %s", len(lexViolations), joinLexViolations(lexViolations)),
		}, nil
	}

	violations := validateAgainstSchema(stmt, task.SQL.Schema)
	if len(violations) > 0 {
		return schema.VerificationResult{
			Verdict:    schema.VerdictRefuted,
			Payload:    violations,
			Diagnostic: fmt.Sprintf("%d schema violation(s)", len(violations)),
		}, nil
	}

	return schema.VerificationResult{
		Verdict: schema.VerdictVerified,
		Payload: stmt,
	}, nil
}

func joinLexViolations(violations []LexViolation) string {
	parts := make([]string, len(violations))
	for i, v := range violations {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
