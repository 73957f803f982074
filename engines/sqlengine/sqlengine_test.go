// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sqlengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwed-gateway/qwed/engines/sqlengine"
	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

func testSchema() schema.SQLSchema {
	return schema.SQLSchema{Tables: map[string][]string{
		"users":  {"id", "name", "email"},
		"orders": {"id", "user_id", "total"},
	}}
}

func verify(t *testing.T, query string) schema.VerificationResult {
	e := sqlengine.New()
	result, err := e.Verify(context.Background(), schema.TranslationTask{
		SQL: &schema.SqlTask{Query: query, Schema: testSchema(), Dialect: "postgres"},
	})
	require.NoError(t, err)
	return result
}

func TestEngineVerifiesSimpleSelect(t *testing.T) {
	result := verify(t, "SELECT id, name FROM users WHERE id = 1")
	require.Equal(t, schema.VerdictVerified, result.Verdict)
}

func TestEngineVerifiesJoinWithQualifiedColumns(t *testing.T) {
	result := verify(t, "SELECT u.name, o.total FROM users u JOIN orders o ON u.id = o.user_id WHERE o.total > 10")
	require.Equal(t, schema.VerdictVerified, result.Verdict)
}

func TestEngineRefutesUnknownColumn(t *testing.T) {
	result := verify(t, "SELECT id, nonexistent FROM users")
	require.Equal(t, schema.VerdictRefuted, result.Verdict)
}

func TestEngineRefutesUnknownTable(t *testing.T) {
	result := verify(t, "SELECT id FROM ghosts")
	require.Equal(t, schema.VerdictRefuted, result.Verdict)
}

func TestEngineRejectsNonSelectStatement(t *testing.T) {
	result := verify(t, "DELETE FROM users WHERE id = 1")
	require.Equal(t, schema.VerdictUnsafe, result.Verdict)
}

func TestEngineRejectsMultipleStatements(t *testing.T) {
	result := verify(t, "SELECT id FROM users; DROP TABLE users")
	require.Equal(t, schema.VerdictUnsafe, result.Verdict)

	violations, ok := result.Payload.([]sqlengine.LexViolation)
	require.True(t, ok)
	require.Len(t, violations, 2)

	var types []sqlengine.ViolationType
	for _, v := range violations {
		types = append(types, v.Type)
	}
	require.Contains(t, types, sqlengine.ViolationMultipleStatements)
	require.Contains(t, types, sqlengine.ViolationDangerousStatement)
}

func TestEngineRejectsOversizedQuery(t *testing.T) {
	huge := make([]byte, 9000)
	for i := range huge {
		huge[i] = 'a'
	}
	result := verify(t, "SELECT "+string(huge)+" FROM users")
	require.Equal(t, schema.VerdictUnsafe, result.Verdict)
}
