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
	"fmt"
	"strings"

	"github.com/qwed-gateway/qwed/services/gateway/schema"
)

// Violation is one table or column reference that the declared schema
// does not recognize.
type Violation struct {
	Table  string
	Column string
	Reason string
}

// validateAgainstSchema checks every table and column reference a parsed
// statement makes against the caller-declared schema, resolving bare
// column references (no table qualifier) against whichever referenced
// table declares that column, and flags ambiguity when more than one
// does.
func validateAgainstSchema(stmt *SelectStatement, sqlSchema schema.SQLSchema) []Violation {
	var violations []Violation
	aliasToTable := map[string]string{}
	for _, t := range stmt.Tables {
		if _, ok := sqlSchema.Tables[t.Name]; !ok {
			violations = append(violations, Violation{Table: t.Name, Reason: "unknown table"})
			continue
		}
		aliasToTable[t.Name] = t.Name
		if t.Alias != "" {
			aliasToTable[t.Alias] = t.Name
		}
	}

	checkCol := func(c ColumnRef) {
		if c.Star {
			if c.Table != "" {
				if _, ok := aliasToTable[c.Table]; !ok {
					violations = append(violations, Violation{Table: c.Table, Column: "*", Reason: "unknown table alias"})
				}
			}
			return
		}
		if c.Table != "" {
			tableName, ok := aliasToTable[c.Table]
			if !ok {
				violations = append(violations, Violation{Table: c.Table, Column: c.Name, Reason: "unknown table alias"})
				return
			}
			if !columnExists(sqlSchema, tableName, c.Name) {
				violations = append(violations, Violation{Table: tableName, Column: c.Name, Reason: "unknown column"})
			}
			return
		}
		matches := 0
		seen := map[string]bool{}
		for _, tableName := range aliasToTable {
			if seen[tableName] {
				continue
			}
			seen[tableName] = true
			if columnExists(sqlSchema, tableName, c.Name) {
				matches++
			}
		}
		switch matches {
		case 0:
			violations = append(violations, Violation{Column: c.Name, Reason: "column not found in any referenced table"})
		case 1:
			// resolved unambiguously
		default:
			violations = append(violations, Violation{Column: c.Name, Reason: "ambiguous column across joined tables"})
		}
	}

	for _, c := range stmt.Columns {
		checkCol(c)
	}
	for _, c := range stmt.WhereCols {
		checkCol(c)
	}
	return violations
}

func columnExists(sqlSchema schema.SQLSchema, table, column string) bool {
	cols, ok := sqlSchema.Tables[table]
	if !ok {
		return false
	}
	for _, c := range cols {
		if strings.EqualFold(c, column) {
			return true
		}
	}
	return false
}

func (v Violation) String() string {
	if v.Column == "" {
		return fmt.Sprintf("%s: %s", v.Table, v.Reason)
	}
	if v.Table == "" {
		return fmt.Sprintf("%s: %s", v.Column, v.Reason)
	}
	return fmt.Sprintf("%s.%s: %s", v.Table, v.Column, v.Reason)
}
