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
)

// ColumnRef is a single selected or referenced column, optionally
// qualified by table/alias.
type ColumnRef struct {
	Table string
	Name  string
	Star  bool
}

// TableRef is a table referenced in the FROM or JOIN clause.
type TableRef struct {
	Name  string
	Alias string
}

// SelectStatement is the parsed shape of a SELECT-only query; anything
// else the grammar encounters is a parse error, not a different
// statement type.
type SelectStatement struct {
	Columns   []ColumnRef
	Tables    []TableRef
	WhereCols []ColumnRef // columns referenced in WHERE/ON/HAVING/ORDER/GROUP clauses
}

type parser struct {
	toks []token
	pos  int
}

// Parse tokenizes and parses a SELECT-only query into a SelectStatement,
// along with every LexViolation tokenize found. A dangerous-statement or
// multiple-statement violation means the grammar parse below is not
// attempted — the caller should treat violations as unsafe on its own.
func Parse(query string) (*SelectStatement, []LexViolation, error) {
	toks, violations, err := tokenize(query)
	if err != nil {
		return nil, violations, err
	}
	if len(violations) > 0 {
		return nil, violations, nil
	}
	p := &parser{toks: toks}
	stmt, err := p.parseSelect()
	return stmt, nil, err
}

func (p *parser) peek() token { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expectKeyword(kw string) error {
	t := p.advance()
	if t.kind != tokIdent || strings.ToLower(t.text) != kw {
		return fmt.Errorf("sqlengine: expected %q, got %q", kw, t.text)
	}
	return nil
}

func isKeyword(t token, kw string) bool {
	return t.kind == tokIdent && strings.ToLower(t.text) == kw
}

func (p *parser) parseSelect() (*SelectStatement, error) {
	if err := p.expectKeyword("select"); err != nil {
		return nil, err
	}
	if isKeyword(p.peek(), "distinct") {
		p.advance()
	}

	stmt := &SelectStatement{}
	cols, err := p.parseColumnList()
	if err != nil {
		return nil, err
	}
	stmt.Columns = cols

	if err := p.expectKeyword("from"); err != nil {
		return nil, err
	}
	tables, err := p.parseTableList()
	if err != nil {
		return nil, err
	}
	stmt.Tables = tables

	for {
		t := p.peek()
		switch {
		case isKeyword(t, "where") || isKeyword(t, "having"):
			p.advance()
			cols, err := p.parseExprColumns()
			if err != nil {
				return nil, err
			}
			stmt.WhereCols = append(stmt.WhereCols, cols...)
		case isKeyword(t, "join") || isKeyword(t, "inner") || isKeyword(t, "left") || isKeyword(t, "right") || isKeyword(t, "outer"):
			for isKeyword(p.peek(), "inner") || isKeyword(p.peek(), "left") || isKeyword(p.peek(), "right") || isKeyword(p.peek(), "outer") {
				p.advance()
			}
			if err := p.expectKeyword("join"); err != nil {
				return nil, err
			}
			tbl, err := p.parseTable()
			if err != nil {
				return nil, err
			}
			stmt.Tables = append(stmt.Tables, tbl)
			if isKeyword(p.peek(), "on") {
				p.advance()
				cols, err := p.parseExprColumns()
				if err != nil {
					return nil, err
				}
				stmt.WhereCols = append(stmt.WhereCols, cols...)
			}
		case isKeyword(t, "group"):
			p.advance()
			if err := p.expectKeyword("by"); err != nil {
				return nil, err
			}
			cols, err := p.parseColumnList()
			if err != nil {
				return nil, err
			}
			stmt.WhereCols = append(stmt.WhereCols, cols...)
		case isKeyword(t, "order"):
			p.advance()
			if err := p.expectKeyword("by"); err != nil {
				return nil, err
			}
			cols, err := p.parseOrderList()
			if err != nil {
				return nil, err
			}
			stmt.WhereCols = append(stmt.WhereCols, cols...)
		case isKeyword(t, "limit"):
			p.advance()
			p.advance() // the numeric literal
		default:
			if t.kind == tokEOF {
				return stmt, nil
			}
			return nil, fmt.Errorf("sqlengine: unexpected token %q", t.text)
		}
	}
}

func (p *parser) parseColumnList() ([]ColumnRef, error) {
	var cols []ColumnRef
	for {
		col, err := p.parseColumn()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if p.peek().kind == tokComma {
			p.advance()
			continue
		}
		return cols, nil
	}
}

func (p *parser) parseColumn() (ColumnRef, error) {
	t := p.advance()
	if t.kind == tokStar {
		return ColumnRef{Star: true}, nil
	}
	if t.kind != tokIdent {
		return ColumnRef{}, fmt.Errorf("sqlengine: expected column identifier, got %q", t.text)
	}
	col := ColumnRef{Name: t.text}
	if p.peek().kind == tokDot {
		p.advance()
		next := p.advance()
		if next.kind == tokStar {
			return ColumnRef{Table: col.Name, Star: true}, nil
		}
		if next.kind != tokIdent {
			return ColumnRef{}, fmt.Errorf("sqlengine: expected column identifier after '.'")
		}
		col = ColumnRef{Table: col.Name, Name: next.text}
	}
	if isKeyword(p.peek(), "as") {
		p.advance()
		p.advance() // alias name, not schema-checked
	} else if p.peek().kind == tokIdent && !keywords[strings.ToLower(p.peek().text)] {
		p.advance() // bare alias
	}
	return col, nil
}

func (p *parser) parseTableList() ([]TableRef, error) {
	var tables []TableRef
	for {
		tbl, err := p.parseTable()
		if err != nil {
			return nil, err
		}
		tables = append(tables, tbl)
		if p.peek().kind == tokComma {
			p.advance()
			continue
		}
		return tables, nil
	}
}

func (p *parser) parseTable() (TableRef, error) {
	t := p.advance()
	if t.kind != tokIdent {
		return TableRef{}, fmt.Errorf("sqlengine: expected table name, got %q", t.text)
	}
	tbl := TableRef{Name: t.text}
	if isKeyword(p.peek(), "as") {
		p.advance()
		alias := p.advance()
		tbl.Alias = alias.text
	} else if p.peek().kind == tokIdent && !keywords[strings.ToLower(p.peek().text)] {
		alias := p.advance()
		tbl.Alias = alias.text
	}
	return tbl, nil
}

// parseExprColumns scans a boolean/comparison expression up to the next
// clause keyword or statement end, collecting every column reference it
// contains without building a full expression tree — the schema
// validator only needs to know which columns the query touches.
func (p *parser) parseExprColumns() ([]ColumnRef, error) {
	var cols []ColumnRef
	depth := 0
	for {
		t := p.peek()
		if t.kind == tokEOF {
			return cols, nil
		}
		if depth == 0 && (isKeyword(t, "group") || isKeyword(t, "order") || isKeyword(t, "limit") ||
			isKeyword(t, "join") || isKeyword(t, "inner") || isKeyword(t, "left") ||
			isKeyword(t, "right") || isKeyword(t, "outer") || isKeyword(t, "having") ||
			isKeyword(t, "where")) {
			return cols, nil
		}
		switch t.kind {
		case tokLParen:
			depth++
			p.advance()
		case tokRParen:
			if depth == 0 {
				return cols, nil
			}
			depth--
			p.advance()
		case tokIdent:
			if isKeyword(t, "and") || isKeyword(t, "or") || isKeyword(t, "not") ||
				isKeyword(t, "in") || isKeyword(t, "between") || isKeyword(t, "like") ||
				isKeyword(t, "is") || isKeyword(t, "null") {
				p.advance()
				continue
			}
			col, err := p.parseQualifiedIdent()
			if err != nil {
				return nil, err
			}
			cols = append(cols, col)
		default:
			p.advance()
		}
	}
}

func (p *parser) parseQualifiedIdent() (ColumnRef, error) {
	first := p.advance()
	col := ColumnRef{Name: first.text}
	if p.peek().kind == tokDot {
		p.advance()
		second := p.advance()
		if second.kind != tokIdent {
			return ColumnRef{}, fmt.Errorf("sqlengine: expected identifier after '.'")
		}
		col = ColumnRef{Table: first.text, Name: second.text}
	}
	return col, nil
}

func (p *parser) parseOrderList() ([]ColumnRef, error) {
	var cols []ColumnRef
	for {
		col, err := p.parseQualifiedIdent()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if isKeyword(p.peek(), "asc") || isKeyword(p.peek(), "desc") {
			p.advance()
		}
		if p.peek().kind == tokComma {
			p.advance()
			continue
		}
		return cols, nil
	}
}
