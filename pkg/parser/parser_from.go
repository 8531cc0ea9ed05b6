package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/core"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// FROM clause parsing: table references, derived tables, APPLY, JOINs.
//
// Grammar:
//
//	from_clause   → FROM table_ref (join)*
//	table_ref     → (table_name | derived_table | values_table | func_table
//	              |  open_table | "(" table_ref (join)* ")") [pivot]
//	table_name    → object_name [[AS] alias] [hints] | @table_var [[AS] alias]
//	derived_table → "(" select_stmt ")" [AS] alias ["(" ident_list ")"]
//	values_table  → "(" VALUES row ("," row)* ")" [AS] alias ["(" ident_list ")"]
//	func_table    → object_name "(" args ")" [[AS] alias ["(" ident_list ")"]]
//	open_table    → (OPENQUERY|OPENROWSET|OPENDATASOURCE) "(" ... ")" ["." name...] [[AS] alias]
//	hints         → WITH "(" hint ("," hint)* ")" | "(" NOLOCK ... ")"
//	join          → "," table_ref
//	              | [INNER | (LEFT|RIGHT|FULL) [OUTER]] [join_hint] JOIN table_ref ON expr
//	              | CROSS JOIN table_ref | (CROSS|OUTER) APPLY table_ref
//	pivot         → (PIVOT|UNPIVOT) "(" expr FOR expr ")" [AS] alias

// parseFromClause parses the FROM clause.
func (p *Parser) parseFromClause() *core.FromClause {
	start := p.token.Pos
	p.expect(token.FROM)
	from := &core.FromClause{Source: p.parseTableRef()}
	from.Joins = p.parseJoins()
	from.Span = p.span(start)
	return from
}

// parseJoins parses JOIN, APPLY and comma joins.
func (p *Parser) parseJoins() []*core.Join {
	var joins []*core.Join
	for {
		join := p.parseJoin()
		if join == nil {
			return joins
		}
		joins = append(joins, join)
	}
}

// parseJoin parses a single join, or returns nil when none follows.
func (p *Parser) parseJoin() *core.Join {
	start := p.token.Pos
	join := &core.Join{}
	needsOn := true

	switch p.token.Type {
	case token.COMMA:
		p.nextToken()
		join.Type = core.JoinComma
		needsOn = false
	case token.JOIN:
		p.nextToken()
		join.Type = core.JoinInner
	case token.INNER:
		p.nextToken()
		p.skipJoinHint()
		p.expect(token.JOIN)
		join.Type = core.JoinInner
	case token.LEFT, token.RIGHT, token.FULL:
		join.Type = map[token.TokenType]core.JoinType{
			token.LEFT: core.JoinLeft, token.RIGHT: core.JoinRight, token.FULL: core.JoinFull,
		}[p.token.Type]
		p.nextToken()
		p.match(token.OUTER)
		p.skipJoinHint()
		p.expect(token.JOIN)
	case token.CROSS:
		p.nextToken()
		needsOn = false
		if p.match(token.JOIN) {
			join.Type = core.JoinCross
		} else {
			p.expectWord("APPLY")
			join.Type = core.JoinCrossApply
		}
	case token.OUTER:
		if !p.peek.Is("APPLY") {
			return nil
		}
		p.nextToken()
		p.nextToken()
		join.Type = core.JoinOuterApply
		needsOn = false
	default:
		if p.isJoinHint() && p.checkPeek(token.JOIN) {
			p.skipJoinHint()
			p.nextToken()
			join.Type = core.JoinInner
			break
		}
		return nil
	}

	join.Right = p.parseTableRef()
	if needsOn {
		p.expect(token.ON)
		join.Condition = p.parseExpression()
	}
	join.Span = p.span(start)
	return join
}

func (p *Parser) isJoinHint() bool {
	return p.token.Is("HASH") || p.token.Is("LOOP") || p.token.Is("REMOTE") || p.check(token.MERGE)
}

func (p *Parser) skipJoinHint() {
	if p.isJoinHint() {
		p.nextToken()
	}
}

// parseTableRef parses a single table source.
func (p *Parser) parseTableRef() core.TableRef {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		p.addError(fmt.Sprintf(ErrMaxDepth, maxDepth))
		return nil
	}

	start := p.token.Pos
	var ref core.TableRef

	switch p.token.Type {
	case token.LPAREN:
		ref = p.parseParenTableRef()
	case token.OPENQUERY, token.OPENROWSET, token.OPENDATASOURCE:
		ref = p.parseOpenTable()
	case token.VARIABLE:
		ref = p.parseVariableTable()
	case token.IDENT:
		ref = p.parseNamedTable()
	default:
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "table name"))
		return nil
	}

	for p.token.Is("PIVOT") || p.token.Is("UNPIVOT") {
		ref = p.parsePivot(start, ref)
	}
	return ref
}

// parseParenTableRef parses derived tables, VALUES tables and parenthesized joins.
func (p *Parser) parseParenTableRef() core.TableRef {
	start := p.token.Pos

	switch {
	case p.checkPeek(token.SELECT), p.checkPeek(token.WITH),
		p.checkPeek(token.LPAREN) && (p.checkPeek2(token.SELECT) || p.checkPeek2(token.WITH)):
		p.nextToken()
		dt := &core.DerivedTable{}
		if p.check(token.WITH) {
			dt.Select = p.parseSelectStmt(p.parseWithClause())
		} else {
			dt.Select = p.parseSelectStmt(nil)
		}
		p.expect(token.RPAREN)
		dt.Alias, dt.Columns = p.parseDerivedAlias()
		dt.Span = p.span(start)
		return dt

	case p.checkPeek(token.VALUES):
		p.nextToken()
		p.nextToken()
		vt := &core.ValuesTable{Rows: p.parseValuesRows()}
		p.expect(token.RPAREN)
		vt.Alias, vt.Columns = p.parseDerivedAlias()
		vt.Span = p.span(start)
		return vt
	}

	p.nextToken()
	from := &core.FromClause{Source: p.parseTableRef()}
	from.Joins = p.parseJoins()
	from.Span = p.span(start)
	p.expect(token.RPAREN)
	jt := &core.JoinedTable{From: from}
	jt.Span = p.span(start)
	return jt
}

// parseValuesRows parses ("(" expr_list ")") ("," "(" expr_list ")")*.
func (p *Parser) parseValuesRows() [][]core.Expr {
	var rows [][]core.Expr
	for {
		p.expect(token.LPAREN)
		rows = append(rows, p.parseExprList())
		p.expect(token.RPAREN)
		if !p.match(token.COMMA) {
			return rows
		}
	}
}

// parseDerivedAlias parses [AS] alias [(cols)].
func (p *Parser) parseDerivedAlias() (string, []string) {
	alias := p.parseTableAlias()
	var cols []string
	if alias != "" && p.check(token.LPAREN) {
		cols = p.parseIdentList()
	}
	return alias, cols
}

// parseTableAlias parses an optional [AS] alias.
func (p *Parser) parseTableAlias() string {
	if p.match(token.AS) {
		if p.check(token.IDENT) || p.check(token.STRING) {
			alias := p.token.Literal
			p.nextToken()
			return alias
		}
		p.addError(fmt.Sprintf(ErrExpectedIdentifier, describe(p.token)))
		return ""
	}
	if isAliasCandidate(p.token) {
		alias := p.token.Literal
		p.nextToken()
		return alias
	}
	return ""
}

// parseOpenTable parses OPENQUERY, OPENROWSET and OPENDATASOURCE. String
// arguments are kept; everything else in the argument list is skipped.
func (p *Parser) parseOpenTable() core.TableRef {
	start := p.token.Pos
	ot := &core.OpenRowsetTable{Kind: p.token.Type.String()}
	p.nextToken()

	if p.check(token.LPAREN) {
		depth := 0
		for !p.check(token.EOF) {
			switch p.token.Type {
			case token.LPAREN:
				depth++
			case token.RPAREN:
				depth--
			case token.STRING:
				ot.Args = append(ot.Args, &core.Literal{
					NodeInfo: core.NodeInfo{Span: token.Span{Start: p.token.Pos, End: p.token.End}},
					Type:     core.LiteralString,
					Value:    p.token.Literal,
				})
			}
			p.nextToken()
			if depth == 0 {
				break
			}
		}
	} else {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "("))
	}

	if p.check(token.DOT) {
		objStart := p.token.Pos
		var parts []string
		for p.match(token.DOT) {
			if p.check(token.DOT) {
				parts = append(parts, "")
				continue
			}
			parts = append(parts, p.parseNamePart())
		}
		obj := &core.ObjectName{}
		setParts(parts, &obj.Name, &obj.Schema, &obj.Database)
		obj.Span = p.span(objStart)
		ot.Object = obj
	}

	if p.check(token.WITH) && p.checkPeek(token.LPAREN) {
		p.nextToken()
		p.skipParens()
	}
	ot.Alias = p.parseTableAlias()
	if ot.Alias != "" && p.check(token.LPAREN) {
		p.skipParens()
	}
	ot.Span = p.span(start)
	return ot
}

// parseVariableTable parses a @table variable, or an XML method call on a
// variable such as @x.nodes('/r') AS t(c).
func (p *Parser) parseVariableTable() core.TableRef {
	start := p.token.Pos
	name := &core.ObjectName{Name: p.token.Literal}
	p.nextToken()
	name.Span = p.span(start)

	if p.check(token.DOT) && p.checkPeek(token.IDENT) && p.checkPeek2(token.LPAREN) {
		v := &core.Variable{Name: name.Name}
		v.Span = name.Span
		p.nextToken()
		fn := &core.FuncCall{Name: p.token.Literal}
		p.nextToken()
		p.parseFuncArgs(fn)
		fn.Args = append([]core.Expr{v}, fn.Args...)
		fn.Span = p.span(start)
		ft := &core.FuncTable{Func: fn}
		ft.Alias, ft.Columns = p.parseDerivedAlias()
		ft.Span = p.span(start)
		return ft
	}

	tn := &core.TableName{Name: name}
	tn.Alias = p.parseTableAlias()
	tn.Span = p.span(start)
	return tn
}

// parseNamedTable parses a table, view or table-valued function reference.
func (p *Parser) parseNamedTable() core.TableRef {
	start := p.token.Pos
	name := p.parseObjectName()

	if p.check(token.LPAREN) && !p.isLegacyHint() {
		fn := &core.FuncCall{Schema: name.Schema, Name: name.Name}
		if name.Database != "" {
			fn.Schema = name.Database + "." + name.Schema
		}
		p.parseFuncArgs(fn)
		fn.Span = p.span(start)
		ft := &core.FuncTable{Func: fn}
		if p.check(token.WITH) && p.checkPeek(token.LPAREN) {
			// OPENJSON(...) WITH (col type [path], ...)
			ft.Columns = p.parseWithSchema()
		}
		alias, cols := p.parseDerivedAlias()
		ft.Alias = alias
		if cols != nil {
			ft.Columns = cols
		}
		ft.Span = p.span(start)
		return ft
	}

	tn := &core.TableName{Name: name}
	tn.Hints = p.parseTableHints()
	p.skipTemporalClause()
	tn.Alias = p.parseTableAlias()
	tn.Hints = append(tn.Hints, p.parseTableHints()...)
	if p.token.Is("TABLESAMPLE") {
		p.nextToken()
		p.matchWord("SYSTEM")
		p.skipParens()
		if p.matchWord("REPEATABLE") {
			p.skipParens()
		}
	}
	tn.Span = p.span(start)
	return tn
}

// skipTemporalClause skips FOR SYSTEM_TIME ... on temporal tables.
func (p *Parser) skipTemporalClause() {
	if !p.check(token.FOR) || !p.peek.Is("SYSTEM_TIME") {
		return
	}
	p.nextToken()
	p.nextToken()
	switch {
	case p.match(token.AS):
		p.expectWord("OF")
		p.parseExpression()
	case p.match(token.FROM), p.matchWord("CONTAINED"):
		p.match(token.IN)
		if p.match(token.LPAREN) {
			p.parseExprList()
			p.expect(token.RPAREN)
			return
		}
		p.parsePrimary()
		if !p.matchWord("TO") {
			p.match(token.AND)
		}
		p.parsePrimary()
	case p.match(token.BETWEEN):
		p.parsePrimary()
		p.match(token.AND)
		p.parsePrimary()
	case p.match(token.ALL):
	}
}

// parseWithSchema parses the WITH (...) column list of OPENJSON and
// returns the column names.
func (p *Parser) parseWithSchema() []string {
	p.expect(token.WITH)
	p.expect(token.LPAREN)
	var cols []string
	for !p.check(token.RPAREN) && !p.check(token.EOF) {
		cols = append(cols, p.parseIdent())
		p.skipElement()
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return cols
}

// parseTableHints parses WITH (hint, ...) or the legacy (NOLOCK) form.
func (p *Parser) parseTableHints() []string {
	switch {
	case p.check(token.WITH) && p.checkPeek(token.LPAREN):
		p.nextToken()
	case p.isLegacyHint():
	default:
		return nil
	}

	var hints []string
	p.expect(token.LPAREN)
	for !p.check(token.RPAREN) && !p.check(token.EOF) {
		switch {
		case p.check(token.LPAREN):
			p.skipParens()
			continue
		case p.check(token.IDENT):
			hints = append(hints, strings.ToUpper(p.token.Literal))
		}
		p.nextToken()
	}
	p.expect(token.RPAREN)
	return hints
}

// isLegacyHint reports whether the current "(" opens a hint list written
// without WITH, as in FROM t (NOLOCK).
func (p *Parser) isLegacyHint() bool {
	if !p.check(token.LPAREN) {
		return false
	}
	switch strings.ToUpper(p.peek.Literal) {
	case "NOLOCK", "READUNCOMMITTED", "READCOMMITTED", "REPEATABLEREAD", "SERIALIZABLE",
		"UPDLOCK", "HOLDLOCK", "ROWLOCK", "PAGLOCK", "TABLOCK", "TABLOCKX", "XLOCK",
		"READPAST", "NOWAIT":
		return p.peek.Type == token.IDENT
	}
	return false
}

// parsePivot parses PIVOT/UNPIVOT into a table function named after the
// operator over source. Its arguments are the aggregate and the FOR ... IN
// expression.
func (p *Parser) parsePivot(start token.Position, source core.TableRef) core.TableRef {
	fn := &core.FuncCall{Name: strings.ToUpper(p.token.Literal)}
	p.nextToken()
	p.expect(token.LPAREN)
	fn.Args = append(fn.Args, p.parseExpression())
	p.expect(token.FOR)
	fn.Args = append(fn.Args, p.parseExpression())
	p.expect(token.RPAREN)
	fn.Span = p.span(start)

	ft := &core.FuncTable{Func: fn, Source: source}
	ft.Alias, ft.Columns = p.parseDerivedAlias()
	ft.Span = p.span(start)
	return ft
}

// skipElement skips to the next depth-0 comma or closing parenthesis.
func (p *Parser) skipElement() {
	depth := 0
	for !p.check(token.EOF) && !p.check(token.GO) {
		switch p.token.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			if depth == 0 {
				return
			}
			depth--
		case token.COMMA:
			if depth == 0 {
				return
			}
		}
		p.nextToken()
	}
}
