package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/core"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Query parsing: WITH clause, CTEs, SELECT body, SELECT list, ORDER BY.
//
// Grammar:
//
//	select_stmt   → [WITH cte_list] select_body [ORDER BY order_list]
//	                [OFFSET n ROWS [FETCH (FIRST|NEXT) m ROWS ONLY]]
//	                [FOR (XML|JSON|BROWSE) ...] [OPTION "(" ... ")"]
//	cte_list      → cte ("," cte)*
//	cte           → identifier ["(" ident_list ")"] AS "(" select_stmt ")"
//	select_body   → (select_core | "(" select_stmt ")")
//	                [(UNION [ALL] | INTERSECT | EXCEPT) select_body]
//	select_core   → SELECT [DISTINCT|ALL] [top] select_list
//	                [INTO object_name] [FROM from_clause] [WHERE expr]
//	                [GROUP BY expr_list] [HAVING expr]
//	top           → TOP (number | "(" expr ")") [PERCENT] [WITH TIES]
//	select_item   → "*" | qualifier "." "*" | @var assign_op expr
//	              | alias "=" expr | expr [[AS] alias]

// parseWithClause parses a WITH clause with CTEs.
func (p *Parser) parseWithClause() *core.WithClause {
	start := p.token.Pos
	p.expect(token.WITH)
	with := &core.WithClause{}

	for {
		with.CTEs = append(with.CTEs, p.parseCTE())
		if !p.match(token.COMMA) {
			break
		}
	}

	with.Span = p.span(start)
	return with
}

// parseCTE parses a single CTE.
func (p *Parser) parseCTE() *core.CTE {
	start := p.token.Pos
	cte := &core.CTE{Name: p.parseIdent()}

	if p.check(token.LPAREN) {
		cte.Columns = p.parseIdentList()
	}

	p.expect(token.AS)
	p.expect(token.LPAREN)
	if p.check(token.WITH) {
		cte.Select = p.parseSelectStmt(p.parseWithClause())
	} else {
		cte.Select = p.parseSelectStmt(nil)
	}
	p.expect(token.RPAREN)

	cte.Span = p.span(start)
	return cte
}

// parseSelectStmt parses a query with its trailing clauses. with is the
// already parsed WITH clause, if any.
func (p *Parser) parseSelectStmt(with *core.WithClause) *core.SelectStmt {
	start := p.token.Pos
	if with != nil {
		start = with.Span.Start
	}
	stmt := &core.SelectStmt{With: with}

	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		p.addError(fmt.Sprintf(ErrMaxDepth, maxDepth))
		return stmt
	}

	stmt.Body = p.parseSelectBody()

	if p.check(token.ORDER) {
		stmt.OrderBy = p.parseOrderBy()
	}

	if p.matchWord("OFFSET") {
		stmt.Offset = p.parseExpression()
		if !p.matchWord("ROWS") {
			p.matchWord("ROW")
		}
		if p.match(token.FETCH) {
			if !p.matchWord("NEXT") {
				p.expectWord("FIRST")
			}
			stmt.Fetch = p.parseExpression()
			if !p.matchWord("ROWS") {
				p.matchWord("ROW")
			}
			p.expectWord("ONLY")
		}
	}

	if p.check(token.FOR) {
		stmt.For = p.parseForClause()
	}

	if p.check(token.OPTION) && p.checkPeek(token.LPAREN) {
		p.nextToken()
		p.skipParens()
	}

	stmt.Span = p.span(start)
	return stmt
}

// parseForClause parses FOR XML/JSON/BROWSE and the cursor FOR UPDATE [OF cols].
// Only the mode is kept.
func (p *Parser) parseForClause() string {
	p.expect(token.FOR)
	mode := strings.ToUpper(p.token.Literal)

	if p.match(token.UPDATE) {
		if p.matchWord("OF") {
			p.parseExprList()
		}
		return mode
	}
	p.nextToken()

	depth := 0
	for !p.check(token.EOF) && !p.check(token.GO) {
		switch {
		case p.check(token.LPAREN):
			depth++
		case p.check(token.RPAREN):
			if depth == 0 {
				return mode
			}
			depth--
		case depth == 0 && (p.check(token.SEMICOLON) || statementStarters[p.token.Type] || p.check(token.OPTION)):
			return mode
		}
		p.nextToken()
	}
	return mode
}

// parseSelectBody parses a SELECT body with possible set operations.
// Parenthesized operands are flattened into the chain.
func (p *Parser) parseSelectBody() *core.SelectBody {
	start := p.token.Pos
	body := &core.SelectBody{}

	if p.check(token.LPAREN) {
		p.nextToken()
		inner := p.parseSelectStmt(nil)
		p.expect(token.RPAREN)
		if inner.Body != nil {
			body = inner.Body
		}
	} else {
		body.Left = p.parseSelectCore()
	}

	var op core.SetOpType
	switch p.token.Type {
	case token.UNION:
		op = core.SetOpUnion
	case token.INTERSECT:
		op = core.SetOpIntersect
	case token.EXCEPT:
		op = core.SetOpExcept
	}
	if op != core.SetOpNone {
		p.nextToken()
		all := p.match(token.ALL)

		tail := body
		for tail.Right != nil {
			tail = tail.Right
		}
		tail.Op = op
		tail.All = all
		tail.Right = p.parseSelectBody()
	}

	body.Span = p.span(start)
	return body
}

// parseSelectCore parses a single SELECT clause.
func (p *Parser) parseSelectCore() *core.SelectCore {
	start := p.token.Pos
	sc := &core.SelectCore{}
	if !p.expect(token.SELECT) {
		return sc
	}

	if p.match(token.DISTINCT) {
		sc.Distinct = true
	} else {
		p.match(token.ALL)
	}

	if p.check(token.TOP) {
		sc.Top = p.parseTop()
	}

	sc.Columns = p.parseSelectList()

	if p.match(token.INTO) {
		sc.Into = p.parseTargetName()
	}

	if p.check(token.FROM) {
		sc.From = p.parseFromClause()
	}

	if p.match(token.WHERE) {
		sc.Where = p.parseExpression()
	}

	if p.check(token.GROUP) {
		p.nextToken()
		p.expect(token.BY)
		sc.GroupBy = p.parseGroupBy()
	}

	if p.match(token.HAVING) {
		sc.Having = p.parseExpression()
	}

	sc.Span = p.span(start)
	return sc
}

// parseGroupBy parses the GROUP BY list. GROUPING SETS and the trailing
// WITH ROLLUP/CUBE are consumed; ROLLUP(...) and CUBE(...) parse as calls.
func (p *Parser) parseGroupBy() []core.Expr {
	p.match(token.ALL)
	var exprs []core.Expr
	for {
		if p.token.Is("GROUPING") && p.peek.Is("SETS") {
			p.nextToken()
			p.nextToken()
			p.skipParens()
		} else {
			exprs = append(exprs, p.parseExpression())
		}
		if !p.match(token.COMMA) {
			break
		}
	}
	if p.check(token.WITH) && (p.peek.Is("ROLLUP") || p.peek.Is("CUBE")) {
		p.nextToken()
		p.nextToken()
	}
	return exprs
}

// parseTop parses TOP n, TOP (expr), PERCENT and WITH TIES.
func (p *Parser) parseTop() *core.TopClause {
	p.expect(token.TOP)
	top := &core.TopClause{}
	if p.match(token.LPAREN) {
		top.Count = p.parseExpression()
		p.expect(token.RPAREN)
	} else {
		top.Count = p.parsePrimary()
	}
	top.Percent = p.matchWord("PERCENT")
	if p.check(token.WITH) && p.peek.Is("TIES") {
		p.nextToken()
		p.nextToken()
		top.WithTies = true
	}
	return top
}

// parseSelectList parses the SELECT list.
func (p *Parser) parseSelectList() []*core.SelectItem {
	var items []*core.SelectItem
	for {
		items = append(items, p.parseSelectItem())
		if !p.match(token.COMMA) {
			break
		}
	}
	return items
}

// parseSelectItem parses a single item in the SELECT or OUTPUT list.
func (p *Parser) parseSelectItem() *core.SelectItem {
	start := p.token.Pos
	item := &core.SelectItem{}

	switch {
	case p.check(token.STAR):
		p.nextToken()
		item.Star = true
		item.Span = p.span(start)
		return item

	case p.check(token.VARIABLE) && (p.checkPeek(token.EQ) || token.IsCompoundAssign(p.peek.Type)):
		// SELECT @v = expr
		item.Variable = p.token.Literal
		p.nextToken()
		p.nextToken()
		item.Expr = p.parseExpression()
		item.Span = p.span(start)
		return item

	case (p.check(token.IDENT) || p.check(token.STRING)) && p.checkPeek(token.EQ):
		// SELECT alias = expr
		item.Alias = p.token.Literal
		p.nextToken()
		p.nextToken()
		item.Expr = p.parseExpression()
		item.Span = p.span(start)
		return item
	}

	expr := p.parseExpression()
	if star, ok := expr.(*core.StarExpr); ok {
		if star.Table == "" {
			item.Star = true
		} else {
			item.TableStar = star.Table
		}
		item.Span = p.span(start)
		return item
	}
	item.Expr = expr

	if p.match(token.AS) {
		if p.check(token.IDENT) || p.check(token.STRING) {
			item.Alias = p.token.Literal
			p.nextToken()
		} else {
			p.addError(fmt.Sprintf(ErrExpectedIdentifier, describe(p.token)))
		}
	} else if p.check(token.STRING) || isAliasCandidate(p.token) {
		item.Alias = p.token.Literal
		p.nextToken()
	}

	item.Span = p.span(start)
	return item
}

// parseOrderBy parses ORDER BY items.
func (p *Parser) parseOrderBy() []core.OrderByItem {
	p.expect(token.ORDER)
	p.expect(token.BY)

	var items []core.OrderByItem
	for {
		item := core.OrderByItem{Expr: p.parseExpression()}
		if p.match(token.DESC) {
			item.Desc = true
		} else {
			p.match(token.ASC)
		}
		items = append(items, item)
		if !p.match(token.COMMA) {
			break
		}
	}
	return items
}

// isAliasCandidate reports whether tok can be an implicit alias. Unreserved
// words that introduce clauses or statements are excluded.
func isAliasCandidate(tok token.Token) bool {
	if tok.Type != token.IDENT {
		return false
	}
	if tok.Quoted {
		return true
	}
	switch strings.ToUpper(tok.Literal) {
	case "USING", "OUTPUT", "PIVOT", "UNPIVOT", "TABLESAMPLE", "THROW",
		"WAITFOR", "APPLY", "WINDOW", "OFFSET", "DENY", "CHECKPOINT",
		"RECONFIGURE", "KILL", "DBCC", "BULK":
		return false
	}
	return true
}

// ---------- Names ----------

// parseIdent parses a single identifier.
func (p *Parser) parseIdent() string {
	if !p.check(token.IDENT) {
		p.addError(fmt.Sprintf(ErrExpectedIdentifier, describe(p.token)))
		return ""
	}
	name := p.token.Literal
	p.nextToken()
	return name
}

// parseIdentList parses "(" ident ("," ident)* ")".
func (p *Parser) parseIdentList() []string {
	p.expect(token.LPAREN)
	var names []string
	for {
		names = append(names, p.parseIdent())
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return names
}

// parseNamePart accepts an identifier or any keyword after a dot.
func (p *Parser) parseNamePart() string {
	if p.check(token.IDENT) || token.IsKeyword(p.token.Type) {
		name := p.token.Literal
		p.nextToken()
		return name
	}
	p.addError(fmt.Sprintf(ErrExpectedIdentifier, describe(p.token)))
	return ""
}

// parseObjectName parses [server.][database.][schema.]name. Empty parts
// are allowed (db..table).
func (p *Parser) parseObjectName() *core.ObjectName {
	start := p.token.Pos
	name := &core.ObjectName{}
	if !p.check(token.IDENT) {
		p.addError(fmt.Sprintf(ErrExpectedIdentifier, describe(p.token)))
		return name
	}

	parts := []string{p.token.Literal}
	p.nextToken()
	for p.check(token.DOT) {
		p.nextToken()
		if p.check(token.DOT) {
			parts = append(parts, "")
			continue
		}
		parts = append(parts, p.parseNamePart())
	}
	if len(parts) > 4 {
		p.addError(fmt.Sprintf("object name %q has more than four parts", strings.Join(parts, ".")))
		parts = parts[len(parts)-4:]
	}

	setParts(parts, &name.Name, &name.Schema, &name.Database, &name.Server)
	name.Span = p.span(start)
	return name
}

// parseTargetName parses a table name or a @table variable.
func (p *Parser) parseTargetName() *core.ObjectName {
	if p.check(token.VARIABLE) {
		start := p.token.Pos
		name := &core.ObjectName{Name: p.token.Literal}
		p.nextToken()
		name.Span = p.span(start)
		return name
	}
	return p.parseObjectName()
}

// setParts assigns name parts right to left.
func setParts(parts []string, dst ...*string) {
	for i := range dst {
		j := len(parts) - 1 - i
		if j < 0 {
			return
		}
		*dst[i] = parts[j]
	}
}
