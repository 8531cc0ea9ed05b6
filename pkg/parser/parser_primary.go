package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/core"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Primary expression parsing: literals, variables, column refs, function calls.
//
// Grammar:
//
//	primary       → literal | variable | column_ref | func_call | paren_expr
//	              | case_expr | cast_expr | convert_expr | exists_expr | special_call
//	literal       → NUMBER | STRING | NULL | DEFAULT
//	column_ref    → [[[database "."] schema "."] table "."] column
//	func_call     → [schema "."] identifier "(" [DISTINCT] [expr_list | "*"] ")"
//	                [WITHIN GROUP "(" ORDER BY order_list ")"] [OVER window_spec]
//	window_spec   → "(" [PARTITION BY expr_list] [ORDER BY order_list] [frame] ")"
//	method_call   → primary "." identifier "(" expr_list ")"

// parsePrimary parses primary expressions.
//
//nolint:gocyclo // one case per primary form
func (p *Parser) parsePrimary() core.Expr {
	start := p.token.Pos

	switch p.token.Type {
	case token.NUMBER:
		return p.parseLiteral(core.LiteralNumber)

	case token.STRING:
		return p.parseLiteral(core.LiteralString)

	case token.NULL:
		return p.parseLiteral(core.LiteralNull)

	case token.DEFAULT:
		return p.parseLiteral(core.LiteralDefault)

	case token.VARIABLE:
		v := &core.Variable{Name: p.token.Literal}
		p.nextToken()
		v.Span = p.span(start)
		return p.parseMethodCalls(v, start)

	case token.LPAREN:
		return p.parseMethodCalls(p.parseParenExpr(), start)

	case token.CASE:
		return p.parseCaseExpr()

	case token.CAST:
		return p.parseCastExpr(false)

	case token.EXISTS:
		return p.parseExistsExpr()

	case token.STAR:
		p.nextToken()
		star := &core.StarExpr{}
		star.Span = p.span(start)
		return star

	case token.LEFT, token.RIGHT, token.UPDATE:
		// LEFT(s, n), RIGHT(s, n) and UPDATE(col) inside triggers
		if p.checkPeek(token.LPAREN) {
			fn := &core.FuncCall{Name: strings.ToUpper(p.token.Literal)}
			p.nextToken()
			p.parseFuncArgs(fn)
			fn.Span = p.span(start)
			return fn
		}

	case token.IDENT:
		if !p.token.Quoted {
			if expr := p.parseSpecialCall(); expr != nil {
				return expr
			}
		}
		return p.parseIdentExpr()
	}

	p.addError(fmt.Sprintf(ErrExpectedExpression, describe(p.token)))
	return nil
}

func (p *Parser) parseLiteral(t core.LiteralType) core.Expr {
	lit := &core.Literal{Type: t, Value: p.token.Literal}
	lit.Span = token.Span{Start: p.token.Pos, End: p.token.End}
	p.nextToken()
	return lit
}

// parseIdentExpr parses an identifier chain: a column reference, a
// qualified star, a function call or a niladic function.
func (p *Parser) parseIdentExpr() core.Expr {
	start := p.token.Pos
	first := p.token
	parts := []string{p.token.Literal}
	p.nextToken()

	for p.check(token.DOT) {
		switch {
		case p.checkPeek(token.STAR):
			p.nextToken()
			p.nextToken()
			star := &core.StarExpr{Table: strings.Join(parts, ".")}
			star.Span = p.span(start)
			return star
		case p.checkPeek(token.DOT):
			p.nextToken()
			parts = append(parts, "")
			continue
		case p.checkPeek(token.IDENT) || token.IsKeyword(p.peek.Type):
			p.nextToken()
			parts = append(parts, p.token.Literal)
			p.nextToken()
			continue
		}
		break
	}

	if p.check(token.LPAREN) {
		name := parts[len(parts)-1]
		prefix := parts[:len(parts)-1]

		if len(prefix) > 0 && isXMLMethod(name) {
			// t.xmlcol.value('(/a)[1]', 'int')
			col := columnFromParts(prefix)
			col.Span = token.Span{Start: start, End: p.prevEnd}
			fn := &core.FuncCall{Name: name}
			p.parseFuncArgs(fn)
			fn.Args = append([]core.Expr{col}, fn.Args...)
			fn.Span = p.span(start)
			return fn
		}

		fn := &core.FuncCall{Schema: strings.Join(prefix, "."), Name: name}
		p.parseFuncArgs(fn)
		p.parseFuncSuffix(fn)
		fn.Span = p.span(start)
		return fn
	}

	if len(parts) == 1 && !first.Quoted && isNiladic(first.Literal) {
		fn := &core.FuncCall{Name: strings.ToUpper(first.Literal)}
		fn.Span = p.span(start)
		return fn
	}

	col := columnFromParts(parts)
	col.Span = p.span(start)
	return col
}

// columnFromParts builds a column reference from name parts, assigned
// right to left as column, table, schema and database.
func columnFromParts(parts []string) *core.ColumnRef {
	col := &core.ColumnRef{}
	if len(parts) > 4 {
		parts = parts[len(parts)-4:]
	}
	setParts(parts, &col.Column, &col.Table, &col.Schema, &col.Database)
	return col
}

func isXMLMethod(name string) bool {
	switch strings.ToLower(name) {
	case "value", "query", "exist", "nodes", "modify":
		return true
	}
	return false
}

func isNiladic(name string) bool {
	switch strings.ToUpper(name) {
	case "CURRENT_TIMESTAMP", "CURRENT_USER", "SESSION_USER", "SYSTEM_USER", "USER", "CURRENT_DATE":
		return true
	}
	return false
}

// isDatePartFunc reports whether the first argument of the function is a
// bare datepart keyword (DATEADD(day, ...)).
func isDatePartFunc(name string) bool {
	switch strings.ToUpper(name) {
	case "DATEADD", "DATEDIFF", "DATEDIFF_BIG", "DATEPART", "DATENAME", "DATETRUNC", "DATE_BUCKET":
		return true
	}
	return false
}

// parseFuncArgs parses "(" [DISTINCT|ALL] ["*" | args] ")" into fn.
func (p *Parser) parseFuncArgs(fn *core.FuncCall) {
	p.expect(token.LPAREN)
	if p.match(token.RPAREN) {
		return
	}
	if p.check(token.STAR) && p.checkPeek(token.RPAREN) {
		p.nextToken()
		p.nextToken()
		fn.Star = true
		return
	}

	if p.match(token.DISTINCT) {
		fn.Distinct = true
	} else {
		p.match(token.ALL)
	}

	for i := 0; ; i++ {
		var arg core.Expr
		if i == 0 && isDatePartFunc(fn.Name) && p.check(token.IDENT) && (p.checkPeek(token.COMMA) || p.checkPeek(token.RPAREN)) {
			arg = p.parseLiteral(core.LiteralString)
		} else {
			arg = p.parseExpression()
		}
		if p.match(token.AS) {
			// PARSE(x AS date USING 'en-US')
			p.parseDataType()
			if p.matchWord("USING") {
				p.parseExpression()
			}
		}
		fn.Args = append(fn.Args, arg)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
}

// parseFuncSuffix parses WITHIN GROUP (...) and OVER (...) after a call.
func (p *Parser) parseFuncSuffix(fn *core.FuncCall) {
	if p.token.Is("WITHIN") && p.checkPeek(token.GROUP) {
		p.nextToken()
		p.nextToken()
		p.expect(token.LPAREN)
		fn.WithinGroup = p.parseOrderBy()
		p.expect(token.RPAREN)
	}
	if p.check(token.OVER) {
		fn.Over = p.parseWindowSpec()
	}
}

// parseWindowSpec parses OVER (...). Frame clauses are skipped.
func (p *Parser) parseWindowSpec() *core.WindowSpec {
	p.expect(token.OVER)
	spec := &core.WindowSpec{}
	if p.check(token.IDENT) {
		// named window
		p.nextToken()
		return spec
	}
	p.expect(token.LPAREN)
	if p.match(token.PARTITION) {
		p.expect(token.BY)
		spec.PartitionBy = p.parseExprList()
	}
	if p.check(token.ORDER) {
		spec.OrderBy = p.parseOrderBy()
	}
	if p.token.Is("ROWS") || p.token.Is("RANGE") {
		for !p.check(token.RPAREN) && !p.check(token.EOF) {
			p.nextToken()
		}
	}
	p.expect(token.RPAREN)
	return spec
}

// parseMethodCalls parses XML method calls chained onto base:
// (SELECT ... FOR XML PATH(''), TYPE).value('.', 'nvarchar(max)').
func (p *Parser) parseMethodCalls(base core.Expr, start token.Position) core.Expr {
	for base != nil && p.check(token.DOT) && p.checkPeek(token.IDENT) && p.checkPeek2(token.LPAREN) {
		p.nextToken()
		fn := &core.FuncCall{Name: p.token.Literal}
		p.nextToken()
		p.parseFuncArgs(fn)
		fn.Args = append([]core.Expr{base}, fn.Args...)
		fn.Span = p.span(start)
		base = fn
	}
	return base
}
