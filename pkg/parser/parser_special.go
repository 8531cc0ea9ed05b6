package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/core"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Special expression parsing: CASE, CAST, CONVERT, COALESCE, NULLIF, IIF,
// EXISTS, parenthesized expressions and subqueries.
//
// Grammar:
//
//	case_expr     → CASE [expr] (WHEN expr THEN expr)+ [ELSE expr] END
//	cast_expr     → (CAST|TRY_CAST) "(" expr AS type_name ")"
//	convert_expr  → (CONVERT|TRY_CONVERT) "(" type_name "," expr ["," expr] ")"
//	coalesce_expr → COALESCE "(" expr_list ")"
//	nullif_expr   → NULLIF "(" expr "," expr ")"
//	iif_expr      → IIF "(" expr "," expr "," expr ")"
//	exists_expr   → EXISTS "(" select_stmt ")"
//	paren_expr    → "(" expression ")" | "(" select_stmt ")"  -- subquery if SELECT/WITH
//	type_name     → identifier ["." identifier] ["(" (number ["," number] | MAX) ")"]

// parseSpecialCall parses the built-ins that get their own node types.
// It returns nil when the current identifier is not one of them.
func (p *Parser) parseSpecialCall() core.Expr {
	if p.token.Is("NEXT") && p.peek.Is("VALUE") && p.checkPeek2(token.FOR) {
		return p.parseNextValueFor()
	}
	if !p.checkPeek(token.LPAREN) {
		return nil
	}

	start := p.token.Pos
	switch strings.ToUpper(p.token.Literal) {
	case "TRY_CAST":
		return p.parseCastExpr(true)

	case "CONVERT", "TRY_CONVERT":
		return p.parseConvertExpr()

	case "COALESCE":
		p.nextToken()
		p.expect(token.LPAREN)
		expr := &core.CoalesceExpr{Args: p.parseExprList()}
		p.expect(token.RPAREN)
		expr.Span = p.span(start)
		return expr

	case "NULLIF":
		p.nextToken()
		p.expect(token.LPAREN)
		expr := &core.NullIfExpr{Left: p.parseExpression()}
		p.expect(token.COMMA)
		expr.Right = p.parseExpression()
		p.expect(token.RPAREN)
		expr.Span = p.span(start)
		return expr

	case "IIF":
		p.nextToken()
		p.expect(token.LPAREN)
		expr := &core.IifExpr{Cond: p.parseExpression()}
		p.expect(token.COMMA)
		expr.Then = p.parseExpression()
		p.expect(token.COMMA)
		expr.Else = p.parseExpression()
		p.expect(token.RPAREN)
		expr.Span = p.span(start)
		return expr
	}
	return nil
}

// parseNextValueFor parses NEXT VALUE FOR sequence [OVER (...)].
func (p *Parser) parseNextValueFor() core.Expr {
	start := p.token.Pos
	p.nextToken()
	p.nextToken()
	p.expect(token.FOR)
	seq := p.parseObjectName()
	fn := &core.FuncCall{Schema: seq.Schema, Name: "NEXT VALUE FOR " + seq.Name}
	if p.check(token.OVER) {
		fn.Over = p.parseWindowSpec()
	}
	fn.Span = p.span(start)
	return fn
}

// parseCaseExpr parses a CASE expression.
func (p *Parser) parseCaseExpr() core.Expr {
	start := p.token.Pos
	p.expect(token.CASE)
	caseExpr := &core.CaseExpr{}

	// Simple CASE: CASE expr WHEN ...
	if !p.check(token.WHEN) {
		caseExpr.Operand = p.parseExpression()
	}

	for p.match(token.WHEN) {
		when := core.WhenClause{}
		when.Condition = p.parseExpression()
		p.expect(token.THEN)
		when.Result = p.parseExpression()
		caseExpr.Whens = append(caseExpr.Whens, when)
	}
	if len(caseExpr.Whens) == 0 {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "WHEN"))
	}

	if p.match(token.ELSE) {
		caseExpr.Else = p.parseExpression()
	}

	p.expect(token.END)
	caseExpr.Span = p.span(start)
	return caseExpr
}

// parseCastExpr parses CAST(expr AS type) and TRY_CAST.
func (p *Parser) parseCastExpr(try bool) core.Expr {
	start := p.token.Pos
	p.nextToken()
	p.expect(token.LPAREN)
	expr := &core.CastExpr{Expr: p.parseExpression(), Try: try}
	p.expect(token.AS)
	expr.TypeName = p.parseDataType()
	p.expect(token.RPAREN)
	expr.Span = p.span(start)
	return expr
}

// parseConvertExpr parses CONVERT(type, expr [, style]) and TRY_CONVERT.
func (p *Parser) parseConvertExpr() core.Expr {
	start := p.token.Pos
	expr := &core.ConvertExpr{Try: p.token.Is("TRY_CONVERT")}
	p.nextToken()
	p.expect(token.LPAREN)
	expr.TypeName = p.parseDataType()
	p.expect(token.COMMA)
	expr.Expr = p.parseExpression()
	if p.match(token.COMMA) {
		expr.Style = p.parseExpression()
	}
	p.expect(token.RPAREN)
	expr.Span = p.span(start)
	return expr
}

// parseExistsExpr parses EXISTS (subquery).
func (p *Parser) parseExistsExpr() core.Expr {
	start := p.token.Pos
	p.expect(token.EXISTS)
	p.expect(token.LPAREN)
	expr := &core.ExistsExpr{}
	if p.check(token.WITH) {
		expr.Select = p.parseSelectStmt(p.parseWithClause())
	} else {
		expr.Select = p.parseSelectStmt(nil)
	}
	p.expect(token.RPAREN)
	expr.Span = p.span(start)
	return expr
}

// parseParenExpr parses a parenthesized expression or scalar subquery.
func (p *Parser) parseParenExpr() core.Expr {
	start := p.token.Pos
	p.expect(token.LPAREN)

	if p.check(token.SELECT) || p.check(token.WITH) ||
		(p.check(token.LPAREN) && (p.checkPeek(token.SELECT) || p.checkPeek(token.WITH))) {
		sub := &core.SubqueryExpr{}
		if p.check(token.WITH) {
			sub.Select = p.parseSelectStmt(p.parseWithClause())
		} else {
			sub.Select = p.parseSelectStmt(nil)
		}
		p.expect(token.RPAREN)
		sub.Span = p.span(start)
		return sub
	}

	inner := p.parseExpression()
	if inner == nil {
		return nil
	}
	p.expect(token.RPAREN)
	paren := &core.ParenExpr{Expr: inner}
	paren.Span = p.span(start)
	return paren
}

// parseDataType parses a type name such as nvarchar(max), decimal(18, 2),
// double precision or a user-defined dbo.type.
func (p *Parser) parseDataType() string {
	if !p.check(token.IDENT) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "data type"))
		return ""
	}
	var b strings.Builder
	b.WriteString(p.token.Literal)
	p.nextToken()

	if p.check(token.DOT) && p.checkPeek(token.IDENT) {
		p.nextToken()
		b.WriteString("." + p.token.Literal)
		p.nextToken()
	}
	if p.token.Is("PRECISION") || p.token.Is("VARYING") {
		b.WriteString(" " + p.token.Literal)
		p.nextToken()
	}

	if p.check(token.LPAREN) {
		b.WriteString("(")
		p.nextToken()
		for i := 0; !p.check(token.RPAREN) && !p.check(token.EOF); i++ {
			if i > 0 {
				if !p.expect(token.COMMA) {
					break
				}
				b.WriteString(",")
			}
			if !p.check(token.NUMBER) && !p.token.Is("MAX") {
				p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "length"))
				break
			}
			b.WriteString(p.token.Literal)
			p.nextToken()
		}
		p.expect(token.RPAREN)
		b.WriteString(")")
	}
	return b.String()
}
