package parser

import (
	"fmt"

	"github.com/leapstack-labs/sqllineage/pkg/core"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Expression precedence parsing using a Pratt parser.
//
// Precedence levels:
//
//	PrecedenceNone       = 0
//	PrecedenceOr         = 1
//	PrecedenceAnd        = 2
//	PrecedenceNot        = 3
//	PrecedenceComparison = 4  (=, <>, <, >, <=, >=, IS, IN, BETWEEN, LIKE)
//	PrecedenceAddition   = 5  (+, -, &, |, ^)
//	PrecedenceMultiply   = 6  (*, /, %)
//	PrecedenceUnary      = 7  (-, +, ~)
//	PrecedencePostfix    = 8  (COLLATE)

// Operator precedence levels.
const (
	PrecedenceNone = iota
	PrecedenceOr
	PrecedenceAnd
	PrecedenceNot
	PrecedenceComparison
	PrecedenceAddition
	PrecedenceMultiply
	PrecedenceUnary
	PrecedencePostfix
)

// parseExpression parses an expression using precedence climbing.
func (p *Parser) parseExpression() core.Expr {
	return p.parseExpressionWithPrecedence(PrecedenceNone + 1)
}

// parseExpressionWithPrecedence implements Pratt parsing.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) core.Expr {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		p.addError(fmt.Sprintf(ErrMaxDepth, maxDepth))
		return nil
	}

	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for {
		prec := p.getInfixPrecedence()
		if prec < minPrecedence {
			break
		}

		left = p.parseInfixExpr(left, prec)
		if left == nil {
			break
		}
	}

	return left
}

// parsePrefixExpr parses prefix expressions (unary operators and primary expressions).
func (p *Parser) parsePrefixExpr() core.Expr {
	start := p.token.Pos
	switch p.token.Type {
	case token.NOT:
		p.nextToken()
		expr := &core.UnaryExpr{Op: token.NOT, Expr: p.parseExpressionWithPrecedence(PrecedenceNot)}
		expr.Span = p.span(start)
		return expr

	case token.MINUS, token.PLUS, token.TILDE:
		op := p.token.Type
		p.nextToken()
		expr := &core.UnaryExpr{Op: op, Expr: p.parseExpressionWithPrecedence(PrecedenceUnary)}
		expr.Span = p.span(start)
		return expr

	default:
		return p.parsePrimary()
	}
}

// getInfixPrecedence returns the precedence of the current token as an infix operator.
// Returns 0 if the token is not an infix operator.
func (p *Parser) getInfixPrecedence() int {
	switch p.token.Type {
	case token.OR:
		return PrecedenceOr
	case token.AND:
		return PrecedenceAnd
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE,
		token.IS, token.IN, token.BETWEEN, token.LIKE:
		return PrecedenceComparison
	case token.NOT:
		if p.checkPeek(token.IN) || p.checkPeek(token.BETWEEN) || p.checkPeek(token.LIKE) {
			return PrecedenceComparison
		}
	case token.PLUS, token.MINUS, token.AMP, token.PIPE, token.CARET:
		return PrecedenceAddition
	case token.STAR, token.SLASH, token.PERCENT:
		return PrecedenceMultiply
	case token.COLLATE:
		return PrecedencePostfix
	}
	return PrecedenceNone
}

// parseInfixExpr parses the operator at the current token with left as its
// left operand.
func (p *Parser) parseInfixExpr(left core.Expr, prec int) core.Expr {
	start := left.Pos()

	switch p.token.Type {
	case token.IS:
		p.nextToken()
		expr := &core.IsNullExpr{Expr: left, Not: p.match(token.NOT)}
		p.expect(token.NULL)
		expr.Span = p.span(start)
		return expr

	case token.COLLATE:
		p.nextToken()
		expr := &core.CollateExpr{Expr: left, Collation: p.parseIdent()}
		expr.Span = p.span(start)
		return expr

	case token.NOT, token.IN, token.BETWEEN, token.LIKE:
		not := p.match(token.NOT)
		return p.parsePredicate(left, not, start)
	}

	op := p.token.Type
	p.nextToken()

	var right core.Expr
	if prec == PrecedenceComparison && p.isQuantifier() {
		// x > ALL (SELECT ...), x = ANY (...)
		p.nextToken()
		right = p.parsePrimary()
	} else {
		right = p.parseExpressionWithPrecedence(prec + 1)
	}
	if right == nil {
		p.addError(fmt.Sprintf(ErrExpectedExpression, describe(p.token)))
		return nil
	}

	expr := &core.BinaryExpr{Left: left, Op: op, Right: right}
	expr.Span = p.span(start)
	return expr
}

func (p *Parser) isQuantifier() bool {
	return (p.check(token.ALL) || p.token.Is("ANY") || p.token.Is("SOME")) && p.checkPeek(token.LPAREN)
}

// parsePredicate parses [NOT] IN, [NOT] BETWEEN and [NOT] LIKE.
func (p *Parser) parsePredicate(left core.Expr, not bool, start token.Position) core.Expr {
	switch p.token.Type {
	case token.IN:
		p.nextToken()
		expr := &core.InExpr{Expr: left, Not: not}
		p.expect(token.LPAREN)
		if p.check(token.SELECT) || p.check(token.WITH) {
			if p.check(token.WITH) {
				expr.Query = p.parseSelectStmt(p.parseWithClause())
			} else {
				expr.Query = p.parseSelectStmt(nil)
			}
		} else {
			expr.Values = p.parseExprList()
		}
		p.expect(token.RPAREN)
		expr.Span = p.span(start)
		return expr

	case token.BETWEEN:
		p.nextToken()
		expr := &core.BetweenExpr{Expr: left, Not: not}
		expr.Low = p.parseExpressionWithPrecedence(PrecedenceComparison + 1)
		p.expect(token.AND)
		expr.High = p.parseExpressionWithPrecedence(PrecedenceComparison + 1)
		expr.Span = p.span(start)
		return expr

	case token.LIKE:
		p.nextToken()
		expr := &core.LikeExpr{Expr: left, Not: not}
		expr.Pattern = p.parseExpressionWithPrecedence(PrecedenceComparison + 1)
		if p.matchWord("ESCAPE") {
			expr.Escape = p.parsePrimary()
		}
		expr.Span = p.span(start)
		return expr
	}

	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "IN, BETWEEN or LIKE"))
	return nil
}

// parseExprList parses expr ("," expr)*.
func (p *Parser) parseExprList() []core.Expr {
	var exprs []core.Expr
	for {
		exprs = append(exprs, p.parseExpression())
		if !p.match(token.COMMA) {
			break
		}
	}
	return exprs
}
