package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/core"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Statement dispatch and control flow.
//
// Grammar:
//
//	statement   → [WITH cte_list] (select | insert | update | delete | merge)
//	            | exec | declare | set | if | while | block | try_catch | ...
//	if          → IF expr statement [ELSE statement]
//	while       → WHILE expr statement
//	block       → BEGIN statement* END
//	try_catch   → BEGIN TRY statement* END TRY BEGIN CATCH statement* END CATCH
//	transaction → BEGIN [DISTRIBUTED] TRAN [name] | COMMIT [TRAN] [name]
//	            | ROLLBACK [TRAN] [name] | SAVE TRAN name
//	set         → SET @var assign_op expr | SET option value...
//	return      → RETURN [expr]
//	cursor      → OPEN c | CLOSE c | DEALLOCATE c | FETCH [dir] [FROM] c [INTO vars]

// parseStatement parses a single statement.
//
//nolint:gocyclo // dispatch over statement keywords
func (p *Parser) parseStatement() core.Stmt {
	switch p.token.Type {
	case token.SELECT, token.LPAREN:
		return p.parseSelectStmt(nil)
	case token.WITH:
		return p.parseWithStatement()
	case token.INSERT:
		return p.parseInsert(nil)
	case token.UPDATE:
		return p.parseUpdate(nil)
	case token.DELETE:
		return p.parseDelete(nil)
	case token.MERGE:
		return p.parseMerge(nil)
	case token.EXEC:
		return p.parseExec()
	case token.DECLARE:
		return p.parseDeclare()
	case token.SET:
		return p.parseSet()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.BEGIN:
		return p.parseBegin()
	case token.COMMIT, token.ROLLBACK, token.SAVE:
		return p.parseTransaction()
	case token.RETURN:
		return p.parseReturn()
	case token.PRINT:
		start := p.token.Pos
		p.nextToken()
		stmt := &core.PrintStmt{Value: p.parseExpression()}
		stmt.Span = p.span(start)
		return stmt
	case token.RAISERROR:
		return p.parseRaise()
	case token.CREATE, token.ALTER:
		return p.parseCreate()
	case token.DROP:
		return p.parseDrop()
	case token.TRUNCATE:
		return p.parseTruncate()
	case token.OPEN, token.CLOSE, token.DEALLOCATE, token.FETCH:
		return p.parseCursorStmt()
	case token.BREAK, token.CONTINUE:
		start := p.token.Pos
		kw := strings.ToUpper(p.token.Literal)
		p.nextToken()
		stmt := &core.ControlStmt{Keyword: kw}
		stmt.Span = p.span(start)
		return stmt
	case token.GOTO:
		start := p.token.Pos
		p.nextToken()
		stmt := &core.ControlStmt{Keyword: "GOTO", Label: p.parseIdent()}
		stmt.Span = p.span(start)
		return stmt
	case token.USE:
		start := p.token.Pos
		p.nextToken()
		stmt := &core.UseStmt{Database: p.parseIdent()}
		stmt.Span = p.span(start)
		return stmt
	case token.GRANT, token.REVOKE:
		return p.parseOther()
	case token.IDENT:
		switch {
		case p.token.Is("THROW"):
			return p.parseRaise()
		case p.checkPeek(token.COLON) && !p.token.Quoted:
			start := p.token.Pos
			label := p.token.Literal
			p.nextToken()
			p.nextToken()
			stmt := &core.ControlStmt{Keyword: "LABEL", Label: label}
			stmt.Span = p.span(start)
			return stmt
		}
		return p.parseOther()
	}

	p.addError(fmt.Sprintf(ErrUnexpectedStatement, describe(p.token)))
	return nil
}

// parseOther skips a statement the parser recognizes but does not model.
func (p *Parser) parseOther() core.Stmt {
	start := p.token.Pos
	kw := strings.ToUpper(p.token.Literal)
	p.nextToken()
	p.skipStatement()
	stmt := &core.OtherStmt{Keyword: kw}
	stmt.Span = p.span(start)
	return stmt
}

// parseWithStatement parses a CTE list and the statement it prefixes.
func (p *Parser) parseWithStatement() core.Stmt {
	with := p.parseWithClause()
	switch p.token.Type {
	case token.SELECT, token.LPAREN:
		return p.parseSelectStmt(with)
	case token.INSERT:
		return p.parseInsert(with)
	case token.UPDATE:
		return p.parseUpdate(with)
	case token.DELETE:
		return p.parseDelete(with)
	case token.MERGE:
		return p.parseMerge(with)
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "SELECT, INSERT, UPDATE, DELETE or MERGE"))
	return nil
}

// parseIf parses IF cond stmt [ELSE stmt].
func (p *Parser) parseIf() core.Stmt {
	start := p.token.Pos
	p.expect(token.IF)
	stmt := &core.IfStmt{Cond: p.parseExpression()}
	stmt.Then = p.parseBranch()
	if p.check(token.SEMICOLON) && p.checkPeek(token.ELSE) {
		p.nextToken()
	}
	if p.match(token.ELSE) {
		stmt.Else = p.parseBranch()
	}
	stmt.Span = p.span(start)
	return stmt
}

// parseWhile parses WHILE cond stmt.
func (p *Parser) parseWhile() core.Stmt {
	start := p.token.Pos
	p.expect(token.WHILE)
	stmt := &core.WhileStmt{Cond: p.parseExpression()}
	stmt.Body = p.parseBranch()
	stmt.Span = p.span(start)
	return stmt
}

// parseBranch parses the single statement governed by IF, ELSE or WHILE.
func (p *Parser) parseBranch() core.Stmt {
	if p.atBranchEnd() {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "statement"))
		return nil
	}
	return p.parseStatement()
}

func (p *Parser) atBranchEnd() bool {
	switch p.token.Type {
	case token.EOF, token.GO, token.SEMICOLON, token.ELSE, token.END:
		return true
	}
	return false
}

// parseBegin parses BEGIN ... END, BEGIN TRY/CATCH and BEGIN TRAN.
func (p *Parser) parseBegin() core.Stmt {
	switch {
	case p.peek.Is("TRY"):
		return p.parseTryCatch()
	case p.checkPeek(token.TRAN), p.peek.Is("DISTRIBUTED"):
		return p.parseTransaction()
	case p.peek.Is("CONVERSATION"), p.peek.Is("DIALOG"):
		return p.parseOther()
	}

	start := p.token.Pos
	p.expect(token.BEGIN)
	block := &core.BlockStmt{}
	block.Stmts = p.parseStmtList(func() bool { return p.check(token.END) })
	p.expect(token.END)
	block.Span = p.span(start)
	return block
}

// parseTryCatch parses BEGIN TRY ... END TRY BEGIN CATCH ... END CATCH.
func (p *Parser) parseTryCatch() core.Stmt {
	start := p.token.Pos
	stmt := &core.TryCatchStmt{}

	p.expect(token.BEGIN)
	p.expectWord("TRY")
	stmt.Try = p.parseStmtList(func() bool { return p.check(token.END) })
	p.expect(token.END)
	p.expectWord("TRY")

	p.expect(token.BEGIN)
	p.expectWord("CATCH")
	stmt.Catch = p.parseStmtList(func() bool { return p.check(token.END) })
	p.expect(token.END)
	p.expectWord("CATCH")

	stmt.Span = p.span(start)
	return stmt
}

// parseTransaction parses BEGIN/COMMIT/ROLLBACK/SAVE [TRAN] [name].
func (p *Parser) parseTransaction() core.Stmt {
	start := p.token.Pos
	stmt := &core.TransactionStmt{Action: strings.ToUpper(p.token.Literal)}
	p.nextToken()
	p.matchWord("DISTRIBUTED")
	if !p.match(token.TRAN) {
		p.matchWord("WORK")
	}
	if (p.check(token.IDENT) || p.check(token.VARIABLE)) && p.sameLine() {
		stmt.Name = p.token.Literal
		p.nextToken()
	}
	if p.check(token.WITH) && p.peek.Is("MARK") {
		p.nextToken()
		p.nextToken()
		p.match(token.STRING)
	}
	stmt.Span = p.span(start)
	return stmt
}

// parseReturn parses RETURN [expr]. Inside an inline table-valued function
// the returned query is kept as a SELECT.
func (p *Parser) parseReturn() core.Stmt {
	start := p.token.Pos
	p.expect(token.RETURN)
	stmt := &core.ReturnStmt{}

	switch {
	case p.inlineFunction && (p.check(token.SELECT) || p.check(token.WITH)):
		if p.check(token.WITH) {
			stmt.Select = p.parseSelectStmt(p.parseWithClause())
		} else {
			stmt.Select = p.parseSelectStmt(nil)
		}
	case p.atStatementEnd():
	default:
		stmt.Value = p.parseExpression()
		if sub, ok := unparen(stmt.Value).(*core.SubqueryExpr); ok && p.inlineFunction {
			stmt.Select = sub.Select
			stmt.Value = nil
		}
	}
	stmt.Span = p.span(start)
	return stmt
}

// parseRaise parses RAISERROR (args) [WITH options] and THROW [args].
func (p *Parser) parseRaise() core.Stmt {
	start := p.token.Pos
	stmt := &core.RaiseStmt{Keyword: strings.ToUpper(p.token.Literal)}
	p.nextToken()

	if stmt.Keyword == "RAISERROR" {
		p.expect(token.LPAREN)
		stmt.Args = p.parseExprList()
		p.expect(token.RPAREN)
		if p.match(token.WITH) {
			for p.check(token.IDENT) {
				p.nextToken()
				if !p.match(token.COMMA) {
					break
				}
			}
		}
	} else if !p.atStatementEnd() {
		stmt.Args = p.parseExprList()
	}
	stmt.Span = p.span(start)
	return stmt
}

// parseSet parses SET @var op expr, or a session option.
func (p *Parser) parseSet() core.Stmt {
	start := p.token.Pos
	p.expect(token.SET)

	if p.check(token.VARIABLE) && (p.checkPeek(token.EQ) || token.IsCompoundAssign(p.peek.Type)) {
		stmt := &core.SetVariableStmt{Variable: p.token.Literal}
		p.nextToken()
		stmt.Op = p.token.Type
		p.nextToken()
		if p.check(token.CURSOR) {
			// SET @c = CURSOR FOR select
			p.skipStatement()
		} else {
			stmt.Value = p.parseExpression()
		}
		stmt.Span = p.span(start)
		return stmt
	}

	stmt := &core.SetOptionStmt{Option: strings.ToUpper(p.token.Literal)}
	p.nextToken()
	var words []string
	for !p.check(token.EOF) && !p.check(token.GO) && !p.check(token.SEMICOLON) && p.sameLine() {
		if statementStarters[p.token.Type] {
			break
		}
		words = append(words, p.token.Literal)
		p.nextToken()
	}
	stmt.Value = strings.Join(words, " ")
	stmt.Span = p.span(start)
	return stmt
}

// parseCursorStmt parses OPEN, CLOSE, DEALLOCATE and FETCH.
func (p *Parser) parseCursorStmt() core.Stmt {
	start := p.token.Pos
	stmt := &core.CursorStmt{Action: strings.ToUpper(p.token.Literal)}
	isFetch := p.check(token.FETCH)
	p.nextToken()

	if isFetch {
		switch {
		case p.matchWord("NEXT"), p.matchWord("PRIOR"), p.matchWord("FIRST"), p.matchWord("LAST"):
		case p.matchWord("ABSOLUTE"), p.matchWord("RELATIVE"):
			p.parseExpression()
		}
		p.match(token.FROM)
	}
	p.matchWord("GLOBAL")
	if p.check(token.IDENT) || p.check(token.VARIABLE) {
		stmt.Cursor = p.token.Literal
		p.nextToken()
	} else {
		p.addError(fmt.Sprintf(ErrExpectedIdentifier, describe(p.token)))
	}
	if isFetch && p.match(token.INTO) {
		for p.check(token.VARIABLE) {
			stmt.Into = append(stmt.Into, p.token.Literal)
			p.nextToken()
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	stmt.Span = p.span(start)
	return stmt
}

// unparen strips redundant parentheses.
func unparen(e core.Expr) core.Expr {
	for {
		pe, ok := e.(*core.ParenExpr)
		if !ok {
			return e
		}
		e = pe.Expr
	}
}
