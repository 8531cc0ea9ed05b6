package parser

import (
	"fmt"

	"github.com/leapstack-labs/sqllineage/pkg/core"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Data modification parsing: INSERT, UPDATE, DELETE, MERGE, OUTPUT and EXEC.
//
// Grammar:
//
//	insert     → INSERT [top] [INTO] target [hints] ["(" column_list ")"] [output]
//	             (VALUES row ("," row)* | select_stmt | exec | DEFAULT VALUES)
//	update     → UPDATE [top] target [hints] SET set_list [output]
//	             [FROM from_clause] [WHERE (expr | CURRENT OF cursor)]
//	set_item   → column assign_op expr | @var assign_op expr | @var "=" column "=" expr
//	delete     → DELETE [top] [FROM] target [hints] [output]
//	             [FROM from_clause] [WHERE (expr | CURRENT OF cursor)]
//	merge      → MERGE [top] [INTO] target [hints] [[AS] alias] USING table_ref ON expr
//	             merge_when+ [output]
//	merge_when → WHEN [NOT] MATCHED [BY (TARGET|SOURCE)] [AND expr] THEN
//	             (UPDATE SET set_list | DELETE
//	             | INSERT ["(" column_list ")"] (VALUES "(" expr_list ")" | DEFAULT VALUES))
//	output     → OUTPUT select_list [INTO target ["(" column_list ")"]]
//	exec       → EXEC "(" expr ["," expr]* ")" [AS (LOGIN|USER) "=" string] [AT server]
//	           | EXEC [@ret "="] (object_name | @proc_var) [param ("," param)*]
//	param      → [@name "="] (expr [OUTPUT] | DEFAULT)

// parseInsert parses an INSERT statement.
func (p *Parser) parseInsert(with *core.WithClause) core.Stmt {
	start := p.stmtStart(with)
	p.expect(token.INSERT)
	stmt := &core.InsertStmt{With: with}

	if p.check(token.TOP) {
		stmt.Top = p.parseTop()
	}
	p.match(token.INTO)
	stmt.Target = p.parseTargetName()
	p.parseTableHints()

	if p.check(token.LPAREN) && !p.checkPeek(token.SELECT) && !p.checkPeek(token.WITH) {
		stmt.Columns = p.parseColumnList()
	}

	if p.token.Is("OUTPUT") {
		stmt.Output = p.parseOutputClause()
	}

	switch {
	case p.match(token.VALUES):
		stmt.Values = p.parseValuesRows()
	case p.check(token.SELECT), p.check(token.LPAREN):
		stmt.Select = p.parseSelectStmt(nil)
	case p.check(token.WITH):
		stmt.Select = p.parseSelectStmt(p.parseWithClause())
	case p.check(token.EXEC):
		if exec, ok := p.parseExec().(*core.ExecStmt); ok {
			stmt.Exec = exec
		}
	case p.check(token.DEFAULT):
		p.nextToken()
		p.expect(token.VALUES)
		stmt.DefaultValues = true
	default:
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "VALUES, SELECT, EXEC or DEFAULT VALUES"))
	}

	stmt.Span = p.span(start)
	return stmt
}

// parseUpdate parses an UPDATE statement.
func (p *Parser) parseUpdate(with *core.WithClause) core.Stmt {
	start := p.stmtStart(with)
	p.expect(token.UPDATE)
	stmt := &core.UpdateStmt{With: with}

	if p.check(token.TOP) {
		stmt.Top = p.parseTop()
	}
	stmt.Target = p.parseTargetName()
	p.parseTableHints()

	p.expect(token.SET)
	stmt.Sets = p.parseSetList()

	if p.token.Is("OUTPUT") {
		stmt.Output = p.parseOutputClause()
	}
	if p.check(token.FROM) {
		stmt.From = p.parseFromClause()
	}
	stmt.Where = p.parseDMLWhere()
	p.skipOption()

	stmt.Span = p.span(start)
	return stmt
}

// parseDelete parses a DELETE statement.
func (p *Parser) parseDelete(with *core.WithClause) core.Stmt {
	start := p.stmtStart(with)
	p.expect(token.DELETE)
	stmt := &core.DeleteStmt{With: with}

	if p.check(token.TOP) {
		stmt.Top = p.parseTop()
	}
	p.match(token.FROM)
	stmt.Target = p.parseTargetName()
	p.parseTableHints()

	if p.token.Is("OUTPUT") {
		stmt.Output = p.parseOutputClause()
	}
	if p.check(token.FROM) {
		stmt.From = p.parseFromClause()
	}
	stmt.Where = p.parseDMLWhere()
	p.skipOption()

	stmt.Span = p.span(start)
	return stmt
}

// parseMerge parses a MERGE statement.
func (p *Parser) parseMerge(with *core.WithClause) core.Stmt {
	start := p.stmtStart(with)
	p.expect(token.MERGE)
	stmt := &core.MergeStmt{With: with}

	if p.check(token.TOP) {
		p.parseTop()
	}
	p.match(token.INTO)
	stmt.Target = p.parseTargetName()
	p.parseTableHints()
	stmt.TargetAlias = p.parseTableAlias()

	p.expectWord("USING")
	stmt.Source = p.parseTableRef()
	p.expect(token.ON)
	stmt.On = p.parseExpression()

	for p.check(token.WHEN) {
		stmt.Whens = append(stmt.Whens, p.parseMergeWhen())
		if p.failed {
			break
		}
	}
	if len(stmt.Whens) == 0 && !p.failed {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "WHEN"))
	}

	if p.token.Is("OUTPUT") {
		stmt.Output = p.parseOutputClause()
	}
	p.skipOption()

	stmt.Span = p.span(start)
	return stmt
}

// parseMergeWhen parses one WHEN clause of a MERGE.
func (p *Parser) parseMergeWhen() *core.MergeWhen {
	start := p.token.Pos
	p.expect(token.WHEN)
	when := &core.MergeWhen{Match: core.MergeMatched}

	if p.match(token.NOT) {
		p.expectWord("MATCHED")
		when.Match = core.MergeNotMatchedByTarget
		if p.match(token.BY) {
			if p.matchWord("SOURCE") {
				when.Match = core.MergeNotMatchedBySource
			} else {
				p.expectWord("TARGET")
			}
		}
	} else {
		p.expectWord("MATCHED")
	}

	if p.match(token.AND) {
		when.Condition = p.parseExpression()
	}
	p.expect(token.THEN)

	switch p.token.Type {
	case token.UPDATE:
		p.nextToken()
		p.expect(token.SET)
		when.Action = core.MergeUpdate
		when.Sets = p.parseSetList()
	case token.DELETE:
		p.nextToken()
		when.Action = core.MergeDelete
	case token.INSERT:
		p.nextToken()
		when.Action = core.MergeInsert
		if p.check(token.LPAREN) {
			when.Columns = p.parseColumnList()
		}
		if p.match(token.DEFAULT) {
			p.expect(token.VALUES)
			when.DefaultValues = true
		} else {
			p.expect(token.VALUES)
			p.expect(token.LPAREN)
			when.Values = p.parseExprList()
			p.expect(token.RPAREN)
		}
	default:
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "UPDATE, DELETE or INSERT"))
	}

	when.Span = p.span(start)
	return when
}

// parseSetList parses the assignments of UPDATE ... SET and MERGE ... UPDATE SET.
func (p *Parser) parseSetList() []*core.SetClause {
	var sets []*core.SetClause
	for {
		sets = append(sets, p.parseSetClause())
		if !p.match(token.COMMA) {
			return sets
		}
	}
}

// parseSetClause parses a single assignment.
func (p *Parser) parseSetClause() *core.SetClause {
	start := p.token.Pos
	set := &core.SetClause{}

	if p.check(token.VARIABLE) {
		set.Variable = p.token.Literal
		p.nextToken()
		set.Op = p.parseAssignOp()
		if set.Op == token.EQ && p.check(token.IDENT) && p.checkPeek(token.EQ) {
			// SET @v = col = expr
			col := &core.ColumnRef{Column: p.token.Literal}
			col.Span = token.Span{Start: p.token.Pos, End: p.token.End}
			set.Column = col
			p.nextToken()
			p.nextToken()
		}
		set.Value = p.parseExpression()
		set.Span = p.span(start)
		return set
	}

	if !p.check(token.IDENT) {
		p.addError(fmt.Sprintf(ErrExpectedIdentifier, describe(p.token)))
		return set
	}
	col, ok := p.parseIdentExpr().(*core.ColumnRef)
	if !ok {
		p.addError("expected column name in SET")
		return set
	}
	set.Column = col
	set.Op = p.parseAssignOp()
	set.Value = p.parseExpression()
	set.Span = p.span(start)
	return set
}

// parseAssignOp consumes "=" or a compound assignment operator.
func (p *Parser) parseAssignOp() token.TokenType {
	op := p.token.Type
	if op == token.EQ || token.IsCompoundAssign(op) {
		p.nextToken()
		return op
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "="))
	return token.EQ
}

// parseColumnList parses "(" column ("," column)* ")".
func (p *Parser) parseColumnList() []*core.ColumnRef {
	p.expect(token.LPAREN)
	var cols []*core.ColumnRef
	for {
		start := p.token.Pos
		if !p.check(token.IDENT) {
			p.addError(fmt.Sprintf(ErrExpectedIdentifier, describe(p.token)))
			break
		}
		parts := []string{p.token.Literal}
		p.nextToken()
		for p.match(token.DOT) {
			parts = append(parts, p.parseNamePart())
		}
		col := columnFromParts(parts)
		col.Span = p.span(start)
		cols = append(cols, col)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return cols
}

// parseDMLWhere parses WHERE expr and skips WHERE CURRENT OF cursor.
func (p *Parser) parseDMLWhere() core.Expr {
	if !p.match(token.WHERE) {
		return nil
	}
	if p.token.Is("CURRENT") && p.peek.Is("OF") {
		p.nextToken()
		p.nextToken()
		p.matchWord("GLOBAL")
		if p.check(token.IDENT) || p.check(token.VARIABLE) {
			p.nextToken()
		}
		return nil
	}
	return p.parseExpression()
}

// skipOption skips a trailing OPTION (...) query hint.
func (p *Parser) skipOption() {
	if p.check(token.OPTION) && p.checkPeek(token.LPAREN) {
		p.nextToken()
		p.skipParens()
	}
}

// parseOutputClause parses OUTPUT items [INTO target [(cols)]].
func (p *Parser) parseOutputClause() *core.OutputClause {
	start := p.token.Pos
	p.expectWord("OUTPUT")
	out := &core.OutputClause{Columns: p.parseSelectList()}
	if p.match(token.INTO) {
		out.Into = p.parseTargetName()
		if p.check(token.LPAREN) {
			out.IntoColumns = p.parseColumnList()
		}
	}
	out.Span = p.span(start)
	return out
}

// parseExec parses EXEC in its procedure and dynamic string forms.
func (p *Parser) parseExec() core.Stmt {
	start := p.token.Pos
	p.expect(token.EXEC)
	stmt := &core.ExecStmt{}

	if p.match(token.LPAREN) {
		stmt.DynamicSQL = p.parseExpression()
		for p.match(token.COMMA) {
			paramStart := p.token.Pos
			param := &core.ExecParam{Value: p.parseExpression()}
			param.Span = p.span(paramStart)
			if p.matchWord("OUTPUT") || p.matchWord("OUT") {
				param.Output = true
			}
			stmt.Params = append(stmt.Params, param)
		}
		p.expect(token.RPAREN)
		if p.check(token.AS) && (p.peek.Is("LOGIN") || p.peek.Is("USER")) {
			p.nextToken()
			p.nextToken()
			p.expect(token.EQ)
			p.expect(token.STRING)
		}
		if p.matchWord("AT") {
			p.matchWord("DATA_SOURCE")
			stmt.AtServer = p.parseIdent()
		}
		stmt.Span = p.span(start)
		return stmt
	}

	if p.check(token.VARIABLE) && p.checkPeek(token.EQ) {
		stmt.ReturnVariable = p.token.Literal
		p.nextToken()
		p.nextToken()
	}

	if p.check(token.VARIABLE) {
		stmt.ProcVariable = p.token.Literal
		p.nextToken()
	} else {
		stmt.Procedure = p.parseObjectName()
		if p.check(token.SEMICOLON) && p.checkPeek(token.NUMBER) && p.peek.Pos.Line == p.token.Pos.Line {
			// numbered procedure: proc;2
			p.nextToken()
			p.nextToken()
		}
	}

	if !p.atExecParamsEnd() {
		for {
			stmt.Params = append(stmt.Params, p.parseExecParam())
			if !p.match(token.COMMA) {
				break
			}
		}
	}

	if p.check(token.WITH) && (p.peek.Is("RECOMPILE") || p.peek.Is("RESULT")) {
		p.nextToken()
		for {
			if p.matchWord("RESULT") {
				p.expectWord("SETS")
				if !p.matchWord("NONE") && !p.matchWord("UNDEFINED") {
					for p.check(token.LPAREN) {
						p.skipParens()
						if !p.match(token.COMMA) {
							break
						}
					}
				}
			} else {
				p.expectWord("RECOMPILE")
			}
			if !p.match(token.COMMA) {
				break
			}
		}
	}

	stmt.Span = p.span(start)
	return stmt
}

func (p *Parser) atExecParamsEnd() bool {
	if p.atStatementEnd() || p.check(token.RPAREN) {
		return true
	}
	if p.check(token.WITH) && (p.peek.Is("RECOMPILE") || p.peek.Is("RESULT")) {
		return true
	}
	return p.token.Is("THROW") || (p.check(token.IDENT) && p.checkPeek(token.COLON))
}

// parseExecParam parses [@name =] value [OUTPUT] | [@name =] DEFAULT.
func (p *Parser) parseExecParam() *core.ExecParam {
	start := p.token.Pos
	param := &core.ExecParam{}

	if p.check(token.VARIABLE) && p.checkPeek(token.EQ) {
		param.Name = p.token.Literal
		p.nextToken()
		p.nextToken()
	}

	if p.check(token.DEFAULT) {
		p.nextToken()
		param.Default = true
	} else {
		param.Value = p.parseExpression()
	}
	if p.matchWord("OUTPUT") || p.matchWord("OUT") {
		param.Output = true
	}

	param.Span = p.span(start)
	return param
}

// stmtStart returns where a statement begins, including its WITH clause.
func (p *Parser) stmtStart(with *core.WithClause) token.Position {
	if with != nil {
		return with.Span.Start
	}
	return p.token.Pos
}
