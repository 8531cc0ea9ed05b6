package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/core"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Object definition parsing: procedures, views, functions, triggers,
// CREATE TABLE, DECLARE, DROP and TRUNCATE.
//
// Grammar:
//
//	create      → (CREATE [OR ALTER] | ALTER) (proc | view | function | trigger)
//	            | CREATE TABLE object_name "(" column_def ("," column_def)* ")"
//	proc        → PROC object_name [["("] param_list [")"]] [WITH options] AS statement*
//	view        → VIEW object_name ["(" ident_list ")"] [WITH options] AS select_stmt
//	              [WITH CHECK OPTION]
//	function    → FUNCTION object_name "(" [param_list] ")" RETURNS
//	              (type_name | TABLE | @var TABLE "(" column_defs ")")
//	              [WITH options] [AS] statement*
//	trigger     → TRIGGER object_name ON object_name [WITH options]
//	              (FOR | AFTER | INSTEAD OF) event ("," event)* AS statement*
//	param       → @name [AS] type_name [VARYING] ["=" expr] [OUT|OUTPUT] [READONLY]
//	declare     → DECLARE var_decl ("," var_decl)* | DECLARE name CURSOR ... FOR select_stmt
//	var_decl    → @name [AS] (type_name ["=" expr] | TABLE "(" column_defs ")" | CURSOR)
//	drop        → DROP kind [IF EXISTS] object_name ("," object_name)*
//	truncate    → TRUNCATE TABLE object_name

// parseCreate parses CREATE and ALTER statements.
func (p *Parser) parseCreate() core.Stmt {
	start := p.token.Pos
	keyword := strings.ToUpper(p.token.Literal)
	alter := p.check(token.ALTER)
	p.nextToken()

	if !alter && p.match(token.OR) {
		p.expect(token.ALTER)
		alter = true
	}

	switch p.token.Type {
	case token.PROC:
		return p.parseCreateProc(start, alter)
	case token.VIEW:
		return p.parseCreateView(start, alter)
	case token.FUNCTION:
		return p.parseCreateFunction(start, alter)
	case token.TRIGGER:
		return p.parseCreateTrigger(start, alter)
	case token.TABLE:
		if keyword == "CREATE" {
			return p.parseCreateTable(start)
		}
	}

	p.skipStatement()
	stmt := &core.OtherStmt{Keyword: keyword}
	stmt.Span = p.span(start)
	return stmt
}

// parseCreateProc parses the rest of CREATE PROCEDURE.
func (p *Parser) parseCreateProc(start token.Position, alter bool) core.Stmt {
	p.expect(token.PROC)
	stmt := &core.CreateProcStmt{Alter: alter, Name: p.parseObjectName()}
	if p.check(token.SEMICOLON) && p.checkPeek(token.NUMBER) {
		p.nextToken()
		p.nextToken()
	}

	if p.check(token.LPAREN) {
		p.nextToken()
		stmt.Params = p.parseParamDefs()
		p.expect(token.RPAREN)
	} else if p.check(token.VARIABLE) {
		stmt.Params = p.parseParamDefs()
	}

	if p.match(token.WITH) {
		p.skipModuleOptions()
	}
	if p.check(token.FOR) && p.peek.Is("REPLICATION") {
		p.nextToken()
		p.nextToken()
	}
	if !p.expect(token.AS) {
		return stmt
	}

	stmt.Body = p.parseModuleBody()
	stmt.Span = p.span(start)
	return stmt
}

// parseCreateView parses the rest of CREATE VIEW.
func (p *Parser) parseCreateView(start token.Position, alter bool) core.Stmt {
	p.expect(token.VIEW)
	stmt := &core.CreateViewStmt{Alter: alter, Name: p.parseObjectName()}
	if p.check(token.LPAREN) {
		stmt.Columns = p.parseIdentList()
	}
	if p.match(token.WITH) {
		p.skipModuleOptions()
	}
	if !p.expect(token.AS) {
		return stmt
	}

	if p.check(token.WITH) {
		stmt.Select = p.parseSelectStmt(p.parseWithClause())
	} else {
		stmt.Select = p.parseSelectStmt(nil)
	}
	if p.check(token.WITH) && p.peek.Is("CHECK") && p.checkPeek2(token.OPTION) {
		p.nextToken()
		p.nextToken()
		p.nextToken()
	}

	stmt.Span = p.span(start)
	return stmt
}

// parseCreateFunction parses the rest of CREATE FUNCTION.
func (p *Parser) parseCreateFunction(start token.Position, alter bool) core.Stmt {
	p.expect(token.FUNCTION)
	stmt := &core.CreateFunctionStmt{Alter: alter, Name: p.parseObjectName()}

	p.expect(token.LPAREN)
	if !p.check(token.RPAREN) {
		stmt.Params = p.parseParamDefs()
	}
	p.expect(token.RPAREN)

	p.expectWord("RETURNS")
	inline := false
	switch {
	case p.check(token.VARIABLE):
		stmt.ReturnTable = p.token.Literal
		p.nextToken()
		p.expect(token.TABLE)
		stmt.ReturnType = "TABLE"
		stmt.TableColumns = p.parseColumnDefs()
	case p.match(token.TABLE):
		stmt.ReturnType = "TABLE"
		inline = true
	default:
		stmt.ReturnType = p.parseDataType()
	}

	if p.match(token.WITH) {
		p.skipModuleOptions()
	}
	p.match(token.AS)

	if inline {
		p.inlineFunction = true
		stmt.Body = p.parseModuleBody()
		p.inlineFunction = false
	} else {
		stmt.Body = p.parseModuleBody()
	}

	stmt.Span = p.span(start)
	return stmt
}

// parseCreateTrigger parses the rest of CREATE TRIGGER.
func (p *Parser) parseCreateTrigger(start token.Position, alter bool) core.Stmt {
	p.expect(token.TRIGGER)
	stmt := &core.CreateTriggerStmt{Alter: alter, Name: p.parseObjectName()}
	p.expect(token.ON)

	if p.check(token.ALL) || p.token.Is("DATABASE") {
		// DDL trigger: ON DATABASE | ON ALL SERVER
		p.match(token.ALL)
		p.nextToken()
	} else {
		stmt.Table = p.parseObjectName()
	}

	if p.match(token.WITH) {
		p.skipModuleOptions()
	}

	switch {
	case p.match(token.FOR), p.matchWord("AFTER"):
	case p.matchWord("INSTEAD"):
		p.expectWord("OF")
	default:
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "FOR, AFTER or INSTEAD OF"))
		return stmt
	}

	for !p.check(token.AS) && !p.check(token.EOF) && !p.check(token.GO) {
		switch {
		case p.check(token.COMMA):
		case p.check(token.WITH) && p.peek.Is("APPEND"):
			p.nextToken()
		case p.check(token.NOT) && p.checkPeek(token.FOR):
			// NOT FOR REPLICATION
			p.nextToken()
			p.nextToken()
		default:
			stmt.Events = append(stmt.Events, strings.ToUpper(p.token.Literal))
		}
		p.nextToken()
	}
	if !p.expect(token.AS) {
		return stmt
	}

	stmt.Body = p.parseModuleBody()
	stmt.Span = p.span(start)
	return stmt
}

// parseModuleBody parses the statements of a procedure, function or
// trigger body. The body runs to the end of the batch.
func (p *Parser) parseModuleBody() []core.Stmt {
	return p.parseStmtList(func() bool { return false })
}

// skipModuleOptions skips the option list after WITH in module headers,
// including EXECUTE AS {CALLER|SELF|OWNER|'user'}.
func (p *Parser) skipModuleOptions() {
	for {
		switch {
		case p.match(token.EXEC):
			p.expect(token.AS)
			p.nextToken()
		case p.token.Is("RETURNS"):
			// RETURNS NULL ON NULL INPUT
			for !p.check(token.EOF) && !p.token.Is("INPUT") {
				p.nextToken()
			}
			p.nextToken()
		case p.check(token.IDENT) && p.checkPeek(token.EQ):
			// INLINE = ON
			p.nextToken()
			p.nextToken()
			p.nextToken()
		case p.check(token.IDENT):
			p.nextToken()
		default:
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "option"))
			return
		}
		if !p.match(token.COMMA) {
			return
		}
	}
}

// parseParamDefs parses procedure and function parameters.
func (p *Parser) parseParamDefs() []*core.ParamDef {
	var params []*core.ParamDef
	for p.check(token.VARIABLE) {
		param := &core.ParamDef{Name: p.token.Literal}
		p.nextToken()
		p.match(token.AS)
		if p.match(token.CURSOR) {
			param.TypeName = "CURSOR"
		} else {
			param.TypeName = p.parseDataType()
		}
		p.matchWord("VARYING")
		if p.match(token.EQ) {
			param.Default = p.parseExpression()
		}
		if p.matchWord("OUTPUT") || p.matchWord("OUT") {
			param.Output = true
		}
		if p.matchWord("READONLY") {
			param.ReadOnly = true
		}
		params = append(params, param)
		if !p.match(token.COMMA) {
			break
		}
	}
	return params
}

// parseCreateTable parses CREATE TABLE name (column definitions).
// Table constraints and column options are skipped.
func (p *Parser) parseCreateTable(start token.Position) core.Stmt {
	p.expect(token.TABLE)
	stmt := &core.CreateTableStmt{Name: p.parseObjectName()}
	if p.check(token.AS) || p.token.Is("FILETABLE") {
		p.skipStatement()
		stmt.Span = p.span(start)
		return stmt
	}
	stmt.Columns = p.parseColumnDefs()
	if !p.atStatementEnd() {
		p.skipStatement()
	}
	stmt.Span = p.span(start)
	return stmt
}

// parseColumnDefs parses "(" column_def ("," column_def)* ")" as used by
// CREATE TABLE, DECLARE @t TABLE and RETURNS @t TABLE.
func (p *Parser) parseColumnDefs() []*core.ColumnDef {
	p.expect(token.LPAREN)
	var cols []*core.ColumnDef
	for !p.check(token.RPAREN) && !p.check(token.EOF) {
		if isTableConstraint(p.token) {
			p.skipElement()
		} else {
			col := &core.ColumnDef{Name: p.parseIdent()}
			if p.match(token.AS) {
				col.Computed = p.parseExpression()
			} else {
				col.TypeName = p.parseDataType()
			}
			cols = append(cols, col)
			p.skipElement()
		}
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return cols
}

func isTableConstraint(tok token.Token) bool {
	if tok.Type != token.IDENT || tok.Quoted {
		return false
	}
	switch strings.ToUpper(tok.Literal) {
	case "CONSTRAINT", "PRIMARY", "UNIQUE", "FOREIGN", "CHECK", "INDEX", "PERIOD":
		return true
	}
	return false
}

// parseDeclare parses variable, table variable and cursor declarations.
func (p *Parser) parseDeclare() core.Stmt {
	start := p.token.Pos
	p.expect(token.DECLARE)

	if p.check(token.IDENT) {
		return p.parseDeclareCursor(start)
	}

	stmt := &core.DeclareStmt{}
	for {
		declStart := p.token.Pos
		if !p.check(token.VARIABLE) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "variable"))
			return stmt
		}
		v := &core.VarDecl{Name: p.token.Literal}
		p.nextToken()
		p.match(token.AS)

		switch {
		case p.match(token.TABLE):
			v.TypeName = "TABLE"
			v.TableColumns = p.parseColumnDefs()
		case p.match(token.CURSOR):
			v.TypeName = "CURSOR"
		default:
			v.TypeName = p.parseDataType()
			if p.match(token.EQ) {
				v.Value = p.parseExpression()
			}
		}

		v.Span = p.span(declStart)
		stmt.Vars = append(stmt.Vars, v)
		if !p.match(token.COMMA) {
			break
		}
	}

	stmt.Span = p.span(start)
	return stmt
}

// parseDeclareCursor parses DECLARE name [options] CURSOR [options] FOR select.
func (p *Parser) parseDeclareCursor(start token.Position) core.Stmt {
	stmt := &core.DeclareCursorStmt{Name: p.parseIdent()}
	for !p.check(token.FOR) && !p.check(token.EOF) && !p.atStatementEnd() {
		p.nextToken()
	}
	p.expect(token.FOR)
	if p.check(token.WITH) {
		stmt.Select = p.parseSelectStmt(p.parseWithClause())
	} else {
		stmt.Select = p.parseSelectStmt(nil)
	}
	stmt.Span = p.span(start)
	return stmt
}

// parseDrop parses DROP kind [IF EXISTS] names.
func (p *Parser) parseDrop() core.Stmt {
	start := p.token.Pos
	p.expect(token.DROP)
	stmt := &core.DropStmt{}
	if token.IsKeyword(p.token.Type) {
		stmt.Kind = p.token.Type.String()
	} else {
		stmt.Kind = strings.ToUpper(p.token.Literal)
	}
	p.nextToken()

	if p.check(token.IF) && p.checkPeek(token.EXISTS) {
		p.nextToken()
		p.nextToken()
	}

	for p.check(token.IDENT) {
		stmt.Names = append(stmt.Names, p.parseObjectName())
		if !p.match(token.COMMA) {
			break
		}
	}
	if !p.atStatementEnd() {
		// DROP INDEX ix ON t, DROP TRIGGER ... ON DATABASE
		p.skipStatement()
	}

	stmt.Span = p.span(start)
	return stmt
}

// parseTruncate parses TRUNCATE TABLE name.
func (p *Parser) parseTruncate() core.Stmt {
	start := p.token.Pos
	p.expect(token.TRUNCATE)
	p.expect(token.TABLE)
	stmt := &core.TruncateStmt{Table: p.parseObjectName()}
	if p.check(token.WITH) && p.checkPeek(token.LPAREN) {
		p.nextToken()
		p.skipParens()
	}
	stmt.Span = p.span(start)
	return stmt
}
