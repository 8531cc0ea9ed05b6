// Package parser turns T-SQL text into the syntax tree defined in pkg/core.
//
// # Usage
//
//	script, errs := parser.Parse(sqlText)
//	if script == nil {
//	    // nothing could be parsed; errs says why
//	}
//
// Parse never stops at the first error. A statement that fails to parse is
// skipped up to the next statement boundary and parsing continues, so a
// single malformed statement costs only that statement.
//
// # Grammar Overview
//
// The parser implements a recursive descent parser for the T-SQL batch
// language as it appears in procedure, view, function and trigger bodies:
//
//	script      → batch (GO batch)*
//	batch       → statement*
//	statement   → select | insert | update | delete | merge | exec
//	            | declare | set | if | while | block | try_catch
//	            | create_proc | create_view | create_function | create_trigger
//	            | create_table | drop | truncate | transaction | ...
//
// See each file for detailed grammar rules for that section.
package parser

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/sqllineage/pkg/core"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// maxDepth bounds expression and query nesting.
const maxDepth = 512

// Parser parses T-SQL into an AST.
type Parser struct {
	lexer   *Lexer
	token   token.Token // current token
	peek    token.Token // lookahead token
	peek2   token.Token // second lookahead token
	prevEnd token.Position
	errors  []*ParseError

	failed bool // an error occurred in the statement being parsed
	depth  int

	inlineFunction bool // inside RETURNS TABLE AS RETURN ...
}

// NewParser creates a new parser for the given T-SQL input.
func NewParser(sql string) *Parser {
	p := &Parser{
		lexer: NewLexer(sql),
	}
	// Read three tokens to initialize current, peek, and peek2
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a T-SQL script. The returned script is nil only when errors
// were found and no statement could be parsed at all.
func Parse(sql string) (*core.Script, []*ParseError) {
	p := NewParser(sql)
	script := p.ParseScript()
	errs := p.Errors()
	if len(errs) > 0 && countStatements(script) == 0 {
		return nil, errs
	}
	return script, errs
}

// ParseScript parses every batch of the input.
func (p *Parser) ParseScript() *core.Script {
	script := &core.Script{Source: p.lexer.input}
	start := p.token.Pos
	for {
		batch := p.parseBatch()
		if len(batch.Stmts) > 0 {
			script.Batches = append(script.Batches, batch)
		}
		if p.match(token.GO) {
			continue
		}
		break
	}
	script.Span = token.Span{Start: start, End: p.token.End}
	return script
}

// parseBatch parses statements up to the next GO or EOF.
func (p *Parser) parseBatch() *core.Batch {
	start := p.token.Pos
	batch := &core.Batch{}
	batch.Stmts = p.parseStmtList(func() bool { return false })
	batch.Span = p.span(start)
	return batch
}

// Errors returns lexical and syntax errors ordered by position.
func (p *Parser) Errors() []*ParseError {
	errs := make([]*ParseError, 0, len(p.errors)+len(p.lexer.errors))
	for _, e := range p.lexer.errors {
		if le, ok := e.(*LexError); ok {
			errs = append(errs, &ParseError{Pos: le.Pos, Message: le.Message})
		}
	}
	errs = append(errs, p.errors...)
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Pos.Offset < errs[j].Pos.Offset
	})
	return errs
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	if p.token.Type != token.EOF || p.token.End.IsValid() {
		p.prevEnd = p.token.End
	}
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peek.Type == t
}

// checkPeek2 returns true if the peek2 token is of the given type.
func (p *Parser) checkPeek2(t token.TokenType) bool {
	return p.peek2.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// matchWord consumes the current token if it is the unquoted word w.
func (p *Parser) matchWord(w string) bool {
	if p.token.Is(w) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), t))
	return false
}

// expectWord consumes the unquoted word w, otherwise adds an error.
func (p *Parser) expectWord(w string) bool {
	if p.matchWord(w) {
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), w))
	return false
}

// addError adds a parse error at the current token. Only the first error of
// a statement is kept; the statement is dropped and later errors in it would
// be follow-on noise.
func (p *Parser) addError(msg string) {
	if p.failed {
		return
	}
	p.failed = true
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
	})
}

// span returns the span from start to the end of the last consumed token.
func (p *Parser) span(start token.Position) token.Span {
	return token.Span{Start: start, End: p.prevEnd}
}

// sameLine reports whether the current token starts on the line where the
// previous token ended.
func (p *Parser) sameLine() bool {
	return p.token.Pos.Line == p.prevEnd.Line
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.IDENT, token.VARIABLE, token.NUMBER:
		return fmt.Sprintf("%q", tok.Literal)
	case token.STRING:
		return "string literal"
	}
	return tok.Type.String()
}

// ---------- Statement Lists and Recovery ----------

// statementStarters are the tokens that can begin a statement.
var statementStarters = map[token.TokenType]bool{
	token.SELECT: true, token.INSERT: true, token.UPDATE: true, token.DELETE: true,
	token.MERGE: true, token.WITH: true, token.DECLARE: true, token.SET: true,
	token.IF: true, token.WHILE: true, token.BEGIN: true, token.END: true,
	token.EXEC: true, token.RETURN: true, token.PRINT: true, token.RAISERROR: true,
	token.CREATE: true, token.ALTER: true, token.DROP: true, token.TRUNCATE: true,
	token.COMMIT: true, token.ROLLBACK: true, token.SAVE: true, token.OPEN: true,
	token.CLOSE: true, token.FETCH: true, token.DEALLOCATE: true, token.BREAK: true,
	token.CONTINUE: true, token.GOTO: true, token.USE: true, token.GRANT: true,
	token.REVOKE: true,
}

// atStatementEnd reports whether the current token cannot continue the
// statement being parsed.
func (p *Parser) atStatementEnd() bool {
	switch p.token.Type {
	case token.EOF, token.GO, token.SEMICOLON, token.ELSE, token.END:
		return true
	}
	return statementStarters[p.token.Type]
}

// parseStmtList parses statements until stop returns true, GO or EOF.
// A statement that fails to parse is dropped and parsing resumes at the
// next statement boundary.
func (p *Parser) parseStmtList(stop func() bool) []core.Stmt {
	outer := p.failed
	defer func() { p.failed = outer }()

	var stmts []core.Stmt
	for !p.check(token.EOF) && !p.check(token.GO) && !stop() {
		if p.match(token.SEMICOLON) {
			continue
		}
		start := p.token
		p.failed = false
		stmt := p.parseStatement()
		if p.failed {
			p.synchronize(start)
			continue
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		p.match(token.SEMICOLON)
	}
	return stmts
}

// synchronize skips tokens up to the next statement boundary. It always
// consumes at least one token if the parser did not move since start.
func (p *Parser) synchronize(start token.Token) {
	if p.token.Pos.Offset == start.Pos.Offset && !p.check(token.EOF) && !p.check(token.GO) {
		p.nextToken()
	}
	depth := 0
	for !p.check(token.EOF) && !p.check(token.GO) {
		switch {
		case p.check(token.LPAREN):
			depth++
		case p.check(token.RPAREN):
			if depth > 0 {
				depth--
			}
		case depth == 0 && (p.check(token.SEMICOLON) || statementStarters[p.token.Type]):
			return
		}
		p.nextToken()
	}
}

// skipStatement consumes the rest of a statement the parser does not model.
// Statement keywords only end it when they start a new line, so
// GRANT SELECT ON t TO r stays one statement.
func (p *Parser) skipStatement() {
	depth := 0
	for !p.check(token.EOF) && !p.check(token.GO) {
		switch {
		case p.check(token.LPAREN):
			depth++
		case p.check(token.RPAREN):
			if depth == 0 {
				return
			}
			depth--
		case depth == 0 && p.check(token.SEMICOLON):
			return
		case depth == 0 && (statementStarters[p.token.Type] || p.token.Is("THROW")) && !p.sameLine():
			if !p.check(token.WITH) || !p.checkPeek(token.LPAREN) {
				return
			}
		}
		p.nextToken()
	}
}

// skipParens consumes a balanced parenthesized group starting at '('.
func (p *Parser) skipParens() {
	if !p.check(token.LPAREN) {
		return
	}
	depth := 0
	for !p.check(token.EOF) {
		switch p.token.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				p.nextToken()
				return
			}
		}
		p.nextToken()
	}
}

func countStatements(s *core.Script) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, b := range s.Batches {
		n += len(b.Stmts)
	}
	return n
}
