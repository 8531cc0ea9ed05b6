package parser

import (
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Lexer tokenizes T-SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	errors []error
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// Errors returns the lexical errors seen so far.
func (l *Lexer) Errors() []error {
	return l.errors
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	tok := l.scan(pos)
	tok.Pos = pos
	tok.End = l.currentPos()
	return tok
}

//nolint:gocyclo // one case per leading character
func (l *Lexer) scan(pos token.Position) token.Token {
	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF}
	case '+':
		return l.operator(token.PLUS, token.PLUSEQ)
	case '-':
		return l.operator(token.MINUS, token.MINUSEQ)
	case '*':
		return l.operator(token.STAR, token.STAREQ)
	case '/':
		return l.operator(token.SLASH, token.SLASHEQ)
	case '%':
		return l.operator(token.PERCENT, token.PERCENTEQ)
	case '&':
		return l.operator(token.AMP, token.AMPEQ)
	case '|':
		return l.operator(token.PIPE, token.PIPEEQ)
	case '^':
		return l.operator(token.CARET, token.CARETEQ)
	case '~':
		return l.single(token.TILDE)
	case '=':
		return l.single(token.EQ)
	case '<':
		switch l.peekChar() {
		case '=':
			return l.double(token.LE)
		case '>':
			return l.double(token.NE)
		}
		return l.single(token.LT)
	case '>':
		if l.peekChar() == '=' {
			return l.double(token.GE)
		}
		return l.single(token.GT)
	case '!':
		switch l.peekChar() {
		case '=':
			return l.double(token.NE)
		case '<':
			return l.double(token.GE)
		case '>':
			return l.double(token.LE)
		}
		return l.single(token.ILLEGAL)
	case '.':
		if isDigit(l.peekChar()) {
			return token.Token{Type: token.NUMBER, Literal: l.readNumber()}
		}
		return l.single(token.DOT)
	case ',':
		return l.single(token.COMMA)
	case ';':
		return l.single(token.SEMICOLON)
	case ':':
		return l.single(token.COLON)
	case '(':
		return l.single(token.LPAREN)
	case ')':
		return l.single(token.RPAREN)
	case '\'':
		return token.Token{Type: token.STRING, Literal: l.readString(pos)}
	case '[':
		return token.Token{Type: token.IDENT, Literal: l.readDelimited(pos, ']'), Quoted: true}
	case '"':
		return token.Token{Type: token.IDENT, Literal: l.readDelimited(pos, '"'), Quoted: true}
	case '@':
		return token.Token{Type: token.VARIABLE, Literal: l.readVariable()}
	}

	switch {
	case (l.ch == 'N' || l.ch == 'n') && l.peekChar() == '\'':
		l.readChar() // skip N
		return token.Token{Type: token.STRING, Literal: l.readString(pos)}
	case isIdentStart(l.ch):
		start := l.pos
		lit := l.readIdentifier()
		lower := strings.ToLower(lit)
		if lower == "go" && l.isBatchSeparator(start) {
			l.skipRestOfLine()
			return token.Token{Type: token.GO, Literal: lit}
		}
		return token.Token{Type: token.LookupIdent(lower), Literal: lit}
	case isDigit(l.ch):
		return token.Token{Type: token.NUMBER, Literal: l.readNumber()}
	}

	return l.single(token.ILLEGAL)
}

// single consumes one character and returns a token of type t.
func (l *Lexer) single(t token.TokenType) token.Token {
	lit := string(l.ch)
	l.readChar()
	return token.Token{Type: t, Literal: lit}
}

// double consumes two characters and returns a token of type t.
func (l *Lexer) double(t token.TokenType) token.Token {
	lit := l.input[l.pos : l.pos+2]
	l.readChar()
	l.readChar()
	return token.Token{Type: t, Literal: lit}
}

// operator returns the compound form when the operator is followed by '='.
func (l *Lexer) operator(plain, compound token.TokenType) token.Token {
	if l.peekChar() == '=' {
		return l.double(compound)
	}
	return l.single(plain)
}

// skipWhitespaceAndComments skips whitespace and comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			l.skipRestOfLine()
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.skipBlockComment()
			continue
		}

		break
	}
}

// skipRestOfLine consumes up to (not including) the next newline.
func (l *Lexer) skipRestOfLine() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// skipBlockComment skips a block comment. T-SQL block comments nest.
func (l *Lexer) skipBlockComment() {
	pos := l.currentPos()
	l.readChar() // skip '/'
	l.readChar() // skip '*'

	depth := 1
	for l.ch != 0 {
		switch {
		case l.ch == '/' && l.peekChar() == '*':
			depth++
			l.readChar()
		case l.ch == '*' && l.peekChar() == '/':
			depth--
			l.readChar()
			if depth == 0 {
				l.readChar()
				return
			}
		}
		l.readChar()
	}
	l.addError(pos, ErrUnterminatedComment)
}

// readString reads a single-quoted string literal.
// Handles doubled single quotes as escape: 'it''s' -> it's
func (l *Lexer) readString(pos token.Position) string {
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		switch {
		case l.ch == 0:
			l.addError(pos, ErrUnterminatedString)
			return result.String()
		case l.ch == '\'' && l.peekChar() == '\'':
			result.WriteByte('\'')
			l.readChar()
			l.readChar()
		case l.ch == '\'':
			l.readChar() // skip closing quote
			return result.String()
		default:
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
}

// readDelimited reads a [bracketed] or "quoted" identifier. A doubled
// closing delimiter is an escaped delimiter: [a]]b] -> a]b
func (l *Lexer) readDelimited(pos token.Position, closing byte) string {
	l.readChar() // skip opening delimiter

	var result strings.Builder
	for {
		switch {
		case l.ch == 0:
			l.addError(pos, ErrUnterminatedIdent)
			return result.String()
		case l.ch == closing && l.peekChar() == closing:
			result.WriteByte(closing)
			l.readChar()
			l.readChar()
		case l.ch == closing:
			l.readChar()
			return result.String()
		default:
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
}

// readVariable reads @name or @@name.
func (l *Lexer) readVariable() string {
	start := l.pos
	l.readChar() // skip @
	if l.ch == '@' {
		l.readChar()
	}
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readIdentifier reads an unquoted identifier, including #temp names.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentPart(l.ch) || (l.pos == start && l.ch == '#') {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, scientific or 0x binary).
func (l *Lexer) readNumber() string {
	start := l.pos

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
		return l.input[start:l.pos]
	}

	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar() // skip 'e' or 'E'
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// isBatchSeparator reports whether the word starting at offset start is GO
// on a line of its own (optionally followed by a repeat count or a comment).
func (l *Lexer) isBatchSeparator(start int) bool {
	for i := start - 1; i >= 0; i-- {
		c := l.input[i]
		if c == '\n' {
			break
		}
		if c != ' ' && c != '\t' && c != '\r' {
			return false
		}
	}
	for i := l.pos; i < len(l.input); i++ {
		c := l.input[i]
		switch {
		case c == '\n':
			return true
		case c == ' ' || c == '\t' || c == '\r' || isDigit(c):
		case c == '-' && i+1 < len(l.input) && l.input[i+1] == '-':
			return true
		default:
			return false
		}
	}
	return true
}

func (l *Lexer) addError(pos token.Position, msg string) {
	l.errors = append(l.errors, &LexError{Pos: pos, Message: msg})
}

func isIdentStart(ch byte) bool {
	return isLetter(ch) || ch == '_' || ch == '#' || ch == '$'
}

func isIdentPart(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '_' || ch == '@' || ch == '#' || ch == '$'
}

// isLetter returns true for ASCII letters and any byte of a multi-byte
// UTF-8 sequence, so non-ASCII identifiers lex as a single word.
func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// Tokenize returns all tokens from the input, ending with EOF.
func Tokenize(input string) []token.Token {
	l := NewLexer(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens
}
