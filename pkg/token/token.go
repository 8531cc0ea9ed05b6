// Package token defines the lexical tokens of the T-SQL batch language.
//
// Reserved words of T-SQL are constants so the parser can switch on them.
// Context-sensitive words (MATCHED, TARGET, SOURCE, OUTPUT, TRY, CATCH, ...)
// stay IDENT and are matched by literal where the grammar allows them.
package token

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
//
//nolint:revive // token.TokenType is clear and widely used
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL
	GO // batch separator on a line of its own

	// Literals
	IDENT    // name, [bracketed name], "quoted name", #temp
	VARIABLE // @local, @@global
	NUMBER   // 123, 45.67, 1e10, 0xFF
	STRING   // 'hello', N'hello'

	// Operators
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	PERCENT   // %
	AMP       // &
	PIPE      // |
	CARET     // ^
	TILDE     // ~
	EQ        // =
	NE        // != or <>
	LT        // <
	GT        // >
	LE        // <= or !>
	GE        // >= or !<
	DOT       // .
	COMMA     // ,
	SEMICOLON // ;
	COLON     // :
	LPAREN    // (
	RPAREN    // )

	// Compound assignment operators
	PLUSEQ    // +=
	MINUSEQ   // -=
	STAREQ    // *=
	SLASHEQ   // /=
	PERCENTEQ // %=
	AMPEQ     // &=
	PIPEEQ    // |=
	CARETEQ   // ^=

	// Reserved keywords (alphabetical)
	ALL
	ALTER
	AND
	AS
	ASC
	BEGIN
	BETWEEN
	BREAK
	BY
	CASE
	CAST
	CLOSE
	COLLATE
	COMMIT
	CONTINUE
	CREATE
	CROSS
	CURSOR
	DEALLOCATE
	DECLARE
	DEFAULT
	DELETE
	DESC
	DISTINCT
	DROP
	ELSE
	END
	EXCEPT
	EXEC
	EXISTS
	FETCH
	FOR
	FROM
	FULL
	FUNCTION
	GOTO
	GRANT
	GROUP
	HAVING
	IF
	IN
	INNER
	INSERT
	INTERSECT
	INTO
	IS
	JOIN
	LEFT
	LIKE
	MERGE
	NOT
	NULL
	ON
	OPEN
	OPENDATASOURCE
	OPENQUERY
	OPENROWSET
	OPTION
	OR
	ORDER
	OUTER
	OVER
	PARTITION
	PRINT
	PROC
	RAISERROR
	RETURN
	REVOKE
	RIGHT
	ROLLBACK
	SAVE
	SELECT
	SET
	TABLE
	THEN
	TOP
	TRAN
	TRIGGER
	TRUNCATE
	UNION
	UPDATE
	USE
	VALUES
	VIEW
	WHEN
	WHERE
	WHILE
	WITH

	maxToken
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	if t >= ALL && t < maxToken {
		return keywordNames[t-ALL]
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",
	GO:      "GO",

	IDENT:    "IDENT",
	VARIABLE: "VARIABLE",
	NUMBER:   "NUMBER",
	STRING:   "STRING",

	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	AMP:       "&",
	PIPE:      "|",
	CARET:     "^",
	TILDE:     "~",
	EQ:        "=",
	NE:        "<>",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	DOT:       ".",
	COMMA:     ",",
	SEMICOLON: ";",
	COLON:     ":",
	LPAREN:    "(",
	RPAREN:    ")",

	PLUSEQ:    "+=",
	MINUSEQ:   "-=",
	STAREQ:    "*=",
	SLASHEQ:   "/=",
	PERCENTEQ: "%=",
	AMPEQ:     "&=",
	PIPEEQ:    "|=",
	CARETEQ:   "^=",
}

// keywordNames is indexed by TokenType-ALL and must follow the constant order.
var keywordNames = [...]string{
	"ALL", "ALTER", "AND", "AS", "ASC", "BEGIN", "BETWEEN", "BREAK", "BY",
	"CASE", "CAST", "CLOSE", "COLLATE", "COMMIT", "CONTINUE", "CREATE", "CROSS",
	"CURSOR", "DEALLOCATE", "DECLARE", "DEFAULT", "DELETE", "DESC", "DISTINCT",
	"DROP", "ELSE", "END", "EXCEPT", "EXEC", "EXISTS", "FETCH", "FOR", "FROM",
	"FULL", "FUNCTION", "GOTO", "GRANT", "GROUP", "HAVING", "IF", "IN", "INNER",
	"INSERT", "INTERSECT", "INTO", "IS", "JOIN", "LEFT", "LIKE", "MERGE", "NOT",
	"NULL", "ON", "OPEN", "OPENDATASOURCE", "OPENQUERY", "OPENROWSET", "OPTION",
	"OR", "ORDER", "OUTER", "OVER", "PARTITION", "PRINT", "PROC", "RAISERROR",
	"RETURN", "REVOKE", "RIGHT", "ROLLBACK", "SAVE", "SELECT", "SET", "TABLE",
	"THEN", "TOP", "TRAN", "TRIGGER", "TRUNCATE", "UNION", "UPDATE", "USE",
	"VALUES", "VIEW", "WHEN", "WHERE", "WHILE", "WITH",
}

// synonyms are spellings that map onto a single keyword token.
var synonyms = map[string]TokenType{
	"execute":     EXEC,
	"procedure":   PROC,
	"transaction": TRAN,
}

// keywords maps lowercase keyword strings to their token types.
// Built once from keywordNames and never written afterwards.
var keywords = func() map[string]TokenType {
	m := make(map[string]TokenType, len(keywordNames)+len(synonyms))
	for i, name := range keywordNames {
		m[strings.ToLower(name)] = ALL + TokenType(i)
	}
	for k, v := range synonyms {
		m[k] = v
	}
	return m
}()

// LookupIdent returns the keyword token for a lowercase identifier,
// or IDENT if the word is not reserved.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a reserved keyword.
func IsKeyword(t TokenType) bool {
	return t >= ALL && t < maxToken
}

// IsOperator returns true if the token type is an operator.
func IsOperator(t TokenType) bool {
	return t >= PLUS && t <= CARETEQ
}

// IsCompoundAssign returns true for +=, -= and the other compound assignments.
func IsCompoundAssign(t TokenType) bool {
	return t >= PLUSEQ && t <= CARETEQ
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
	End     Position // position just after the last character
	// Quoted is set for [bracketed] and "quoted" identifiers.
	Quoted bool
}

// Is reports whether the token is an unquoted identifier spelled word
// (case-insensitive). Used for context-sensitive keywords.
func (t Token) Is(word string) bool {
	return t.Type == IDENT && !t.Quoted && strings.EqualFold(t.Literal, word)
}
