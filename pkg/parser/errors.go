package parser

import (
	"fmt"

	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// LexError represents a lexical analysis error.
type LexError struct {
	Pos     token.Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	ErrUnexpectedToken     = "unexpected token %s, expected %s"
	ErrUnexpectedStatement = "unexpected %s at start of statement"
	ErrExpectedExpression  = "expected expression, got %s"
	ErrExpectedIdentifier  = "expected identifier, got %s"
	ErrUnterminatedString  = "unterminated string literal"
	ErrUnterminatedIdent   = "unterminated quoted identifier"
	ErrUnterminatedComment = "unterminated block comment"
	ErrMaxDepth            = "expression nesting exceeds %d levels"
)
