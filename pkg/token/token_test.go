package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		in   string
		want TokenType
	}{
		{"select", SELECT},
		{"execute", EXEC},
		{"exec", EXEC},
		{"procedure", PROC},
		{"transaction", TRAN},
		{"openrowset", OPENROWSET},
		{"with", WITH},
		{"matched", IDENT},
		{"customer_id", IDENT},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LookupIdent(tt.in))
		})
	}
}

func TestKeywordNamesAligned(t *testing.T) {
	assert.Len(t, keywordNames, int(maxToken-ALL))
	assert.Equal(t, "ALL", ALL.String())
	assert.Equal(t, "MERGE", MERGE.String())
	assert.Equal(t, "WITH", WITH.String())
	assert.Equal(t, "+=", PLUSEQ.String())
}

func TestTokenIs(t *testing.T) {
	assert.True(t, Token{Type: IDENT, Literal: "Matched"}.Is("MATCHED"))
	assert.False(t, Token{Type: IDENT, Literal: "matched", Quoted: true}.Is("MATCHED"))
	assert.False(t, Token{Type: SELECT, Literal: "select"}.Is("select"))
}

func TestSpanText(t *testing.T) {
	src := "SELECT a FROM t"
	s := Span{
		Start: Position{Line: 1, Column: 8, Offset: 7},
		End:   Position{Line: 1, Column: 9, Offset: 8},
	}
	assert.Equal(t, "a", s.Text(src))
	assert.Equal(t, "", Span{}.Text(src))
}
