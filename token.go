package cc1

import "fmt"

// TokenKind partitions the terminals of the C89 grammar.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenKeyword
	TokenIdent
	TokenIntConst
	TokenFloatConst
	TokenCharConst
	TokenString
	TokenPunct
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "eof"
	case TokenKeyword:
		return "keyword"
	case TokenIdent:
		return "identifier"
	case TokenIntConst:
		return "integer constant"
	case TokenFloatConst:
		return "floating constant"
	case TokenCharConst:
		return "character constant"
	case TokenString:
		return "string literal"
	case TokenPunct:
		return "punctuator"
	}
	return "unknown"
}

// Token is one terminal of the input.  Lexeme is the exact source
// slice the token was read from, so joining lexemes with the original
// inter-token text reproduces the input.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Loc    Location

	// Constant payloads, filled according to Kind.
	IntVal   uint64  // TokenIntConst, TokenCharConst
	FloatVal float64 // TokenFloatConst
	StrVal   []byte  // TokenString, escapes resolved, no terminator

	// Suffix flags on numeric constants.
	Unsigned bool // u/U
	Long     bool // l/L
	LongLong bool // ll/LL
	FloatF   bool // f/F on a floating constant
}

func (t Token) String() string {
	switch t.Kind {
	case TokenEOF:
		return "<eof>"
	case TokenString:
		return fmt.Sprintf("%q", string(t.StrVal))
	default:
		return t.Lexeme
	}
}

// IsPunct reports whether the token is the given punctuator.
func (t Token) IsPunct(s string) bool {
	return t.Kind == TokenPunct && t.Lexeme == s
}

// IsKeyword reports whether the token is the given keyword.
func (t Token) IsKeyword(s string) bool {
	return t.Kind == TokenKeyword && t.Lexeme == s
}

// The 32 keywords of ISO 9899-1990.
var keywords = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true,
	"const": true, "continue": true, "default": true, "do": true,
	"double": true, "else": true, "enum": true, "extern": true,
	"float": true, "for": true, "goto": true, "if": true,
	"int": true, "long": true, "register": true, "return": true,
	"short": true, "signed": true, "sizeof": true, "static": true,
	"struct": true, "switch": true, "typedef": true, "union": true,
	"unsigned": true, "void": true, "volatile": true, "while": true,
}

// Punctuators ordered longest first so the scanner can take the
// longest match.
var punctuators = []string{
	"<<=", ">>=", "...",
	"->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=",
	"&&", "||", "*=", "/=", "%=", "+=", "-=", "&=", "^=", "|=",
	"[", "]", "(", ")", "{", "}", ".", "&", "*", "+", "-", "~", "!",
	"/", "%", "<", ">", "^", "|", "?", ":", ";", "=", ",",
}
