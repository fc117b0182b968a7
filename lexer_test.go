package cc1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	bag := &DiagBag{}
	tokens, err := Lex("test.c", []byte(src), bag)
	require.NoError(t, err)
	return tokens
}

func lexFail(t *testing.T, src string) Diagnostic {
	t.Helper()
	bag := &DiagBag{}
	_, err := Lex("test.c", []byte(src), bag)
	require.Error(t, err)
	d, ok := err.(Diagnostic)
	require.True(t, ok, "lex errors are diagnostics")
	return d
}

func TestLexKinds(t *testing.T) {
	tokens := lexAll(t, "int x = 42;")
	require.Len(t, tokens, 6)
	assert.Equal(t, TokenKeyword, tokens[0].Kind)
	assert.Equal(t, "int", tokens[0].Lexeme)
	assert.Equal(t, TokenIdent, tokens[1].Kind)
	assert.Equal(t, TokenPunct, tokens[2].Kind)
	assert.Equal(t, TokenIntConst, tokens[3].Kind)
	assert.Equal(t, uint64(42), tokens[3].IntVal)
	assert.Equal(t, TokenPunct, tokens[4].Kind)
	assert.Equal(t, TokenEOF, tokens[5].Kind)
}

func TestLexIntegerConstants(t *testing.T) {
	for _, test := range []struct {
		Name     string
		Src      string
		Value    uint64
		Unsigned bool
		Long     bool
	}{
		{Name: "Decimal", Src: "123", Value: 123},
		{Name: "Octal", Src: "0755", Value: 0755},
		{Name: "OctalZero", Src: "0", Value: 0},
		{Name: "Hex", Src: "0xff", Value: 255},
		{Name: "HexUpper", Src: "0XFF", Value: 255},
		{Name: "Unsigned", Src: "7u", Value: 7, Unsigned: true},
		{Name: "Long", Src: "7L", Value: 7, Long: true},
		{Name: "UnsignedLong", Src: "7ul", Value: 7, Unsigned: true, Long: true},
	} {
		t.Run(test.Name, func(t *testing.T) {
			tokens := lexAll(t, test.Src)
			require.Equal(t, TokenIntConst, tokens[0].Kind)
			assert.Equal(t, test.Value, tokens[0].IntVal)
			assert.Equal(t, test.Unsigned, tokens[0].Unsigned)
			assert.Equal(t, test.Long, tokens[0].Long)
		})
	}
}

func TestLexFloatConstants(t *testing.T) {
	for _, test := range []struct {
		Name  string
		Src   string
		Value float64
		F     bool
		L     bool
	}{
		{Name: "Plain", Src: "1.5", Value: 1.5},
		{Name: "LeadingDot", Src: ".25", Value: 0.25},
		{Name: "TrailingDot", Src: "2.", Value: 2},
		{Name: "Exponent", Src: "1e3", Value: 1000},
		{Name: "SignedExponent", Src: "1.5e-1", Value: 0.15},
		{Name: "FloatSuffix", Src: "3.14f", Value: 3.14, F: true},
		{Name: "LongSuffix", Src: "3.14L", Value: 3.14, L: true},
	} {
		t.Run(test.Name, func(t *testing.T) {
			tokens := lexAll(t, test.Src)
			require.Equal(t, TokenFloatConst, tokens[0].Kind)
			assert.InDelta(t, test.Value, tokens[0].FloatVal, 1e-12)
			assert.Equal(t, test.F, tokens[0].FloatF)
			assert.Equal(t, test.L, tokens[0].Long)
		})
	}
}

func TestLexCharAndString(t *testing.T) {
	tokens := lexAll(t, `'A' '\n' '\101' '\x41' "hi\n"`)
	assert.Equal(t, uint64('A'), tokens[0].IntVal)
	assert.Equal(t, uint64('\n'), tokens[1].IntVal)
	assert.Equal(t, uint64(65), tokens[2].IntVal)
	assert.Equal(t, uint64(65), tokens[3].IntVal)
	require.Equal(t, TokenString, tokens[4].Kind)
	assert.Equal(t, []byte("hi\n"), tokens[4].StrVal)
}

func TestLexAdjacentStringsConcatenate(t *testing.T) {
	tokens := lexAll(t, `"foo" "bar" ;`)
	require.Equal(t, TokenString, tokens[0].Kind)
	assert.Equal(t, []byte("foobar"), tokens[0].StrVal)
	assert.Equal(t, TokenPunct, tokens[1].Kind)
}

func TestLexPunctuatorLongestMatch(t *testing.T) {
	tokens := lexAll(t, "a <<= b >> c ... ++x")
	var puncts []string
	for _, tok := range tokens {
		if tok.Kind == TokenPunct {
			puncts = append(puncts, tok.Lexeme)
		}
	}
	assert.Equal(t, []string{"<<=", ">>", "...", "++"}, puncts)
}

func TestLexErrors(t *testing.T) {
	for _, test := range []struct {
		Name string
		Src  string
		Kind DiagKind
	}{
		{Name: "LineComment", Src: "int x; // nope", Kind: NonC89Comment},
		{Name: "WideString", Src: `L"wide"`, Kind: WideLiteralNotSupported},
		{Name: "WideChar", Src: `L'w'`, Kind: WideLiteralNotSupported},
		{Name: "HexNoDigits", Src: "0x", Kind: InvalidNumber},
		{Name: "OctalEight", Src: "08", Kind: InvalidNumber},
		{Name: "ExponentNoDigits", Src: "1e", Kind: InvalidNumber},
		{Name: "FloatSuffixOnInt", Src: "42f", Kind: InvalidSuffix},
		{Name: "UnsignedOnFloat", Src: "1.5u", Kind: InvalidSuffix},
		{Name: "MixedCaseLL", Src: "1lL", Kind: InvalidSuffix},
		{Name: "HexEscapeNoDigits", Src: `"\x"`, Kind: InvalidEscape},
		{Name: "UnknownEscape", Src: `"\q"`, Kind: InvalidEscape},
		{Name: "UnterminatedString", Src: `"abc`, Kind: UnterminatedLiteral},
		{Name: "UnterminatedChar", Src: "'a", Kind: UnterminatedLiteral},
		{Name: "UnterminatedComment", Src: "/* forever", Kind: UnterminatedLiteral},
		{Name: "StrayAt", Src: "@", Kind: StrayCharacter},
		{Name: "StrayHighByte", Src: "\xc3\xa9", Kind: StrayCharacter},
	} {
		t.Run(test.Name, func(t *testing.T) {
			d := lexFail(t, test.Src)
			assert.Equal(t, test.Kind, d.Kind)
		})
	}
}

// Joining every lexeme back with the inter-token source text must
// reproduce the input byte for byte.
func TestLexReproducesInput(t *testing.T) {
	src := "int main(void) {\n\treturn 42; /* answer */\n}\n"
	tokens := lexAll(t, src)

	rebuilt := []byte(nil)
	prev := 0
	for _, tok := range tokens {
		if tok.Kind == TokenEOF {
			break
		}
		rebuilt = append(rebuilt, src[prev:tok.Loc.Cursor]...)
		rebuilt = append(rebuilt, tok.Lexeme...)
		prev = tok.Loc.Cursor + len(tok.Lexeme)
	}
	rebuilt = append(rebuilt, src[prev:]...)
	assert.Equal(t, src, string(rebuilt))
}

func TestLexLocations(t *testing.T) {
	tokens := lexAll(t, "int\n  x;")
	assert.Equal(t, int32(1), tokens[0].Loc.Line)
	assert.Equal(t, int32(1), tokens[0].Loc.Col)
	assert.Equal(t, int32(2), tokens[1].Loc.Line)
	assert.Equal(t, int32(3), tokens[1].Loc.Col)
}
