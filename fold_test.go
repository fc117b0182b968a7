package cc1

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// foldEnum runs the front half of the pipeline over one enumerator
// and returns its folded value.
func foldEnum(t *testing.T, tg *Target, expr string) int64 {
	t.Helper()
	src := fmt.Sprintf("enum e { A = %s };", expr)
	r := Compile("t.c", []byte(src), Options{Target: tg, Phase: PhaseSema})
	require.True(t, r.OK(), "diagnostics: %v", r.Diags.Diags)
	sym := r.Syms.Lookup("A")
	require.NotNil(t, sym)
	require.Equal(t, SymEnumConst, sym.Kind)
	return sym.EnumValue
}

func TestFoldBasics(t *testing.T) {
	for _, test := range []struct {
		Expr  string
		Value int64
	}{
		{Expr: "1 + 2 * 3", Value: 7},
		{Expr: "(1 + 2) * 3", Value: 9},
		{Expr: "10 / 3", Value: 3},
		{Expr: "10 % 3", Value: 1},
		{Expr: "-7 / 2", Value: -3},
		{Expr: "-7 % 2", Value: -1},
		{Expr: "1 << 10", Value: 1024},
		{Expr: "-16 >> 2", Value: -4},
		{Expr: "0xff & 0x0f", Value: 15},
		{Expr: "1 | 6", Value: 7},
		{Expr: "5 ^ 3", Value: 6},
		{Expr: "~0", Value: -1},
		{Expr: "!0", Value: 1},
		{Expr: "!3", Value: 0},
		{Expr: "1 < 2", Value: 1},
		{Expr: "2 == 2 && 3 != 4", Value: 1},
		{Expr: "0 || 0", Value: 0},
		{Expr: "1 ? 10 : 20", Value: 10},
		{Expr: "0 ? 10 : 20", Value: 20},
		{Expr: "'A'", Value: 65},
		{Expr: "(char)257", Value: 1},
		{Expr: "(unsigned char)-1", Value: 255},
		{Expr: "sizeof(int)", Value: 4},
		{Expr: "sizeof(char[10])", Value: 10},
		{Expr: "(int)3.99", Value: 3},
	} {
		t.Run(test.Expr, func(t *testing.T) {
			assert.Equal(t, test.Value, foldEnum(t, TargetI386, test.Expr))
		})
	}
}

// The folder respects the target's integer widths: unsigned long is
// 32 bits on i386 and 64 bits on x86_64.
func TestFoldTargetDependent(t *testing.T) {
	expr := "~(unsigned long)1 % 7"
	assert.Equal(t, int64(2), foldEnum(t, TargetI386, expr))
	assert.Equal(t, int64(0), foldEnum(t, TargetX8664, expr))

	assert.Equal(t, int64(4), foldEnum(t, TargetI386, "sizeof(long)"))
	assert.Equal(t, int64(8), foldEnum(t, TargetX8664, "sizeof(long)"))

	assert.Equal(t, int64(4), foldEnum(t, TargetI386, "sizeof(void*)"))
	assert.Equal(t, int64(8), foldEnum(t, TargetX8664, "sizeof(void*)"))
}

// Unsigned comparison: (unsigned)-1 is the maximum value, not -1.
func TestFoldSignednessInComparisons(t *testing.T) {
	assert.Equal(t, int64(0), foldEnum(t, TargetI386, "(unsigned)-1 < 1u"))
	assert.Equal(t, int64(1), foldEnum(t, TargetI386, "-1 < 1"))
	assert.Equal(t, int64(1), foldEnum(t, TargetI386, "(unsigned)-1 / 2 == 0x7fffffff"))
}

// Folding walks its own stack, so very deep expressions fold fine.
func TestFoldDeepExpression(t *testing.T) {
	expr := "0"
	for i := 0; i < 2000; i++ {
		expr = "(" + expr + " + 1)"
	}
	assert.Equal(t, int64(2000), foldEnum(t, TargetI386, expr))
}

func TestFoldNotConstant(t *testing.T) {
	src := "int x; enum e { A = x + 1 };"
	r := Compile("t.c", []byte(src), Options{Target: TargetI386, Phase: PhaseSema})
	require.False(t, r.OK())
	found := false
	for _, d := range r.Diags.Diags {
		if d.Kind == NotConstant {
			found = true
		}
	}
	assert.True(t, found)
}

func TestFoldDivisionByZero(t *testing.T) {
	src := "enum e { A = 1 / 0 };"
	r := Compile("t.c", []byte(src), Options{Target: TargetI386, Phase: PhaseSema})
	assert.False(t, r.OK())
}

func TestFoldEnumChaining(t *testing.T) {
	src := "enum e { A = 3, B, C = B * 2, D };"
	r := Compile("t.c", []byte(src), Options{Target: TargetI386, Phase: PhaseSema})
	require.True(t, r.OK(), "diagnostics: %v", r.Diags.Diags)
	assert.Equal(t, int64(3), r.Syms.Lookup("A").EnumValue)
	assert.Equal(t, int64(4), r.Syms.Lookup("B").EnumValue)
	assert.Equal(t, int64(8), r.Syms.Lookup("C").EnumValue)
	assert.Equal(t, int64(9), r.Syms.Lookup("D").EnumValue)
}
