package cc1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, src string) *Result {
	t.Helper()
	return Compile("t.c", []byte(src), Options{Target: TargetI386, Phase: PhaseSema})
}

func analyzeOK(t *testing.T, src string) *Result {
	t.Helper()
	r := analyze(t, src)
	require.True(t, r.OK(), "diagnostics: %v", r.Diags.Diags)
	return r
}

func hasDiag(r *Result, kind DiagKind) bool {
	for _, d := range r.Diags.Diags {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

func TestSemaErrors(t *testing.T) {
	for _, test := range []struct {
		Name string
		Src  string
		Kind DiagKind
	}{
		{Name: "Undeclared", Src: "int f(void) { return y; }", Kind: Undeclared},
		{Name: "Redefinition", Src: "int x; float x;", Kind: Redefinition},
		{Name: "AssignToRvalue", Src: "int f(void) { 1 = 2; return 0; }", Kind: NotAssignable},
		{Name: "AssignToArray", Src: "int f(void) { int a[2]; int b[2]; a = b; return 0; }", Kind: NotAssignable},
		{Name: "AddressOfRvalue", Src: "int f(void) { return *&1; }", Kind: NotAssignable},
		{Name: "StructAssignMismatch", Src: "struct A { int x; }; struct B { int x; }; int f(void) { struct A a; struct B b; a = b; return 0; }", Kind: TypeMismatch},
		{Name: "PointerFromStruct", Src: "struct A { int x; }; int f(void) { struct A a; int *p; p = a; return 0; }", Kind: TypeMismatch},
		{Name: "IncompleteLocal", Src: "struct Fwd; int f(void) { struct Fwd v; return 0; }", Kind: IncompleteType},
		{Name: "SizeofIncomplete", Src: "struct Fwd; int f(void) { return sizeof(struct Fwd); }", Kind: IncompleteType},
		{Name: "BadCast", Src: "struct A { int x; }; int f(void) { struct A a; return (int)a; }", Kind: BadCast},
		{Name: "WrongArityFew", Src: "int g(int a, int b); int f(void) { return g(1); }", Kind: WrongArity},
		{Name: "WrongArityMany", Src: "int g(int a); int f(void) { return g(1, 2); }", Kind: WrongArity},
		{Name: "VariadicTooFew", Src: "int g(int a, int b, ...); int f(void) { return g(1); }", Kind: VaListMisuse},
		{Name: "DuplicateCase", Src: "int f(int x) { switch (x) { case 1: return 1; case 1: return 2; } return 0; }", Kind: Redefinition},
		{Name: "CaseOutsideSwitch", Src: "int f(void) { case 1: return 0; }", Kind: UnexpectedToken},
		{Name: "UndefinedLabel", Src: "int f(void) { goto nowhere; return 0; }", Kind: Undeclared},
		{Name: "DuplicateLabel", Src: "int f(void) { x: ; x: ; return 0; }", Kind: Redefinition},
		{Name: "NonConstArraySize", Src: "int f(int n) { int a[n]; return 0; }", Kind: NotConstant},
		{Name: "VoidVariable", Src: "void v;", Kind: TypeMismatch},
		{Name: "ReturnValueFromVoid", Src: "void f(void) { return 3; }", Kind: TypeMismatch},
	} {
		t.Run(test.Name, func(t *testing.T) {
			r := analyze(t, test.Src)
			require.True(t, r.Diags.HasErrors(), "expected errors for %q", test.Src)
			assert.True(t, hasDiag(r, test.Kind),
				"expected kind %v in %v", test.Kind, r.Diags.Diags)
		})
	}
}

// A poisoned subtree reports once and stays quiet downstream.
func TestSemaPoisonSuppressesCascades(t *testing.T) {
	r := analyze(t, "int f(void) { return (missing + 1) * 2 - missing2; }")
	assert.Equal(t, 2, r.Diags.ErrorCount())
}

func TestSemaScopes(t *testing.T) {
	analyzeOK(t, `
int x;
int f(void) {
    int x;
    {
        int x;
        x = 1;
    }
    x = 2;
    return x;
}
`)
}

func TestSemaUsualArithmeticConversions(t *testing.T) {
	r := analyzeOK(t, "int f(int i, unsigned u, long l, double d) { return (int)(i + u + l + d); }")

	ret := r.TU.Decls[0].Body.Items[0].(*ReturnStmt)
	cast := ret.X.(*CastExpr)
	sum := cast.X.(*BinaryExpr)
	// ((i + u) + l) + d happens in double.
	ft, ok := Unwrap(sum.Type()).(*FloatType)
	require.True(t, ok, "outermost sum has type %s", sum.Type())
	assert.Equal(t, PrecDouble, ft.Prec)

	inner := sum.X.(*CastExpr).X.(*BinaryExpr) // (i + u) + l, converted to double
	it, ok := Unwrap(inner.Type()).(*IntType)
	require.True(t, ok)
	// On i386, long and unsigned int share a rank ordering that makes
	// int+unsigned → unsigned, then +long → unsigned long.
	assert.Equal(t, RankLong, it.Rank)
	assert.True(t, it.Unsigned)
}

func TestSemaIntegerPromotion(t *testing.T) {
	r := analyzeOK(t, "int f(char c, short s) { return c + s; }")
	ret := r.TU.Decls[0].Body.Items[0].(*ReturnStmt)
	sum := ret.X.(*BinaryExpr)
	it, ok := Unwrap(sum.Type()).(*IntType)
	require.True(t, ok)
	assert.Equal(t, RankInt, it.Rank)
	assert.False(t, it.Unsigned)
}

// Arguments in the variadic position get the default argument
// promotions in the analyzer, so the emitter sees final types.
func TestSemaDefaultArgumentPromotions(t *testing.T) {
	r := analyzeOK(t, `
int p(int n, ...);
int f(char c, short s, float g) { return p(3, c, s, g); }
`)
	ret := r.TU.Decls[1].Body.Items[0].(*ReturnStmt)
	call := ret.X.(*CallExpr)
	require.Len(t, call.Args, 4)

	it, ok := Unwrap(call.Args[1].Type()).(*IntType)
	require.True(t, ok)
	assert.Equal(t, RankInt, it.Rank)

	it, ok = Unwrap(call.Args[2].Type()).(*IntType)
	require.True(t, ok)
	assert.Equal(t, RankInt, it.Rank)

	ftyp, ok := Unwrap(call.Args[3].Type()).(*FloatType)
	require.True(t, ok)
	assert.Equal(t, PrecDouble, ftyp.Prec)
}

func TestSemaArrayDecayAndSizeof(t *testing.T) {
	r := analyzeOK(t, "int f(void) { int a[5]; return sizeof a + sizeof a[0]; }")
	ret := r.TU.Decls[0].Body.Items[1].(*ReturnStmt)
	sum := ret.X.(*CastExpr).X.(*BinaryExpr)

	whole := sum.X.(*SizeofExpr)
	v, err := TargetI386.Fold(whole)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), v.I)

	elem := sum.Y.(*SizeofExpr)
	v, err = TargetI386.Fold(elem)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), v.I)
}

func TestSemaIndirectCallClassification(t *testing.T) {
	r := analyzeOK(t, `
int add(int a, int b);
int f(void) {
    int (*p)(int, int);
    p = add;
    return p(2, 3) + add(1, 1);
}
`)
	ret := r.TU.Decls[1].Body.Items[2].(*ReturnStmt)
	sum := ret.X.(*BinaryExpr)
	indirect := sum.X.(*CallExpr)
	direct := sum.Y.(*CallExpr)
	assert.True(t, indirect.Indirect)
	assert.False(t, direct.Indirect)
}

func TestSemaCyclicStructThroughTag(t *testing.T) {
	r := analyzeOK(t, `
struct L { struct L *next; int v; };
int f(void) {
    struct L node;
    node.next = &node;
    return node.next->v;
}
`)
	st, ok := Unwrap(r.TU.Decls[0].Type).(*StructType)
	require.True(t, ok)
	require.True(t, st.Complete)
	pt := Unwrap(st.Fields[0].Type).(*PointerType)
	// The pointee resolves to the same canonical struct.
	assert.Same(t, st, Unwrap(pt.Elem))
}

func TestSemaTentativeDefinitions(t *testing.T) {
	analyzeOK(t, "int x; int x; int x = 3;")
	r := analyze(t, "int x = 1; int x = 2;")
	assert.True(t, hasDiag(r, Redefinition))
}

func TestSemaNullPointerConstant(t *testing.T) {
	analyzeOK(t, "int f(void) { char *p; p = 0; if (p == 0) return 1; return 0; }")
}

func TestSemaVoidPointerCompatibility(t *testing.T) {
	analyzeOK(t, "void *malloc(unsigned n); int f(void) { int *p; p = malloc(4); return p != 0; }")
}

func TestSemaStringLiteralType(t *testing.T) {
	r := analyzeOK(t, `char *s = "hello";`)
	d := r.TU.Decls[0]
	require.NotNil(t, d.Sym)
	pt, ok := Unwrap(d.Sym.Type).(*PointerType)
	require.True(t, ok)
	assert.True(t, isCharType(pt.Elem))
}
