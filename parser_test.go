package cc1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTU(t *testing.T, src string) (*TranslationUnit, *DiagBag) {
	t.Helper()
	bag := &DiagBag{}
	tokens, err := Lex("t.c", []byte(src), bag)
	require.NoError(t, err)
	return ParseTU("t.c", tokens, bag), bag
}

func TestParseDeclarations(t *testing.T) {
	for _, test := range []struct {
		Name           string
		Src            string
		ExpectedOutput string
	}{
		{
			Name: "Object",
			Src:  "int x;",
			ExpectedOutput: `TranslationUnit[t.c]
└── Decl[x: int]`,
		},
		{
			Name: "Pointer",
			Src:  "char *s;",
			ExpectedOutput: `TranslationUnit[t.c]
└── Decl[s: char*]`,
		},
		{
			Name: "Array",
			Src:  "int a[3];",
			ExpectedOutput: `TranslationUnit[t.c]
└── Decl[a: int[3]]`,
		},
		{
			Name: "FunctionPointer",
			Src:  "int (*p)(int, int);",
			ExpectedOutput: `TranslationUnit[t.c]
└── Decl[p: int (int, int)*]`,
		},
		{
			Name: "Storage",
			Src:  "static unsigned long n;",
			ExpectedOutput: `TranslationUnit[t.c]
└── Decl[static n: unsigned long]`,
		},
		{
			Name: "MultipleDeclarators",
			Src:  "int x, *y, z[2];",
			ExpectedOutput: `TranslationUnit[t.c]
├── Decl[x: int]
├── Decl[y: int*]
└── Decl[z: int[2]]`,
		},
		{
			Name: "FunctionDefinition",
			Src:  "int main(void) { return 42; }",
			ExpectedOutput: `TranslationUnit[t.c]
└── FuncDef[main: int (void)]
    └── Compound
        └── Return
            └── Int[42]`,
		},
		{
			Name: "Variadic",
			Src:  "int sum(int n, ...);",
			ExpectedOutput: `TranslationUnit[t.c]
└── Decl[sum: int (int, ...)]`,
		},
	} {
		t.Run(test.Name, func(t *testing.T) {
			tu, bag := parseTU(t, test.Src)
			require.False(t, bag.HasErrors(), "diagnostics: %v", bag.Diags)
			assert.Equal(t, test.ExpectedOutput, PrettyString(tu))
		})
	}
}

func TestParseTypedefDisambiguation(t *testing.T) {
	tu, bag := parseTU(t, "typedef int T;\nT x;")
	require.False(t, bag.HasErrors())
	assert.Equal(t, `TranslationUnit[t.c]
├── Decl[typedef T: int]
└── Decl[x: T]`, PrettyString(tu))
}

// A block-scope object shadows a file-scope typedef name, turning
// `T * y` back into an expression.
func TestParseTypedefShadowing(t *testing.T) {
	tu, bag := parseTU(t, `
typedef int T;
int f(void) {
    int T;
    T * 2;
    return 0;
}
`)
	require.False(t, bag.HasErrors())
	body := tu.Decls[1].Body
	_, isExpr := body.Items[1].(*ExprStmt)
	assert.True(t, isExpr, "T * 2 must parse as an expression, not a declaration")
}

func TestParseDanglingElse(t *testing.T) {
	tu, bag := parseTU(t, "int f(void) { if (1) if (2) return 1; else return 2; return 0; }")
	require.False(t, bag.HasErrors())
	assert.Equal(t, `TranslationUnit[t.c]
└── FuncDef[f: int (void)]
    └── Compound
        ├── If
        │   ├── Int[1]
        │   └── If
        │       ├── Int[2]
        │       ├── Return
        │       │   └── Int[1]
        │       └── Return
        │           └── Int[2]
        └── Return
            └── Int[0]`, PrettyString(tu))
}

// Inside a brace list, commas separate elements: the elements parse
// at assignment-expression level, never as one comma expression.
func TestParseInitializerList(t *testing.T) {
	tu, bag := parseTU(t, "int a[2] = {1, 2};")
	require.False(t, bag.HasErrors())
	assert.Equal(t, `TranslationUnit[t.c]
└── Decl[a: int[2]]
    └── InitList
        ├── Init
        │   └── Int[1]
        └── Init
            └── Int[2]`, PrettyString(tu))
}

func TestParseSizeofForms(t *testing.T) {
	tu, bag := parseTU(t, "int f(int x) { return sizeof(int) + sizeof x; }")
	require.False(t, bag.HasErrors())
	assert.Equal(t, `TranslationUnit[t.c]
└── FuncDef[f: int (int)]
    └── Compound
        └── Return
            └── Binary[+]
                ├── Sizeof[int]
                └── Sizeof
                    └── Ident[x]`, PrettyString(tu))
}

func TestParsePrecedence(t *testing.T) {
	tu, bag := parseTU(t, "int f(void) { return 1 + 2 * 3; }")
	require.False(t, bag.HasErrors())
	assert.Equal(t, `TranslationUnit[t.c]
└── FuncDef[f: int (void)]
    └── Compound
        └── Return
            └── Binary[+]
                ├── Int[1]
                └── Binary[*]
                    ├── Int[2]
                    └── Int[3]`, PrettyString(tu))
}

func TestParseCompoundAssignment(t *testing.T) {
	tu, bag := parseTU(t, "int f(int s, int x) { s += x; s <<= 2; return s; }")
	require.False(t, bag.HasErrors())
	body := tu.Decls[0].Body
	a1 := body.Items[0].(*ExprStmt).X.(*AssignExpr)
	a2 := body.Items[1].(*ExprStmt).X.(*AssignExpr)
	assert.Equal(t, "+=", a1.Op)
	assert.Equal(t, "<<=", a2.Op)
}

func TestParseForWithDeclaration(t *testing.T) {
	tu, bag := parseTU(t, "int f(void) { int s = 0; for (int i = 0; i < 5; i++) s += i; return s; }")
	require.False(t, bag.HasErrors())
	forStmt := tu.Decls[0].Body.Items[1].(*ForStmt)
	_, isDecl := forStmt.Init.(*DeclStmt)
	assert.True(t, isDecl)
}

func TestParseStructSpecifier(t *testing.T) {
	tu, bag := parseTU(t, "struct S { int a; float b; char c; };")
	require.False(t, bag.HasErrors())
	st, ok := tu.Decls[0].Type.(*StructType)
	require.True(t, ok)
	assert.Equal(t, "S", st.Tag)
	require.Len(t, st.Fields, 3)
	assert.Equal(t, "a", st.Fields[0].Name)
	assert.Equal(t, "c", st.Fields[2].Name)
}

func TestParseEnumSpecifier(t *testing.T) {
	tu, bag := parseTU(t, "enum color { RED, GREEN = 5, BLUE };")
	require.False(t, bag.HasErrors())
	et, ok := tu.Decls[0].Type.(*EnumType)
	require.True(t, ok)
	require.Len(t, et.Consts, 3)
	assert.Nil(t, et.Consts[0].X)
	assert.NotNil(t, et.Consts[1].X)
}

func TestParseErrors(t *testing.T) {
	for _, test := range []struct {
		Name string
		Src  string
		Kind DiagKind
	}{
		{Name: "MissingSemicolon", Src: "int main(void) { missing_semicolon return 0; }", Kind: UnexpectedToken},
		{Name: "BitField", Src: "struct S { int a : 3; };", Kind: Unsupported},
		{Name: "TrailingEnumComma", Src: "enum e { A, B, };", Kind: UnexpectedToken},
		{Name: "TwoStorageClasses", Src: "static extern int x;", Kind: RedundantSpecifier},
		{Name: "EllipsisAlone", Src: "int f(...);", Kind: MalformedDeclarator},
	} {
		t.Run(test.Name, func(t *testing.T) {
			_, bag := parseTU(t, test.Src)
			require.True(t, bag.HasErrors())
			found := false
			for _, d := range bag.Diags {
				if d.Kind == test.Kind {
					found = true
				}
			}
			assert.True(t, found, "expected kind %v in %v", test.Kind, bag.Diags)
		})
	}
}

// After a syntax error the parser resynchronizes at the next `;` or
// block boundary and keeps collecting diagnostics.
func TestParseErrorRecovery(t *testing.T) {
	_, bag := parseTU(t, `
int f(void) { oops1 return 1; }
int g(void) { oops2 return 2; }
`)
	assert.GreaterOrEqual(t, bag.ErrorCount(), 2)
	assert.LessOrEqual(t, bag.ErrorCount(), maxParseErrors)
}

// Pretty-printing a parsed unit yields C89 source that re-parses to
// a structurally equivalent tree.
func TestPrintCRoundTrip(t *testing.T) {
	src := `
int add(int a, int b);
int a[3] = {1, 2, 3};
int main(void) {
    int s = 0;
    int i;
    for (i = 0; i < 3; i++) {
        s += a[i];
    }
    if (s > 5)
        s = s - 1;
    while (s % 2)
        s--;
    return add(s, 2);
}
`
	tu, bag := parseTU(t, src)
	require.False(t, bag.HasErrors(), "diagnostics: %v", bag.Diags)

	printed := PrintC(tu)
	tu2, bag2 := parseTU(t, printed)
	require.False(t, bag2.HasErrors(), "reprinted source must parse: %v\n%s", bag2.Diags, printed)
	assert.Equal(t, PrettyString(tu), PrettyString(tu2))
}
