package cc1

import "fmt"

// Parser is a recursive-descent parser over the token stream.  The
// only context-sensitive piece of the grammar is handled by the
// typedef name set: an identifier is a type specifier iff a typedef
// with that name is in scope and not shadowed.
type Parser struct {
	tokens []Token
	pos    int
	bag    *DiagBag

	// Per-scope typedef names and ordinary names shadowing them.
	typedefs []map[string]bool
	shadows  []map[string]bool

	errCount int
}

func NewParser(tokens []Token, bag *DiagBag) *Parser {
	return &Parser{
		tokens:   tokens,
		bag:      bag,
		typedefs: []map[string]bool{{}},
		shadows:  []map[string]bool{{}},
	}
}

// ParseTU parses a whole translation unit, collecting up to
// maxParseErrors diagnostics with resynchronization at declaration
// boundaries.
func ParseTU(file string, tokens []Token, bag *DiagBag) *TranslationUnit {
	p := NewParser(tokens, bag)
	tu := &TranslationUnit{File: file}
	for !p.atEOF() {
		decls, err := p.parseExternalDecl()
		if err != nil {
			if p.errCount >= maxParseErrors {
				break
			}
			p.sync()
			continue
		}
		tu.Decls = append(tu.Decls, decls...)
	}
	return tu
}

//  ---- token plumbing ----

func (p *Parser) peek() Token { return p.tokens[p.pos] }

func (p *Parser) peekAt(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) next() Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) atEOF() bool { return p.peek().Kind == TokenEOF }

// at reports whether the current token is the given keyword or
// punctuator.
func (p *Parser) at(s string) bool {
	if keywords[s] {
		return p.peek().IsKeyword(s)
	}
	return p.peek().IsPunct(s)
}

func (p *Parser) accept(s string) bool {
	if p.at(s) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) errorf(kind DiagKind, loc Location, format string, args ...any) error {
	p.errCount++
	p.bag.Errorf(kind, loc, format, args...)
	return p.bag.Diags[len(p.bag.Diags)-1]
}

func (p *Parser) expect(s string) (Token, error) {
	if p.at(s) {
		return p.next(), nil
	}
	return Token{}, p.errorf(UnexpectedToken, p.peek().Loc,
		"expected %q, found %s", s, describeToken(p.peek()))
}

func describeToken(t Token) string {
	if t.Kind == TokenEOF {
		return "end of file"
	}
	return fmt.Sprintf("%q", t.Lexeme)
}

// sync skips ahead to the token after the next `;` or to a block
// boundary, so parsing can continue after a syntax error.
func (p *Parser) sync() {
	depth := 0
	for !p.atEOF() {
		switch {
		case p.at(";") && depth == 0:
			p.next()
			return
		case p.at("{"):
			depth++
		case p.at("}"):
			if depth == 0 {
				p.next()
				return
			}
			depth--
		}
		p.next()
	}
}

//  ---- scopes ----

func (p *Parser) pushScope() {
	p.typedefs = append(p.typedefs, map[string]bool{})
	p.shadows = append(p.shadows, map[string]bool{})
}

func (p *Parser) popScope() {
	p.typedefs = p.typedefs[:len(p.typedefs)-1]
	p.shadows = p.shadows[:len(p.shadows)-1]
}

func (p *Parser) declareName(name string, isTypedef bool) {
	if name == "" {
		return
	}
	top := len(p.typedefs) - 1
	if isTypedef {
		p.typedefs[top][name] = true
		delete(p.shadows[top], name)
	} else {
		p.shadows[top][name] = true
		delete(p.typedefs[top], name)
	}
}

func (p *Parser) isTypedefName(name string) bool {
	for i := len(p.typedefs) - 1; i >= 0; i-- {
		if p.shadows[i][name] {
			return false
		}
		if p.typedefs[i][name] {
			return true
		}
	}
	return false
}

//  ---- declarations ----

var declSpecKeywords = map[string]bool{
	"auto": true, "register": true, "static": true, "extern": true,
	"typedef": true, "void": true, "char": true, "short": true,
	"int": true, "long": true, "float": true, "double": true,
	"signed": true, "unsigned": true, "struct": true, "union": true,
	"enum": true, "const": true, "volatile": true,
}

// isDeclStart reports whether the current token can begin a
// declaration.  This is where the typedef-name set earns its keep.
func (p *Parser) isDeclStart() bool {
	t := p.peek()
	if t.Kind == TokenKeyword && declSpecKeywords[t.Lexeme] {
		return true
	}
	return t.Kind == TokenIdent && p.isTypedefName(t.Lexeme)
}

func (p *Parser) parseExternalDecl() ([]*Decl, error) {
	if !p.isDeclStart() {
		return nil, p.errorf(UnexpectedToken, p.peek().Loc,
			"expected a declaration, found %s", describeToken(p.peek()))
	}
	return p.parseDeclaration(true)
}

// parseDeclaration parses declaration-specifiers followed by a comma
// separated init-declarator list.  At file scope a single function
// declarator followed by `{` becomes a function definition.
func (p *Parser) parseDeclaration(fileScope bool) ([]*Decl, error) {
	startLoc := p.peek().Loc
	storage, base, err := p.parseDeclSpecs(true)
	if err != nil {
		return nil, err
	}

	// `struct S { ... };` and friends: a bare type declaration.
	if p.accept(";") {
		d := NewDecl("", storage, base, startLoc)
		return []*Decl{d}, nil
	}

	var decls []*Decl
	for {
		name, nameLoc, typ, err := p.parseDeclarator(base, false)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, p.errorf(MalformedDeclarator, nameLoc, "declarator has no name")
		}
		p.declareName(name, storage == StorageTypedef)

		d := NewDecl(name, storage, typ, nameLoc)

		if fileScope && len(decls) == 0 && p.at("{") {
			if _, ok := typ.(*FuncType); !ok {
				return nil, p.errorf(MalformedDeclarator, nameLoc,
					"unexpected function body after non-function declarator")
			}
			body, err := p.parseFunctionBody(typ.(*FuncType))
			if err != nil {
				return nil, err
			}
			d.Body = body
			return []*Decl{d}, nil
		}

		if p.accept("=") {
			init, err := p.parseInitializer()
			if err != nil {
				return nil, err
			}
			d.Init = init
		}
		decls = append(decls, d)

		if p.accept(",") {
			continue
		}
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		return decls, nil
	}
}

func (p *Parser) parseFunctionBody(ft *FuncType) (*CompoundStmt, error) {
	// Parameters are visible in the body scope.
	p.pushScope()
	defer p.popScope()
	for _, param := range ft.Params {
		p.declareName(param.Name, false)
	}
	return p.parseCompoundStmt()
}

// parseDeclSpecs parses storage-class specifiers, type specifiers and
// qualifiers.  Qualifiers are accepted and dropped: the type sum does
// not carry them.
func (p *Parser) parseDeclSpecs(allowStorage bool) (StorageClass, Type, error) {
	var (
		storage  = StorageNone
		loc      = p.peek().Loc
		nVoid    int
		nChar    int
		nShort   int
		nInt     int
		nLong    int
		nFloat   int
		nDouble  int
		signed   bool
		unsigned bool
		special  Type // struct/union/enum/typedef-name specifier
	)

	setStorage := func(s StorageClass, tok Token) error {
		if !allowStorage {
			return p.errorf(RedundantSpecifier, tok.Loc,
				"storage class %q not allowed here", tok.Lexeme)
		}
		if storage != StorageNone {
			return p.errorf(RedundantSpecifier, tok.Loc,
				"multiple storage classes in declaration")
		}
		storage = s
		return nil
	}

	seenType := func() bool {
		return nVoid+nChar+nShort+nInt+nLong+nFloat+nDouble > 0 ||
			signed || unsigned || special != nil
	}

	for {
		t := p.peek()
		switch {
		case t.IsKeyword("auto"):
			if err := setStorage(StorageAuto, p.next()); err != nil {
				return 0, nil, err
			}
		case t.IsKeyword("register"):
			if err := setStorage(StorageRegister, p.next()); err != nil {
				return 0, nil, err
			}
		case t.IsKeyword("static"):
			if err := setStorage(StorageStatic, p.next()); err != nil {
				return 0, nil, err
			}
		case t.IsKeyword("extern"):
			if err := setStorage(StorageExtern, p.next()); err != nil {
				return 0, nil, err
			}
		case t.IsKeyword("typedef"):
			if err := setStorage(StorageTypedef, p.next()); err != nil {
				return 0, nil, err
			}
		case t.IsKeyword("const") || t.IsKeyword("volatile"):
			p.next()
		case t.IsKeyword("void"):
			p.next()
			nVoid++
		case t.IsKeyword("char"):
			p.next()
			nChar++
		case t.IsKeyword("short"):
			p.next()
			nShort++
		case t.IsKeyword("int"):
			p.next()
			nInt++
		case t.IsKeyword("long"):
			p.next()
			nLong++
		case t.IsKeyword("float"):
			p.next()
			nFloat++
		case t.IsKeyword("double"):
			p.next()
			nDouble++
		case t.IsKeyword("signed"):
			if signed {
				return 0, nil, p.errorf(RedundantSpecifier, t.Loc, "duplicate `signed`")
			}
			p.next()
			signed = true
		case t.IsKeyword("unsigned"):
			if unsigned {
				return 0, nil, p.errorf(RedundantSpecifier, t.Loc, "duplicate `unsigned`")
			}
			p.next()
			unsigned = true
		case t.IsKeyword("struct") || t.IsKeyword("union"):
			st, err := p.parseStructSpecifier()
			if err != nil {
				return 0, nil, err
			}
			special = st
		case t.IsKeyword("enum"):
			et, err := p.parseEnumSpecifier()
			if err != nil {
				return 0, nil, err
			}
			special = et
		case t.Kind == TokenIdent && p.isTypedefName(t.Lexeme) && !seenType():
			p.next()
			special = &TypedefType{Name: t.Lexeme}
		default:
			goto done
		}
	}
done:

	if signed && unsigned {
		return 0, nil, p.errorf(RedundantSpecifier, loc, "both `signed` and `unsigned`")
	}

	typ, err := p.combineSpecs(loc, nVoid, nChar, nShort, nInt, nLong,
		nFloat, nDouble, signed, unsigned, special)
	if err != nil {
		return 0, nil, err
	}
	return storage, typ, nil
}

func (p *Parser) combineSpecs(loc Location, nVoid, nChar, nShort, nInt, nLong,
	nFloat, nDouble int, signed, unsigned bool, special Type) (Type, error) {

	basic := nVoid + nChar + nShort + nInt + nLong + nFloat + nDouble

	if special != nil {
		if basic > 0 || signed || unsigned {
			return nil, p.errorf(RedundantSpecifier, loc,
				"cannot combine type specifiers with %s", special)
		}
		return special, nil
	}

	switch {
	case nVoid == 1 && basic == 1 && !signed && !unsigned:
		return &VoidType{}, nil

	case nChar == 1 && basic == 1:
		return &IntType{Rank: RankChar, Unsigned: unsigned,
			PlainChar: !signed && !unsigned}, nil

	case nShort == 1 && nInt <= 1 && basic == nShort+nInt:
		return &IntType{Rank: RankShort, Unsigned: unsigned}, nil

	case nLong == 1 && nDouble == 1 && basic == 2 && !signed && !unsigned:
		return &FloatType{Prec: PrecLongDouble}, nil

	case nLong == 1 && nInt <= 1 && basic == nLong+nInt:
		return &IntType{Rank: RankLong, Unsigned: unsigned}, nil

	case nLong == 2 && nInt <= 1 && basic == nLong+nInt:
		return &IntType{Rank: RankLongLong, Unsigned: unsigned}, nil

	case nInt == 1 && basic == 1:
		return &IntType{Rank: RankInt, Unsigned: unsigned}, nil

	case basic == 0 && (signed || unsigned):
		// `unsigned x;` means unsigned int.
		return &IntType{Rank: RankInt, Unsigned: unsigned}, nil

	case nFloat == 1 && basic == 1 && !signed && !unsigned:
		return &FloatType{Prec: PrecFloat}, nil

	case nDouble == 1 && basic == 1 && !signed && !unsigned:
		return &FloatType{Prec: PrecDouble}, nil

	case basic == 0:
		// Implicit int.  C89 allows it; keep the warning visible.
		p.bag.Warnf(RedundantSpecifier, loc, "type defaults to `int`")
		return &IntType{Rank: RankInt}, nil
	}

	return nil, p.errorf(RedundantSpecifier, loc, "invalid type specifier combination")
}

// parseStructSpecifier parses struct-or-union [tag] [member-list].
func (p *Parser) parseStructSpecifier() (*StructType, error) {
	kw := p.next() // struct or union
	st := &StructType{Union: kw.Lexeme == "union"}

	if p.peek().Kind == TokenIdent {
		st.Tag = p.next().Lexeme
	}

	if !p.at("{") {
		if st.Tag == "" {
			return nil, p.errorf(UnexpectedToken, p.peek().Loc,
				"expected a tag or `{` after %q", kw.Lexeme)
		}
		return st, nil
	}
	p.next() // {

	for !p.at("}") && !p.atEOF() {
		_, base, err := p.parseDeclSpecs(false)
		if err != nil {
			return nil, err
		}
		for {
			name, nameLoc, typ, err := p.parseDeclarator(base, false)
			if err != nil {
				return nil, err
			}
			if p.at(":") {
				return nil, p.errorf(Unsupported, p.peek().Loc,
					"bit-fields are not supported")
			}
			if name == "" {
				return nil, p.errorf(MalformedDeclarator, nameLoc,
					"member declarator has no name")
			}
			st.Fields = append(st.Fields, &Field{Name: name, Type: typ, Loc: nameLoc})
			if !p.accept(",") {
				break
			}
		}
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	st.Complete = true
	return st, nil
}

// parseEnumSpecifier parses enum [tag] [enumerator-list].
func (p *Parser) parseEnumSpecifier() (*EnumType, error) {
	p.next() // enum
	et := &EnumType{}

	if p.peek().Kind == TokenIdent {
		et.Tag = p.next().Lexeme
	}

	if !p.at("{") {
		if et.Tag == "" {
			return nil, p.errorf(UnexpectedToken, p.peek().Loc,
				"expected a tag or `{` after `enum`")
		}
		return et, nil
	}
	p.next() // {

	for {
		if p.peek().Kind != TokenIdent {
			return nil, p.errorf(UnexpectedToken, p.peek().Loc,
				"expected an enumerator name, found %s", describeToken(p.peek()))
		}
		name := p.next()
		ec := EnumConst{Name: name.Lexeme, Loc: name.Loc}
		if p.accept("=") {
			x, err := p.parseAssignExpr()
			if err != nil {
				return nil, err
			}
			ec.X = x
		}
		et.Consts = append(et.Consts, ec)
		p.declareName(name.Lexeme, false)

		if p.accept(",") {
			if p.at("}") {
				return nil, p.errorf(UnexpectedToken, p.peek().Loc,
					"trailing comma in enumerator list is not C89")
			}
			continue
		}
		break
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	et.Complete = true
	return et, nil
}

//  ---- declarators ----

// parseDeclarator parses pointers, a direct declarator, and array or
// function suffixes, then rebuilds the declared type inside-out from
// the declaration's base type.  With allowAbstract the name may be
// absent (type names, parameters).
func (p *Parser) parseDeclarator(base Type, allowAbstract bool) (string, Location, Type, error) {
	name, nameLoc, wrap, err := p.parseDeclaratorInner(allowAbstract)
	if err != nil {
		return "", nameLoc, nil, err
	}
	if name == "" {
		nameLoc = p.peek().Loc
	}
	return name, nameLoc, wrap(base), nil
}

func (p *Parser) parseDeclaratorInner(allowAbstract bool) (string, Location, func(Type) Type, error) {
	// Pointers, each possibly qualified.
	nPtr := 0
	for p.at("*") {
		p.next()
		for p.at("const") || p.at("volatile") {
			p.next()
		}
		nPtr++
	}

	var (
		name      string
		nameLoc   = p.peek().Loc
		innerWrap = func(t Type) Type { return t }
	)

	switch {
	case p.peek().Kind == TokenIdent:
		tok := p.next()
		name, nameLoc = tok.Lexeme, tok.Loc

	case p.at("(") && p.declaratorInParens(allowAbstract):
		p.next() // (
		var err error
		name, nameLoc, innerWrap, err = p.parseDeclaratorInner(allowAbstract)
		if err != nil {
			return "", nameLoc, nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return "", nameLoc, nil, err
		}

	default:
		if !allowAbstract {
			return "", nameLoc, nil, p.errorf(MalformedDeclarator, p.peek().Loc,
				"expected a declarator, found %s", describeToken(p.peek()))
		}
	}

	// Array and function suffixes, outermost first.
	var suffixes []func(Type) Type
	for {
		switch {
		case p.at("["):
			p.next()
			at := &ArrayType{}
			if p.at("]") {
				at.Incomplete = true
			} else {
				x, err := p.parseAssignExpr()
				if err != nil {
					return "", nameLoc, nil, err
				}
				at.LenExpr = x
			}
			if _, err := p.expect("]"); err != nil {
				return "", nameLoc, nil, err
			}
			suffixes = append(suffixes, func(t Type) Type {
				a := *at
				a.Elem = t
				return &a
			})

		case p.at("("):
			p.next()
			ft, err := p.parseParamList()
			if err != nil {
				return "", nameLoc, nil, err
			}
			suffixes = append(suffixes, func(t Type) Type {
				f := *ft
				f.Ret = t
				return &f
			})

		default:
			wrap := func(t Type) Type {
				for i := 0; i < nPtr; i++ {
					t = &PointerType{Elem: t}
				}
				for i := len(suffixes) - 1; i >= 0; i-- {
					t = suffixes[i](t)
				}
				return innerWrap(t)
			}
			return name, nameLoc, wrap, nil
		}
	}
}

// declaratorInParens distinguishes `int (*p)` — a parenthesized
// declarator — from `int f(void)` — a parameter list.
func (p *Parser) declaratorInParens(allowAbstract bool) bool {
	t := p.peekAt(1)
	if t.IsPunct("*") || t.IsPunct("(") {
		return true
	}
	if t.Kind == TokenIdent && !p.isTypedefName(t.Lexeme) {
		return true
	}
	if allowAbstract && t.IsPunct("[") {
		return true
	}
	return false
}

func (p *Parser) parseParamList() (*FuncType, error) {
	ft := &FuncType{}

	if p.accept(")") {
		ft.OldStyle = true
		return ft, nil
	}

	// `(void)` declares zero parameters.
	if p.at("void") && p.peekAt(1).IsPunct(")") {
		p.next()
		p.next()
		return ft, nil
	}

	p.pushScope()
	defer p.popScope()

	for {
		if p.at("...") {
			loc := p.next().Loc
			if len(ft.Params) == 0 {
				return nil, p.errorf(MalformedDeclarator, loc,
					"`...` requires at least one named parameter")
			}
			ft.Variadic = true
			break
		}

		if !p.isDeclStart() {
			return nil, p.errorf(MalformedDeclarator, p.peek().Loc,
				"expected a parameter declaration, found %s", describeToken(p.peek()))
		}
		_, base, err := p.parseDeclSpecs(false)
		if err != nil {
			return nil, err
		}
		name, nameLoc, typ, err := p.parseDeclarator(base, true)
		if err != nil {
			return nil, err
		}
		p.declareName(name, false)
		ft.Params = append(ft.Params, Param{Name: name, Type: typ, Loc: nameLoc})

		if !p.accept(",") {
			break
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return ft, nil
}

// parseTypeName parses specifier-qualifiers plus an abstract
// declarator, as used by casts and sizeof.
func (p *Parser) parseTypeName() (Type, error) {
	_, base, err := p.parseDeclSpecs(false)
	if err != nil {
		return nil, err
	}
	_, _, typ, err := p.parseDeclarator(base, true)
	return typ, err
}

//  ---- initializers ----

// parseInitializer parses a scalar assignment-expression or a brace
// list.  Elements inside braces parse at assignment-expression level
// so commas separate elements rather than forming comma expressions.
func (p *Parser) parseInitializer() (Init, error) {
	if p.at("{") {
		loc := p.next().Loc
		var items []Init
		for !p.at("}") {
			item, err := p.parseInitializer()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			if !p.accept(",") {
				break
			}
		}
		if _, err := p.expect("}"); err != nil {
			return nil, err
		}
		return NewListInit(items, loc), nil
	}
	x, err := p.parseAssignExpr()
	if err != nil {
		return nil, err
	}
	return &ExprInit{X: x}, nil
}

//  ---- statements ----

func (p *Parser) parseCompoundStmt() (*CompoundStmt, error) {
	open, err := p.expect("{")
	if err != nil {
		return nil, err
	}
	p.pushScope()
	defer p.popScope()

	var items []Stmt
	for !p.at("}") && !p.atEOF() {
		item, err := p.parseBlockItem()
		if err != nil {
			if p.errCount >= maxParseErrors {
				return nil, err
			}
			p.sync()
			continue
		}
		items = append(items, item)
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return NewCompoundStmt(items, open.Loc), nil
}

func (p *Parser) parseBlockItem() (Stmt, error) {
	if p.isDeclStart() {
		loc := p.peek().Loc
		decls, err := p.parseDeclaration(false)
		if err != nil {
			return nil, err
		}
		return NewDeclStmt(decls, loc), nil
	}
	return p.parseStmt()
}

func (p *Parser) parseStmt() (Stmt, error) {
	t := p.peek()
	switch {
	case t.IsPunct("{"):
		return p.parseCompoundStmt()

	case t.IsPunct(";"):
		return NewNullStmt(p.next().Loc), nil

	case t.IsKeyword("if"):
		return p.parseIfStmt()

	case t.IsKeyword("while"):
		return p.parseWhileStmt()

	case t.IsKeyword("do"):
		return p.parseDoStmt()

	case t.IsKeyword("for"):
		return p.parseForStmt()

	case t.IsKeyword("switch"):
		return p.parseSwitchStmt()

	case t.IsKeyword("case"):
		loc := p.next().Loc
		x, err := p.parseCondExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		body, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		return NewCaseStmt(x, body, loc), nil

	case t.IsKeyword("default"):
		loc := p.next().Loc
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		body, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		return NewCaseStmt(nil, body, loc), nil

	case t.IsKeyword("goto"):
		loc := p.next().Loc
		if p.peek().Kind != TokenIdent {
			return nil, p.errorf(UnexpectedToken, p.peek().Loc,
				"expected a label after `goto`")
		}
		label := p.next().Lexeme
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		return NewGotoStmt(label, loc), nil

	case t.IsKeyword("continue"):
		loc := p.next().Loc
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		return NewContinueStmt(loc), nil

	case t.IsKeyword("break"):
		loc := p.next().Loc
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		return NewBreakStmt(loc), nil

	case t.IsKeyword("return"):
		loc := p.next().Loc
		var x Expr
		if !p.at(";") {
			var err error
			x, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		return NewReturnStmt(x, loc), nil

	case t.Kind == TokenIdent && p.peekAt(1).IsPunct(":"):
		label := p.next()
		p.next() // :
		body, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		return NewLabeledStmt(label.Lexeme, body, label.Loc), nil

	default:
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		return NewExprStmt(x, x.Loc()), nil
	}
}

func (p *Parser) parseIfStmt() (Stmt, error) {
	loc := p.next().Loc // if
	cond, err := p.parseParenExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	// `else` binds to the nearest unmatched `if`.
	var els Stmt
	if p.accept("else") {
		els, err = p.parseStmt()
		if err != nil {
			return nil, err
		}
	}
	return NewIfStmt(cond, then, els, loc), nil
}

func (p *Parser) parseWhileStmt() (Stmt, error) {
	loc := p.next().Loc // while
	cond, err := p.parseParenExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return NewWhileStmt(cond, body, loc), nil
}

func (p *Parser) parseDoStmt() (Stmt, error) {
	loc := p.next().Loc // do
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("while"); err != nil {
		return nil, err
	}
	cond, err := p.parseParenExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	return NewDoStmt(body, cond, loc), nil
}

func (p *Parser) parseForStmt() (Stmt, error) {
	loc := p.next().Loc // for
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	p.pushScope()
	defer p.popScope()

	var init Stmt
	switch {
	case p.accept(";"):
	case p.isDeclStart():
		dloc := p.peek().Loc
		decls, err := p.parseDeclaration(false)
		if err != nil {
			return nil, err
		}
		init = NewDeclStmt(decls, dloc)
	default:
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		init = NewExprStmt(x, x.Loc())
	}

	var cond Expr
	if !p.at(";") {
		var err error
		cond, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}

	var post Expr
	if !p.at(")") {
		var err error
		post, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}

	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return NewForStmt(init, cond, post, body, loc), nil
}

func (p *Parser) parseSwitchStmt() (Stmt, error) {
	loc := p.next().Loc // switch
	cond, err := p.parseParenExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return NewSwitchStmt(cond, body, loc), nil
}

func (p *Parser) parseParenExpr() (Expr, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return x, nil
}

//  ---- expressions ----

func (p *Parser) parseExpr() (Expr, error) {
	x, err := p.parseAssignExpr()
	if err != nil {
		return nil, err
	}
	for p.at(",") {
		loc := p.next().Loc
		y, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		x = NewCommaExpr(x, y, loc)
	}
	return x, nil
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"<<=": true, ">>=": true, "&=": true, "|=": true, "^=": true,
}

func (p *Parser) parseAssignExpr() (Expr, error) {
	lhs, err := p.parseCondExpr()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.Kind == TokenPunct && assignOps[t.Lexeme] {
		p.next()
		rhs, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		return NewAssignExpr(t.Lexeme, lhs, rhs, t.Loc), nil
	}
	return lhs, nil
}

func (p *Parser) parseCondExpr() (Expr, error) {
	cond, err := p.parseBinaryExpr(0)
	if err != nil {
		return nil, err
	}
	if !p.at("?") {
		return cond, nil
	}
	loc := p.next().Loc
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.parseCondExpr()
	if err != nil {
		return nil, err
	}
	return NewCondExpr(cond, then, els, loc), nil
}

// binPrec orders the binary operators from lowest (||) to highest
// (* / %) so a single precedence climber covers them all.
var binPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

func (p *Parser) parseBinaryExpr(minPrec int) (Expr, error) {
	x, err := p.parseCastExpr()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.Kind != TokenPunct {
			return x, nil
		}
		prec, ok := binPrec[t.Lexeme]
		if !ok || prec < minPrec {
			return x, nil
		}
		p.next()
		y, err := p.parseBinaryExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		x = NewBinaryExpr(t.Lexeme, x, y, t.Loc)
	}
}

func (p *Parser) parseCastExpr() (Expr, error) {
	if p.at("(") && p.typeNameAfterParen() {
		loc := p.next().Loc // (
		typ, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		x, err := p.parseCastExpr()
		if err != nil {
			return nil, err
		}
		return NewCastExpr(typ, x, loc), nil
	}
	return p.parseUnaryExpr()
}

// typeNameAfterParen reports whether the token after `(` begins a
// type name, which decides cast-vs-parenthesized-expression and the
// two forms of sizeof.
func (p *Parser) typeNameAfterParen() bool {
	t := p.peekAt(1)
	if t.Kind == TokenKeyword && declSpecKeywords[t.Lexeme] &&
		t.Lexeme != "auto" && t.Lexeme != "register" &&
		t.Lexeme != "static" && t.Lexeme != "extern" && t.Lexeme != "typedef" {
		return true
	}
	return t.Kind == TokenIdent && p.isTypedefName(t.Lexeme)
}

func (p *Parser) parseUnaryExpr() (Expr, error) {
	t := p.peek()
	switch {
	case t.IsPunct("++") || t.IsPunct("--"):
		p.next()
		x, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		return NewIncDecExpr(t.Lexeme, true, x, t.Loc), nil

	case t.IsPunct("&") || t.IsPunct("*") || t.IsPunct("+") ||
		t.IsPunct("-") || t.IsPunct("~") || t.IsPunct("!"):
		p.next()
		x, err := p.parseCastExpr()
		if err != nil {
			return nil, err
		}
		return NewUnaryExpr(t.Lexeme, x, t.Loc), nil

	case t.IsKeyword("sizeof"):
		p.next()
		// Prefer the parenthesized type-name form, fall back to a
		// unary expression operand.
		if p.at("(") && p.typeNameAfterParen() {
			p.next() // (
			typ, err := p.parseTypeName()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			return NewSizeofExpr(nil, typ, t.Loc), nil
		}
		x, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		return NewSizeofExpr(x, nil, t.Loc), nil

	default:
		return p.parsePostfixExpr()
	}
}

func (p *Parser) parsePostfixExpr() (Expr, error) {
	x, err := p.parsePrimaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch {
		case t.IsPunct("["):
			p.next()
			index, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect("]"); err != nil {
				return nil, err
			}
			x = NewIndexExpr(x, index, t.Loc)

		case t.IsPunct("("):
			p.next()
			var args []Expr
			for !p.at(")") {
				arg, err := p.parseAssignExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.accept(",") {
					break
				}
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			x = NewCallExpr(x, args, t.Loc)

		case t.IsPunct(".") || t.IsPunct("->"):
			p.next()
			if p.peek().Kind != TokenIdent {
				return nil, p.errorf(UnexpectedToken, p.peek().Loc,
					"expected a member name after %q", t.Lexeme)
			}
			name := p.next()
			x = NewMemberExpr(x, name.Lexeme, t.Lexeme == "->", t.Loc)

		case t.IsPunct("++") || t.IsPunct("--"):
			p.next()
			x = NewIncDecExpr(t.Lexeme, false, x, t.Loc)

		default:
			return x, nil
		}
	}
}

func (p *Parser) parsePrimaryExpr() (Expr, error) {
	t := p.peek()
	switch {
	case t.Kind == TokenIntConst || t.Kind == TokenCharConst:
		return NewIntLit(p.next()), nil

	case t.Kind == TokenFloatConst:
		return NewFloatLit(p.next()), nil

	case t.Kind == TokenString:
		return NewStringLit(p.next()), nil

	case t.Kind == TokenIdent:
		tok := p.next()
		return NewIdentExpr(tok.Lexeme, tok.Loc), nil

	case t.IsPunct("("):
		p.next()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return x, nil

	default:
		return nil, p.errorf(UnexpectedToken, t.Loc,
			"expected an expression, found %s", describeToken(t))
	}
}
