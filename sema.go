package cc1

// Sema resolves identifiers, binds types, checks the C89 typing
// rules, folds constants, and annotates the AST in place.  Conversion
// points become implicit CastExpr nodes so the IR emitter never has
// to re-derive them.
type Sema struct {
	tg   *Target
	bag  *DiagBag
	syms *SymTab

	curFunc     *FuncType
	curFuncName string

	switches []*SwitchStmt
	loops    int

	labels map[string]bool
	gotos  []*GotoStmt
}

// Analyze runs semantic analysis over a parsed translation unit.
// Diagnostics accumulate freely; the AST stays well-formed, with
// poison types marking failed subtrees.
func Analyze(tu *TranslationUnit, tg *Target, bag *DiagBag) *SymTab {
	s := &Sema{tg: tg, bag: bag, syms: NewSymTab()}
	for _, d := range tu.Decls {
		s.declare(d)
	}
	return s.syms
}

func (s *Sema) errorf(kind DiagKind, loc Location, format string, args ...any) {
	s.bag.Errorf(kind, loc, format, args...)
}

func poison() Type { return &PoisonType{} }

//  ---- type resolution ----

// resolveType canonicalizes a parser-produced type: typedefs are
// bound, tags are linked through the tag namespace, array lengths are
// folded, and parameter types get their adjustments.
func (s *Sema) resolveType(t Type, loc Location) Type {
	switch u := t.(type) {
	case *VoidType, *FloatType, *IntType, *PoisonType:
		return t

	case *TypedefType:
		if u.Actual != nil {
			return u
		}
		sym := s.syms.Lookup(u.Name)
		if sym == nil || sym.Kind != SymTypedef {
			s.errorf(Undeclared, loc, "unknown type name %q", u.Name)
			return poison()
		}
		return &TypedefType{Name: u.Name, Actual: sym.Type}

	case *PointerType:
		return &PointerType{Elem: s.resolveType(u.Elem, loc)}

	case *ArrayType:
		at := &ArrayType{Elem: s.resolveType(u.Elem, loc), Len: u.Len, Incomplete: u.Incomplete}
		if u.LenExpr != nil {
			x := s.rvalue(u.LenExpr)
			if IsPoison(x.Type()) {
				return poison()
			}
			if !IsInteger(x.Type()) {
				s.errorf(TypeMismatch, x.Loc(), "array size is not an integer")
				return poison()
			}
			v, err := s.tg.Fold(x)
			if err != nil {
				s.foldDiag(err, "array size")
				return poison()
			}
			n := v.Int(s.tg)
			if n <= 0 {
				s.errorf(TypeMismatch, x.Loc(), "array size must be positive")
				return poison()
			}
			at.Len = n
		}
		if sz, err := s.tg.SizeOf(at.Elem); err != nil || sz == 0 {
			if !IsPoison(at.Elem) {
				s.errorf(IncompleteType, loc, "array of incomplete element type %s", at.Elem)
			}
			return poison()
		}
		return at

	case *FuncType:
		ft := &FuncType{Ret: s.resolveType(u.Ret, loc), Variadic: u.Variadic, OldStyle: u.OldStyle}
		if IsArray(ft.Ret) || IsFunc(ft.Ret) {
			s.errorf(TypeMismatch, loc, "function returns %s", ft.Ret)
			ft.Ret = poison()
		}
		for _, p := range u.Params {
			pt := s.resolveType(p.Type, p.Loc)
			// Parameter adjustments: arrays and functions become
			// pointers.
			switch pu := Unwrap(pt).(type) {
			case *ArrayType:
				pt = &PointerType{Elem: pu.Elem}
			case *FuncType:
				pt = &PointerType{Elem: pt}
			}
			ft.Params = append(ft.Params, Param{Name: p.Name, Type: pt, Loc: p.Loc})
		}
		return ft

	case *StructType:
		return s.resolveStruct(u, loc)

	case *EnumType:
		return s.resolveEnum(u, loc)
	}
	return t
}

// IsArray reports whether t is an array type.
func IsArray(t Type) bool {
	_, ok := Unwrap(t).(*ArrayType)
	return ok
}

func (s *Sema) resolveStruct(u *StructType, loc Location) Type {
	if u.align > 0 {
		// Already canonical.
		return u
	}

	if !u.Complete {
		// A reference: `struct T` with no member list.  Cyclic types
		// resolve through the tag name, never through type pointers.
		if sym := s.syms.LookupTag(u.Tag); sym != nil {
			st, ok := sym.Type.(*StructType)
			if !ok || st.Union != u.Union {
				s.errorf(TypeMismatch, loc, "tag %q is not a %s", u.Tag, u.keyword())
				return poison()
			}
			return st
		}
		ref := &StructType{Union: u.Union, Tag: u.Tag}
		s.syms.DeclareTag(&Symbol{Name: u.Tag, Type: ref, Loc: loc})
		return ref
	}

	// A definition.  Complete a forward declaration of the same tag
	// in this scope, if any, so earlier pointers share the identity.
	st := &StructType{Union: u.Union, Tag: u.Tag}
	if u.Tag != "" {
		if sym := s.syms.LookupTagLocal(u.Tag); sym != nil {
			prev, ok := sym.Type.(*StructType)
			if !ok || prev.Union != u.Union {
				s.errorf(TypeMismatch, loc, "tag %q redeclared as a different kind", u.Tag)
				return poison()
			}
			if prev.Complete {
				s.errorf(Redefinition, loc, "redefinition of %s %s", prev.keyword(), u.Tag)
				return poison()
			}
			st = prev
		} else {
			s.syms.DeclareTag(&Symbol{Name: u.Tag, Type: st, Loc: loc})
		}
	}

	if len(u.Fields) == 0 {
		s.errorf(TypeMismatch, loc, "%s has no members", st.keyword())
		return poison()
	}

	seen := map[string]bool{}
	for _, f := range u.Fields {
		if seen[f.Name] {
			s.errorf(Redefinition, f.Loc, "duplicate member %q", f.Name)
			continue
		}
		seen[f.Name] = true
		ft := s.resolveType(f.Type, f.Loc)
		if IsFunc(ft) {
			s.errorf(TypeMismatch, f.Loc, "member %q has function type", f.Name)
			ft = poison()
		}
		st.Fields = append(st.Fields, &Field{Name: f.Name, Type: ft, Loc: f.Loc})
	}

	if err := s.tg.layout(st); err != nil {
		s.errorf(IncompleteType, loc, "%s %s has a member of incomplete type", st.keyword(), st.Tag)
		return poison()
	}
	return st
}

func (s *Sema) resolveEnum(u *EnumType, loc Location) Type {
	if !u.Complete {
		if sym := s.syms.LookupTag(u.Tag); sym != nil {
			if et, ok := sym.Type.(*EnumType); ok {
				return et
			}
			s.errorf(TypeMismatch, loc, "tag %q is not an enum", u.Tag)
			return poison()
		}
		s.errorf(IncompleteType, loc, "enum %s used before definition", u.Tag)
		return poison()
	}

	et := &EnumType{Tag: u.Tag, Complete: true}
	if u.Tag != "" {
		if sym := s.syms.LookupTagLocal(u.Tag); sym != nil {
			s.errorf(Redefinition, loc, "redefinition of enum %s", u.Tag)
			return poison()
		}
		s.syms.DeclareTag(&Symbol{Name: u.Tag, Type: et, Loc: loc})
	}

	next := int64(0)
	for _, c := range u.Consts {
		val := next
		if c.X != nil {
			x := s.rvalue(c.X)
			v, err := s.tg.Fold(x)
			if err != nil {
				s.foldDiag(err, "enumerator value")
			} else if !v.IsFloat {
				val = v.Int(s.tg)
			} else {
				s.errorf(TypeMismatch, c.Loc, "enumerator value is not an integer")
			}
		}
		next = val + 1
		et.Consts = append(et.Consts, EnumConst{Name: c.Name, Value: val, Loc: c.Loc})

		if prev := s.syms.LookupLocal(c.Name); prev != nil {
			s.errorf(Redefinition, c.Loc, "redefinition of %q", c.Name)
			continue
		}
		s.syms.Declare(&Symbol{
			Name:      c.Name,
			Kind:      SymEnumConst,
			Type:      &IntType{Rank: RankInt},
			EnumValue: val,
			Loc:       c.Loc,
		})
	}
	return et
}

func (s *Sema) foldDiag(err error, what string) {
	if fe, ok := err.(foldError); ok {
		s.errorf(NotConstant, fe.Loc, "%s: %s", what, fe.Msg)
		return
	}
	s.bag.Errorf(NotConstant, Location{}, "%s is not constant", what)
}

//  ---- declarations ----

func (s *Sema) declare(d *Decl) {
	d.Type = s.resolveType(d.Type, d.Loc())

	if d.Name == "" {
		// Tag or enum declaration; resolveType did the work.
		return
	}
	if IsPoison(d.Type) {
		return
	}

	if d.Storage == StorageTypedef {
		if d.Init != nil {
			s.errorf(TypeMismatch, d.Loc(), "typedef %q cannot have an initializer", d.Name)
		}
		if prev := s.syms.LookupLocal(d.Name); prev != nil {
			s.errorf(Redefinition, d.Loc(), "redefinition of %q", d.Name)
			return
		}
		d.Sym = s.syms.Declare(&Symbol{
			Name: d.Name, Kind: SymTypedef, Type: d.Type,
			Storage: d.Storage, Loc: d.Loc(),
		})
		return
	}

	if ft, ok := Unwrap(d.Type).(*FuncType); ok {
		s.declareFunc(d, ft)
		return
	}
	s.declareObject(d)
}

func (s *Sema) declareFunc(d *Decl, ft *FuncType) {
	linkage := LinkExternal
	if d.Storage == StorageStatic {
		linkage = LinkInternal
	}

	sym := s.syms.Lookup(d.Name)
	if sym != nil && sym.Kind == SymFunc {
		if !typeCompatible(sym.Type, d.Type) {
			s.errorf(Redefinition, d.Loc(), "conflicting types for %q", d.Name)
			return
		}
		if d.IsFuncDef() && sym.Defined {
			s.errorf(Redefinition, d.Loc(), "redefinition of %q", d.Name)
			return
		}
		// A prototyped redeclaration refines an old-style one.
		if old, ok := Unwrap(sym.Type).(*FuncType); ok && old.OldStyle && !ft.OldStyle {
			sym.Type = d.Type
		}
	} else if sym != nil && s.syms.LookupLocal(d.Name) != nil {
		s.errorf(Redefinition, d.Loc(), "%q redeclared as a function", d.Name)
		return
	} else {
		sym = s.syms.Declare(&Symbol{
			Name: d.Name, Kind: SymFunc, Type: d.Type,
			Storage: d.Storage, Linkage: linkage, Loc: d.Loc(),
		})
	}
	d.Sym = sym

	if !d.IsFuncDef() {
		return
	}
	sym.Defined = true
	sym.Type = d.Type

	s.curFunc = ft
	s.curFuncName = d.Name
	s.labels = map[string]bool{}
	s.gotos = nil
	s.syms.EnterFunction()
	s.syms.Push()

	for i := range ft.Params {
		p := &ft.Params[i]
		if p.Name == "" {
			s.errorf(MalformedDeclarator, p.Loc, "parameter name omitted in definition of %q", d.Name)
			continue
		}
		p.Sym = s.syms.Declare(&Symbol{
			Name: p.Name, Kind: SymVar, Type: p.Type, Loc: p.Loc,
		})
	}

	s.stmtList(d.Body.Items)

	for _, g := range s.gotos {
		if !s.labels[g.Label] {
			s.errorf(Undeclared, g.Loc(), "label %q used but not defined", g.Label)
		}
	}

	s.syms.Pop()
	s.curFunc = nil
	s.curFuncName = ""
}

func (s *Sema) declareObject(d *Decl) {
	if IsVoid(d.Type) {
		s.errorf(TypeMismatch, d.Loc(), "variable %q has type void", d.Name)
		return
	}

	fileScope := s.syms.AtFileScope()
	static := fileScope || d.Storage == StorageStatic || d.Storage == StorageExtern

	if prev := s.syms.LookupLocal(d.Name); prev != nil {
		// Tentative and extern redeclarations are allowed at file
		// scope when the types agree.
		compatible := typeCompatible(prev.Type, d.Type)
		if !fileScope || !compatible ||
			(d.Init != nil && prev.Defined) {
			s.errorf(Redefinition, d.Loc(), "redefinition of %q", d.Name)
			return
		}
		d.Sym = prev
		if d.Init != nil {
			prev.Defined = true
		}
		// An initializer can complete a tentative array type.
		if IsArray(d.Type) && !Unwrap(d.Type).(*ArrayType).Incomplete {
			prev.Type = d.Type
		}
	} else {
		linkage := LinkNone
		if fileScope {
			linkage = LinkExternal
			if d.Storage == StorageStatic {
				linkage = LinkInternal
			}
		}
		d.Sym = s.syms.Declare(&Symbol{
			Name: d.Name, Kind: SymVar, Type: d.Type,
			Storage: d.Storage, Linkage: linkage,
			FileScope: static, Loc: d.Loc(),
			Defined: d.Init != nil,
		})
	}

	if d.Init != nil {
		d.Init = s.checkInit(d.Init, &d.Sym.Type, static)
		d.Sym.Type = completeFromInit(d.Sym.Type, d.Init)
		d.Type = d.Sym.Type
	}

	if d.Storage != StorageExtern {
		if _, err := s.tg.SizeOf(d.Sym.Type); err != nil {
			s.errorf(IncompleteType, d.Loc(), "variable %q has incomplete type %s", d.Name, d.Sym.Type)
		}
	}
}

// completeFromInit fills in the length of `T x[] = {...}` and
// `char s[] = "..."`.
func completeFromInit(t Type, init Init) Type {
	at, ok := Unwrap(t).(*ArrayType)
	if !ok || !at.Incomplete {
		return t
	}
	switch i := init.(type) {
	case *ListInit:
		return &ArrayType{Elem: at.Elem, Len: int64(len(i.Items))}
	case *ExprInit:
		if str, ok := i.X.(*StringLit); ok {
			return &ArrayType{Elem: at.Elem, Len: int64(len(str.Tok.StrVal)) + 1}
		}
	}
	return t
}

// checkInit type-checks an initializer against the declared type.
// Static-storage initializers must fold to constants.
func (s *Sema) checkInit(init Init, typ *Type, static bool) Init {
	switch u := Unwrap(*typ).(type) {
	case *ArrayType:
		return s.checkArrayInit(init, u, static)
	case *StructType:
		return s.checkRecordInit(init, u, static)
	}

	// Scalar.
	ei, ok := init.(*ExprInit)
	if !ok {
		li := init.(*ListInit)
		// C89 allows `int x = {1};`
		if len(li.Items) != 1 {
			s.errorf(InitializerMismatch, li.Loc(), "too many initializers for %s", *typ)
			return init
		}
		return s.checkInit(li.Items[0], typ, static)
	}

	x := s.rvalue(ei.X)
	x = s.convertForAssign(x, *typ, "initialization")
	if static && !IsPoison(x.Type()) && !s.isAddressConst(x) {
		if _, err := s.tg.Fold(x); err != nil {
			s.foldDiag(err, "static initializer")
		}
	}
	ei.X = x
	return ei
}

// isAddressConst recognizes the address constants allowed in static
// initializers: string literals, addresses of file-scope objects,
// and function designators.
func (s *Sema) isAddressConst(x Expr) bool {
	switch n := x.(type) {
	case *CastExpr:
		return s.isAddressConst(n.X)
	case *StringLit:
		return true
	case *UnaryExpr:
		if n.Op == "&" {
			id, ok := n.X.(*IdentExpr)
			return ok && id.Sym != nil && (id.Sym.FileScope || id.Sym.Kind == SymFunc)
		}
	case *IdentExpr:
		return n.Sym != nil && n.Sym.Kind == SymFunc
	}
	return false
}

func (s *Sema) checkArrayInit(init Init, at *ArrayType, static bool) Init {
	switch i := init.(type) {
	case *ExprInit:
		// `char s[] = "..."`.
		if str, ok := i.X.(*StringLit); ok && isCharType(at.Elem) {
			s.expr(str)
			if !at.Incomplete && at.Len < int64(len(str.Tok.StrVal))+1 {
				s.errorf(InitializerMismatch, str.Loc(),
					"string literal does not fit in char[%d]", at.Len)
			}
			return init
		}
		s.errorf(InitializerMismatch, i.Loc(), "array initializer must be a brace list")
		return init

	case *ListInit:
		if !at.Incomplete && int64(len(i.Items)) > at.Len {
			s.errorf(InitializerMismatch, i.Loc(),
				"too many initializers for array of %d elements", at.Len)
		}
		for k, item := range i.Items {
			elem := at.Elem
			i.Items[k] = s.checkInit(item, &elem, static)
		}
		return i
	}
	return init
}

func (s *Sema) checkRecordInit(init Init, st *StructType, static bool) Init {
	li, ok := init.(*ListInit)
	if !ok {
		// Plain struct copy initialization.
		ei := init.(*ExprInit)
		x := s.rvalue(ei.X)
		x = s.convertForAssign(x, st, "initialization")
		ei.X = x
		return ei
	}
	n := len(st.Fields)
	if st.Union {
		n = 1
	}
	if len(li.Items) > n {
		s.errorf(InitializerMismatch, li.Loc(), "too many initializers for %s", st)
	}
	for k, item := range li.Items {
		if k >= n {
			break
		}
		ft := st.Fields[k].Type
		li.Items[k] = s.checkInit(item, &ft, static)
	}
	return li
}

func isCharType(t Type) bool {
	it, ok := Unwrap(t).(*IntType)
	return ok && it.Rank == RankChar
}

//  ---- statements ----

func (s *Sema) stmtList(items []Stmt) {
	for _, item := range items {
		s.stmt(item)
	}
}

func (s *Sema) stmt(stmt Stmt) {
	switch n := stmt.(type) {
	case *CompoundStmt:
		s.syms.Push()
		s.stmtList(n.Items)
		s.syms.Pop()

	case *DeclStmt:
		for _, d := range n.Decls {
			s.declare(d)
		}

	case *ExprStmt:
		n.X = s.rvalue(n.X)

	case *IfStmt:
		n.Cond = s.scalarCond(n.Cond, "if condition")
		s.stmt(n.Then)
		if n.Else != nil {
			s.stmt(n.Else)
		}

	case *WhileStmt:
		n.Cond = s.scalarCond(n.Cond, "while condition")
		s.loops++
		s.stmt(n.Body)
		s.loops--

	case *DoStmt:
		s.loops++
		s.stmt(n.Body)
		s.loops--
		n.Cond = s.scalarCond(n.Cond, "do-while condition")

	case *ForStmt:
		s.syms.Push()
		if n.Init != nil {
			s.stmt(n.Init)
		}
		if n.Cond != nil {
			n.Cond = s.scalarCond(n.Cond, "for condition")
		}
		if n.Post != nil {
			n.Post = s.rvalue(n.Post)
		}
		s.loops++
		s.stmt(n.Body)
		s.loops--
		s.syms.Pop()

	case *SwitchStmt:
		n.Cond = s.promote(s.rvalue(n.Cond))
		if !IsPoison(n.Cond.Type()) && !IsInteger(n.Cond.Type()) {
			s.errorf(TypeMismatch, n.Cond.Loc(), "switch condition is not an integer")
		}
		s.switches = append(s.switches, n)
		s.stmt(n.Body)
		s.switches = s.switches[:len(s.switches)-1]

	case *CaseStmt:
		s.caseStmt(n)

	case *LabeledStmt:
		if s.labels[n.Label] {
			s.errorf(Redefinition, n.Loc(), "duplicate label %q", n.Label)
		}
		s.labels[n.Label] = true
		s.syms.DeclareLabel(n.Label, n.Loc())
		s.stmt(n.Body)

	case *GotoStmt:
		s.gotos = append(s.gotos, n)

	case *BreakStmt:
		if s.loops == 0 && len(s.switches) == 0 {
			s.errorf(UnexpectedToken, n.Loc(), "`break` outside of a loop or switch")
		}

	case *ContinueStmt:
		if s.loops == 0 {
			s.errorf(UnexpectedToken, n.Loc(), "`continue` outside of a loop")
		}

	case *ReturnStmt:
		s.returnStmt(n)

	case *NullStmt:
	}
}

func (s *Sema) caseStmt(n *CaseStmt) {
	if len(s.switches) == 0 {
		s.errorf(UnexpectedToken, n.Loc(), "case label outside of a switch")
		if n.Body != nil {
			s.stmt(n.Body)
		}
		return
	}
	sw := s.switches[len(s.switches)-1]

	if n.X == nil {
		if sw.Default != nil {
			s.errorf(Redefinition, n.Loc(), "multiple default labels in one switch")
		} else {
			sw.Default = n
		}
	} else {
		x := s.rvalue(n.X)
		n.X = x
		if !IsPoison(x.Type()) {
			v, err := s.tg.Fold(x)
			switch {
			case err != nil:
				s.foldDiag(err, "case label")
			case v.IsFloat:
				s.errorf(TypeMismatch, n.Loc(), "case label is not an integer")
			default:
				// Convert to the promoted controlling type.
				n.Value = signExtend(mask(v.I, s.tg.intBits(sw.Cond.Type())),
					s.tg.intBits(sw.Cond.Type()))
				for _, prev := range sw.Cases {
					if prev.Value == n.Value {
						s.errorf(Redefinition, n.Loc(), "duplicate case value %d", n.Value)
					}
				}
			}
		}
		sw.Cases = append(sw.Cases, n)
	}
	s.stmt(n.Body)
}

func (s *Sema) returnStmt(n *ReturnStmt) {
	if s.curFunc == nil {
		return
	}
	ret := s.curFunc.Ret
	if n.X == nil {
		if !IsVoid(ret) {
			s.bag.Warnf(TypeMismatch, n.Loc(),
				"`return` with no value in function returning %s", ret)
		}
		return
	}
	if IsVoid(ret) {
		s.errorf(TypeMismatch, n.Loc(),
			"`return` with a value in function returning void")
		return
	}
	x := s.rvalue(n.X)
	n.X = s.convertForAssign(x, ret, "return")
}

func (s *Sema) scalarCond(x Expr, what string) Expr {
	x = s.rvalue(x)
	if !IsPoison(x.Type()) && !IsScalar(x.Type()) {
		s.errorf(TypeMismatch, x.Loc(), "%s is not a scalar", what)
	}
	return x
}

//  ---- expressions ----

// expr annotates a node without applying decay.
func (s *Sema) expr(x Expr) Expr {
	if x.Type() != nil {
		return x
	}
	switch n := x.(type) {
	case *IntLit:
		n.setType(s.intLitType(n.Tok), false)

	case *FloatLit:
		switch {
		case n.Tok.FloatF:
			n.setType(&FloatType{Prec: PrecFloat}, false)
		case n.Tok.Long:
			n.setType(&FloatType{Prec: PrecLongDouble}, false)
		default:
			n.setType(&FloatType{Prec: PrecDouble}, false)
		}

	case *StringLit:
		n.setType(&ArrayType{
			Elem: &IntType{Rank: RankChar, PlainChar: true},
			Len:  int64(len(n.Tok.StrVal)) + 1,
		}, true)

	case *IdentExpr:
		s.identExpr(n)

	case *UnaryExpr:
		s.unaryExpr(n)

	case *IncDecExpr:
		s.incDecExpr(n)

	case *BinaryExpr:
		s.binaryExpr(n)

	case *AssignExpr:
		s.assignExpr(n)

	case *CondExpr:
		s.condExpr(n)

	case *CallExpr:
		s.callExpr(n)

	case *IndexExpr:
		s.indexExpr(n)

	case *MemberExpr:
		s.memberExpr(n)

	case *SizeofExpr:
		s.sizeofExpr(n)

	case *CastExpr:
		s.castExpr(n)

	case *CommaExpr:
		n.X = s.rvalue(n.X)
		n.Y = s.rvalue(n.Y)
		n.setType(n.Y.Type(), false)
	}
	return x
}

// rvalue annotates x and applies array-to-pointer and function-to-
// pointer decay, wrapping the conversion in an implicit cast.
func (s *Sema) rvalue(x Expr) Expr {
	x = s.expr(x)
	switch u := Unwrap(x.Type()).(type) {
	case *ArrayType:
		c := NewCastExpr(&PointerType{Elem: u.Elem}, x, x.Loc())
		c.Implicit = true
		c.setType(c.To, false)
		return c
	case *FuncType:
		c := NewCastExpr(&PointerType{Elem: x.Type()}, x, x.Loc())
		c.Implicit = true
		c.setType(c.To, false)
		return c
	}
	return x
}

// promote applies the integer promotions on top of rvalue
// conversion: anything of rank < int becomes int.
func (s *Sema) promote(x Expr) Expr {
	x = s.rvalue(x)
	it, ok := Unwrap(x.Type()).(*IntType)
	if ok && it.Rank < RankInt {
		return s.convert(x, &IntType{Rank: RankInt})
	}
	if _, ok := Unwrap(x.Type()).(*EnumType); ok {
		return s.convert(x, &IntType{Rank: RankInt})
	}
	return x
}

// convert wraps x in an implicit cast to the target type when the
// types differ.
func (s *Sema) convert(x Expr, to Type) Expr {
	if typeIdentical(x.Type(), to) || IsPoison(x.Type()) || IsPoison(to) {
		return x
	}
	c := NewCastExpr(to, x, x.Loc())
	c.Implicit = true
	c.setType(to, false)
	return c
}

func (s *Sema) intLitType(tok Token) Type {
	fits := func(rank IntRank, unsigned bool) bool {
		bits := s.tg.intBits(&IntType{Rank: rank})
		if !unsigned {
			bits--
		}
		return tok.IntVal <= (uint64(1)<<bits)-1 || bits >= 64
	}

	decimal := len(tok.Lexeme) > 0 && tok.Lexeme[0] != '0'
	if tok.Kind == TokenCharConst {
		return &IntType{Rank: RankInt}
	}

	type cand struct {
		rank     IntRank
		unsigned bool
	}
	var cands []cand
	switch {
	case tok.LongLong:
		cands = []cand{{RankLongLong, tok.Unsigned}}
	case tok.Long && tok.Unsigned:
		cands = []cand{{RankLong, true}, {RankLongLong, true}}
	case tok.Long:
		cands = []cand{{RankLong, false}, {RankLong, true}, {RankLongLong, false}}
	case tok.Unsigned:
		cands = []cand{{RankInt, true}, {RankLong, true}, {RankLongLong, true}}
	case decimal:
		// A decimal constant stays signed as long as it fits.
		cands = []cand{{RankInt, false}, {RankLong, false}, {RankLong, true}, {RankLongLong, false}}
	default:
		cands = []cand{{RankInt, false}, {RankInt, true}, {RankLong, false},
			{RankLong, true}, {RankLongLong, false}, {RankLongLong, true}}
	}
	for _, c := range cands {
		if fits(c.rank, c.unsigned) {
			return &IntType{Rank: c.rank, Unsigned: c.unsigned}
		}
	}
	return &IntType{Rank: RankLongLong, Unsigned: true}
}

func (s *Sema) identExpr(n *IdentExpr) {
	sym := s.syms.Lookup(n.Name)
	if sym == nil {
		s.errorf(Undeclared, n.Loc(), "use of undeclared identifier %q", n.Name)
		n.setType(poison(), false)
		return
	}
	n.Sym = sym
	switch sym.Kind {
	case SymEnumConst:
		v := sym.EnumValue
		n.EnumValue = &v
		n.setType(sym.Type, false)
	case SymTypedef:
		s.errorf(TypeMismatch, n.Loc(), "unexpected type name %q in expression", n.Name)
		n.setType(poison(), false)
	case SymFunc:
		n.setType(sym.Type, false)
	default:
		n.setType(sym.Type, true)
	}
}

func (s *Sema) unaryExpr(n *UnaryExpr) {
	switch n.Op {
	case "&":
		x := s.expr(n.X)
		n.X = x
		if IsPoison(x.Type()) {
			n.setType(poison(), false)
			return
		}
		if !x.IsLvalue() && !IsFunc(x.Type()) {
			s.errorf(NotAssignable, n.Loc(), "cannot take the address of an rvalue")
			n.setType(poison(), false)
			return
		}
		n.setType(&PointerType{Elem: x.Type()}, false)

	case "*":
		x := s.rvalue(n.X)
		n.X = x
		pt, ok := Unwrap(x.Type()).(*PointerType)
		if !ok {
			if !IsPoison(x.Type()) {
				s.errorf(TypeMismatch, n.Loc(), "cannot dereference %s", x.Type())
			}
			n.setType(poison(), false)
			return
		}
		n.setType(pt.Elem, !IsFunc(pt.Elem))

	case "+", "-":
		x := s.promote(n.X)
		n.X = x
		if !IsPoison(x.Type()) && !IsArithmetic(x.Type()) {
			s.errorf(TypeMismatch, n.Loc(), "unary %q needs an arithmetic operand", n.Op)
			n.setType(poison(), false)
			return
		}
		n.setType(x.Type(), false)

	case "~":
		x := s.promote(n.X)
		n.X = x
		if !IsPoison(x.Type()) && !IsInteger(x.Type()) {
			s.errorf(TypeMismatch, n.Loc(), "`~` needs an integer operand")
			n.setType(poison(), false)
			return
		}
		n.setType(x.Type(), false)

	case "!":
		x := s.rvalue(n.X)
		n.X = x
		if !IsPoison(x.Type()) && !IsScalar(x.Type()) {
			s.errorf(TypeMismatch, n.Loc(), "`!` needs a scalar operand")
		}
		n.setType(&IntType{Rank: RankInt}, false)
	}
}

func (s *Sema) incDecExpr(n *IncDecExpr) {
	x := s.expr(n.X)
	n.X = x
	if IsPoison(x.Type()) {
		n.setType(poison(), false)
		return
	}
	if !x.IsLvalue() {
		s.errorf(NotAssignable, n.Loc(), "operand of %q is not an lvalue", n.Op)
		n.setType(poison(), false)
		return
	}
	if !IsScalar(x.Type()) && !IsArray(x.Type()) {
		s.errorf(TypeMismatch, n.Loc(), "cannot %s a value of type %s",
			map[string]string{"++": "increment", "--": "decrement"}[n.Op], x.Type())
		n.setType(poison(), false)
		return
	}
	n.setType(x.Type(), false)
}

func (s *Sema) binaryExpr(n *BinaryExpr) {
	x := s.rvalue(n.X)
	y := s.rvalue(n.Y)
	n.X, n.Y = x, y
	if IsPoison(x.Type()) || IsPoison(y.Type()) {
		n.setType(poison(), false)
		return
	}

	intResult := func() { n.setType(&IntType{Rank: RankInt}, false) }

	switch n.Op {
	case "+":
		if IsPointer(x.Type()) && IsInteger(y.Type()) {
			s.checkPointerArith(x.Type(), n.Loc())
			n.setType(x.Type(), false)
			return
		}
		if IsInteger(x.Type()) && IsPointer(y.Type()) {
			s.checkPointerArith(y.Type(), n.Loc())
			// Normalize to pointer-on-the-left for the emitter.
			n.X, n.Y = y, x
			n.setType(y.Type(), false)
			return
		}
		s.arithBinary(n)

	case "-":
		if IsPointer(x.Type()) && IsInteger(y.Type()) {
			s.checkPointerArith(x.Type(), n.Loc())
			n.setType(x.Type(), false)
			return
		}
		if IsPointer(x.Type()) && IsPointer(y.Type()) {
			if !typeCompatible(pointee(x.Type()), pointee(y.Type())) {
				s.errorf(TypeMismatch, n.Loc(), "subtracting incompatible pointers")
			}
			n.setType(s.ptrDiffType(), false)
			return
		}
		s.arithBinary(n)

	case "*", "/":
		s.arithBinary(n)

	case "%", "&", "|", "^":
		if !IsInteger(x.Type()) || !IsInteger(y.Type()) {
			s.errorf(TypeMismatch, n.Loc(), "%q needs integer operands", n.Op)
			n.setType(poison(), false)
			return
		}
		s.arithBinary(n)

	case "<<", ">>":
		if !IsInteger(x.Type()) || !IsInteger(y.Type()) {
			s.errorf(TypeMismatch, n.Loc(), "%q needs integer operands", n.Op)
			n.setType(poison(), false)
			return
		}
		// Shifts promote each operand independently; the result has
		// the promoted left type.
		n.X = s.promote(x)
		n.Y = s.promote(y)
		n.setType(n.X.Type(), false)

	case "<", ">", "<=", ">=", "==", "!=":
		s.comparison(n)
		intResult()

	case "&&", "||":
		if !IsScalar(x.Type()) || !IsScalar(y.Type()) {
			s.errorf(TypeMismatch, n.Loc(), "%q needs scalar operands", n.Op)
		}
		intResult()
	}
}

// arithBinary applies the usual arithmetic conversions and sets the
// common result type.
func (s *Sema) arithBinary(n *BinaryExpr) {
	if !IsArithmetic(n.X.Type()) || !IsArithmetic(n.Y.Type()) {
		s.errorf(TypeMismatch, n.Loc(), "invalid operands to %q (%s and %s)",
			n.Op, n.X.Type(), n.Y.Type())
		n.setType(poison(), false)
		return
	}
	common := s.usualArith(n.X.Type(), n.Y.Type())
	n.X = s.convert(s.promoteNoWrap(n.X), common)
	n.Y = s.convert(s.promoteNoWrap(n.Y), common)
	n.setType(common, false)
}

// promoteNoWrap is promote for operands that already went through
// rvalue conversion.
func (s *Sema) promoteNoWrap(x Expr) Expr {
	it, ok := Unwrap(x.Type()).(*IntType)
	if ok && it.Rank < RankInt {
		return s.convert(x, &IntType{Rank: RankInt})
	}
	if _, ok := Unwrap(x.Type()).(*EnumType); ok {
		return s.convert(x, &IntType{Rank: RankInt})
	}
	return x
}

func (s *Sema) comparison(n *BinaryExpr) {
	x, y := n.X, n.Y
	switch {
	case IsArithmetic(x.Type()) && IsArithmetic(y.Type()):
		common := s.usualArith(x.Type(), y.Type())
		n.X = s.convert(s.promoteNoWrap(x), common)
		n.Y = s.convert(s.promoteNoWrap(y), common)

	case IsPointer(x.Type()) && IsPointer(y.Type()):
		px, py := pointee(x.Type()), pointee(y.Type())
		equality := n.Op == "==" || n.Op == "!="
		if !typeCompatible(px, py) &&
			!(equality && (IsVoid(px) || IsVoid(py))) {
			s.bag.Warnf(TypeMismatch, n.Loc(), "comparison of incompatible pointer types")
		}

	case IsPointer(x.Type()) && s.isNullConst(y):
		n.Y = s.convert(y, x.Type())

	case IsPointer(y.Type()) && s.isNullConst(x):
		n.X = s.convert(x, y.Type())

	default:
		s.errorf(TypeMismatch, n.Loc(), "invalid comparison of %s and %s",
			x.Type(), y.Type())
	}
}

func (s *Sema) checkPointerArith(pt Type, loc Location) {
	elem := pointee(pt)
	if _, err := s.tg.SizeOf(elem); err != nil {
		s.errorf(IncompleteType, loc, "arithmetic on a pointer to incomplete type %s", elem)
	}
}

func pointee(t Type) Type {
	if pt, ok := Unwrap(t).(*PointerType); ok {
		return pt.Elem
	}
	return t
}

func (s *Sema) ptrDiffType() Type {
	rank := RankInt
	if st, ok := s.tg.SizeType.(*IntType); ok {
		rank = st.Rank
	}
	return &IntType{Rank: rank}
}

// usualArith picks the common type of two arithmetic operands per
// the C89 ordering: long double > double > float > the integer ranks
// with their signedness rules.
func (s *Sema) usualArith(a, b Type) Type {
	af, aIsF := Unwrap(a).(*FloatType)
	bf, bIsF := Unwrap(b).(*FloatType)
	if aIsF || bIsF {
		prec := PrecFloat
		if aIsF && af.Prec > prec {
			prec = af.Prec
		}
		if bIsF && bf.Prec > prec {
			prec = bf.Prec
		}
		return &FloatType{Prec: prec}
	}

	ai := s.promotedInt(a)
	bi := s.promotedInt(b)

	if ai.Rank == bi.Rank {
		return &IntType{Rank: ai.Rank, Unsigned: ai.Unsigned || bi.Unsigned}
	}
	hi, lo := ai, bi
	if bi.Rank > ai.Rank {
		hi, lo = bi, ai
	}
	if hi.Unsigned || !lo.Unsigned {
		return &IntType{Rank: hi.Rank, Unsigned: hi.Unsigned}
	}
	// Signed higher rank vs unsigned lower rank: the signed type
	// wins only if it can represent every value of the unsigned one.
	if s.tg.intSize(hi.Rank) > s.tg.intSize(lo.Rank) {
		return &IntType{Rank: hi.Rank}
	}
	return &IntType{Rank: hi.Rank, Unsigned: true}
}

func (s *Sema) promotedInt(t Type) *IntType {
	switch u := Unwrap(t).(type) {
	case *IntType:
		if u.Rank < RankInt {
			return &IntType{Rank: RankInt}
		}
		return u
	case *EnumType:
		return &IntType{Rank: RankInt}
	}
	return &IntType{Rank: RankInt}
}

func (s *Sema) assignExpr(n *AssignExpr) {
	l := s.expr(n.L)
	n.L = l
	if IsPoison(l.Type()) {
		n.R = s.rvalue(n.R)
		n.setType(poison(), false)
		return
	}
	if !l.IsLvalue() || IsArray(l.Type()) || IsFunc(l.Type()) {
		s.errorf(NotAssignable, n.Loc(), "expression is not assignable")
		n.R = s.rvalue(n.R)
		n.setType(poison(), false)
		return
	}
	if _, err := s.tg.SizeOf(l.Type()); err != nil {
		s.errorf(IncompleteType, n.Loc(), "assignment to a value of incomplete type %s", l.Type())
		n.setType(poison(), false)
		return
	}

	r := s.rvalue(n.R)

	if n.Op == "=" {
		n.R = s.convertForAssign(r, l.Type(), "assignment")
		n.setType(l.Type(), false)
		return
	}

	// Compound assignment checks as the underlying binary operator;
	// the result converts back to the left type.
	op := n.Op[:len(n.Op)-1]
	bin := NewBinaryExpr(op, l, r, n.Loc())
	// The load side is re-evaluated by the emitter, not here, so
	// annotate a copy rather than rewriting l.
	s.binaryExpr(bin)
	if IsPoison(bin.Type()) {
		n.setType(poison(), false)
		n.R = r
		return
	}
	n.R = bin.Y
	n.Common = bin.Type()
	n.setType(l.Type(), false)
}

// convertForAssign checks the assignment compatibility rules and
// inserts the implicit conversion.
func (s *Sema) convertForAssign(x Expr, to Type, what string) Expr {
	from := x.Type()
	if IsPoison(from) || IsPoison(to) {
		return x
	}

	switch {
	case IsArithmetic(from) && IsArithmetic(to):
		return s.convert(x, to)

	case IsPointer(to) && s.isNullConst(x):
		return s.convert(x, to)

	case IsPointer(from) && IsPointer(to):
		pf, pt := pointee(from), pointee(to)
		if typeCompatible(pf, pt) || IsVoid(pf) || IsVoid(pt) {
			return s.convert(x, to)
		}
		s.bag.Warnf(TypeMismatch, x.Loc(),
			"%s from incompatible pointer type %s", what, from)
		return s.convert(x, to)

	case IsRecord(from) && IsRecord(to) && typeCompatible(from, to):
		return x

	default:
		s.errorf(TypeMismatch, x.Loc(), "incompatible types in %s: %s vs %s",
			what, from, to)
		x.setType(poison(), false)
		return x
	}
}

func (s *Sema) isNullConst(x Expr) bool {
	if !IsInteger(x.Type()) {
		return false
	}
	v, err := s.tg.Fold(x)
	return err == nil && !v.IsFloat && v.I == 0
}

func (s *Sema) condExpr(n *CondExpr) {
	n.Cond = s.scalarCond(n.Cond, "`?:` condition")
	x := s.rvalue(n.Then)
	y := s.rvalue(n.Else)
	n.Then, n.Else = x, y
	if IsPoison(x.Type()) || IsPoison(y.Type()) {
		n.setType(poison(), false)
		return
	}

	switch {
	case IsArithmetic(x.Type()) && IsArithmetic(y.Type()):
		common := s.usualArith(x.Type(), y.Type())
		n.Then = s.convert(x, common)
		n.Else = s.convert(y, common)
		n.setType(common, false)

	case IsVoid(x.Type()) && IsVoid(y.Type()):
		n.setType(&VoidType{}, false)

	case IsPointer(x.Type()) && s.isNullConst(y):
		n.Else = s.convert(y, x.Type())
		n.setType(x.Type(), false)

	case IsPointer(y.Type()) && s.isNullConst(x):
		n.Then = s.convert(x, y.Type())
		n.setType(y.Type(), false)

	case IsPointer(x.Type()) && IsPointer(y.Type()):
		px, py := pointee(x.Type()), pointee(y.Type())
		switch {
		case typeCompatible(px, py):
			n.setType(x.Type(), false)
		case IsVoid(px):
			n.Else = s.convert(y, x.Type())
			n.setType(x.Type(), false)
		case IsVoid(py):
			n.Then = s.convert(x, y.Type())
			n.setType(y.Type(), false)
		default:
			s.errorf(TypeMismatch, n.Loc(), "incompatible pointer arms in `?:`")
			n.setType(poison(), false)
		}

	case IsRecord(x.Type()) && IsRecord(y.Type()) && typeCompatible(x.Type(), y.Type()):
		n.setType(x.Type(), false)

	default:
		s.errorf(TypeMismatch, n.Loc(), "incompatible arms in `?:`: %s vs %s",
			x.Type(), y.Type())
		n.setType(poison(), false)
	}
}

func (s *Sema) callExpr(n *CallExpr) {
	// Calling an undeclared identifier implicitly declares
	// `extern int f()`, per C89.
	if id, ok := n.Fn.(*IdentExpr); ok && s.syms.Lookup(id.Name) == nil {
		s.bag.Warnf(Undeclared, id.Loc(), "implicit declaration of function %q", id.Name)
		s.syms.file.ordinary[id.Name] = &Symbol{
			Name: id.Name, Kind: SymFunc, Linkage: LinkExternal,
			Type: &FuncType{Ret: &IntType{Rank: RankInt}, OldStyle: true},
			Loc:  id.Loc(),
		}
	}

	fn := s.expr(n.Fn)
	// `(*p)(...)` calls through the pointer p, exactly as `p(...)` does.
	if u, ok := fn.(*UnaryExpr); ok && u.Op == "*" && IsFunc(u.Type()) {
		fn = u.X
	}
	n.Fn = fn
	if IsPoison(fn.Type()) {
		n.setType(poison(), false)
		return
	}

	var ft *FuncType
	switch u := Unwrap(fn.Type()).(type) {
	case *FuncType:
		ft = u
	case *PointerType:
		if f, ok := Unwrap(u.Elem).(*FuncType); ok {
			ft = f
			n.Indirect = true
		}
	}
	if ft == nil {
		s.errorf(TypeMismatch, n.Loc(), "called object is not a function")
		n.setType(poison(), false)
		return
	}
	// A function named directly is a direct call; a call through a
	// pointer-valued expression is indirect.
	if id, ok := fn.(*IdentExpr); ok && id.Sym != nil && id.Sym.Kind == SymFunc {
		n.Indirect = false
	}

	switch {
	case ft.OldStyle:
		// Any arguments; everything promotes.
		for i, a := range n.Args {
			n.Args[i] = s.defaultPromote(s.rvalue(a))
		}
	default:
		if len(n.Args) < len(ft.Params) {
			kind := WrongArity
			if ft.Variadic {
				kind = VaListMisuse
			}
			s.errorf(kind, n.Loc(), "too few arguments to call (%d, expected %d)",
				len(n.Args), len(ft.Params))
		} else if len(n.Args) > len(ft.Params) && !ft.Variadic {
			s.errorf(WrongArity, n.Loc(), "too many arguments to call (%d, expected %d)",
				len(n.Args), len(ft.Params))
		}
		for i, a := range n.Args {
			a = s.rvalue(a)
			if i < len(ft.Params) {
				n.Args[i] = s.convertForAssign(a, ft.Params[i].Type, "argument passing")
			} else {
				// Variadic position: default argument promotions,
				// applied here so the emitter sees the final types.
				n.Args[i] = s.defaultPromote(a)
			}
		}
	}

	n.setType(ft.Ret, false)
}

// defaultPromote applies the default argument promotions: integer
// ranks below int promote to int, float promotes to double.
func (s *Sema) defaultPromote(x Expr) Expr {
	if ftyp, ok := Unwrap(x.Type()).(*FloatType); ok && ftyp.Prec == PrecFloat {
		return s.convert(x, &FloatType{Prec: PrecDouble})
	}
	return s.promoteNoWrap(x)
}

func (s *Sema) indexExpr(n *IndexExpr) {
	x := s.rvalue(n.X)
	idx := s.rvalue(n.Index)
	n.X, n.Index = x, idx
	if IsPoison(x.Type()) || IsPoison(idx.Type()) {
		n.setType(poison(), false)
		return
	}

	// `a[i]` and `i[a]` both work.
	if IsInteger(x.Type()) && IsPointer(idx.Type()) {
		x, idx = idx, x
		n.X, n.Index = x, idx
	}
	pt, ok := Unwrap(x.Type()).(*PointerType)
	if !ok || !IsInteger(idx.Type()) {
		s.errorf(TypeMismatch, n.Loc(), "invalid subscript of %s by %s",
			x.Type(), idx.Type())
		n.setType(poison(), false)
		return
	}
	s.checkPointerArith(x.Type(), n.Loc())
	n.setType(pt.Elem, true)
}

func (s *Sema) memberExpr(n *MemberExpr) {
	if n.Arrow {
		x := s.rvalue(n.X)
		n.X = x
		if IsPoison(x.Type()) {
			n.setType(poison(), false)
			return
		}
		pt, ok := Unwrap(x.Type()).(*PointerType)
		if !ok {
			s.errorf(TypeMismatch, n.Loc(), "`->` applied to non-pointer %s", x.Type())
			n.setType(poison(), false)
			return
		}
		s.bindField(n, pt.Elem, true)
		return
	}

	x := s.expr(n.X)
	n.X = x
	if IsPoison(x.Type()) {
		n.setType(poison(), false)
		return
	}
	s.bindField(n, x.Type(), x.IsLvalue())
}

func (s *Sema) bindField(n *MemberExpr, recType Type, lvalue bool) {
	st, ok := Unwrap(recType).(*StructType)
	if !ok {
		s.errorf(TypeMismatch, n.Loc(), "member access on non-record type %s", recType)
		n.setType(poison(), false)
		return
	}
	if !st.Complete {
		s.errorf(IncompleteType, n.Loc(), "member access on incomplete %s", st)
		n.setType(poison(), false)
		return
	}
	f := st.FindField(n.Name)
	if f == nil {
		s.errorf(Undeclared, n.Loc(), "no member named %q in %s", n.Name, st)
		n.setType(poison(), false)
		return
	}
	n.Field = f
	n.setType(f.Type, lvalue)
}

func (s *Sema) sizeofExpr(n *SizeofExpr) {
	var t Type
	if n.TypeName != nil {
		n.TypeName = s.resolveType(n.TypeName, n.Loc())
		t = n.TypeName
	} else {
		// No decay, no promotion: sizeof sees the array.
		n.X = s.expr(n.X)
		t = n.X.Type()
	}
	if IsPoison(t) {
		n.setType(poison(), false)
		return
	}
	if _, err := s.tg.SizeOf(t); err != nil {
		s.errorf(IncompleteType, n.Loc(), "sizeof applied to incomplete type %s", t)
		n.setType(poison(), false)
		return
	}
	n.setType(s.tg.SizeType, false)
}

func (s *Sema) castExpr(n *CastExpr) {
	n.To = s.resolveType(n.To, n.Loc())
	x := s.rvalue(n.X)
	n.X = x
	if IsPoison(n.To) || IsPoison(x.Type()) {
		n.setType(poison(), false)
		return
	}

	ok := true
	switch {
	case IsVoid(n.To):
	case IsScalar(n.To) && IsScalar(x.Type()):
	case IsFloat(n.To) && IsPointer(x.Type()),
		IsPointer(n.To) && IsFloat(x.Type()):
		ok = false
	default:
		ok = false
	}
	if !ok {
		s.errorf(BadCast, n.Loc(), "cannot cast %s to %s", x.Type(), n.To)
		n.setType(poison(), false)
		return
	}
	n.setType(n.To, false)
}

//  ---- type compatibility ----

func typeIdentical(a, b Type) bool {
	return typeCompatible(a, b) && IsArray(a) == IsArray(b)
}

// typeCompatible implements C89 type compatibility, structurally for
// derived types and by identity for records and enums.
func typeCompatible(a, b Type) bool {
	ua, ub := Unwrap(a), Unwrap(b)
	switch x := ua.(type) {
	case *VoidType:
		_, ok := ub.(*VoidType)
		return ok

	case *IntType:
		y, ok := ub.(*IntType)
		return ok && x.Rank == y.Rank && x.Unsigned == y.Unsigned &&
			x.PlainChar == y.PlainChar

	case *FloatType:
		y, ok := ub.(*FloatType)
		return ok && x.Prec == y.Prec

	case *PointerType:
		y, ok := ub.(*PointerType)
		return ok && typeCompatible(x.Elem, y.Elem)

	case *ArrayType:
		y, ok := ub.(*ArrayType)
		if !ok || !typeCompatible(x.Elem, y.Elem) {
			return false
		}
		return x.Incomplete || y.Incomplete || x.Len == y.Len

	case *FuncType:
		y, ok := ub.(*FuncType)
		if !ok || !typeCompatible(x.Ret, y.Ret) {
			return false
		}
		if x.OldStyle || y.OldStyle {
			return true
		}
		if len(x.Params) != len(y.Params) || x.Variadic != y.Variadic {
			return false
		}
		for i := range x.Params {
			if !typeCompatible(x.Params[i].Type, y.Params[i].Type) {
				return false
			}
		}
		return true

	case *StructType:
		return ua == ub

	case *EnumType:
		return ua == ub

	case *PoisonType:
		return true
	}
	return false
}
