package cc1

import (
	"fmt"
	"math"
	"strings"
)

// irEmitter lowers a typed AST into textual LLVM IR.  Basic blocks
// are assembled as records first so the empty-label elimination pass
// can run before anything is printed.
type irEmitter struct {
	tg  *Target
	bag *DiagBag

	types   *outputWriter
	globals *outputWriter
	funcs   *outputWriter

	structNames map[*StructType]string
	anonStructs int

	strs    map[string]string // payload -> global name
	strDefs []string
	strNum  int

	statics int // suffix for function-static globals

	declared       map[*Symbol]bool
	emittedGlobals map[*Symbol]bool

	curFnName string

	// Per-function state.
	fn        *FuncType
	fnSret    bool
	blocks    []*irBlock
	cur       *irBlock
	allocas   []string
	tmp       int
	blockNum  int
	locals    map[*Symbol]irValue
	labelBBs  map[string]*irBlock
	breakBBs  []*irBlock
	contBBs   []*irBlock
	hadError  bool
}

type irBlock struct {
	name  string
	insts []string
	term  string
}

// irValue pairs an SSA name (or literal) with its printed type.
type irValue struct {
	name string
	typ  string
}

func (v irValue) String() string { return v.typ + " " + v.name }

// GenIR lowers the translation unit for the given target.  The
// symbol table and AST must already be fully annotated.
func GenIR(tu *TranslationUnit, tg *Target, bag *DiagBag) string {
	g := &irEmitter{
		tg:          tg,
		bag:         bag,
		types:       newOutputWriter("  "),
		globals:     newOutputWriter("  "),
		funcs:       newOutputWriter("  "),
		structNames: map[*StructType]string{},
		strs:        map[string]string{},
		declared:    map[*Symbol]bool{},

		emittedGlobals: map[*Symbol]bool{},
	}

	// Tentative definitions collapse onto the declaration that
	// carries the initializer.
	chosen := map[*Symbol]*Decl{}
	for _, d := range tu.Decls {
		if d.Name == "" || d.Storage == StorageTypedef || d.Sym == nil ||
			d.IsFuncDef() || IsFunc(d.Type) {
			continue
		}
		if prev, ok := chosen[d.Sym]; !ok || (prev.Init == nil && d.Init != nil) {
			chosen[d.Sym] = d
		}
	}

	// Globals and declarations first, then function bodies, so every
	// symbol a body references already has its definition line.
	for _, d := range tu.Decls {
		switch {
		case d.Name == "" || d.Storage == StorageTypedef || d.IsFuncDef():
		case IsFunc(d.Type):
			g.declareFunction(d)
		default:
			if d.Sym != nil && chosen[d.Sym] == d {
				g.emitGlobal(d)
			}
		}
	}
	for _, d := range tu.Decls {
		if d.IsFuncDef() {
			g.emitFunction(d)
		}
	}

	out := newOutputWriter("  ")
	out.writel("; ModuleID = '" + tu.File + "'")
	out.writel("source_filename = \"" + tu.File + "\"")
	out.writel("target datalayout = \"" + tg.DataLayout + "\"")
	out.writel("target triple = \"" + tg.Triple + "\"")
	out.writel("")
	if s := g.types.String(); s != "" {
		out.write(s)
		out.writel("")
	}
	for _, def := range g.strDefs {
		out.writel(def)
	}
	if len(g.strDefs) > 0 {
		out.writel("")
	}
	if s := g.globals.String(); s != "" {
		out.write(s)
		out.writel("")
	}
	out.write(g.funcs.String())
	return out.String()
}

func (g *irEmitter) errorf(kind DiagKind, loc Location, format string, args ...any) {
	g.bag.Errorf(kind, loc, format, args...)
	g.hadError = true
}

//  ---- type lowering ----

func (g *irEmitter) llType(t Type) string {
	switch u := Unwrap(t).(type) {
	case *VoidType:
		return "void"
	case *IntType:
		return fmt.Sprintf("i%d", g.tg.intSize(u.Rank)*8)
	case *EnumType:
		return fmt.Sprintf("i%d", g.tg.IntSize*8)
	case *FloatType:
		switch u.Prec {
		case PrecFloat:
			return "float"
		case PrecDouble:
			return "double"
		default:
			return "x86_fp80"
		}
	case *PointerType:
		if IsVoid(u.Elem) {
			return "i8*"
		}
		return g.llType(u.Elem) + "*"
	case *ArrayType:
		return fmt.Sprintf("[%d x %s]", u.Len, g.llType(u.Elem))
	case *StructType:
		return g.structName(u)
	case *FuncType:
		return g.llFuncType(u, false)
	}
	return "i8"
}

// llFuncType prints a function type; withSret includes the hidden
// return slot parameter used by memory-class returns.
func (g *irEmitter) llFuncType(ft *FuncType, withSret bool) string {
	var sb strings.Builder
	ret := ft.Ret
	sret := g.retInMemory(ret)
	if sret {
		sb.WriteString("void (")
		if withSret {
			sb.WriteString(g.llType(ret) + "*")
			if len(ft.Params) > 0 || ft.Variadic || ft.OldStyle {
				sb.WriteString(", ")
			}
		}
	} else {
		sb.WriteString(g.llType(ret))
		sb.WriteString(" (")
	}
	for i, p := range ft.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(g.paramType(p.Type))
	}
	switch {
	case ft.OldStyle:
		sb.WriteString("...")
	case ft.Variadic:
		if len(ft.Params) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("...")
	}
	sb.WriteString(")")
	return sb.String()
}

// paramType is the IR-visible type of one parameter: composites that
// the ABI passes in memory become byval pointers.
func (g *irEmitter) paramType(t Type) string {
	if IsRecord(t) && g.passInMemory(t) {
		return g.llType(t) + "*"
	}
	return g.llType(t)
}

// passInMemory: on i386 every composite argument goes to the stack
// with a byval marker; on x86_64 only composites above 16 bytes do —
// the small ones travel as first-class aggregates that llc legalizes
// per the eightbyte classification.
func (g *irEmitter) passInMemory(t Type) bool {
	if !IsRecord(t) {
		return false
	}
	if g.tg.Arch == ArchI386 {
		return true
	}
	sz, _ := g.tg.SizeOf(t)
	return sz > 16
}

// retInMemory mirrors passInMemory for return values: i386 returns
// all records through a hidden sret pointer.
func (g *irEmitter) retInMemory(t Type) bool {
	if !IsRecord(t) {
		return false
	}
	if g.tg.Arch == ArchI386 {
		return true
	}
	sz, _ := g.tg.SizeOf(t)
	return sz > 16
}

func (g *irEmitter) structName(st *StructType) string {
	if name, ok := g.structNames[st]; ok {
		return name
	}
	kw := "struct"
	if st.Union {
		kw = "union"
	}
	var name string
	if st.Tag != "" {
		name = fmt.Sprintf("%%%s.%s", kw, st.Tag)
	} else {
		g.anonStructs++
		name = fmt.Sprintf("%%%s.anon.%d", kw, g.anonStructs)
	}
	g.structNames[st] = name

	if !st.Complete {
		g.types.writeil(name + " = type opaque")
		return name
	}

	if st.Union {
		// LLVM has no unions: lay out the most-aligned member and
		// pad to the union's full size.
		var best *Field
		var bestAlign int64
		for _, f := range st.Fields {
			a, _ := g.tg.AlignOf(f.Type)
			if best == nil || a > bestAlign {
				best, bestAlign = f, a
			}
		}
		bestSize, _ := g.tg.SizeOf(best.Type)
		total, _ := g.tg.SizeOf(st)
		body := g.llType(best.Type)
		if pad := total - bestSize; pad > 0 {
			body += fmt.Sprintf(", [%d x i8]", pad)
		}
		g.types.writeil(fmt.Sprintf("%s = type { %s }", name, body))
		return name
	}

	parts := make([]string, len(st.Fields))
	for i, f := range st.Fields {
		parts[i] = g.llType(f.Type)
	}
	g.types.writeil(fmt.Sprintf("%s = type { %s }", name, strings.Join(parts, ", ")))
	return name
}

func (g *irEmitter) alignOf(t Type) int64 {
	a, err := g.tg.AlignOf(t)
	if err != nil {
		return 1
	}
	return a
}

// indexType is the integer used for getelementptr indices.
func (g *irEmitter) indexType() string {
	return fmt.Sprintf("i%d", g.tg.PointerSize*8)
}

//  ---- constants ----

func (g *irEmitter) constInt(t Type, v uint64) string {
	bits := g.tg.intBits(t)
	return fmt.Sprintf("%d", signExtend(v, bits))
}

func (g *irEmitter) constFloat(t Type, f float64) string {
	switch Unwrap(t).(*FloatType).Prec {
	case PrecFloat:
		// Float constants print as doubles that are exactly
		// representable in single precision.
		return fmt.Sprintf("0x%016X", math.Float64bits(float64(float32(f))))
	case PrecDouble:
		return fmt.Sprintf("0x%016X", math.Float64bits(f))
	default:
		return fp80Const(f)
	}
}

// fp80Const re-encodes a double as the 80-bit extended constant
// format (0xK followed by 20 hex digits).
func fp80Const(f float64) string {
	bits := math.Float64bits(f)
	sign := bits >> 63
	exp := (bits >> 52) & 0x7FF
	frac := bits & 0xFFFFFFFFFFFFF

	var e80, mant uint64
	switch {
	case exp == 0 && frac == 0:
		// Zero.
	case exp == 0x7FF:
		e80 = 0x7FFF
		mant = 1<<63 | frac<<11
	case exp == 0:
		// Double subnormals are normal in extended precision.
		e80 = 16383 - 1022
		mant = frac << 11
		for mant&(1<<63) == 0 {
			mant <<= 1
			e80--
		}
	default:
		e80 = exp - 1023 + 16383
		mant = 1<<63 | frac<<11
	}
	return fmt.Sprintf("0xK%04X%016X", sign<<15|e80, mant)
}

func (g *irEmitter) zeroValue(t Type) string {
	switch Unwrap(t).(type) {
	case *FloatType:
		return g.constFloat(t, 0)
	case *PointerType:
		return "null"
	case *StructType, *ArrayType:
		return "zeroinitializer"
	default:
		return "0"
	}
}

//  ---- string literals ----

func (g *irEmitter) stringGlobal(payload []byte) (name string, arrayType string) {
	key := string(payload)
	arrayType = fmt.Sprintf("[%d x i8]", len(payload)+1)
	if name, ok := g.strs[key]; ok {
		return name, arrayType
	}
	gname := "@.str"
	if g.strNum > 0 {
		gname = fmt.Sprintf("@.str.%d", g.strNum)
	}
	g.strNum++
	g.strs[key] = gname
	g.strDefs = append(g.strDefs, fmt.Sprintf("%s = private unnamed_addr constant %s c\"%s\\00\", align 1",
		gname, arrayType, irStringEscape(payload)))
	return gname, arrayType
}

func irStringEscape(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c >= 0x20 && c <= 0x7E && c != '"' && c != '\\' {
			sb.WriteByte(c)
		} else {
			fmt.Fprintf(&sb, "\\%02X", c)
		}
	}
	return sb.String()
}

//  ---- globals ----

func globalName(sym *Symbol) string { return "@" + sym.Name }

func (g *irEmitter) emitGlobal(d *Decl) {
	sym := d.Sym
	if sym == nil || g.emittedGlobals[sym] {
		return
	}
	g.emittedGlobals[sym] = true
	if sym.IRName == "" {
		sym.IRName = globalName(sym)
	}

	if d.Storage == StorageExtern && d.Init == nil {
		g.globals.writeil(fmt.Sprintf("%s = external global %s, align %d",
			sym.IRName, g.llType(sym.Type), g.alignOf(sym.Type)))
		return
	}

	linkage := ""
	if sym.Linkage == LinkInternal {
		linkage = "internal "
	}
	init := g.globalInit(sym.Type, d.Init)
	g.globals.writeil(fmt.Sprintf("%s = %sglobal %s %s, align %d",
		sym.IRName, linkage, g.llType(sym.Type), init, g.alignOf(sym.Type)))
}

// globalInit renders a folded initializer as an IR constant,
// zero-filling whatever the brace list left unsaid.
func (g *irEmitter) globalInit(t Type, init Init) string {
	if init == nil {
		return "zeroinitializer"
	}

	switch u := Unwrap(t).(type) {
	case *ArrayType:
		if ei, ok := init.(*ExprInit); ok {
			if str, ok := ei.X.(*StringLit); ok {
				return g.charArrayConst(u, str.Tok.StrVal)
			}
		}
		li, ok := init.(*ListInit)
		if !ok {
			return "zeroinitializer"
		}
		elems := make([]string, u.Len)
		for i := int64(0); i < u.Len; i++ {
			if int(i) < len(li.Items) {
				elems[i] = g.llType(u.Elem) + " " + g.globalInit(u.Elem, li.Items[i])
			} else {
				elems[i] = g.llType(u.Elem) + " " + g.zeroValue(u.Elem)
			}
		}
		return fmt.Sprintf("[%s]", strings.Join(elems, ", "))

	case *StructType:
		li, ok := init.(*ListInit)
		if !ok {
			if ei, ok := init.(*ExprInit); ok {
				return g.scalarConst(t, ei.X)
			}
			return "zeroinitializer"
		}
		if u.Union {
			// Only the first member of a union initializes.
			var best *Field
			var bestAlign int64
			for _, f := range u.Fields {
				a, _ := g.tg.AlignOf(f.Type)
				if best == nil || a > bestAlign {
					best, bestAlign = f, a
				}
			}
			if len(li.Items) > 0 && len(u.Fields) > 0 && u.Fields[0] == best {
				bestSize, _ := g.tg.SizeOf(best.Type)
				total, _ := g.tg.SizeOf(u)
				body := g.llType(best.Type) + " " + g.globalInit(best.Type, li.Items[0])
				if pad := total - bestSize; pad > 0 {
					body += fmt.Sprintf(", [%d x i8] zeroinitializer", pad)
				}
				return g.structName(u) + " { " + body + " }"
			}
			return "zeroinitializer"
		}
		parts := make([]string, len(u.Fields))
		for i, f := range u.Fields {
			if i < len(li.Items) {
				parts[i] = g.llType(f.Type) + " " + g.globalInit(f.Type, li.Items[i])
			} else {
				parts[i] = g.llType(f.Type) + " " + g.zeroValue(f.Type)
			}
		}
		return g.structName(u) + " { " + strings.Join(parts, ", ") + " }"

	default:
		ei, ok := init.(*ExprInit)
		if !ok {
			li := init.(*ListInit)
			if len(li.Items) == 1 {
				return g.globalInit(t, li.Items[0])
			}
			return "zeroinitializer"
		}
		return g.scalarConst(t, ei.X)
	}
}

func (g *irEmitter) charArrayConst(at *ArrayType, payload []byte) string {
	buf := make([]byte, at.Len)
	copy(buf, payload)
	return fmt.Sprintf("c\"%s\"", irStringEscape(buf[:len(buf)-1])+"\\00")
}

// scalarConst folds a static scalar initializer.  Address constants
// (&global, string literals, function names) pattern-match before
// the arithmetic folder runs.
func (g *irEmitter) scalarConst(t Type, x Expr) string {
	if IsPointer(t) {
		if c := g.addressConst(x); c != "" {
			return c
		}
	}
	v, err := g.tg.Fold(x)
	if err != nil {
		g.errorf(NotConstant, x.Loc(), "initializer is not a compile-time constant")
		return g.zeroValue(t)
	}
	if v.IsFloat {
		if IsInteger(t) {
			return fmt.Sprintf("%d", int64(v.F))
		}
		return g.constFloat(t, v.F)
	}
	if IsPointer(t) {
		if v.I == 0 {
			return "null"
		}
		return fmt.Sprintf("inttoptr (%s %d to %s)",
			g.indexType(), v.Int(g.tg), g.llType(t))
	}
	if IsFloat(t) {
		return g.constFloat(t, float64(v.Int(g.tg)))
	}
	return g.constInt(t, v.I)
}

func (g *irEmitter) addressConst(x Expr) string {
	switch n := x.(type) {
	case *CastExpr:
		if inner := g.addressConst(n.X); inner != "" {
			return inner
		}
	case *StringLit:
		name, at := g.stringGlobal(n.Tok.StrVal)
		idx := g.indexType()
		return fmt.Sprintf("getelementptr inbounds (%s, %s* %s, %s 0, %s 0)",
			at, at, name, idx, idx)
	case *UnaryExpr:
		if n.Op == "&" {
			if id, ok := n.X.(*IdentExpr); ok && id.Sym != nil && id.Sym.FileScope {
				return globalName(id.Sym)
			}
		}
	case *IdentExpr:
		if n.Sym != nil && n.Sym.Kind == SymFunc {
			return globalName(n.Sym)
		}
	}
	return ""
}

//  ---- functions ----

func (g *irEmitter) declareFunction(d *Decl) {
	sym := d.Sym
	if sym == nil || sym.Defined || g.declared[sym] {
		return
	}
	g.declared[sym] = true
	ft := Unwrap(sym.Type).(*FuncType)
	g.globals.writeil("declare " + g.fnSignature(ft, sym.Name, nil))
}

// fnSignature prints the define/declare signature, with byval and
// sret markers where the ABI wants composites in memory.  When
// paramNames is nil the parameters print unnamed (declare form).
func (g *irEmitter) fnSignature(ft *FuncType, name string, paramNames []string) string {
	var sb strings.Builder
	sret := g.retInMemory(ft.Ret)
	if sret {
		sb.WriteString("void @" + name + "(")
		sb.WriteString(fmt.Sprintf("%s* sret(%s) align %d",
			g.llType(ft.Ret), g.llType(ft.Ret), g.alignOf(ft.Ret)))
		if paramNames != nil {
			sb.WriteString(" %agg.result")
		}
		if len(ft.Params) > 0 || ft.Variadic {
			sb.WriteString(", ")
		}
	} else {
		sb.WriteString(g.llType(ft.Ret) + " @" + name + "(")
	}

	for i, p := range ft.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if g.passInMemory(p.Type) {
			sb.WriteString(fmt.Sprintf("%s* byval(%s) align %d",
				g.llType(p.Type), g.llType(p.Type), g.alignOf(p.Type)))
		} else {
			sb.WriteString(g.llType(p.Type))
		}
		if paramNames != nil {
			sb.WriteString(" %" + paramNames[i])
		}
	}
	if ft.OldStyle || ft.Variadic {
		if len(ft.Params) > 0 || (sret && ft.Variadic) {
			sb.WriteString(", ")
		}
		sb.WriteString("...")
	}
	sb.WriteString(")")
	return sb.String()
}

func (g *irEmitter) emitFunction(d *Decl) {
	sym := d.Sym
	if sym == nil {
		return
	}
	ft := Unwrap(sym.Type).(*FuncType)

	g.fn = ft
	g.curFnName = sym.Name
	g.fnSret = g.retInMemory(ft.Ret)
	g.blocks = nil
	g.allocas = nil
	g.tmp = 0
	g.blockNum = 0
	g.locals = map[*Symbol]irValue{}
	g.labelBBs = map[string]*irBlock{}
	g.breakBBs = nil
	g.contBBs = nil

	entry := g.newBlock("entry")
	g.cur = entry

	// Parameter spill slots.
	paramNames := make([]string, len(ft.Params))
	for i := range ft.Params {
		p := &ft.Params[i]
		paramNames[i] = p.Name
		psym := p.Sym
		if psym == nil {
			psym = &Symbol{Name: p.Name}
		}
		switch {
		case g.passInMemory(p.Type):
			// The byval pointer already addresses a private copy.
			g.bindLocal(psym, irValue{name: "%" + p.Name, typ: g.llType(p.Type) + "*"})
		default:
			addr := g.addAlloca(p.Name+".addr", p.Type)
			g.inst("store %s %%%s, %s, align %d",
				g.llType(p.Type), p.Name, addr, g.alignOf(p.Type))
			g.bindLocal(psym, irValue{name: addrName(addr), typ: g.llType(p.Type) + "*"})
		}
	}

	g.stmtList(d.Body.Items)

	g.finishFunction(ft)

	linkage := ""
	if sym.Linkage == LinkInternal {
		linkage = "internal "
	}
	g.funcs.writeil("define " + linkage + g.fnSignature(ft, sym.Name, paramNames) + " {")
	g.printBlocks()
	g.funcs.writeil("}")
	g.funcs.writel("")
}

func (g *irEmitter) bindLocal(sym *Symbol, v irValue) {
	g.locals[sym] = v
}

func addrName(addr string) string {
	// addr is rendered as "<ty>* %name"; the name is the last field.
	i := strings.LastIndexByte(addr, ' ')
	return addr[i+1:]
}

// addAlloca reserves an entry-block slot and returns "<ty>* %name".
func (g *irEmitter) addAlloca(name string, t Type) string {
	ssa := "%" + name
	g.allocas = append(g.allocas, fmt.Sprintf("%s = alloca %s, align %d",
		ssa, g.llType(t), g.alignOf(t)))
	return g.llType(t) + "* " + ssa
}

func (g *irEmitter) newTmp() string {
	g.tmp++
	return fmt.Sprintf("%%t%d", g.tmp)
}

func (g *irEmitter) newBlock(hint string) *irBlock {
	g.blockNum++
	name := hint
	if hint != "entry" {
		name = fmt.Sprintf("%s%d", hint, g.blockNum)
	}
	b := &irBlock{name: name}
	g.blocks = append(g.blocks, b)
	return b
}

func (g *irEmitter) inst(format string, args ...any) {
	g.cur.insts = append(g.cur.insts, fmt.Sprintf(format, args...))
}

// value emits `<tmp> = <inst>` and returns the typed result.
func (g *irEmitter) value(typ, format string, args ...any) irValue {
	t := g.newTmp()
	g.cur.insts = append(g.cur.insts, t+" = "+fmt.Sprintf(format, args...))
	return irValue{name: t, typ: typ}
}

func (g *irEmitter) terminate(format string, args ...any) {
	if g.cur.term == "" {
		g.cur.term = fmt.Sprintf(format, args...)
	}
}

func (g *irEmitter) setBlock(b *irBlock) {
	g.cur = b
}

func (g *irEmitter) br(target *irBlock) {
	g.terminate("br label %%%s", target.name)
}

func (g *irEmitter) condBr(cond irValue, t, f *irBlock) {
	g.terminate("br i1 %s, label %%%s, label %%%s", cond.name, t.name, f.name)
}

// finishFunction terminates any fallthrough block and runs the
// empty-label elimination pass.
func (g *irEmitter) finishFunction(ft *FuncType) {
	// Branch targets in use.
	referenced := map[string]bool{}
	collect := func(term string) {
		parts := strings.Split(term, "label %")
		for _, part := range parts[1:] {
			name := part
			if i := strings.IndexAny(name, " ,]\n"); i >= 0 {
				name = name[:i]
			}
			if name != "" {
				referenced[strings.TrimSpace(name)] = true
			}
		}
	}

	// Default terminator for blocks execution can fall out of.
	for _, b := range g.blocks {
		if b.term != "" {
			continue
		}
		if IsVoid(ft.Ret) || g.fnSret {
			b.term = "ret void"
		} else {
			b.term = fmt.Sprintf("ret %s %s", g.llType(ft.Ret), g.zeroValue(ft.Ret))
		}
	}
	for _, b := range g.blocks {
		collect(b.term)
	}

	// Drop unreferenced, instruction-free blocks (the entry block
	// stays; switch and join synthesis can leave these behind).
	kept := g.blocks[:1]
	for _, b := range g.blocks[1:] {
		if len(b.insts) == 0 && !referenced[b.name] {
			continue
		}
		kept = append(kept, b)
	}
	g.blocks = kept
}

func (g *irEmitter) printBlocks() {
	for i, b := range g.blocks {
		if i == 0 {
			// Entry block: allocas first.
			g.funcs.writeil(b.name + ":")
			g.funcs.indent()
			for _, a := range g.allocas {
				g.funcs.writeil(a)
			}
		} else {
			g.funcs.writel("")
			g.funcs.writeil(b.name + ":")
			g.funcs.indent()
		}
		for _, in := range b.insts {
			g.funcs.writeil(in)
		}
		g.funcs.writeil(b.term)
		g.funcs.unindent()
	}
}

//  ---- statements ----

func (g *irEmitter) stmtList(items []Stmt) {
	for _, s := range items {
		g.stmt(s)
	}
}

func (g *irEmitter) stmt(s Stmt) {
	switch n := s.(type) {
	case *CompoundStmt:
		g.stmtList(n.Items)

	case *DeclStmt:
		for _, d := range n.Decls {
			g.localDecl(d)
		}

	case *ExprStmt:
		g.expr(n.X)

	case *NullStmt:

	case *IfStmt:
		g.ifStmt(n)

	case *WhileStmt:
		g.whileStmt(n)

	case *DoStmt:
		g.doStmt(n)

	case *ForStmt:
		g.forStmt(n)

	case *SwitchStmt:
		g.switchStmt(n)

	case *CaseStmt:
		// Reached for a case label nested under a non-case statement
		// inside a switch body: the label is not a branch target and
		// only its body is emitted.
		if n.Body != nil {
			g.stmt(n.Body)
		}

	case *LabeledStmt:
		bb := g.labelBlock(n.Label)
		g.br(bb)
		g.setBlock(bb)
		g.stmt(n.Body)

	case *GotoStmt:
		g.br(g.labelBlock(n.Label))
		g.setBlock(g.newBlock("goto.dead"))

	case *BreakStmt:
		if len(g.breakBBs) > 0 {
			g.br(g.breakBBs[len(g.breakBBs)-1])
			g.setBlock(g.newBlock("break.dead"))
		}

	case *ContinueStmt:
		if len(g.contBBs) > 0 {
			g.br(g.contBBs[len(g.contBBs)-1])
			g.setBlock(g.newBlock("cont.dead"))
		}

	case *ReturnStmt:
		g.returnStmt(n)
	}
}

func (g *irEmitter) labelBlock(label string) *irBlock {
	if bb, ok := g.labelBBs[label]; ok {
		return bb
	}
	bb := g.newBlock("label." + label + ".")
	g.labelBBs[label] = bb
	return bb
}

func (g *irEmitter) localDecl(d *Decl) {
	sym := d.Sym
	if sym == nil || d.Storage == StorageTypedef || d.Name == "" {
		return
	}

	if d.Storage == StorageExtern {
		// A block-scope extern names file-scope storage.
		if sym.IRName == "" {
			sym.IRName = globalName(sym)
		}
		if !g.emittedGlobals[sym] {
			g.emittedGlobals[sym] = true
			g.globals.writeil(fmt.Sprintf("%s = external global %s, align %d",
				sym.IRName, g.llType(sym.Type), g.alignOf(sym.Type)))
		}
		g.bindLocal(sym, irValue{name: sym.IRName, typ: g.llType(sym.Type) + "*"})
		return
	}

	if sym.FileScope {
		// A function-local static lowers to an internal global.
		g.statics++
		sym.IRName = fmt.Sprintf("@%s.%s.%d", g.curFnName, sym.Name, g.statics)
		init := g.globalInit(sym.Type, d.Init)
		g.globals.writeil(fmt.Sprintf("%s = internal global %s %s, align %d",
			sym.IRName, g.llType(sym.Type), init, g.alignOf(sym.Type)))
		g.bindLocal(sym, irValue{name: sym.IRName, typ: g.llType(sym.Type) + "*"})
		return
	}

	addr := g.addAlloca(fmt.Sprintf("%s.%d", sym.Name, sym.ID), sym.Type)
	ptr := irValue{name: addrName(addr), typ: g.llType(sym.Type) + "*"}
	g.bindLocal(sym, ptr)

	if d.Init != nil {
		g.localInit(ptr, sym.Type, d.Init)
	}
}

// localInit stores an initializer element-wise, zero-filling the
// slots a brace list leaves out.
func (g *irEmitter) localInit(ptr irValue, t Type, init Init) {
	switch u := Unwrap(t).(type) {
	case *ArrayType:
		if ei, ok := init.(*ExprInit); ok {
			if str, ok := ei.X.(*StringLit); ok {
				g.localInitString(ptr, u, str)
				return
			}
		}
		li, ok := init.(*ListInit)
		if !ok {
			return
		}
		idx := g.indexType()
		for i := int64(0); i < u.Len; i++ {
			elem := g.value(g.llType(u.Elem)+"*",
				"getelementptr inbounds %s, %s, %s 0, %s %d",
				g.llType(t), ptr, idx, idx, i)
			if int(i) < len(li.Items) {
				g.localInit(elem, u.Elem, li.Items[i])
			} else {
				g.zeroStore(elem, u.Elem)
			}
		}

	case *StructType:
		li, ok := init.(*ListInit)
		if !ok {
			if ei, ok := init.(*ExprInit); ok {
				v := g.expr(ei.X)
				g.inst("store %s, %s, align %d", v, ptr, g.alignOf(t))
			}
			return
		}
		if u.Union {
			if len(li.Items) > 0 && len(u.Fields) > 0 {
				f := u.Fields[0]
				fp := g.value(g.llType(f.Type)+"*", "bitcast %s to %s*", ptr, g.llType(f.Type))
				g.localInit(fp, f.Type, li.Items[0])
			}
			return
		}
		idx := g.indexType()
		for i, f := range u.Fields {
			fp := g.value(g.llType(f.Type)+"*",
				"getelementptr inbounds %s, %s, %s 0, i32 %d",
				g.llType(t), ptr, idx, i)
			if i < len(li.Items) {
				g.localInit(fp, f.Type, li.Items[i])
			} else {
				g.zeroStore(fp, f.Type)
			}
		}

	default:
		switch i := init.(type) {
		case *ExprInit:
			v := g.expr(i.X)
			g.inst("store %s, %s, align %d", v, ptr, g.alignOf(t))
		case *ListInit:
			if len(i.Items) == 1 {
				g.localInit(ptr, t, i.Items[0])
			}
		}
	}
}

func (g *irEmitter) localInitString(ptr irValue, at *ArrayType, str *StringLit) {
	name, arrType := g.stringGlobal(str.Tok.StrVal)
	idx := g.indexType()
	src := g.value("i8*", "getelementptr inbounds %s, %s* %s, %s 0, %s 0",
		arrType, arrType, name, idx, idx)
	for i := int64(0); i < at.Len; i++ {
		dst := g.value("i8*", "getelementptr inbounds %s, %s, %s 0, %s %d",
			g.llType(at), ptr, idx, idx, i)
		if i < int64(len(str.Tok.StrVal)) {
			sp := g.value("i8*", "getelementptr inbounds i8, %s, %s %d", src, idx, i)
			ch := g.value("i8", "load i8, %s, align 1", sp)
			g.inst("store %s, %s, align 1", ch, dst)
		} else {
			g.inst("store i8 0, %s, align 1", dst)
		}
	}
}

func (g *irEmitter) zeroStore(ptr irValue, t Type) {
	switch Unwrap(t).(type) {
	case *StructType, *ArrayType:
		g.inst("store %s zeroinitializer, %s", g.llType(t), ptr)
	default:
		g.inst("store %s %s, %s, align %d", g.llType(t), g.zeroValue(t), ptr, g.alignOf(t))
	}
}

func (g *irEmitter) ifStmt(n *IfStmt) {
	then := g.newBlock("if.then")
	end := g.newBlock("if.end")
	els := end
	if n.Else != nil {
		els = g.newBlock("if.else")
	}

	g.cond(n.Cond, then, els)

	g.setBlock(then)
	g.stmt(n.Then)
	g.br(end)

	if n.Else != nil {
		g.setBlock(els)
		g.stmt(n.Else)
		g.br(end)
	}
	g.setBlock(end)
}

func (g *irEmitter) whileStmt(n *WhileStmt) {
	cond := g.newBlock("while.cond")
	body := g.newBlock("while.body")
	end := g.newBlock("while.end")

	g.br(cond)
	g.setBlock(cond)
	g.cond(n.Cond, body, end)

	g.breakBBs = append(g.breakBBs, end)
	g.contBBs = append(g.contBBs, cond)
	g.setBlock(body)
	g.stmt(n.Body)
	g.br(cond)
	g.breakBBs = g.breakBBs[:len(g.breakBBs)-1]
	g.contBBs = g.contBBs[:len(g.contBBs)-1]

	g.setBlock(end)
}

func (g *irEmitter) doStmt(n *DoStmt) {
	body := g.newBlock("do.body")
	cond := g.newBlock("do.cond")
	end := g.newBlock("do.end")

	g.br(body)
	g.breakBBs = append(g.breakBBs, end)
	g.contBBs = append(g.contBBs, cond)
	g.setBlock(body)
	g.stmt(n.Body)
	g.br(cond)
	g.breakBBs = g.breakBBs[:len(g.breakBBs)-1]
	g.contBBs = g.contBBs[:len(g.contBBs)-1]

	g.setBlock(cond)
	g.cond(n.Cond, body, end)
	g.setBlock(end)
}

func (g *irEmitter) forStmt(n *ForStmt) {
	if n.Init != nil {
		g.stmt(n.Init)
	}
	cond := g.newBlock("for.cond")
	body := g.newBlock("for.body")
	post := g.newBlock("for.inc")
	end := g.newBlock("for.end")

	g.br(cond)
	g.setBlock(cond)
	if n.Cond != nil {
		g.cond(n.Cond, body, end)
	} else {
		g.br(body)
	}

	g.breakBBs = append(g.breakBBs, end)
	g.contBBs = append(g.contBBs, post)
	g.setBlock(body)
	g.stmt(n.Body)
	g.br(post)
	g.breakBBs = g.breakBBs[:len(g.breakBBs)-1]
	g.contBBs = g.contBBs[:len(g.contBBs)-1]

	g.setBlock(post)
	if n.Post != nil {
		g.expr(n.Post)
	}
	g.br(cond)
	g.setBlock(end)
}

func (g *irEmitter) switchStmt(n *SwitchStmt) {
	v := g.expr(n.Cond)
	end := g.newBlock("sw.end")

	caseBlocks := map[*CaseStmt]*irBlock{}
	for _, c := range n.Cases {
		caseBlocks[c] = g.newBlock("sw.case")
	}
	// A missing default falls through to the end.
	def := end
	if n.Default != nil {
		def = g.newBlock("sw.default")
		caseBlocks[n.Default] = def
	}

	var cases strings.Builder
	for _, c := range n.Cases {
		fmt.Fprintf(&cases, "\n    %s %d, label %%%s", v.typ, c.Value, caseBlocks[c].name)
	}
	g.terminate("switch %s, label %%%s [%s\n  ]", v, def.name, cases.String())

	g.breakBBs = append(g.breakBBs, end)
	g.switchBody(n.Body, caseBlocks)
	g.br(end)
	g.breakBBs = g.breakBBs[:len(g.breakBBs)-1]

	g.setBlock(end)
}

// switchBody walks the statement list, entering case blocks as their
// labels appear so fall-through between cases stays intact.
func (g *irEmitter) switchBody(s Stmt, caseBlocks map[*CaseStmt]*irBlock) {
	// The current block right after the switch terminator is dead
	// until the first case label.
	g.setBlock(g.newBlock("sw.dead"))
	g.caseWalk(s, caseBlocks)
}

func (g *irEmitter) caseWalk(s Stmt, caseBlocks map[*CaseStmt]*irBlock) {
	switch n := s.(type) {
	case *CaseStmt:
		bb := caseBlocks[n]
		if bb != nil {
			g.br(bb)
			g.setBlock(bb)
		}
		g.caseWalk(n.Body, caseBlocks)
	case *CompoundStmt:
		for _, item := range n.Items {
			g.caseWalk(item, caseBlocks)
		}
	case *LabeledStmt:
		bb := g.labelBlock(n.Label)
		g.br(bb)
		g.setBlock(bb)
		g.caseWalk(n.Body, caseBlocks)
	default:
		g.stmt(s)
	}
}

func (g *irEmitter) returnStmt(n *ReturnStmt) {
	switch {
	case n.X == nil:
		g.terminate("ret void")

	case g.fnSret:
		v := g.expr(n.X)
		g.inst("store %s, %s %%agg.result, align %d",
			v, v.typ+"*", g.alignOf(g.fn.Ret))
		g.terminate("ret void")

	default:
		v := g.expr(n.X)
		g.terminate("ret %s", v)
	}
	g.setBlock(g.newBlock("ret.dead"))
}

//  ---- conditions ----

// cond evaluates a scalar condition and branches.
func (g *irEmitter) cond(x Expr, t, f *irBlock) {
	// Short-circuit forms get their own control flow.
	if b, ok := x.(*BinaryExpr); ok && (b.Op == "&&" || b.Op == "||") {
		mid := g.newBlock("land.rhs")
		if b.Op == "&&" {
			g.cond(b.X, mid, f)
		} else {
			g.cond(b.X, t, mid)
		}
		g.setBlock(mid)
		g.cond(b.Y, t, f)
		return
	}
	if u, ok := x.(*UnaryExpr); ok && u.Op == "!" {
		g.cond(u.X, f, t)
		return
	}

	v := g.expr(x)
	nz := g.truth(v, x.Type())
	g.condBr(nz, t, f)
}

// truth compares a scalar against zero, yielding an i1.
func (g *irEmitter) truth(v irValue, t Type) irValue {
	switch Unwrap(t).(type) {
	case *FloatType:
		return g.value("i1", "fcmp une %s, %s", v, g.constFloat(t, 0))
	case *PointerType:
		return g.value("i1", "icmp ne %s, null", v)
	default:
		return g.value("i1", "icmp ne %s, 0", v)
	}
}

//  ---- expressions ----

// addr returns the address of an lvalue as a typed pointer value.
func (g *irEmitter) addr(x Expr) irValue {
	switch n := x.(type) {
	case *IdentExpr:
		sym := n.Sym
		if sym == nil {
			break
		}
		if v, ok := g.locals[sym]; ok {
			return v
		}
		if sym.Kind == SymFunc {
			return irValue{name: globalName(sym), typ: g.llFuncType(Unwrap(sym.Type).(*FuncType), true) + "*"}
		}
		if sym.IRName == "" {
			sym.IRName = globalName(sym)
			if sym.Kind == SymVar && sym.FileScope && !g.emittedGlobals[sym] {
				// Used but never defined here; treat as external.
				g.emittedGlobals[sym] = true
				g.globals.writeil(fmt.Sprintf("%s = external global %s, align %d",
					sym.IRName, g.llType(sym.Type), g.alignOf(sym.Type)))
			}
		}
		return irValue{name: sym.IRName, typ: g.llType(sym.Type) + "*"}

	case *IndexExpr:
		base := g.expr(n.X) // pointer value
		idx := g.expr(n.Index)
		idx = g.indexCast(idx, n.Index.Type())
		elem := pointee(n.X.Type())
		return g.value(g.llType(elem)+"*",
			"getelementptr inbounds %s, %s, %s", g.llType(elem), base, idx)

	case *MemberExpr:
		return g.memberAddr(n)

	case *UnaryExpr:
		if n.Op == "*" {
			return g.expr(n.X)
		}

	case *StringLit:
		name, at := g.stringGlobal(n.Tok.StrVal)
		return irValue{name: name, typ: at + "*"}

	case *CastExpr:
		// Only decay casts are lvalue-transparent.
		if n.Implicit {
			return g.addr(n.X)
		}
	}

	g.errorf(Internal, x.Loc(), "cannot take the address of this expression")
	return irValue{name: "null", typ: "i8*"}
}

func (g *irEmitter) memberAddr(n *MemberExpr) irValue {
	var base irValue
	if n.Arrow {
		base = g.expr(n.X) // pointer value
	} else {
		base = g.addr(n.X)
	}
	rec := n.X.Type()
	if n.Arrow {
		rec = pointee(n.X.Type())
	}
	st := Unwrap(rec).(*StructType)

	if st.Union {
		return g.value(g.llType(n.Field.Type)+"*",
			"bitcast %s to %s*", base, g.llType(n.Field.Type))
	}
	return g.value(g.llType(n.Field.Type)+"*",
		"getelementptr inbounds %s, %s, %s 0, i32 %d",
		g.structName(st), base, g.indexType(), n.Field.Index)
}

// indexCast widens or narrows an index to the pointer-sized integer.
func (g *irEmitter) indexCast(v irValue, t Type) irValue {
	want := g.indexType()
	if v.typ == want {
		return v
	}
	op := "sext"
	if !IsSignedInt(t) {
		op = "zext"
	}
	if len(v.typ) > 1 && v.typ[0] == 'i' && len(want) > 1 {
		var vb, wb int
		fmt.Sscanf(v.typ, "i%d", &vb)
		fmt.Sscanf(want, "i%d", &wb)
		if vb > wb {
			op = "trunc"
		}
	}
	return g.value(want, "%s %s to %s", op, v, want)
}

func (g *irEmitter) load(ptr irValue, t Type) irValue {
	ty := g.llType(t)
	return g.value(ty, "load %s, %s, align %d", ty, ptr, g.alignOf(t))
}

// expr lowers an expression to a value.
func (g *irEmitter) expr(x Expr) irValue {
	switch n := x.(type) {
	case *IntLit:
		return irValue{name: g.constInt(n.Type(), n.Tok.IntVal), typ: g.llType(n.Type())}

	case *FloatLit:
		return irValue{name: g.constFloat(n.Type(), n.Tok.FloatVal), typ: g.llType(n.Type())}

	case *StringLit:
		// Only reachable through a decay cast; yield the address.
		return g.addr(n)

	case *IdentExpr:
		if n.EnumValue != nil {
			return irValue{name: fmt.Sprintf("%d", *n.EnumValue), typ: g.llType(n.Type())}
		}
		if n.Sym != nil && n.Sym.Kind == SymFunc {
			return irValue{name: globalName(n.Sym), typ: g.llType(&PointerType{Elem: n.Sym.Type})}
		}
		return g.load(g.addr(n), n.Type())

	case *UnaryExpr:
		return g.unary(n)

	case *IncDecExpr:
		return g.incDec(n)

	case *BinaryExpr:
		return g.binary(n)

	case *AssignExpr:
		return g.assign(n)

	case *CondExpr:
		return g.condValue(n)

	case *CallExpr:
		return g.call(n)

	case *IndexExpr:
		return g.load(g.addr(n), n.Type())

	case *MemberExpr:
		return g.member(n)

	case *SizeofExpr:
		v, err := g.tg.Fold(n)
		if err != nil {
			g.errorf(Internal, n.Loc(), "sizeof did not fold")
			return irValue{name: "0", typ: g.llType(n.Type())}
		}
		return irValue{name: fmt.Sprintf("%d", v.I), typ: g.llType(n.Type())}

	case *CastExpr:
		return g.cast(n)

	case *CommaExpr:
		g.expr(n.X)
		return g.expr(n.Y)
	}

	g.errorf(Internal, x.Loc(), "unsupported expression reached the emitter")
	return irValue{name: "0", typ: "i32"}
}

func (g *irEmitter) unary(n *UnaryExpr) irValue {
	switch n.Op {
	case "&":
		return g.addr(n.X)

	case "*":
		ptr := g.expr(n.X)
		if IsFunc(n.Type()) {
			return ptr
		}
		return g.value(g.llType(n.Type()), "load %s, %s, align %d",
			g.llType(n.Type()), ptr, g.alignOf(n.Type()))

	case "+":
		return g.expr(n.X)

	case "-":
		v := g.expr(n.X)
		if IsFloat(n.Type()) {
			return g.value(v.typ, "fneg %s", v)
		}
		return g.value(v.typ, "sub %s 0, %s", v.typ, v.name)

	case "~":
		v := g.expr(n.X)
		return g.value(v.typ, "xor %s, -1", v)

	case "!":
		v := g.expr(n.X)
		nz := g.truth(v, n.X.Type())
		flip := g.value("i1", "xor i1 %s, true", nz.name)
		return g.value(g.llType(n.Type()), "zext i1 %s to %s", flip.name, g.llType(n.Type()))
	}
	g.errorf(Internal, n.Loc(), "unknown unary operator %q", n.Op)
	return irValue{name: "0", typ: "i32"}
}

func (g *irEmitter) incDec(n *IncDecExpr) irValue {
	ptr := g.addr(n.X)
	t := n.X.Type()
	old := g.load(ptr, t)

	var next irValue
	switch u := Unwrap(t).(type) {
	case *PointerType:
		step := "1"
		if n.Op == "--" {
			step = "-1"
		}
		next = g.value(old.typ, "getelementptr inbounds %s, %s, %s %s",
			g.llType(u.Elem), old, g.indexType(), step)
	case *FloatType:
		op := "fadd"
		if n.Op == "--" {
			op = "fsub"
		}
		one := g.constFloat(t, 1)
		next = g.value(old.typ, "%s %s, %s", op, old, one)
	default:
		op := "add"
		if n.Op == "--" {
			op = "sub"
		}
		next = g.value(old.typ, "%s %s, 1", op, old)
	}
	g.inst("store %s, %s, align %d", next, ptr, g.alignOf(t))

	if n.Prefix {
		return next
	}
	return old
}

var signedCmp = map[string]string{
	"<": "slt", "<=": "sle", ">": "sgt", ">=": "sge", "==": "eq", "!=": "ne",
}
var unsignedCmp = map[string]string{
	"<": "ult", "<=": "ule", ">": "ugt", ">=": "uge", "==": "eq", "!=": "ne",
}
var floatCmp = map[string]string{
	"<": "olt", "<=": "ole", ">": "ogt", ">=": "oge", "==": "oeq", "!=": "une",
}

func (g *irEmitter) binary(n *BinaryExpr) irValue {
	if n.Op == "&&" || n.Op == "||" {
		return g.shortCircuit(n)
	}

	xt := n.X.Type()

	// Pointer arithmetic.
	if IsPointer(xt) && (n.Op == "+" || n.Op == "-") {
		if IsPointer(n.Y.Type()) {
			return g.ptrDiff(n)
		}
		base := g.expr(n.X)
		idx := g.indexCast(g.expr(n.Y), n.Y.Type())
		if n.Op == "-" {
			idx = g.value(idx.typ, "sub %s 0, %s", idx.typ, idx.name)
		}
		elem := pointee(xt)
		return g.value(base.typ, "getelementptr inbounds %s, %s, %s",
			g.llType(elem), base, idx)
	}

	a := g.expr(n.X)
	b := g.expr(n.Y)

	if cmp, ok := signedCmp[n.Op]; ok {
		var c irValue
		switch {
		case IsFloat(xt):
			c = g.value("i1", "fcmp %s %s, %s", floatCmp[n.Op], a, b.name)
		case IsPointer(xt) || !IsSignedInt(xt):
			c = g.value("i1", "icmp %s %s, %s", unsignedCmp[n.Op], a, b.name)
		default:
			c = g.value("i1", "icmp %s %s, %s", cmp, a, b.name)
		}
		return g.value(g.llType(n.Type()), "zext i1 %s to %s", c.name, g.llType(n.Type()))
	}

	if IsFloat(n.Type()) {
		op := map[string]string{"+": "fadd", "-": "fsub", "*": "fmul", "/": "fdiv"}[n.Op]
		if op == "" {
			g.errorf(Internal, n.Loc(), "bad floating operator %q", n.Op)
			op = "fadd"
		}
		return g.value(a.typ, "%s %s, %s", op, a, b.name)
	}

	signed := IsSignedInt(n.Type())
	var op string
	switch n.Op {
	case "+":
		op = "add"
	case "-":
		op = "sub"
	case "*":
		op = "mul"
	case "/":
		op = "udiv"
		if signed {
			op = "sdiv"
		}
	case "%":
		op = "urem"
		if signed {
			op = "srem"
		}
	case "&":
		op = "and"
	case "|":
		op = "or"
	case "^":
		op = "xor"
	case "<<":
		op = "shl"
		b = g.matchWidth(b, a.typ, n.Y.Type())
	case ">>":
		op = "lshr"
		if signed {
			op = "ashr"
		}
		b = g.matchWidth(b, a.typ, n.Y.Type())
	default:
		g.errorf(Internal, n.Loc(), "bad integer operator %q", n.Op)
		op = "add"
	}
	return g.value(a.typ, "%s %s, %s", op, a, b.name)
}

// matchWidth coerces a shift amount to the promoted left operand's
// width.
func (g *irEmitter) matchWidth(v irValue, want string, t Type) irValue {
	if v.typ == want {
		return v
	}
	return g.indexCastTo(v, want, t)
}

func (g *irEmitter) indexCastTo(v irValue, want string, t Type) irValue {
	var vb, wb int
	fmt.Sscanf(v.typ, "i%d", &vb)
	fmt.Sscanf(want, "i%d", &wb)
	op := "sext"
	if !IsSignedInt(t) {
		op = "zext"
	}
	if vb > wb {
		op = "trunc"
	}
	return g.value(want, "%s %s to %s", op, v, want)
}

func (g *irEmitter) ptrDiff(n *BinaryExpr) irValue {
	a := g.expr(n.X)
	b := g.expr(n.Y)
	it := g.indexType()
	ai := g.value(it, "ptrtoint %s to %s", a, it)
	bi := g.value(it, "ptrtoint %s to %s", b, it)
	diff := g.value(it, "sub %s %s, %s", it, ai.name, bi.name)
	elem := pointee(n.X.Type())
	sz, _ := g.tg.SizeOf(elem)
	q := diff
	if sz > 1 {
		q = g.value(it, "sdiv exact %s %s, %d", it, diff.name, sz)
	}
	want := g.llType(n.Type())
	if q.typ != want {
		q = g.indexCastTo(q, want, n.Type())
	}
	return q
}

func (g *irEmitter) shortCircuit(n *BinaryExpr) irValue {
	resTy := g.llType(n.Type())
	slot := g.addAlloca(fmt.Sprintf("sc.%d", g.blockNum+g.tmp), n.Type())
	slotV := irValue{name: addrName(slot), typ: resTy + "*"}

	t := g.newBlock("sc.true")
	f := g.newBlock("sc.false")
	end := g.newBlock("sc.end")

	g.cond(n, t, f)

	g.setBlock(t)
	g.inst("store %s 1, %s, align %d", resTy, slotV, g.alignOf(n.Type()))
	g.br(end)

	g.setBlock(f)
	g.inst("store %s 0, %s, align %d", resTy, slotV, g.alignOf(n.Type()))
	g.br(end)

	g.setBlock(end)
	return g.load(slotV, n.Type())
}

func (g *irEmitter) assign(n *AssignExpr) irValue {
	ptr := g.addr(n.L)
	lt := n.L.Type()

	if n.Op == "=" {
		v := g.expr(n.R)
		g.inst("store %s, %s, align %d", v, ptr, g.alignOf(lt))
		return v
	}

	// Compound assignment: load, widen to the operation type, apply,
	// narrow back, store — and yield the stored value, because
	// `sum += arr[i]` is itself an expression.
	old := g.load(ptr, lt)

	if IsPointer(lt) {
		idx := g.indexCast(g.expr(n.R), n.R.Type())
		if n.Op == "-=" {
			idx = g.value(idx.typ, "sub %s 0, %s", idx.typ, idx.name)
		}
		next := g.value(old.typ, "getelementptr inbounds %s, %s, %s",
			g.llType(pointee(lt)), old, idx)
		g.inst("store %s, %s, align %d", next, ptr, g.alignOf(lt))
		return next
	}

	common := n.Common
	if common == nil {
		common = lt
	}
	wide := g.castValue(old, lt, common)
	rhs := g.expr(n.R)

	op := strings.TrimSuffix(n.Op, "=")
	bin := &BinaryExpr{Op: op}
	bin.setType(common, false)
	result := g.applyBinary(bin, wide, rhs, common)

	narrow := g.castValue(result, common, lt)
	g.inst("store %s, %s, align %d", narrow, ptr, g.alignOf(lt))
	return narrow
}

// applyBinary emits one arithmetic instruction on two already-typed
// operands of the common type.
func (g *irEmitter) applyBinary(n *BinaryExpr, a, b irValue, t Type) irValue {
	if IsFloat(t) {
		op := map[string]string{"+": "fadd", "-": "fsub", "*": "fmul", "/": "fdiv"}[n.Op]
		return g.value(a.typ, "%s %s, %s", op, a, b.name)
	}
	signed := IsSignedInt(t)
	var op string
	switch n.Op {
	case "+":
		op = "add"
	case "-":
		op = "sub"
	case "*":
		op = "mul"
	case "/":
		op = "udiv"
		if signed {
			op = "sdiv"
		}
	case "%":
		op = "urem"
		if signed {
			op = "srem"
		}
	case "&":
		op = "and"
	case "|":
		op = "or"
	case "^":
		op = "xor"
	case "<<":
		op = "shl"
		b = g.matchWidth(b, a.typ, t)
	case ">>":
		op = "lshr"
		if signed {
			op = "ashr"
		}
		b = g.matchWidth(b, a.typ, t)
	}
	return g.value(a.typ, "%s %s, %s", op, a, b.name)
}

func (g *irEmitter) condValue(n *CondExpr) irValue {
	if IsVoid(n.Type()) {
		t := g.newBlock("cond.true")
		f := g.newBlock("cond.false")
		end := g.newBlock("cond.end")
		g.cond(n.Cond, t, f)
		g.setBlock(t)
		g.expr(n.Then)
		g.br(end)
		g.setBlock(f)
		g.expr(n.Else)
		g.br(end)
		g.setBlock(end)
		return irValue{name: "undef", typ: "void"}
	}

	slot := g.addAlloca(fmt.Sprintf("cond.%d", g.blockNum+g.tmp), n.Type())
	slotV := irValue{name: addrName(slot), typ: g.llType(n.Type()) + "*"}

	t := g.newBlock("cond.true")
	f := g.newBlock("cond.false")
	end := g.newBlock("cond.end")

	g.cond(n.Cond, t, f)

	g.setBlock(t)
	tv := g.expr(n.Then)
	g.inst("store %s, %s, align %d", tv, slotV, g.alignOf(n.Type()))
	g.br(end)

	g.setBlock(f)
	fv := g.expr(n.Else)
	g.inst("store %s, %s, align %d", fv, slotV, g.alignOf(n.Type()))
	g.br(end)

	g.setBlock(end)
	return g.load(slotV, n.Type())
}

func (g *irEmitter) member(n *MemberExpr) irValue {
	if n.X.IsLvalue() || n.Arrow {
		return g.load(g.memberAddr(n), n.Type())
	}
	// Member of an rvalue record (a call result, say): spill to a
	// temporary and go through memory.
	rec := n.X.Type()
	v := g.expr(n.X)
	slot := g.addAlloca(fmt.Sprintf("agg.%d", g.tmp), rec)
	slotV := irValue{name: addrName(slot), typ: g.llType(rec) + "*"}
	g.inst("store %s, %s, align %d", v, slotV, g.alignOf(rec))

	st := Unwrap(rec).(*StructType)
	var fp irValue
	if st.Union {
		fp = g.value(g.llType(n.Field.Type)+"*", "bitcast %s to %s*",
			slotV, g.llType(n.Field.Type))
	} else {
		fp = g.value(g.llType(n.Field.Type)+"*",
			"getelementptr inbounds %s, %s, %s 0, i32 %d",
			g.structName(st), slotV, g.indexType(), n.Field.Index)
	}
	return g.load(fp, n.Type())
}

func (g *irEmitter) call(n *CallExpr) irValue {
	var ft *FuncType
	var callee string

	if !n.Indirect {
		if id, ok := stripImplicitCasts(n.Fn).(*IdentExpr); ok && id.Sym != nil && id.Sym.Kind == SymFunc {
			ft = Unwrap(id.Sym.Type).(*FuncType)
			callee = globalName(id.Sym)
			if !id.Sym.Defined && !g.declared[id.Sym] {
				g.declared[id.Sym] = true
				g.globals.writeil("declare " + g.fnSignature(ft, id.Sym.Name, nil))
			}
		}
	}
	if callee == "" {
		// Indirect call on a loaded function pointer.
		fv := g.expr(n.Fn)
		callee = fv.name
		if pt, ok := Unwrap(n.Fn.Type()).(*PointerType); ok {
			ft = Unwrap(pt.Elem).(*FuncType)
		}
	}
	if ft == nil {
		g.errorf(Internal, n.Loc(), "callee has no function type")
		return irValue{name: "0", typ: "i32"}
	}

	sret := g.retInMemory(ft.Ret)
	var args []string

	var sretSlot irValue
	if sret {
		slot := g.addAlloca(fmt.Sprintf("call.agg.%d", g.tmp), ft.Ret)
		sretSlot = irValue{name: addrName(slot), typ: g.llType(ft.Ret) + "*"}
		args = append(args, fmt.Sprintf("%s sret(%s) align %d %s",
			sretSlot.typ, g.llType(ft.Ret), g.alignOf(ft.Ret), sretSlot.name))
	}

	for _, a := range n.Args {
		at := a.Type()
		switch {
		case IsRecord(at) && g.passInMemory(at):
			// Copy to a fresh slot; byval argument memory belongs to
			// the callee.
			src := g.aggAddr(a)
			slot := g.addAlloca(fmt.Sprintf("byval.%d", g.tmp), at)
			slotV := irValue{name: addrName(slot), typ: g.llType(at) + "*"}
			tmp := g.load(src, at)
			g.inst("store %s, %s, align %d", tmp, slotV, g.alignOf(at))
			args = append(args, fmt.Sprintf("%s byval(%s) align %d %s",
				slotV.typ, g.llType(at), g.alignOf(at), slotV.name))
		default:
			v := g.expr(a)
			args = append(args, v.String())
		}
	}

	callType := g.callTypeString(ft)
	argList := strings.Join(args, ", ")

	var ret irValue
	if sret || IsVoid(ft.Ret) {
		g.inst("call %s %s(%s)", callType, callee, argList)
		if sret {
			ret = g.load(sretSlot, ft.Ret)
		} else {
			ret = irValue{name: "undef", typ: "void"}
		}
	} else {
		ret = g.value(g.llType(ft.Ret), "call %s %s(%s)", callType, callee, argList)
	}
	return ret
}

// callTypeString prints the type that goes between `call` and the
// callee.  Variadic and old-style callees need the full function
// type spelled out.
func (g *irEmitter) callTypeString(ft *FuncType) string {
	if ft.Variadic || ft.OldStyle || g.retInMemory(ft.Ret) {
		return g.llFuncType(ft, true)
	}
	return g.llType(ft.Ret)
}

func stripImplicitCasts(x Expr) Expr {
	for {
		c, ok := x.(*CastExpr)
		if !ok || !c.Implicit {
			return x
		}
		x = c.X
	}
}

// aggAddr returns the address of a record-typed expression, spilling
// rvalues to a temporary.
func (g *irEmitter) aggAddr(x Expr) irValue {
	if x.IsLvalue() {
		return g.addr(x)
	}
	v := g.expr(x)
	slot := g.addAlloca(fmt.Sprintf("agg.%d", g.tmp), x.Type())
	slotV := irValue{name: addrName(slot), typ: g.llType(x.Type()) + "*"}
	g.inst("store %s, %s, align %d", v, slotV, g.alignOf(x.Type()))
	return slotV
}

func (g *irEmitter) cast(n *CastExpr) irValue {
	from := n.X.Type()
	to := n.To

	// Array-to-pointer decay: address of element zero.
	if at, ok := Unwrap(from).(*ArrayType); ok {
		base := g.addr(n.X)
		idx := g.indexType()
		return g.value(g.llType(to),
			"getelementptr inbounds %s, %s, %s 0, %s 0",
			g.llType(at), base, idx, idx)
	}
	// Function-to-pointer decay: the designator is the address.
	if IsFunc(from) {
		return g.addr(n.X)
	}

	v := g.expr(n.X)
	if IsVoid(to) {
		return irValue{name: "undef", typ: "void"}
	}
	return g.castValue(v, from, to)
}

// castValue converts a scalar value between C types.
func (g *irEmitter) castValue(v irValue, from, to Type) irValue {
	want := g.llType(to)
	if v.typ == want {
		return v
	}

	uf, ut := Unwrap(from), Unwrap(to)
	switch {
	case IsFloat(from) && IsFloat(to):
		fp, tp := uf.(*FloatType).Prec, ut.(*FloatType).Prec
		if tp > fp {
			return g.value(want, "fpext %s to %s", v, want)
		}
		return g.value(want, "fptrunc %s to %s", v, want)

	case IsFloat(from) && IsInteger(to):
		if IsSignedInt(to) {
			return g.value(want, "fptosi %s to %s", v, want)
		}
		return g.value(want, "fptoui %s to %s", v, want)

	case IsInteger(from) && IsFloat(to):
		if IsSignedInt(from) {
			return g.value(want, "sitofp %s to %s", v, want)
		}
		return g.value(want, "uitofp %s to %s", v, want)

	case IsInteger(from) && IsInteger(to):
		fb := g.tg.intBits(from)
		tb := g.tg.intBits(to)
		switch {
		case fb == tb:
			return irValue{name: v.name, typ: want}
		case fb > tb:
			return g.value(want, "trunc %s to %s", v, want)
		case IsSignedInt(from):
			return g.value(want, "sext %s to %s", v, want)
		default:
			return g.value(want, "zext %s to %s", v, want)
		}

	case IsPointer(from) && IsPointer(to):
		return g.value(want, "bitcast %s to %s", v, want)

	case IsPointer(from) && IsInteger(to):
		return g.value(want, "ptrtoint %s to %s", v, want)

	case IsInteger(from) && IsPointer(to):
		return g.value(want, "inttoptr %s to %s", v, want)
	}

	return irValue{name: v.name, typ: want}
}
