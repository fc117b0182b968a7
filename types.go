package cc1

import (
	"errors"
	"fmt"
	"strings"
)

// Type is the sum of all C89 types.  Instances produced by the parser
// are raw (typedefs unresolved, tags unlinked, array lengths still
// expressions); the semantic analyzer canonicalizes them.
type Type interface {
	String() string
	isType()
}

// errIncomplete is returned by size/alignment queries on types whose
// definition has not completed.
var errIncomplete = errors.New("incomplete type")

//  ---- Void ----

type VoidType struct{}

func (*VoidType) isType()        {}
func (*VoidType) String() string { return "void" }

//  ---- Integer ----

type IntRank int

const (
	RankChar IntRank = iota
	RankShort
	RankInt
	RankLong
	RankLongLong
)

type IntType struct {
	Rank     IntRank
	Unsigned bool

	// PlainChar marks `char` as distinct from `signed char` for
	// compatibility checks.  Representation is signed (see DESIGN.md).
	PlainChar bool
}

func (*IntType) isType() {}

func (t *IntType) String() string {
	name := [...]string{"char", "short", "int", "long", "long long"}[t.Rank]
	if t.PlainChar {
		return "char"
	}
	if t.Unsigned {
		return "unsigned " + name
	}
	if t.Rank == RankChar {
		return "signed char"
	}
	return name
}

//  ---- Floating ----

type FloatPrec int

const (
	PrecFloat FloatPrec = iota
	PrecDouble
	PrecLongDouble
)

type FloatType struct {
	Prec FloatPrec
}

func (*FloatType) isType() {}

func (t *FloatType) String() string {
	return [...]string{"float", "double", "long double"}[t.Prec]
}

//  ---- Pointer ----

type PointerType struct {
	Elem Type
}

func (*PointerType) isType()          {}
func (t *PointerType) String() string { return t.Elem.String() + "*" }

//  ---- Array ----

type ArrayType struct {
	Elem Type
	Len  int64

	// Incomplete marks `T x[]`.  LenExpr holds the unparsed size
	// expression until the analyzer folds it into Len.
	Incomplete bool
	LenExpr    Expr
}

func (*ArrayType) isType() {}

func (t *ArrayType) String() string {
	switch {
	case t.Incomplete:
		return fmt.Sprintf("%s[]", t.Elem)
	case t.LenExpr != nil && t.Len == 0:
		return fmt.Sprintf("%s[%s]", t.Elem, exprString(t.LenExpr))
	default:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Len)
	}
}

//  ---- Function ----

type Param struct {
	Name string
	Type Type
	Loc  Location

	// Sym is bound by the analyzer inside a function definition.
	Sym *Symbol
}

type FuncType struct {
	Ret      Type
	Params   []Param
	Variadic bool

	// OldStyle marks `T f()` — an unprototyped declaration that
	// accepts any arguments.
	OldStyle bool
}

func (*FuncType) isType() {}

func (t *FuncType) String() string {
	var sb strings.Builder
	sb.WriteString(t.Ret.String())
	sb.WriteString(" (")
	if t.OldStyle {
		sb.WriteString(")")
		return sb.String()
	}
	if len(t.Params) == 0 && !t.Variadic {
		sb.WriteString("void")
	}
	for i, p := range t.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Type.String())
	}
	if t.Variadic {
		sb.WriteString(", ...")
	}
	sb.WriteString(")")
	return sb.String()
}

//  ---- Struct / Union ----

type Field struct {
	Name string
	Type Type
	Loc  Location

	// Offset within the record in bytes; filled by layout().
	Offset int64

	// Index of the field in the LLVM struct body.
	Index int
}

type StructType struct {
	Union    bool
	Tag      string
	Fields   []*Field
	Complete bool

	// Layout results, valid once Complete.
	size  int64
	align int64

	// IRName is not set by the emitter, which keeps `%struct.X`
	// identifiers in its own per-module table.
	IRName string
}

func (*StructType) isType() {}

func (t *StructType) keyword() string {
	if t.Union {
		return "union"
	}
	return "struct"
}

func (t *StructType) String() string {
	if t.Tag != "" {
		return t.keyword() + " " + t.Tag
	}
	return t.keyword() + " <anonymous>"
}

// FindField returns the named member, or nil.
func (t *StructType) FindField(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

//  ---- Enum ----

type EnumConst struct {
	Name  string
	Value int64
	Loc   Location

	// X is the initializer expression, folded into Value by the
	// analyzer.
	X Expr
}

type EnumType struct {
	Tag      string
	Consts   []EnumConst
	Complete bool
}

func (*EnumType) isType() {}

func (t *EnumType) String() string {
	if t.Tag != "" {
		return "enum " + t.Tag
	}
	return "enum <anonymous>"
}

//  ---- Typedef reference ----

// TypedefType is a use of a typedef name.  The analyzer fills Actual;
// the name is retained for diagnostics.
type TypedefType struct {
	Name   string
	Actual Type
}

func (*TypedefType) isType()          {}
func (t *TypedefType) String() string { return t.Name }

//  ---- Poison ----

// PoisonType marks subtrees that already produced a semantic error,
// suppressing cascaded diagnostics.
type PoisonType struct{}

func (*PoisonType) isType()        {}
func (*PoisonType) String() string { return "<error>" }

// Unwrap resolves typedef indirection to the underlying type.
func Unwrap(t Type) Type {
	for {
		td, ok := t.(*TypedefType)
		if !ok || td.Actual == nil {
			return t
		}
		t = td.Actual
	}
}

func IsPoison(t Type) bool {
	_, ok := Unwrap(t).(*PoisonType)
	return ok
}

func IsInteger(t Type) bool {
	switch Unwrap(t).(type) {
	case *IntType, *EnumType:
		return true
	}
	return false
}

func IsFloat(t Type) bool {
	_, ok := Unwrap(t).(*FloatType)
	return ok
}

func IsArithmetic(t Type) bool { return IsInteger(t) || IsFloat(t) }

func IsPointer(t Type) bool {
	_, ok := Unwrap(t).(*PointerType)
	return ok
}

func IsScalar(t Type) bool { return IsArithmetic(t) || IsPointer(t) }

func IsRecord(t Type) bool {
	_, ok := Unwrap(t).(*StructType)
	return ok
}

func IsVoid(t Type) bool {
	_, ok := Unwrap(t).(*VoidType)
	return ok
}

func IsFunc(t Type) bool {
	_, ok := Unwrap(t).(*FuncType)
	return ok
}

// IsSignedInt reports whether t is a signed integer (or enum) type.
func IsSignedInt(t Type) bool {
	switch u := Unwrap(t).(type) {
	case *IntType:
		return !u.Unsigned
	case *EnumType:
		return true
	}
	return false
}

//  ---- Sizing and layout ----

// SizeOf computes the storage size of t in bytes for this target.
func (tg *Target) SizeOf(t Type) (int64, error) {
	switch u := Unwrap(t).(type) {
	case *VoidType, *FuncType:
		return 0, errIncomplete
	case *IntType:
		return tg.intSize(u.Rank), nil
	case *FloatType:
		switch u.Prec {
		case PrecFloat:
			return tg.FloatSize, nil
		case PrecDouble:
			return tg.DoubleSize, nil
		default:
			return tg.LongDoubleSize, nil
		}
	case *PointerType:
		return tg.PointerSize, nil
	case *ArrayType:
		if u.Incomplete {
			return 0, errIncomplete
		}
		elem, err := tg.SizeOf(u.Elem)
		if err != nil {
			return 0, err
		}
		return elem * u.Len, nil
	case *StructType:
		if !u.Complete {
			return 0, errIncomplete
		}
		return u.size, nil
	case *EnumType:
		return tg.IntSize, nil
	}
	return 0, errIncomplete
}

// AlignOf computes the alignment requirement of t in bytes.
func (tg *Target) AlignOf(t Type) (int64, error) {
	switch u := Unwrap(t).(type) {
	case *VoidType, *FuncType:
		return 0, errIncomplete
	case *IntType:
		sz := tg.intSize(u.Rank)
		if sz == 8 {
			return tg.LongLongAlign, nil
		}
		return sz, nil
	case *FloatType:
		switch u.Prec {
		case PrecFloat:
			return tg.FloatSize, nil
		case PrecDouble:
			return tg.DoubleAlign, nil
		default:
			return tg.LongDoubleAlign, nil
		}
	case *PointerType:
		return tg.PointerAlign, nil
	case *ArrayType:
		return tg.AlignOf(u.Elem)
	case *StructType:
		if !u.Complete {
			return 0, errIncomplete
		}
		return u.align, nil
	case *EnumType:
		return tg.IntSize, nil
	}
	return 0, errIncomplete
}

func (tg *Target) intSize(r IntRank) int64 {
	switch r {
	case RankChar:
		return 1
	case RankShort:
		return tg.ShortSize
	case RankInt:
		return tg.IntSize
	case RankLong:
		return tg.LongSize
	default:
		return tg.LongLongSize
	}
}

func alignUp(n, align int64) int64 {
	return (n + align - 1) &^ (align - 1)
}

// layout assigns member offsets and the record's size and alignment:
// each offset is the smallest value >= the running offset aligned for
// the member; the record alignment is the max member alignment; the
// size is the running offset rounded up to the record alignment.
// Unions overlay every member at offset zero.
func (tg *Target) layout(st *StructType) error {
	var offset, align int64 = 0, 1
	for i, f := range st.Fields {
		fa, err := tg.AlignOf(f.Type)
		if err != nil {
			return err
		}
		fs, err := tg.SizeOf(f.Type)
		if err != nil {
			return err
		}
		if fa > align {
			align = fa
		}
		f.Index = i
		if st.Union {
			f.Offset = 0
			if fs > offset {
				offset = fs
			}
			continue
		}
		f.Offset = alignUp(offset, fa)
		offset = f.Offset + fs
	}
	st.size = alignUp(offset, align)
	if st.size == 0 {
		// An empty record still occupies storage.
		st.size = align
	}
	st.align = align
	st.Complete = true
	return nil
}
