package cc1

import "fmt"

// ConstValue is the result of compile-time evaluation.  Integer
// payloads are stored as the value's bit pattern truncated to the
// width of Typ on the current target.
type ConstValue struct {
	Typ     Type
	I       uint64
	F       float64
	IsFloat bool
}

// Int reads an integer constant as int64, respecting the constant's
// own signedness.
func (v ConstValue) Int(tg *Target) int64 {
	w := tg.intBits(v.Typ)
	if v.Typ != nil && !IsSignedInt(v.Typ) && !IsPointer(v.Typ) {
		return int64(mask(v.I, w))
	}
	return signExtend(v.I, w)
}

// IsZero reports whether the constant is zero, for null pointer
// constant detection and static initializers.
func (v ConstValue) IsZero() bool {
	if v.IsFloat {
		return v.F == 0
	}
	return v.I == 0
}

// foldError is a pending NotConstant diagnostic; the analyzer decides
// whether it is fatal (it is not, for example, for a non-constant
// initializer of an automatic object).
type foldError struct {
	Loc Location
	Msg string
}

func (e foldError) Error() string { return e.Msg }

func notConst(loc Location, format string, args ...any) error {
	return foldError{Loc: loc, Msg: fmt.Sprintf(format, args...)}
}

// intBits returns the value width of an integer-ish type.
func (tg *Target) intBits(t Type) uint {
	switch u := Unwrap(t).(type) {
	case *IntType:
		return uint(tg.intSize(u.Rank)) * 8
	case *EnumType:
		return uint(tg.IntSize) * 8
	case *PointerType:
		return uint(tg.PointerSize) * 8
	}
	return uint(tg.IntSize) * 8
}

func mask(v uint64, bits uint) uint64 {
	if bits >= 64 {
		return v
	}
	return v & (1<<bits - 1)
}

func signExtend(v uint64, bits uint) int64 {
	if bits >= 64 {
		return int64(v)
	}
	v = mask(v, bits)
	sign := uint64(1) << (bits - 1)
	if v&sign != 0 {
		v |= ^uint64(0) << bits
	}
	return int64(v)
}

// Fold evaluates a type-annotated expression at compile time.  The
// walk keeps its own stack, so folding depth is limited by memory
// rather than by expression nesting.  Non-constant operands fail with
// a NotConstant-flavored error.
func (tg *Target) Fold(x Expr) (ConstValue, error) {
	type frame struct {
		x       Expr
		visited bool
	}

	var (
		work   = []frame{{x: x}}
		values []ConstValue
	)

	pop := func() ConstValue {
		v := values[len(values)-1]
		values = values[:len(values)-1]
		return v
	}

	for len(work) > 0 {
		fr := work[len(work)-1]
		work = work[:len(work)-1]

		if !fr.visited {
			// Push the node back, then its children, so children
			// evaluate first and land on the value stack in order.
			work = append(work, frame{x: fr.x, visited: true})
			switch n := fr.x.(type) {
			case *UnaryExpr:
				work = append(work, frame{x: n.X})
			case *BinaryExpr:
				work = append(work, frame{x: n.Y}, frame{x: n.X})
			case *CondExpr:
				work = append(work, frame{x: n.Else}, frame{x: n.Then}, frame{x: n.Cond})
			case *CastExpr:
				work = append(work, frame{x: n.X})
			}
			continue
		}

		v, err := tg.foldOne(fr.x, pop)
		if err != nil {
			return ConstValue{}, err
		}
		values = append(values, v)
	}
	return values[0], nil
}

func (tg *Target) foldOne(x Expr, pop func() ConstValue) (ConstValue, error) {
	switch n := x.(type) {
	case *IntLit:
		return ConstValue{Typ: n.Type(), I: n.Tok.IntVal}, nil

	case *FloatLit:
		return ConstValue{Typ: n.Type(), F: n.Tok.FloatVal, IsFloat: true}, nil

	case *IdentExpr:
		if n.EnumValue != nil {
			return ConstValue{Typ: n.Type(), I: uint64(*n.EnumValue)}, nil
		}
		return ConstValue{}, notConst(n.Loc(), "%q is not a constant", n.Name)

	case *SizeofExpr:
		t := n.TypeName
		if t == nil {
			t = n.X.Type()
		}
		sz, err := tg.SizeOf(t)
		if err != nil {
			return ConstValue{}, notConst(n.Loc(), "sizeof applied to an incomplete type")
		}
		return ConstValue{Typ: n.Type(), I: uint64(sz)}, nil

	case *UnaryExpr:
		return tg.foldUnary(n, pop())

	case *BinaryExpr:
		y := pop()
		return tg.foldBinary(n, pop(), y)

	case *CondExpr:
		els := pop()
		then := pop()
		cond := pop()
		if cond.IsZero() {
			return els, nil
		}
		return then, nil

	case *CastExpr:
		return tg.foldCast(n, pop()), nil

	default:
		return ConstValue{}, notConst(x.Loc(), "expression is not constant")
	}
}

func (tg *Target) foldUnary(n *UnaryExpr, v ConstValue) (ConstValue, error) {
	t := n.Type()
	switch n.Op {
	case "+":
		return v, nil
	case "-":
		if v.IsFloat {
			return ConstValue{Typ: t, F: -v.F, IsFloat: true}, nil
		}
		return ConstValue{Typ: t, I: mask(-v.I, tg.intBits(t))}, nil
	case "~":
		if v.IsFloat {
			return ConstValue{}, notConst(n.Loc(), "~ applied to a floating operand")
		}
		return ConstValue{Typ: t, I: mask(^v.I, tg.intBits(t))}, nil
	case "!":
		r := uint64(0)
		if v.IsZero() {
			r = 1
		}
		return ConstValue{Typ: t, I: r}, nil
	}
	return ConstValue{}, notConst(n.Loc(), "%q is not a constant operator", n.Op)
}

func (tg *Target) foldBinary(n *BinaryExpr, a, b ConstValue) (ConstValue, error) {
	t := n.Type()

	if n.Op == "&&" || n.Op == "||" {
		av, bv := !a.IsZero(), !b.IsZero()
		var r bool
		if n.Op == "&&" {
			r = av && bv
		} else {
			r = av || bv
		}
		v := ConstValue{Typ: t}
		if r {
			v.I = 1
		}
		return v, nil
	}

	if a.IsFloat || b.IsFloat {
		return foldBinaryFloat(n, t, a, b)
	}

	// Both operands were already converted to the common type by the
	// analyzer, so signedness and width come off the operand type.
	opType := n.X.Type()
	bits := tg.intBits(opType)
	signed := IsSignedInt(opType)
	ai, bi := mask(a.I, bits), mask(b.I, bits)
	sa, sb := signExtend(ai, bits), signExtend(bi, bits)

	boolVal := func(c bool) (ConstValue, error) {
		v := ConstValue{Typ: t}
		if c {
			v.I = 1
		}
		return v, nil
	}
	intVal := func(u uint64) (ConstValue, error) {
		return ConstValue{Typ: t, I: mask(u, tg.intBits(t))}, nil
	}

	switch n.Op {
	case "+":
		return intVal(ai + bi)
	case "-":
		return intVal(ai - bi)
	case "*":
		return intVal(ai * bi)
	case "/":
		if bi == 0 {
			return ConstValue{}, notConst(n.Loc(), "division by zero in constant expression")
		}
		if signed {
			return intVal(uint64(sa / sb))
		}
		return intVal(ai / bi)
	case "%":
		if bi == 0 {
			return ConstValue{}, notConst(n.Loc(), "division by zero in constant expression")
		}
		if signed {
			return intVal(uint64(sa % sb))
		}
		return intVal(ai % bi)
	case "&":
		return intVal(ai & bi)
	case "|":
		return intVal(ai | bi)
	case "^":
		return intVal(ai ^ bi)
	case "<<":
		return intVal(ai << (bi & 63))
	case ">>":
		if signed {
			return intVal(uint64(sa >> (bi & 63)))
		}
		return intVal(ai >> (bi & 63))
	case "==":
		return boolVal(ai == bi)
	case "!=":
		return boolVal(ai != bi)
	case "<":
		if signed {
			return boolVal(sa < sb)
		}
		return boolVal(ai < bi)
	case "<=":
		if signed {
			return boolVal(sa <= sb)
		}
		return boolVal(ai <= bi)
	case ">":
		if signed {
			return boolVal(sa > sb)
		}
		return boolVal(ai > bi)
	case ">=":
		if signed {
			return boolVal(sa >= sb)
		}
		return boolVal(ai >= bi)
	}
	return ConstValue{}, notConst(n.Loc(), "%q is not a constant operator", n.Op)
}

func foldBinaryFloat(n *BinaryExpr, t Type, a, b ConstValue) (ConstValue, error) {
	af, bf := a.F, b.F
	if !a.IsFloat {
		af = float64(int64(a.I))
	}
	if !b.IsFloat {
		bf = float64(int64(b.I))
	}

	boolVal := func(c bool) (ConstValue, error) {
		v := ConstValue{Typ: t}
		if c {
			v.I = 1
		}
		return v, nil
	}

	switch n.Op {
	case "+":
		return ConstValue{Typ: t, F: af + bf, IsFloat: true}, nil
	case "-":
		return ConstValue{Typ: t, F: af - bf, IsFloat: true}, nil
	case "*":
		return ConstValue{Typ: t, F: af * bf, IsFloat: true}, nil
	case "/":
		return ConstValue{Typ: t, F: af / bf, IsFloat: true}, nil
	case "==":
		return boolVal(af == bf)
	case "!=":
		return boolVal(af != bf)
	case "<":
		return boolVal(af < bf)
	case "<=":
		return boolVal(af <= bf)
	case ">":
		return boolVal(af > bf)
	case ">=":
		return boolVal(af >= bf)
	}
	return ConstValue{}, notConst(n.Loc(), "invalid floating constant operation %q", n.Op)
}

func (tg *Target) foldCast(n *CastExpr, v ConstValue) ConstValue {
	to := Unwrap(n.To)
	switch to.(type) {
	case *FloatType:
		f := v.F
		if !v.IsFloat {
			if IsSignedInt(v.Typ) {
				f = float64(v.Int(tg))
			} else {
				f = float64(v.I)
			}
		}
		if Unwrap(n.To).(*FloatType).Prec == PrecFloat {
			f = float64(float32(f))
		}
		return ConstValue{Typ: n.To, F: f, IsFloat: true}

	default:
		bits := tg.intBits(n.To)
		if v.IsFloat {
			return ConstValue{Typ: n.To, I: mask(uint64(int64(v.F)), bits)}
		}
		// Width change: sign-extend a signed source (an unsigned one
		// is zero-extended), then truncate to the destination.
		src := signExtend(v.I, tg.intBits(v.Typ))
		if !IsSignedInt(v.Typ) {
			return ConstValue{Typ: n.To, I: mask(v.I, bits)}
		}
		return ConstValue{Typ: n.To, I: mask(uint64(src), bits)}
	}
}
