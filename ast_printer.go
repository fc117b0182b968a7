package cc1

import (
	"fmt"
	"strings"
)

// PrettyString renders the hierarchical structure of a node with
// box-drawing connectors, one node per line.
func PrettyString(n Node) string {
	tp := &astTreePrinter{}
	tp.node(n, "", "", "")
	return strings.TrimRight(tp.sb.String(), "\n")
}

type astTreePrinter struct {
	sb strings.Builder
}

func (tp *astTreePrinter) node(n Node, pad, branch, childPad string) {
	tp.sb.WriteString(pad)
	tp.sb.WriteString(branch)
	tp.sb.WriteString(nodeLabel(n))
	tp.sb.WriteString("\n")

	children := nodeChildren(n)
	for i, c := range children {
		if c == nil {
			continue
		}
		if i == len(children)-1 {
			tp.node(c, pad+childPad, "└── ", "    ")
		} else {
			tp.node(c, pad+childPad, "├── ", "│   ")
		}
	}
}

func nodeLabel(n Node) string {
	switch x := n.(type) {
	case *TranslationUnit:
		return fmt.Sprintf("TranslationUnit[%s]", x.File)
	case *Decl:
		name := x.Name
		if name == "" {
			name = "<type>"
		}
		kind := "Decl"
		if x.IsFuncDef() {
			kind = "FuncDef"
		}
		if x.Storage != StorageNone {
			return fmt.Sprintf("%s[%s %s: %s]", kind, x.Storage, name, x.Type)
		}
		return fmt.Sprintf("%s[%s: %s]", kind, name, x.Type)
	case *IntLit:
		return fmt.Sprintf("Int[%s]", x.Tok.Lexeme)
	case *FloatLit:
		return fmt.Sprintf("Float[%s]", x.Tok.Lexeme)
	case *StringLit:
		return fmt.Sprintf("String[%q]", string(x.Tok.StrVal))
	case *IdentExpr:
		return fmt.Sprintf("Ident[%s]", x.Name)
	case *UnaryExpr:
		return fmt.Sprintf("Unary[%s]", x.Op)
	case *IncDecExpr:
		if x.Prefix {
			return fmt.Sprintf("IncDec[%s pre]", x.Op)
		}
		return fmt.Sprintf("IncDec[%s post]", x.Op)
	case *BinaryExpr:
		return fmt.Sprintf("Binary[%s]", x.Op)
	case *AssignExpr:
		return fmt.Sprintf("Assign[%s]", x.Op)
	case *CondExpr:
		return "Cond"
	case *CallExpr:
		return "Call"
	case *IndexExpr:
		return "Index"
	case *MemberExpr:
		if x.Arrow {
			return fmt.Sprintf("Member[->%s]", x.Name)
		}
		return fmt.Sprintf("Member[.%s]", x.Name)
	case *SizeofExpr:
		if x.TypeName != nil {
			return fmt.Sprintf("Sizeof[%s]", x.TypeName)
		}
		return "Sizeof"
	case *CastExpr:
		if x.Implicit {
			return fmt.Sprintf("ImplicitCast[%s]", x.To)
		}
		return fmt.Sprintf("Cast[%s]", x.To)
	case *CommaExpr:
		return "Comma"
	case *CompoundStmt:
		return "Compound"
	case *DeclStmt:
		return "DeclStmt"
	case *ExprStmt:
		return "ExprStmt"
	case *IfStmt:
		return "If"
	case *WhileStmt:
		return "While"
	case *DoStmt:
		return "DoWhile"
	case *ForStmt:
		return "For"
	case *SwitchStmt:
		return "Switch"
	case *CaseStmt:
		if x.X == nil {
			return "Default"
		}
		return "Case"
	case *LabeledStmt:
		return fmt.Sprintf("Label[%s]", x.Label)
	case *GotoStmt:
		return fmt.Sprintf("Goto[%s]", x.Label)
	case *BreakStmt:
		return "Break"
	case *ContinueStmt:
		return "Continue"
	case *ReturnStmt:
		return "Return"
	case *NullStmt:
		return "Null"
	case *ExprInit:
		return "Init"
	case *ListInit:
		return "InitList"
	}
	return "?"
}

func nodeChildren(n Node) []Node {
	switch x := n.(type) {
	case *TranslationUnit:
		out := make([]Node, len(x.Decls))
		for i, d := range x.Decls {
			out[i] = d
		}
		return out
	case *Decl:
		var out []Node
		if x.Init != nil {
			out = append(out, x.Init)
		}
		if x.Body != nil {
			out = append(out, x.Body)
		}
		return out
	case *ExprInit:
		return []Node{x.X}
	case *ListInit:
		out := make([]Node, len(x.Items))
		for i, item := range x.Items {
			out[i] = item
		}
		return out
	case *UnaryExpr:
		return []Node{x.X}
	case *IncDecExpr:
		return []Node{x.X}
	case *BinaryExpr:
		return []Node{x.X, x.Y}
	case *AssignExpr:
		return []Node{x.L, x.R}
	case *CondExpr:
		return []Node{x.Cond, x.Then, x.Else}
	case *CallExpr:
		out := []Node{x.Fn}
		for _, a := range x.Args {
			out = append(out, a)
		}
		return out
	case *IndexExpr:
		return []Node{x.X, x.Index}
	case *MemberExpr:
		return []Node{x.X}
	case *SizeofExpr:
		if x.X != nil {
			return []Node{x.X}
		}
	case *CastExpr:
		return []Node{x.X}
	case *CommaExpr:
		return []Node{x.X, x.Y}
	case *CompoundStmt:
		out := make([]Node, len(x.Items))
		for i, item := range x.Items {
			out[i] = item
		}
		return out
	case *DeclStmt:
		out := make([]Node, len(x.Decls))
		for i, d := range x.Decls {
			out[i] = d
		}
		return out
	case *ExprStmt:
		return []Node{x.X}
	case *IfStmt:
		out := []Node{x.Cond, x.Then}
		if x.Else != nil {
			out = append(out, x.Else)
		}
		return out
	case *WhileStmt:
		return []Node{x.Cond, x.Body}
	case *DoStmt:
		return []Node{x.Body, x.Cond}
	case *ForStmt:
		var out []Node
		if x.Init != nil {
			out = append(out, x.Init)
		}
		if x.Cond != nil {
			out = append(out, x.Cond)
		}
		if x.Post != nil {
			out = append(out, x.Post)
		}
		return append(out, x.Body)
	case *SwitchStmt:
		return []Node{x.Cond, x.Body}
	case *CaseStmt:
		var out []Node
		if x.X != nil {
			out = append(out, x.X)
		}
		return append(out, x.Body)
	case *LabeledStmt:
		return []Node{x.Body}
	case *ReturnStmt:
		if x.X != nil {
			return []Node{x.X}
		}
	}
	return nil
}

//  ---- C source printer ----

// PrintC renders the AST back to C89 source.  Expressions come out
// fully parenthesized, so the output re-parses to a structurally
// equivalent tree.
func PrintC(tu *TranslationUnit) string {
	p := &cPrinter{w: newOutputWriter("    ")}
	for _, d := range tu.Decls {
		p.decl(d, true)
	}
	return p.w.String()
}

type cPrinter struct {
	w *outputWriter
}

func (p *cPrinter) decl(d *Decl, topLevel bool) {
	prefix := ""
	if d.Storage != StorageNone {
		prefix = d.Storage.String() + " "
	}
	if d.Name == "" {
		p.w.writeil(prefix + typeDefString(d.Type) + ";")
		return
	}

	p.w.writei(prefix + declString(d.Type, d.Name))
	if d.Init != nil {
		p.w.write(" = ")
		p.init(d.Init)
	}
	if d.Body != nil {
		p.w.writel("")
		p.blockStmt(d.Body)
		p.w.writel("")
		return
	}
	p.w.writel(";")
}

// typeDefString spells out struct/union/enum definitions; everything
// else falls back to the type's plain rendering.
func typeDefString(t Type) string {
	switch u := Unwrap(t).(type) {
	case *StructType:
		var sb strings.Builder
		sb.WriteString(u.keyword())
		if u.Tag != "" {
			sb.WriteString(" " + u.Tag)
		}
		if len(u.Fields) == 0 {
			return sb.String()
		}
		sb.WriteString(" { ")
		for _, f := range u.Fields {
			sb.WriteString(declString(f.Type, f.Name))
			sb.WriteString("; ")
		}
		sb.WriteString("}")
		return sb.String()
	case *EnumType:
		var sb strings.Builder
		sb.WriteString("enum")
		if u.Tag != "" {
			sb.WriteString(" " + u.Tag)
		}
		if len(u.Consts) == 0 {
			return sb.String()
		}
		sb.WriteString(" { ")
		for i, c := range u.Consts {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(c.Name)
			if c.X != nil {
				sb.WriteString(" = " + exprString(c.X))
			} else if i > 0 || c.Value != 0 {
				sb.WriteString(fmt.Sprintf(" = %d", c.Value))
			}
		}
		sb.WriteString(" }")
		return sb.String()
	}
	return t.String()
}

// declString prints `type name` with C's inside-out declarator
// syntax: pointers bind loosely, arrays and functions tightly.
func declString(t Type, name string) string {
	switch u := t.(type) {
	case *PointerType:
		inner := "*" + name
		switch u.Elem.(type) {
		case *ArrayType, *FuncType:
			inner = "(" + inner + ")"
		}
		return declString(u.Elem, inner)

	case *ArrayType:
		if u.Incomplete && u.LenExpr == nil {
			return declString(u.Elem, name+"[]")
		}
		if u.LenExpr != nil {
			return declString(u.Elem, name+"["+exprString(u.LenExpr)+"]")
		}
		return declString(u.Elem, fmt.Sprintf("%s[%d]", name, u.Len))

	case *FuncType:
		var sb strings.Builder
		sb.WriteString(name)
		sb.WriteString("(")
		if u.OldStyle {
			sb.WriteString(")")
			return declString(u.Ret, sb.String())
		}
		if len(u.Params) == 0 {
			sb.WriteString("void")
		}
		for i, prm := range u.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(declString(prm.Type, prm.Name))
		}
		if u.Variadic {
			sb.WriteString(", ...")
		}
		sb.WriteString(")")
		return declString(u.Ret, sb.String())

	case *StructType, *EnumType:
		if name == "" {
			return t.String()
		}
		return t.String() + " " + name

	default:
		if name == "" {
			return t.String()
		}
		return t.String() + " " + name
	}
}

func (p *cPrinter) init(init Init) {
	switch i := init.(type) {
	case *ExprInit:
		p.w.write(exprString(i.X))
	case *ListInit:
		p.w.write("{ ")
		for k, item := range i.Items {
			if k > 0 {
				p.w.write(", ")
			}
			p.init(item)
		}
		p.w.write(" }")
	}
}

func (p *cPrinter) blockStmt(b *CompoundStmt) {
	p.w.writeil("{")
	p.w.indent()
	for _, item := range b.Items {
		p.stmt(item)
	}
	p.w.unindent()
	p.w.writei("}")
}

func (p *cPrinter) stmt(s Stmt) {
	switch n := s.(type) {
	case *CompoundStmt:
		p.blockStmt(n)
		p.w.writel("")

	case *DeclStmt:
		for _, d := range n.Decls {
			p.decl(d, false)
		}

	case *ExprStmt:
		p.w.writeil(exprString(n.X) + ";")

	case *IfStmt:
		p.w.writei("if (" + exprString(n.Cond) + ")")
		p.nestedStmt(n.Then)
		if n.Else != nil {
			p.w.writei("else")
			p.nestedStmt(n.Else)
		}

	case *WhileStmt:
		p.w.writei("while (" + exprString(n.Cond) + ")")
		p.nestedStmt(n.Body)

	case *DoStmt:
		p.w.writei("do")
		p.nestedStmt(n.Body)
		p.w.writeil("while (" + exprString(n.Cond) + ");")

	case *ForStmt:
		p.w.writei("for (")
		switch init := n.Init.(type) {
		case nil:
			p.w.write("; ")
		case *ExprStmt:
			p.w.write(exprString(init.X) + "; ")
		case *DeclStmt:
			// The declarators are written inline; the semicolon
			// after them is written below.
			for _, d := range init.Decls {
				prefix := ""
				if d.Storage != StorageNone {
					prefix = d.Storage.String() + " "
				}
				p.w.write(prefix + declString(d.Type, d.Name))
				if d.Init != nil {
					p.w.write(" = ")
					p.init(d.Init)
				}
			}
			p.w.write("; ")
		}
		if n.Cond != nil {
			p.w.write(exprString(n.Cond))
		}
		p.w.write("; ")
		if n.Post != nil {
			p.w.write(exprString(n.Post))
		}
		p.w.write(")")
		p.nestedStmt(n.Body)

	case *SwitchStmt:
		p.w.writei("switch (" + exprString(n.Cond) + ")")
		p.nestedStmt(n.Body)

	case *CaseStmt:
		if n.X == nil {
			p.w.writeil("default:")
		} else {
			p.w.writeil("case " + exprString(n.X) + ":")
		}
		p.w.indent()
		p.stmt(n.Body)
		p.w.unindent()

	case *LabeledStmt:
		p.w.writeil(n.Label + ":")
		p.stmt(n.Body)

	case *GotoStmt:
		p.w.writeil("goto " + n.Label + ";")

	case *BreakStmt:
		p.w.writeil("break;")

	case *ContinueStmt:
		p.w.writeil("continue;")

	case *ReturnStmt:
		if n.X == nil {
			p.w.writeil("return;")
		} else {
			p.w.writeil("return " + exprString(n.X) + ";")
		}

	case *NullStmt:
		p.w.writeil(";")
	}
}

func (p *cPrinter) nestedStmt(s Stmt) {
	if b, ok := s.(*CompoundStmt); ok {
		p.w.writel("")
		p.blockStmt(b)
		p.w.writel("")
		return
	}
	p.w.writel("")
	p.w.indent()
	p.stmt(s)
	p.w.unindent()
}

var cStringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\t", `\t`,
	"\r", `\r`,
)

func exprString(x Expr) string {
	switch n := x.(type) {
	case *IntLit:
		return n.Tok.Lexeme
	case *FloatLit:
		return n.Tok.Lexeme
	case *StringLit:
		return `"` + cStringEscaper.Replace(string(n.Tok.StrVal)) + `"`
	case *IdentExpr:
		return n.Name
	case *UnaryExpr:
		return "(" + n.Op + exprString(n.X) + ")"
	case *IncDecExpr:
		if n.Prefix {
			return "(" + n.Op + exprString(n.X) + ")"
		}
		return "(" + exprString(n.X) + n.Op + ")"
	case *BinaryExpr:
		return "(" + exprString(n.X) + " " + n.Op + " " + exprString(n.Y) + ")"
	case *AssignExpr:
		return "(" + exprString(n.L) + " " + n.Op + " " + exprString(n.R) + ")"
	case *CondExpr:
		return "(" + exprString(n.Cond) + " ? " + exprString(n.Then) + " : " + exprString(n.Else) + ")"
	case *CallExpr:
		var sb strings.Builder
		sb.WriteString(exprString(n.Fn))
		sb.WriteString("(")
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(exprString(a))
		}
		sb.WriteString(")")
		return sb.String()
	case *IndexExpr:
		return exprString(n.X) + "[" + exprString(n.Index) + "]"
	case *MemberExpr:
		op := "."
		if n.Arrow {
			op = "->"
		}
		return exprString(n.X) + op + n.Name
	case *SizeofExpr:
		if n.TypeName != nil {
			return "sizeof(" + declString(n.TypeName, "") + ")"
		}
		return "sizeof " + exprString(n.X)
	case *CastExpr:
		if n.Implicit {
			return exprString(n.X)
		}
		return "((" + declString(n.To, "") + ")" + exprString(n.X) + ")"
	case *CommaExpr:
		return "(" + exprString(n.X) + ", " + exprString(n.Y) + ")"
	}
	return "?"
}
