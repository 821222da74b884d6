// Copyright © 2021 The Mir Authors under an MIT-style license.

package ir

import (
	"fmt"
	"strings"
)

func (n *Mod) String() string {
	s := &strings.Builder{}
	for _, fun := range n.Funs {
		if s.Len() > 0 {
			s.WriteRune('\n')
		}
		fun.buildString(s)
	}
	return s.String()
}

func (n *Fun) String() string {
	return n.buildString(&strings.Builder{}).String()
}

func (n *Fun) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "function%d [%s]", n.N, n.Name)
	s.WriteString("\n\tparms:")
	for _, p := range n.Parms {
		fmt.Fprintf(s, "\n\t\t%d [%s] %s", p.N, p.Name, p.Type)
	}
	if n.ExternalDecl() {
		s.WriteString("\n\texternal")
	}
	for _, b := range n.BBlks {
		s.WriteRune('\n')
		b.buildString(s)
	}
	return s
}

func (n *BBlk) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "\t%d:\n\t\t[in:", n.N)
	for _, in := range n.In {
		fmt.Fprintf(s, " %d", in.N)
	}
	s.WriteString("] [out:")
	for _, out := range n.Out() {
		fmt.Fprintf(s, " %d", out.N)
	}
	s.WriteRune(']')
	for _, t := range n.Stmts {
		s.WriteString("\n\t\t")
		if t.deleted() {
			s.WriteString("ⓧ ")
		}
		if v, ok := t.(Val); ok {
			fmt.Fprintf(s, "$%d := ", v.Num())
		}
		t.buildString(s)
	}
	return s
}

func (n *Store) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "store($%d, $%d)", n.Dst.Num(), n.Val.Num())
	return s
}

func (n *Copy) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "copy($%d, $%d)", n.Dst.Num(), n.Src.Num())
	return s
}

func (n *Ret) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("return")
	if n.Val != nil {
		fmt.Fprintf(s, " $%d", n.Val.Num())
	}
	return s
}

func (n *Jmp) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "jmp %d", n.Dst.N)
	return s
}

func (n *CondBr) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "if $%d then %d else %d", n.Cond.Num(), n.Then.N, n.Else.N)
	switch n.Likely {
	case BranchLikely:
		s.WriteString(" [likely]")
	case BranchUnlikely:
		s.WriteString(" [unlikely]")
	}
	return s
}

func (n *SwitchVal) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "switch $%d", n.Val.Num())
	for _, c := range n.Cases {
		fmt.Fprintf(s, " [$%d %d]", c.Val.Num(), c.Dst.N)
	}
	if n.Default != nil {
		fmt.Fprintf(s, " [default %d]", n.Default.N)
	}
	return s
}

func (n *SwitchUnion) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "switch union $%d", n.Val.Num())
	for _, c := range n.Cases {
		fmt.Fprintf(s, " [%d %d]", c.Case, c.Dst.N)
	}
	if n.Default != nil {
		fmt.Fprintf(s, " [default %d]", n.Default.N)
	}
	return s
}

func (n *CastBr) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "if $%d is %s then %d else %d",
		n.Val.Num(), n.Typ, n.Yes.N, n.No.N)
	return s
}

func (n *Unreachable) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("unreachable")
	return s
}

func (n *IntLit) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString(n.Val.String())
	return s
}

var opString = map[OpCode]string{
	BitwiseAndOp: "&",
	BitwiseOrOp:  "|",
	BitwiseXorOp: "^",
	BitwiseNotOp: "!",
	RightShiftOp: ">>",
	LeftShiftOp:  "<<",
	NegOp:        "-",
	PlusOp:       "+",
	MinusOp:      "-",
	TimesOp:      "*",
	DivideOp:     "/",
	ModOp:        "%",
	EqOp:         "==",
	NeqOp:        "!=",
	LessOp:       "<",
	LessEqOp:     "<=",
	GreaterOp:    ">",
	GreaterEqOp:  ">=",
	// NumConvertOp
}

func (n *Op) buildString(s *strings.Builder) *strings.Builder {
	switch {
	case n.Code == NumConvertOp:
		fmt.Fprintf(s, "%s($%d)", n.Type(), n.Args[0].Num())

	case len(n.Args) == 1:
		fmt.Fprintf(s, "%s$%d", opString[n.Code], n.Args[0].Num())

	case len(n.Args) == 2:
		fmt.Fprintf(s, "$%d %s $%d", n.Args[0].Num(), opString[n.Code], n.Args[1].Num())
	default:
		panic("impossible")
	}
	return s
}

func (n *Load) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "load($%d)", n.Src.Num())
	return s
}

func (n *Alloc) buildString(s *strings.Builder) *strings.Builder {
	if n.Type() != nil {
		fmt.Fprintf(s, "alloc(%s)", n.Type())
	} else {
		s.WriteString("alloc()")
	}
	return s
}

func (n *Arg) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "arg(%d [%s])", n.Parm.N, n.Parm.Name)
	return s
}

func (n *Field) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "$%d.%d", n.Obj.Num(), n.Index)
	return s
}

func (n *Extract) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "extract($%d, %d)", n.Agg.Num(), n.Index)
	return s
}

func (n *Tuple) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("tuple({")
	for i, e := range n.Elems {
		if i > 0 {
			s.WriteString(", ")
		}
		fmt.Fprintf(s, "$%d", e.Num())
	}
	s.WriteString("})")
	return s
}

func (n *Union) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "union({%d", n.Case)
	if n.Arg != nil {
		fmt.Fprintf(s, "=$%d", n.Arg.Num())
	}
	s.WriteString("})")
	return s
}

func (n *FunRef) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "&function%d [%s]", n.Fun.N, n.Fun.Name)
	return s
}

func (n *MakeClosure) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "closure(function%d, {", n.Fun.N)
	for i, c := range n.Caps {
		if i > 0 {
			s.WriteString(", ")
		}
		fmt.Fprintf(s, "$%d", c.Num())
	}
	s.WriteString("})")
	return s
}

func (n *Bitcast) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "bitcast($%d)", n.X.Num())
	return s
}

func (n *Upcast) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "upcast($%d)", n.X.Num())
	return s
}

func (n *Call) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("call ")
	if f := n.Fun(); f != nil {
		fmt.Fprintf(s, "function%d", f.N)
	} else {
		fmt.Fprintf(s, "$%d", n.Callee.Num())
	}
	s.WriteRune('(')
	for i, a := range n.Args {
		if i > 0 {
			s.WriteString(", ")
		}
		fmt.Fprintf(s, "$%d", a.Num())
	}
	s.WriteRune(')')
	return s
}
