// Copyright © 2021 The Mir Authors under an MIT-style license.

// Package ir has a mid-level intermediate representation
// of functions as basic blocks of instructions.
//
// The representation is a naive SSA form:
// simple values live in registers,
// and everything else is referred to by address
// with explicit allocations, loads, and stores.
// There are no φ-nodes; values that must merge across blocks
// are stored to an allocated slot and re-loaded.
//
// The instruction set is closed.
// Statements and values are sealed interfaces;
// new kinds are added here deliberately, never by other packages.
//
// The package also provides the two mutation services
// used by the optimizer passes:
// Inline, which splices a callee body in place of a call,
// and CleanUp, which removes dead instructions and empty blocks.
// Analyses and inlining decisions live in other packages
// and only read the representation.
package ir

import (
	"math/big"
	"strings"
)

// A Mod is a module.
type Mod struct {
	Funs  []*Fun
	NDefs int
}

// A Type is a named, nominal type.
// Super, if non-nil, is the immediate supertype.
type Type struct {
	Name  string
	Super *Type
}

func (t *Type) String() string { return t.Name }

// SubtypeOf returns whether t is u or a transitive subtype of u.
func (t *Type) SubtypeOf(u *Type) bool {
	for ; t != nil; t = t.Super {
		if t == u {
			return true
		}
	}
	return false
}

// InlineStrategy is a function's explicitly requested inlining behavior.
type InlineStrategy int

const (
	// InlineDefault leaves the decision to the optimizer.
	InlineDefault InlineStrategy = iota
	// AlwaysInline marks a function unconditionally profitable to inline.
	AlwaysInline
	// NoInline forbids inlining the function.
	NoInline
)

// A Fun is a function definition or declaration.
type Fun struct {
	// N is unique among Mod-level defs.
	N     int
	Name  string
	Mod   *Mod
	NVals int
	Parms []*Parm
	// BBlks is the body; nil for an external declaration.
	BBlks []*BBlk

	Strategy InlineStrategy
	// Thunk marks a forwarding function that must not grow.
	Thunk bool
	// GlobalInit marks a module-level variable initializer.
	GlobalInit bool
	// Semantics are high-level attribute strings
	// that some optimizer phases must not look through.
	Semantics []string
	// Effects marks a function with explicit effect attributes.
	Effects bool
	// BindsSelf marks a function that may bind a late-resolved self type.
	// There is no mechanism to preserve that binding after inlining.
	BindsSelf bool
	// Fragile functions may be inlined into other modules,
	// so they may only inline other fragile functions.
	Fragile bool
	// NoOpt disables all optimization of the function.
	NoOpt bool
}

// Size is the function's size in basic blocks.
func (f *Fun) Size() int { return len(f.BBlks) }

// ExternalDecl returns whether f is a declaration without a body.
func (f *Fun) ExternalDecl() bool { return f.BBlks == nil }

// ShouldOptimize returns whether optimizer passes may touch f.
func (f *Fun) ShouldOptimize() bool { return !f.NoOpt && f.BBlks != nil }

// HasSemantics returns whether f has a semantics attribute
// equal to or beginning with prefix.
func (f *Fun) HasSemantics(prefix string) bool {
	for _, s := range f.Semantics {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// A Parm is a function parameter.
type Parm struct {
	// N is the index into the Fun's Parms.
	N    int
	Name string
	Type *Type
}

// A BBlk is a basic block.
type BBlk struct {
	// N is unique within the containing Fun.
	N     int
	Fun   *Fun
	Stmts []Stmt
	In    []*BBlk
}

// Term returns the block's terminator, or nil if the block has none.
func (b *BBlk) Term() Term {
	if len(b.Stmts) == 0 {
		return nil
	}
	term, ok := b.Stmts[len(b.Stmts)-1].(Term)
	if !ok {
		return nil
	}
	return term
}

// Out returns the block's successors.
func (b *BBlk) Out() []*BBlk {
	term := b.Term()
	if term == nil {
		return nil
	}
	return term.Out()
}

// SinglePred returns the block's sole predecessor,
// or nil if it has none or more than one.
func (b *BBlk) SinglePred() *BBlk {
	if len(b.In) != 1 {
		return nil
	}
	return b.In[0]
}

func (b *BBlk) addIn(in *BBlk) {
	for _, i := range b.In {
		if i == in {
			return
		}
	}
	b.In = append(b.In, in)
}

func (b *BBlk) rmIn(in *BBlk) {
	for i, o := range b.In {
		if o == in {
			b.In = append(b.In[:i], b.In[i+1:]...)
			return
		}
	}
}

// A Stmt is a single instruction.
// Every statement belongs to exactly one block.
type Stmt interface {
	Uses() []Val
	Blk() *BBlk
	buildString(*strings.Builder) *strings.Builder

	// sub substitutes values of the statement
	// that are keys of the map for their values.
	sub(valMap)

	// storesTo returns whether the statement
	// initializes the memory addressed by the value.
	storesTo(Val) bool

	shallowCopy() Stmt
	setBlk(*BBlk)
	deleted() bool
	delete()
}

type stmt struct {
	blk *BBlk
	del bool
}

func (s *stmt) Blk() *BBlk        { return s.blk }
func (s *stmt) setBlk(b *BBlk)    { s.blk = b }
func (s *stmt) deleted() bool     { return s.del }
func (s *stmt) delete()           { s.del = true }
func (s *stmt) storesTo(Val) bool { return false }

// A Val is a statement that produces a value.
type Val interface {
	Stmt
	// Num is the Val's unique number.
	Num() int
	// Type returns the Val's type; it may be nil.
	Type() *Type
	// Users returns the Stmts that use this Val.
	Users() []Stmt

	value() *val
}

type val struct {
	stmt
	n     int
	typ   *Type
	users []Stmt
}

func (v *val) Num() int      { return v.n }
func (v *val) Type() *Type   { return v.typ }
func (v *val) Users() []Stmt { return v.users }
func (v *val) value() *val   { return v }

func (v *val) addUser(s Stmt) {
	for _, u := range v.users {
		if u == s {
			return
		}
	}
	v.users = append(v.users, s)
}

func (v *val) rmUser(s Stmt) {
	for i, u := range v.users {
		if u == s {
			v.users = append(v.users[:i], v.users[i+1:]...)
			return
		}
	}
}

// Store stores a register value to a location specified by address.
type Store struct {
	stmt
	Dst Val
	Val Val
}

func (n *Store) Uses() []Val         { return []Val{n.Dst, n.Val} }
func (n *Store) storesTo(v Val) bool { return n.Dst == v }

// Copy copies a composite value between two locations specified by address.
// It acts as a load of Src fused with a store to Dst.
type Copy struct {
	stmt
	Dst Val
	Src Val
}

func (n *Copy) Uses() []Val         { return []Val{n.Dst, n.Src} }
func (n *Copy) storesTo(v Val) bool { return n.Dst == v }

// A Term is a terminal statement.
type Term interface {
	Stmt
	Out() []*BBlk
	subBBlk(bblkMap)
}

// Ret is a Term that returns from the current Fun.
// Val is the returned value; it may be nil.
type Ret struct {
	stmt
	Val Val
}

func (n *Ret) Uses() []Val {
	if n.Val == nil {
		return nil
	}
	return []Val{n.Val}
}

func (*Ret) Out() []*BBlk { return nil }

// Jmp is a Term that transfers control to another BBlk.
type Jmp struct {
	stmt
	Dst *BBlk
}

func (*Jmp) Uses() []Val    { return nil }
func (n *Jmp) Out() []*BBlk { return []*BBlk{n.Dst} }

// Likely is a branch prediction hint.
type Likely int8

const (
	// BranchUnknown gives no hint.
	BranchUnknown Likely = iota
	// BranchLikely hints that the Then successor is taken.
	BranchLikely
	// BranchUnlikely hints that the Else successor is taken.
	BranchUnlikely
)

// CondBr is a Term that transfers control to Then
// if its condition is non-zero and to Else otherwise.
type CondBr struct {
	stmt
	Cond   Val
	Then   *BBlk
	Else   *BBlk
	Likely Likely
}

func (n *CondBr) Uses() []Val  { return []Val{n.Cond} }
func (n *CondBr) Out() []*BBlk { return []*BBlk{n.Then, n.Else} }

// A ValCase is one case of a SwitchVal.
type ValCase struct {
	Val Val
	Dst *BBlk
}

// SwitchVal is a Term that transfers control
// to the case whose value equals the scrutinee,
// or to the default block if no case matches.
type SwitchVal struct {
	stmt
	Val     Val
	Cases   []ValCase
	Default *BBlk
}

func (n *SwitchVal) Uses() []Val {
	uses := make([]Val, 0, len(n.Cases)+1)
	uses = append(uses, n.Val)
	for _, c := range n.Cases {
		uses = append(uses, c.Val)
	}
	return uses
}

func (n *SwitchVal) Out() []*BBlk {
	out := make([]*BBlk, 0, len(n.Cases)+1)
	for _, c := range n.Cases {
		out = append(out, c.Dst)
	}
	if n.Default != nil {
		out = append(out, n.Default)
	}
	return out
}

// A UnionCase is one case of a SwitchUnion.
type UnionCase struct {
	Case int
	Dst  *BBlk
}

// SwitchUnion is a Term that transfers control
// to the case matching the scrutinee's union tag,
// or to the default block if no case matches.
type SwitchUnion struct {
	stmt
	Val     Val
	Cases   []UnionCase
	Default *BBlk
}

func (n *SwitchUnion) Uses() []Val { return []Val{n.Val} }

func (n *SwitchUnion) Out() []*BBlk {
	out := make([]*BBlk, 0, len(n.Cases)+1)
	for _, c := range n.Cases {
		out = append(out, c.Dst)
	}
	if n.Default != nil {
		out = append(out, n.Default)
	}
	return out
}

// CastBr is a Term that transfers control to Yes
// if its operand's runtime type satisfies Typ and to No otherwise.
type CastBr struct {
	stmt
	Val Val
	Typ *Type
	Yes *BBlk
	No  *BBlk
}

func (n *CastBr) Uses() []Val  { return []Val{n.Val} }
func (n *CastBr) Out() []*BBlk { return []*BBlk{n.Yes, n.No} }

// Unreachable is a Term marking a point that control never reaches.
type Unreachable struct {
	stmt
}

func (*Unreachable) Uses() []Val  { return nil }
func (*Unreachable) Out() []*BBlk { return nil }

// IntLit is an integer literal.
type IntLit struct {
	val
	Val *big.Int
}

func (n *IntLit) Uses() []Val { return nil }

// OpCode are the names of the built-in Ops.
type OpCode int

// The names of built-in operations.
const (
	NegOp OpCode = iota + 1
	BitwiseNotOp
	PlusOp
	MinusOp
	TimesOp
	DivideOp
	ModOp
	BitwiseAndOp
	BitwiseOrOp
	BitwiseXorOp
	LeftShiftOp
	RightShiftOp
	EqOp
	NeqOp
	LessOp
	LessEqOp
	GreaterOp
	GreaterEqOp
	NumConvertOp
)

// Op is the result of a built-in operation.
type Op struct {
	val
	Code OpCode
	Args []Val
}

func (n *Op) Uses() []Val { return n.Args }

// Load loads the register value at an address.
type Load struct {
	val
	Src Val
}

func (n *Load) Uses() []Val { return []Val{n.Src} }

// Alloc is the address of a newly allocated location.
type Alloc struct {
	val
}

func (*Alloc) Uses() []Val { return nil }

// Arg is an argument to the current function.
type Arg struct {
	val
	Parm *Parm
}

func (*Arg) Uses() []Val { return nil }

// Field is the address of a field of the object at an address.
type Field struct {
	val
	// Obj is the base address of the object.
	Obj   Val
	Index int
}

func (n *Field) Uses() []Val { return []Val{n.Obj} }

// Extract is a member of an aggregate register value.
type Extract struct {
	val
	Agg   Val
	Index int
}

func (n *Extract) Uses() []Val { return []Val{n.Agg} }

// Tuple is an aggregate register value composed of member values.
type Tuple struct {
	val
	Elems []Val
}

func (n *Tuple) Uses() []Val { return n.Elems }

// Union is a tagged-union register value:
// a case tag and an optional payload.
type Union struct {
	val
	Case int
	Arg  Val
}

func (n *Union) Uses() []Val {
	if n.Arg == nil {
		return nil
	}
	return []Val{n.Arg}
}

// FunRef is a reference to a function.
type FunRef struct {
	val
	Fun *Fun
}

func (*FunRef) Uses() []Val { return nil }

// MakeClosure constructs a closure
// over a function and its captured values.
type MakeClosure struct {
	val
	Fun  *Fun
	Caps []Val
}

func (n *MakeClosure) Uses() []Val { return n.Caps }

// Bitcast reinterprets a value as another type
// without changing its representation.
type Bitcast struct {
	val
	X Val
}

func (n *Bitcast) Uses() []Val { return []Val{n.X} }

// Upcast converts a value to one of its supertypes.
type Upcast struct {
	val
	X Val
}

func (n *Upcast) Uses() []Val { return []Val{n.X} }

// Call invokes a callee value with arguments.
type Call struct {
	val
	Callee Val
	Args   []Val
	// Subs are explicit generic substitutions applied at the call site.
	Subs []*Type
}

func (n *Call) Uses() []Val {
	uses := make([]Val, 0, len(n.Args)+1)
	uses = append(uses, n.Callee)
	return append(uses, n.Args...)
}

// Fun returns the call's direct callee,
// looking through trivial reinterpretations,
// or nil if the callee is not a direct function reference.
func (n *Call) Fun() *Fun {
	v := n.Callee
	for {
		switch d := v.(type) {
		case *FunRef:
			return d.Fun
		case *Bitcast:
			v = d.X
		default:
			return nil
		}
	}
}
