// Copyright © 2021 The Mir Authors under an MIT-style license.

package ir

import "math/big"

// NewFun adds a new, empty function definition to the module.
// A function with no blocks added is an external declaration.
func (m *Mod) NewFun(name string) *Fun {
	f := &Fun{N: m.NDefs, Name: name, Mod: m}
	m.NDefs++
	m.Funs = append(m.Funs, f)
	return f
}

// AddParm adds a parameter to the function.
func (f *Fun) AddParm(name string, typ *Type) *Parm {
	p := &Parm{N: len(f.Parms), Name: name, Type: typ}
	f.Parms = append(f.Parms, p)
	return p
}

// NewBBlk adds a new, empty basic block to the end of the function.
func (f *Fun) NewBBlk() *BBlk {
	b := &BBlk{N: len(f.BBlks), Fun: f}
	f.BBlks = append(f.BBlks, b)
	return b
}

// add appends a statement to the block,
// numbering its value, recording its uses,
// and linking successor edges.
func (b *BBlk) add(s Stmt) {
	s.setBlk(b)
	for _, u := range s.Uses() {
		u.value().addUser(s)
	}
	if v, ok := s.(Val); ok {
		v.value().n = b.Fun.NVals
		b.Fun.NVals++
	}
	if t, ok := s.(Term); ok {
		for _, o := range t.Out() {
			o.addIn(b)
		}
	}
	b.Stmts = append(b.Stmts, s)
}

// AddIntLit appends an integer literal.
func (b *BBlk) AddIntLit(v int64) *IntLit {
	n := &IntLit{Val: big.NewInt(v)}
	b.add(n)
	return n
}

// AddOp appends a built-in operation.
func (b *BBlk) AddOp(code OpCode, typ *Type, args ...Val) *Op {
	n := &Op{Code: code, Args: args}
	n.typ = typ
	b.add(n)
	return n
}

// AddLoad appends a load of the value at an address.
func (b *BBlk) AddLoad(src Val) *Load {
	n := &Load{Src: src}
	b.add(n)
	return n
}

// AddStore appends a store of a value to an address.
func (b *BBlk) AddStore(dst, val Val) *Store {
	n := &Store{Dst: dst, Val: val}
	b.add(n)
	return n
}

// AddCopy appends an address-to-address copy.
func (b *BBlk) AddCopy(dst, src Val) *Copy {
	n := &Copy{Dst: dst, Src: src}
	b.add(n)
	return n
}

// AddAlloc appends an allocation of a location of the given type.
func (b *BBlk) AddAlloc(typ *Type) *Alloc {
	n := &Alloc{}
	n.typ = typ
	b.add(n)
	return n
}

// AddArg appends a reference to a function parameter.
func (b *BBlk) AddArg(p *Parm) *Arg {
	n := &Arg{Parm: p}
	n.typ = p.Type
	b.add(n)
	return n
}

// AddField appends the address of a field of the object at an address.
func (b *BBlk) AddField(obj Val, index int) *Field {
	n := &Field{Obj: obj, Index: index}
	b.add(n)
	return n
}

// AddExtract appends a member extraction from an aggregate value.
func (b *BBlk) AddExtract(agg Val, index int) *Extract {
	n := &Extract{Agg: agg, Index: index}
	b.add(n)
	return n
}

// AddTuple appends an aggregate value construction.
func (b *BBlk) AddTuple(typ *Type, elems ...Val) *Tuple {
	n := &Tuple{Elems: elems}
	n.typ = typ
	b.add(n)
	return n
}

// AddUnion appends a tagged-union construction.
// The payload arg may be nil.
func (b *BBlk) AddUnion(typ *Type, cas int, arg Val) *Union {
	n := &Union{Case: cas, Arg: arg}
	n.typ = typ
	b.add(n)
	return n
}

// AddFunRef appends a reference to a function.
func (b *BBlk) AddFunRef(f *Fun) *FunRef {
	n := &FunRef{Fun: f}
	b.add(n)
	return n
}

// AddMakeClosure appends a closure construction.
func (b *BBlk) AddMakeClosure(f *Fun, caps ...Val) *MakeClosure {
	n := &MakeClosure{Fun: f, Caps: caps}
	b.add(n)
	return n
}

// AddBitcast appends a trivial reinterpretation of a value.
func (b *BBlk) AddBitcast(typ *Type, x Val) *Bitcast {
	n := &Bitcast{X: x}
	n.typ = typ
	b.add(n)
	return n
}

// AddUpcast appends a conversion of a value to a supertype.
func (b *BBlk) AddUpcast(typ *Type, x Val) *Upcast {
	n := &Upcast{X: x}
	n.typ = typ
	b.add(n)
	return n
}

// AddCall appends a call of a callee value.
func (b *BBlk) AddCall(callee Val, args ...Val) *Call {
	n := &Call{Callee: callee, Args: args}
	b.add(n)
	return n
}

// AddRet appends a return. The returned value may be nil.
func (b *BBlk) AddRet(v Val) *Ret {
	n := &Ret{Val: v}
	b.add(n)
	return n
}

// AddJmp appends an unconditional branch.
func (b *BBlk) AddJmp(dst *BBlk) *Jmp {
	n := &Jmp{Dst: dst}
	b.add(n)
	return n
}

// AddCondBr appends a two-way conditional branch.
func (b *BBlk) AddCondBr(cond Val, then, els *BBlk) *CondBr {
	n := &CondBr{Cond: cond, Then: then, Else: els}
	b.add(n)
	return n
}

// AddSwitchVal appends a multi-way value switch.
// The default block may be nil.
func (b *BBlk) AddSwitchVal(v Val, deflt *BBlk, cases ...ValCase) *SwitchVal {
	n := &SwitchVal{Val: v, Cases: cases, Default: deflt}
	b.add(n)
	return n
}

// AddSwitchUnion appends a tagged-union switch.
// The default block may be nil.
func (b *BBlk) AddSwitchUnion(v Val, deflt *BBlk, cases ...UnionCase) *SwitchUnion {
	n := &SwitchUnion{Val: v, Cases: cases, Default: deflt}
	b.add(n)
	return n
}

// AddCastBr appends a type-check branch.
func (b *BBlk) AddCastBr(v Val, typ *Type, yes, no *BBlk) *CastBr {
	n := &CastBr{Val: v, Typ: typ, Yes: yes, No: no}
	b.add(n)
	return n
}

// AddUnreachable appends an unreachable marker terminator.
func (b *BBlk) AddUnreachable() *Unreachable {
	n := &Unreachable{}
	b.add(n)
	return n
}
