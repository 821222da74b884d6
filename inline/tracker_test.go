// Copyright © 2021 The Mir Authors under an MIT-style license.

package inline

import (
	"math/big"
	"testing"

	"github.com/eaburns/mir/ir"
)

// track drives a tracker over every instruction of f in block order.
func track(t *constTracker, f *ir.Fun) {
	for _, b := range f.BBlks {
		t.beginBlock()
		for _, s := range b.Stmts {
			t.trackInst(s)
		}
	}
}

func TestTrackerLoadForwarding(t *testing.T) {
	intType := &ir.Type{Name: "Int"}
	m := &ir.Mod{}
	f := m.NewFun("f")
	b := f.NewBBlk()
	a := b.AddAlloc(intType)
	v := b.AddIntLit(5)
	b.AddStore(a, v)
	l := b.AddLoad(a)
	b.AddRet(l)

	tr := newTracker(f)
	track(tr, f)

	c := tr.intConst(l, 0)
	if !c.Valid || c.Val.Int64() != 5 {
		t.Fatalf("intConst(load)=%+v, want valid 5", c)
	}
	if c.FromCaller {
		t.Errorf("intConst(load).FromCaller=true, want false")
	}
}

// The memory table only lives for one block:
// a load in a later block is not linked to an earlier store.
func TestTrackerMemoryScopedToBlock(t *testing.T) {
	intType := &ir.Type{Name: "Int"}
	m := &ir.Mod{}
	f := m.NewFun("f")
	b0 := f.NewBBlk()
	b1 := f.NewBBlk()
	a := b0.AddAlloc(intType)
	v := b0.AddIntLit(5)
	b0.AddStore(a, v)
	b0.AddJmp(b1)
	l := b1.AddLoad(a)
	b1.AddRet(l)

	tr := newTracker(f)
	track(tr, f)

	if c := tr.intConst(l, 0); c.Valid {
		t.Errorf("intConst(load)=%+v, want invalid across blocks", c)
	}
}

func TestTrackerFieldProjection(t *testing.T) {
	pairType := &ir.Type{Name: "Pair"}
	m := &ir.Mod{}
	f := m.NewFun("f")
	b := f.NewBBlk()
	a := b.AddAlloc(pairType)
	fld := b.AddField(a, 1)
	v := b.AddIntLit(7)
	b.AddStore(fld, v)
	fld2 := b.AddField(a, 1)
	l := b.AddLoad(fld2)
	b.AddRet(l)

	tr := newTracker(f)
	track(tr, f)

	c := tr.intConst(l, 0)
	if !c.Valid || c.Val.Int64() != 7 {
		t.Fatalf("intConst(load of field)=%+v, want valid 7", c)
	}
}

func TestTrackerExtractTuple(t *testing.T) {
	pairType := &ir.Type{Name: "Pair"}
	m := &ir.Mod{}
	f := m.NewFun("f")
	b := f.NewBBlk()
	x := b.AddIntLit(3)
	y := b.AddIntLit(4)
	tup := b.AddTuple(pairType, x, y)
	e := b.AddExtract(tup, 1)
	b.AddRet(e)

	tr := newTracker(f)
	track(tr, f)

	if d := tr.def(e); d != ir.Val(y) {
		t.Errorf("def(extract)=%v, want y", d)
	}
	c := tr.intConst(e, 0)
	if !c.Valid || c.Val.Int64() != 4 {
		t.Fatalf("intConst(extract)=%+v, want valid 4", c)
	}
}

func TestTrackerOpFolding(t *testing.T) {
	intType := &ir.Type{Name: "Int"}
	m := &ir.Mod{}
	f := m.NewFun("f")
	b := f.NewBBlk()
	two := b.AddIntLit(2)
	three := b.AddIntLit(3)

	tests := []struct {
		code ir.OpCode
		want int64
	}{
		{ir.PlusOp, 5},
		{ir.MinusOp, -1},
		{ir.TimesOp, 6},
		{ir.DivideOp, 0},
		{ir.ModOp, 2},
		{ir.LessOp, 1},
		{ir.GreaterOp, 0},
		{ir.EqOp, 0},
		{ir.BitwiseAndOp, 2},
		{ir.BitwiseOrOp, 3},
		{ir.BitwiseXorOp, 1},
		{ir.LeftShiftOp, 16},
	}
	tr := newTracker(f)
	tr.beginBlock()
	tr.trackInst(two)
	tr.trackInst(three)
	for _, test := range tests {
		op := b.AddOp(test.code, intType, two, three)
		tr.trackInst(op)
		c := tr.intConst(op, 0)
		if !c.Valid || c.Val.Int64() != test.want {
			t.Errorf("op %v: intConst=%+v, want %d", test.code, c, test.want)
		}
		if c.FromCaller {
			t.Errorf("op %v: FromCaller=true, want false", test.code)
		}
	}
}

func TestTrackerDivideByZero(t *testing.T) {
	intType := &ir.Type{Name: "Int"}
	m := &ir.Mod{}
	f := m.NewFun("f")
	b := f.NewBBlk()
	two := b.AddIntLit(2)
	zero := b.AddIntLit(0)
	div := b.AddOp(ir.DivideOp, intType, two, zero)
	b.AddRet(div)

	tr := newTracker(f)
	track(tr, f)
	if c := tr.intConst(div, 0); c.Valid {
		t.Errorf("intConst(2/0)=%+v, want invalid", c)
	}
}

// callerCalleePair builds a caller passing a literal to a callee
// and returns the callee tracker chained across the call.
func callerCalleePair(t *testing.T, lit int64) (*ir.Fun, *constTracker) {
	t.Helper()
	intType := &ir.Type{Name: "Int"}
	m := &ir.Mod{}

	callee := m.NewFun("callee")
	p := callee.AddParm("x", intType)
	cb := callee.NewBBlk()
	x := cb.AddArg(p)
	one := cb.AddIntLit(1)
	sum := cb.AddOp(ir.PlusOp, intType, x, one)
	cb.AddRet(sum)

	caller := m.NewFun("caller")
	b := caller.NewBBlk()
	arg := b.AddIntLit(lit)
	ref := b.AddFunRef(callee)
	call := b.AddCall(ref, arg)
	b.AddRet(call)

	callerTr := newTracker(caller)
	track(callerTr, caller)
	calleeTr := newCalleeTracker(callee, callerTr, call)
	track(calleeTr, callee)
	return callee, calleeTr
}

func TestTrackerAcrossCallBoundary(t *testing.T) {
	callee, tr := callerCalleePair(t, 41)

	x := callee.BBlks[0].Stmts[0].(*ir.Arg)
	c := tr.intConst(x, 0)
	if !c.Valid || c.Val.Int64() != 41 {
		t.Fatalf("intConst(arg)=%+v, want valid 41", c)
	}
	if !c.FromCaller {
		t.Errorf("intConst(arg).FromCaller=false, want true")
	}

	sum := callee.BBlks[0].Stmts[2].(*ir.Op)
	c = tr.intConst(sum, 0)
	if !c.Valid || c.Val.Int64() != 42 {
		t.Fatalf("intConst(arg+1)=%+v, want valid 42", c)
	}
	if !c.FromCaller {
		t.Errorf("intConst(arg+1).FromCaller=false, want true")
	}
}

func TestTrackerDefInCaller(t *testing.T) {
	callee, tr := callerCalleePair(t, 1)

	x := callee.BBlks[0].Stmts[0].(*ir.Arg)
	d := tr.defInCaller(x)
	if _, ok := d.(*ir.IntLit); !ok {
		t.Fatalf("defInCaller(arg)=%v, want the caller's literal", d)
	}

	one := callee.BBlks[0].Stmts[1].(*ir.IntLit)
	if d := tr.defInCaller(one); d != nil {
		t.Errorf("defInCaller(callee literal)=%v, want nil", d)
	}
}

func TestTrackerTopLevelArgUnknown(t *testing.T) {
	intType := &ir.Type{Name: "Int"}
	m := &ir.Mod{}
	f := m.NewFun("f")
	p := f.AddParm("x", intType)
	b := f.NewBBlk()
	x := b.AddArg(p)
	b.AddRet(x)

	tr := newTracker(f)
	track(tr, f)
	if d := tr.def(x); d != nil {
		t.Errorf("def(arg) without a call site=%v, want nil", d)
	}
	if c := tr.intConst(x, 0); c.Valid {
		t.Errorf("intConst(arg) without a call site=%+v, want invalid", c)
	}
}

func TestTrackerDepthLimit(t *testing.T) {
	intType := &ir.Type{Name: "Int"}
	m := &ir.Mod{}
	f := m.NewFun("f")
	b := f.NewBBlk()
	v := b.AddIntLit(1)
	cur := ir.Val(v)
	var last *ir.Op
	// A chain of adds deeper than the recursion limit.
	for i := 0; i < constDepthLimit+2; i++ {
		last = b.AddOp(ir.PlusOp, intType, cur, v)
		cur = last
	}
	b.AddRet(cur)

	tr := newTracker(f)
	track(tr, f)
	if c := tr.intConst(last, 0); c.Valid {
		t.Errorf("intConst past the depth limit=%+v, want invalid", c)
	}
	if c := tr.intConst(v, 0); !c.Valid {
		t.Errorf("intConst(literal)=%+v, want valid", c)
	}
}

func TestTrackerBigValues(t *testing.T) {
	intType := &ir.Type{Name: "Int"}
	m := &ir.Mod{}
	f := m.NewFun("f")
	b := f.NewBBlk()
	big1 := b.AddIntLit(1)
	big1.Val = new(big.Int).Lsh(big.NewInt(1), 100)
	two := b.AddIntLit(2)
	prod := b.AddOp(ir.TimesOp, intType, big1, two)
	b.AddRet(prod)

	tr := newTracker(f)
	track(tr, f)
	c := tr.intConst(prod, 0)
	want := new(big.Int).Lsh(big.NewInt(1), 101)
	if !c.Valid || c.Val.Cmp(want) != 0 {
		t.Errorf("intConst(2^100 * 2)=%+v, want 2^101", c)
	}
}
