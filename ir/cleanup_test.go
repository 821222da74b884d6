// Copyright © 2021 The Mir Authors under an MIT-style license.

package ir

import (
	"strings"
	"testing"
)

func TestCleanUpUnusedValue(t *testing.T) {
	m := &Mod{}
	f := m.NewFun("f")
	b := f.NewBBlk()
	b.AddIntLit(5)
	keep := b.AddIntLit(7)
	b.AddRet(keep)

	CleanUp(f)
	if len(b.Stmts) != 2 {
		t.Errorf("got %d statements, want 2:\n%s", len(b.Stmts), f)
	}
	if keep.Num() != 0 {
		t.Errorf("keep.Num()=%d, want 0 after renumbering", keep.Num())
	}
	if f.NVals != 1 {
		t.Errorf("f.NVals=%d, want 1", f.NVals)
	}
}

// An alloc whose only uses are initializations is dead,
// and so are the initializations.
func TestCleanUpDeadAlloc(t *testing.T) {
	intType := &Type{Name: "Int"}
	m := &Mod{}
	f := m.NewFun("f")
	b := f.NewBBlk()
	a := b.AddAlloc(intType)
	v := b.AddIntLit(5)
	b.AddStore(a, v)
	b.AddRet(nil)

	CleanUp(f)
	if len(b.Stmts) != 1 {
		t.Errorf("got %d statements, want just the return:\n%s", len(b.Stmts), f)
	}
}

// An alloc that is also loaded stays, with its stores.
func TestCleanUpLiveAlloc(t *testing.T) {
	intType := &Type{Name: "Int"}
	m := &Mod{}
	f := m.NewFun("f")
	b := f.NewBBlk()
	a := b.AddAlloc(intType)
	v := b.AddIntLit(5)
	b.AddStore(a, v)
	l := b.AddLoad(a)
	b.AddRet(l)

	CleanUp(f)
	if len(b.Stmts) != 5 {
		t.Errorf("got %d statements, want 5:\n%s", len(b.Stmts), f)
	}
}

func TestCleanUpSelfCopy(t *testing.T) {
	intType := &Type{Name: "Int"}
	m := &Mod{}
	f := m.NewFun("f")
	b := f.NewBBlk()
	a := b.AddAlloc(intType)
	b.AddCopy(a, a)
	l := b.AddLoad(a)
	b.AddRet(l)

	CleanUp(f)
	if s := f.String(); strings.Contains(s, "copy") {
		t.Errorf("self-copy not removed:\n%s", s)
	}
}

func TestCleanUpCollapseChain(t *testing.T) {
	m := &Mod{}
	f := m.NewFun("f")
	b0 := f.NewBBlk()
	b1 := f.NewBBlk()
	b2 := f.NewBBlk()
	b0.AddJmp(b1)
	b1.AddJmp(b2)
	b2.AddRet(nil)

	CleanUp(f)
	if len(f.BBlks) != 1 {
		t.Errorf("got %d blocks, want 1:\n%s", len(f.BBlks), f)
	}
	if f.BBlks[0].Term() == nil {
		t.Errorf("collapsed block has no terminator:\n%s", f)
	}
}

// A block looping to itself survives cleanup unchanged.
func TestCleanUpSelfLoop(t *testing.T) {
	m := &Mod{}
	f := m.NewFun("f")
	b0 := f.NewBBlk()
	spin := f.NewBBlk()
	done := f.NewBBlk()
	c := b0.AddIntLit(1)
	b0.AddCondBr(c, spin, done)
	spin.AddJmp(spin)
	done.AddRet(nil)

	CleanUp(f)
	if len(f.BBlks) != 3 {
		t.Fatalf("got %d blocks, want 3:\n%s", len(f.BBlks), f)
	}
	if out := spin.Out(); len(out) != 1 || out[0] != spin {
		t.Errorf("self-loop rewired:\n%s", f)
	}
}

// Empty blocks jumping at each other must not hang cleanup.
func TestCleanUpMutualJumpLoop(t *testing.T) {
	m := &Mod{}
	f := m.NewFun("f")
	b0 := f.NewBBlk()
	ping := f.NewBBlk()
	pong := f.NewBBlk()
	b0.AddJmp(ping)
	ping.AddJmp(pong)
	pong.AddJmp(ping)

	CleanUp(f)
	// The entry must still lead into a cycle.
	next := f.BBlks[0].Out()
	if len(next) != 1 {
		t.Fatalf("entry has %d successors, want 1:\n%s", len(next), f)
	}
	if out := next[0].Out(); len(out) != 1 {
		t.Errorf("loop block has %d successors, want 1:\n%s", len(out), f)
	}
}

func TestCleanUpUnreachableBlock(t *testing.T) {
	m := &Mod{}
	f := m.NewFun("f")
	b0 := f.NewBBlk()
	b1 := f.NewBBlk() // never jumped to
	b2 := f.NewBBlk()
	b0.AddJmp(b2)
	b1.AddJmp(b2)
	b2.AddRet(nil)
	// Cut b1 off.
	b1.Stmts[0].delete()

	CleanUp(f)
	for _, b := range f.BBlks {
		if b == b1 {
			t.Errorf("unreachable block kept:\n%s", f)
		}
	}
}

func TestCleanUpDeletedCallCascade(t *testing.T) {
	m := &Mod{}
	callee := m.NewFun("g")
	callee.NewBBlk().AddRet(nil)

	f := m.NewFun("f")
	b := f.NewBBlk()
	arg := b.AddIntLit(3)
	ref := b.AddFunRef(callee)
	call := b.AddCall(ref, arg)
	keep := b.AddIntLit(9)
	b.AddRet(keep)
	call.delete()

	CleanUp(f)
	// The call's operands become unused and go with it.
	if s := f.String(); strings.Contains(s, "&function") {
		t.Errorf("dead function reference kept:\n%s", s)
	}
	if len(b.Stmts) != 2 {
		t.Errorf("got %d statements, want 2:\n%s", len(b.Stmts), f)
	}
}
