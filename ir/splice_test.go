// Copyright © 2021 The Mir Authors under an MIT-style license.

package ir

import (
	"strings"
	"testing"
)

// Test that inlining a call to a value-returning callee
// replaces the call with the callee's body,
// routing the result through a slot in the caller's entry block.
func TestInlineValueReturn(t *testing.T) {
	intType := &Type{Name: "Int"}
	m := &Mod{}

	callee := m.NewFun("add")
	px := callee.AddParm("x", intType)
	py := callee.AddParm("y", intType)
	cb := callee.NewBBlk()
	x := cb.AddArg(px)
	y := cb.AddArg(py)
	sum := cb.AddOp(PlusOp, intType, x, y)
	cb.AddRet(sum)
	calleeStr := callee.String()

	caller := m.NewFun("main")
	b := caller.NewBBlk()
	a := b.AddIntLit(1)
	c := b.AddIntLit(2)
	ref := b.AddFunRef(callee)
	call := b.AddCall(ref, a, c)
	b.AddRet(call)

	if !Inline(call) {
		t.Fatal("Inline(call)=false, want true")
	}
	CleanUp(caller)

	s := caller.String()
	if strings.Contains(s, "call") {
		t.Errorf("caller contains a call:\n%s", s)
	}
	if !strings.Contains(s, "$0 + $1") && !strings.Contains(s, "+") {
		t.Errorf("caller lost the callee's op:\n%s", s)
	}
	if len(caller.BBlks) != 1 {
		t.Errorf("caller has %d blocks, want 1:\n%s", len(caller.BBlks), s)
	}
	// The callee must be untouched.
	if got := callee.String(); got != calleeStr {
		t.Errorf("callee changed:\n%s\nwant:\n%s", got, calleeStr)
	}
}

// Test inlining a callee with control flow:
// its returns all route to the continuation of the split call block.
func TestInlineBranchingCallee(t *testing.T) {
	intType := &Type{Name: "Int"}
	m := &Mod{}

	callee := m.NewFun("pick")
	pc := callee.AddParm("c", intType)
	e := callee.NewBBlk()
	thn := callee.NewBBlk()
	els := callee.NewBBlk()
	cond := e.AddArg(pc)
	e.AddCondBr(cond, thn, els)
	one := thn.AddIntLit(1)
	thn.AddRet(one)
	two := els.AddIntLit(2)
	els.AddRet(two)

	caller := m.NewFun("main")
	b := caller.NewBBlk()
	a := b.AddIntLit(1)
	ref := b.AddFunRef(callee)
	call := b.AddCall(ref, a)
	b.AddRet(call)

	if !Inline(call) {
		t.Fatal("Inline(call)=false, want true")
	}
	CleanUp(caller)

	s := caller.String()
	if strings.Contains(s, "call") {
		t.Errorf("caller contains a call:\n%s", s)
	}
	// Entry, then, else, and the continuation with the load.
	if len(caller.BBlks) != 4 {
		t.Errorf("caller has %d blocks, want 4:\n%s", len(caller.BBlks), s)
	}
	if !strings.Contains(s, "load") {
		t.Errorf("caller has no load of the result slot:\n%s", s)
	}
	last := caller.BBlks[len(caller.BBlks)-1]
	if len(last.In) != 2 {
		t.Errorf("continuation has %d in-edges, want 2:\n%s", len(last.In), s)
	}
}

// Test that a callee without a returned value needs no result slot.
func TestInlineNoValue(t *testing.T) {
	intType := &Type{Name: "Int"}
	m := &Mod{}

	callee := m.NewFun("store7")
	pd := callee.AddParm("dst", intType)
	cb := callee.NewBBlk()
	d := cb.AddArg(pd)
	seven := cb.AddIntLit(7)
	cb.AddStore(d, seven)
	cb.AddRet(nil)

	caller := m.NewFun("main")
	b := caller.NewBBlk()
	slot := b.AddAlloc(intType)
	ref := b.AddFunRef(callee)
	call := b.AddCall(ref, slot)
	loaded := b.AddLoad(slot)
	b.AddRet(loaded)

	if !Inline(call) {
		t.Fatal("Inline(call)=false, want true")
	}
	CleanUp(caller)

	s := caller.String()
	if strings.Contains(s, "call") {
		t.Errorf("caller contains a call:\n%s", s)
	}
	if !strings.Contains(s, "store") {
		t.Errorf("caller lost the callee's store:\n%s", s)
	}
}

func TestInlineRefused(t *testing.T) {
	intType := &Type{Name: "Int"}
	m := &Mod{}

	extern := m.NewFun("extern")

	rec := m.NewFun("rec")
	rb := rec.NewBBlk()
	recRef := rb.AddFunRef(rec)
	selfCall := rb.AddCall(recRef)
	rb.AddRet(nil)

	caller := m.NewFun("main")
	b := caller.NewBBlk()
	ref := b.AddFunRef(extern)
	externCall := b.AddCall(ref)
	slot := b.AddAlloc(intType)
	indirectCall := b.AddCall(slot)
	b.AddRet(nil)

	if Inline(externCall) {
		t.Errorf("Inline of an external callee succeeded")
	}
	if Inline(indirectCall) {
		t.Errorf("Inline of an indirect call succeeded")
	}
	if Inline(selfCall) {
		t.Errorf("Inline of a direct self-call succeeded")
	}
}
