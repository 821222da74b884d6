// Copyright © 2021 The Mir Authors under an MIT-style license.

package analysis

import (
	"testing"

	"github.com/eaburns/mir/ir"
	"github.com/stretchr/testify/assert"
)

func TestLoopsNone(t *testing.T) {
	m := &ir.Mod{}
	f := m.NewFun("straight")
	b0 := f.NewBBlk()
	b1 := f.NewBBlk()
	b0.AddJmp(b1)
	b1.AddRet(nil)

	li := Loops(Dominators(f))
	assert.Equal(t, 0, li.Depth(b0))
	assert.Equal(t, 0, li.Depth(b1))
}

func TestLoopsSimple(t *testing.T) {
	m := &ir.Mod{}
	f := m.NewFun("loop")
	b0 := f.NewBBlk()
	head := f.NewBBlk()
	body := f.NewBBlk()
	exit := f.NewBBlk()
	b0.AddJmp(head)
	c := head.AddIntLit(1)
	head.AddCondBr(c, body, exit)
	body.AddJmp(head)
	exit.AddRet(nil)

	li := Loops(Dominators(f))
	assert.Equal(t, 0, li.Depth(b0))
	assert.Equal(t, 1, li.Depth(head))
	assert.Equal(t, 1, li.Depth(body))
	assert.Equal(t, 0, li.Depth(exit))
}

func TestLoopsNested(t *testing.T) {
	m := &ir.Mod{}
	f := m.NewFun("nested")
	b0 := f.NewBBlk()
	outer := f.NewBBlk()
	inner := f.NewBBlk()
	latch := f.NewBBlk()
	exit := f.NewBBlk()
	b0.AddJmp(outer)
	outer.AddJmp(inner)
	c1 := inner.AddIntLit(1)
	inner.AddCondBr(c1, inner, latch)
	c2 := latch.AddIntLit(1)
	latch.AddCondBr(c2, outer, exit)
	exit.AddRet(nil)

	li := Loops(Dominators(f))
	assert.Equal(t, 0, li.Depth(b0))
	assert.Equal(t, 1, li.Depth(outer))
	assert.Equal(t, 2, li.Depth(inner))
	assert.Equal(t, 1, li.Depth(latch))
	assert.Equal(t, 0, li.Depth(exit))
}
