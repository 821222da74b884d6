// Copyright © 2021 The Mir Authors under an MIT-style license.

// Package analysis has read-only analyses over the ir control-flow graph:
// dominator trees, natural-loop depths, and cold-path classification.
// Analyses never mutate the ir;
// a Cache invalidates them when a pass mutates a function.
package analysis

import (
	"github.com/eaburns/mir/ir"
)

// A DomTree is the dominator tree of a function's control-flow graph.
//
// The tree answers Dominates queries in constant time
// using pre- and post-order numbers of a depth-first walk of the tree.
// Blocks unreachable from the entry block are not in the tree;
// they dominate nothing and are dominated by nothing.
type DomTree struct {
	fun      *ir.Fun
	idom     []*ir.BBlk
	children [][]*ir.BBlk
	pre      []int32
	post     []int32
	// in is true for blocks reachable from the entry.
	in []bool
}

// Dominators builds the dominator tree of f's control-flow graph.
//
// It uses the iterative algorithm of Cooper, Harvey, and Kennedy,
// "A Simple, Fast Dominance Algorithm",
// intersecting predecessor dominators in reverse postorder to a fixed point.
//
// Dominators assumes f's BBlks are numbered sequentially from 0.
func Dominators(f *ir.Fun) *DomTree {
	n := len(f.BBlks)
	t := &DomTree{
		fun:      f,
		idom:     make([]*ir.BBlk, n),
		children: make([][]*ir.BBlk, n),
		pre:      make([]int32, n),
		post:     make([]int32, n),
		in:       make([]bool, n),
	}
	if n == 0 {
		return t
	}

	rpo, rpoNum := postorder(f)
	for i, j := 0, len(rpo)-1; i < j; i, j = i+1, j-1 {
		rpo[i], rpo[j] = rpo[j], rpo[i]
	}
	for _, b := range rpo {
		t.in[b.N] = true
	}

	entry := f.BBlks[0]
	t.idom[entry.N] = entry
	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			var idom *ir.BBlk
			for _, p := range b.In {
				if !t.in[p.N] || t.idom[p.N] == nil {
					continue
				}
				if idom == nil {
					idom = p
				} else {
					idom = t.intersect(idom, p, rpoNum)
				}
			}
			if idom != nil && t.idom[b.N] != idom {
				t.idom[b.N] = idom
				changed = true
			}
		}
	}

	t.idom[entry.N] = nil
	for _, b := range rpo[1:] {
		if id := t.idom[b.N]; id != nil {
			t.children[id.N] = append(t.children[id.N], b)
		}
	}
	t.number(entry, 0, 0)
	return t
}

func (t *DomTree) intersect(b, c *ir.BBlk, rpoNum []int32) *ir.BBlk {
	for b != c {
		for rpoNum[b.N] > rpoNum[c.N] {
			b = t.idom[b.N]
		}
		for rpoNum[c.N] > rpoNum[b.N] {
			c = t.idom[c.N]
		}
	}
	return b
}

func (t *DomTree) number(b *ir.BBlk, pre, post int32) (int32, int32) {
	t.pre[b.N] = pre
	pre++
	for _, c := range t.children[b.N] {
		pre, post = t.number(c, pre, post)
	}
	t.post[b.N] = post
	post++
	return pre, post
}

// postorder returns f's reachable blocks in postorder
// and, indexed by block number, each block's reverse-postorder number.
func postorder(f *ir.Fun) ([]*ir.BBlk, []int32) {
	var order []*ir.BBlk
	seen := make([]bool, len(f.BBlks))
	var walk func(b *ir.BBlk)
	walk = func(b *ir.BBlk) {
		seen[b.N] = true
		for _, o := range b.Out() {
			if !seen[o.N] {
				walk(o)
			}
		}
		order = append(order, b)
	}
	walk(f.BBlks[0])
	rpoNum := make([]int32, len(f.BBlks))
	for i, b := range order {
		rpoNum[b.N] = int32(len(order) - 1 - i)
	}
	return order, rpoNum
}

// Fun returns the function the tree was built from.
func (t *DomTree) Fun() *ir.Fun { return t.fun }

// Idom returns the block that immediately dominates b,
// or nil for the entry block and for unreachable blocks.
func (t *DomTree) Idom(b *ir.BBlk) *ir.BBlk { return t.idom[b.N] }

// Children returns the blocks immediately dominated by b.
func (t *DomTree) Children(b *ir.BBlk) []*ir.BBlk { return t.children[b.N] }

// Dominates returns whether b dominates c.
// A block dominates itself.
func (t *DomTree) Dominates(b, c *ir.BBlk) bool {
	if !t.in[b.N] || !t.in[c.N] {
		return false
	}
	return t.pre[b.N] <= t.pre[c.N] && t.post[c.N] <= t.post[b.N]
}

// A DomOrder walks a dominator tree top-down under caller control:
// a block's children are visited only if the caller pushes them,
// so entire dominated subtrees can be pruned from the walk.
type DomOrder struct {
	tree  *DomTree
	stack []*ir.BBlk
}

// NewDomOrder returns a walk of t seeded with the function's entry block.
func NewDomOrder(t *DomTree) *DomOrder {
	if len(t.fun.BBlks) == 0 {
		return &DomOrder{tree: t}
	}
	return NewDomOrderAt(t, t.fun.BBlks[0])
}

// NewDomOrderAt returns a walk of the subtree of t rooted at root.
func NewDomOrderAt(t *DomTree, root *ir.BBlk) *DomOrder {
	return &DomOrder{tree: t, stack: []*ir.BBlk{root}}
}

// Next returns the next block of the walk, or nil when the walk is done.
func (o *DomOrder) Next() *ir.BBlk {
	if len(o.stack) == 0 {
		return nil
	}
	b := o.stack[len(o.stack)-1]
	o.stack = o.stack[:len(o.stack)-1]
	return b
}

// PushChildren schedules all of b's dominator-tree children for the walk.
func (o *DomOrder) PushChildren(b *ir.BBlk) {
	o.stack = append(o.stack, o.tree.Children(b)...)
}

// PushChildrenIf schedules the dominator-tree children of b
// for which pred returns true.
func (o *DomOrder) PushChildrenIf(b *ir.BBlk, pred func(*ir.BBlk) bool) {
	for _, c := range o.tree.Children(b) {
		if pred(c) {
			o.stack = append(o.stack, c)
		}
	}
}
