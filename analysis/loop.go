// Copyright © 2021 The Mir Authors under an MIT-style license.

package analysis

import (
	"github.com/eaburns/mir/ir"
)

// A LoopInfo gives the natural-loop nesting depth of each block
// of a function's control-flow graph.
type LoopInfo struct {
	fun   *ir.Fun
	depth []int
}

// Loops computes loop nesting depths from t's control-flow graph.
//
// A back edge is an edge from a block to a dominator of that block.
// The natural loop of a back edge b→h is h together with
// every block that reaches b without passing through h.
// A block's depth is the number of distinct loop headers
// whose natural loop contains it.
func Loops(t *DomTree) *LoopInfo {
	f := t.fun
	li := &LoopInfo{fun: f, depth: make([]int, len(f.BBlks))}

	// All back-edge tails per header.
	tails := make(map[*ir.BBlk][]*ir.BBlk)
	for _, b := range f.BBlks {
		for _, h := range b.Out() {
			if t.Dominates(h, b) {
				tails[h] = append(tails[h], b)
			}
		}
	}

	body := make([]bool, len(f.BBlks))
	for _, h := range f.BBlks {
		if len(tails[h]) == 0 {
			continue
		}
		for i := range body {
			body[i] = false
		}
		loopBody(h, tails[h], body)
		for i, in := range body {
			if in {
				li.depth[i]++
			}
		}
	}
	return li
}

// loopBody marks the natural loop of header's back edges in body:
// header plus all blocks reaching a back-edge tail
// without passing through header.
func loopBody(header *ir.BBlk, tails []*ir.BBlk, body []bool) {
	body[header.N] = true
	var stack []*ir.BBlk
	for _, tail := range tails {
		if !body[tail.N] {
			body[tail.N] = true
			stack = append(stack, tail)
		}
	}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range b.In {
			if !body[p.N] {
				body[p.N] = true
				stack = append(stack, p)
			}
		}
	}
}

// Depth returns the loop nesting depth of b.
// Blocks outside all loops have depth 0.
func (li *LoopInfo) Depth(b *ir.BBlk) int { return li.depth[b.N] }
