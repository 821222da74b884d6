// Copyright © 2021 The Mir Authors under an MIT-style license.

package analysis

import (
	"github.com/eaburns/mir/ir"
)

// A Cache lazily builds and memoizes per-function analyses.
// A pass that mutates a function must Invalidate it
// before reading its analyses again.
//
// A Cache is not safe for concurrent use.
type Cache struct {
	doms  map[*ir.Fun]*DomTree
	loops map[*ir.Fun]*LoopInfo
}

// NewCache returns an empty analysis cache.
func NewCache() *Cache {
	return &Cache{
		doms:  make(map[*ir.Fun]*DomTree),
		loops: make(map[*ir.Fun]*LoopInfo),
	}
}

// Dominators returns the cached dominator tree of f, building it if needed.
func (c *Cache) Dominators(f *ir.Fun) *DomTree {
	t, ok := c.doms[f]
	if !ok {
		t = Dominators(f)
		c.doms[f] = t
	}
	return t
}

// Loops returns the cached loop info of f, building it if needed.
func (c *Cache) Loops(f *ir.Fun) *LoopInfo {
	li, ok := c.loops[f]
	if !ok {
		li = Loops(c.Dominators(f))
		c.loops[f] = li
	}
	return li
}

// Invalidate drops the cached analyses of f.
func (c *Cache) Invalidate(f *ir.Fun) {
	delete(c.doms, f)
	delete(c.loops, f)
}
