// Copyright © 2021 The Mir Authors under an MIT-style license.

package ir

type valMap []Val

func makeValMap(n int) valMap {
	return valMap(make([]Val, n))
}

func (s valMap) add(key, val Val) {
	s[key.Num()] = val
}

func (s valMap) get(v Val) Val {
	u := s[v.Num()]
	if u == nil {
		return v
	}
	u = s.get(u)
	s[v.Num()] = u
	return u
}

func subVals(bs []*BBlk, sub valMap) {
	for _, b := range bs {
		for _, s := range b.Stmts {
			s.sub(sub)
		}
	}
}

func (n *Store) sub(sub valMap) {
	sub1(sub, n, &n.Dst)
	sub1(sub, n, &n.Val)
}

func (n *Copy) sub(sub valMap) {
	sub1(sub, n, &n.Dst)
	sub1(sub, n, &n.Src)
}

func (n *Ret) sub(sub valMap) {
	if n.Val != nil {
		sub1(sub, n, &n.Val)
	}
}

func (*Jmp) sub(valMap) {}

func (n *CondBr) sub(sub valMap) {
	sub1(sub, n, &n.Cond)
}

func (n *SwitchVal) sub(sub valMap) {
	sub1(sub, n, &n.Val)
	for i := range n.Cases {
		sub1(sub, n, &n.Cases[i].Val)
	}
}

func (n *SwitchUnion) sub(sub valMap) {
	sub1(sub, n, &n.Val)
}

func (n *CastBr) sub(sub valMap) {
	sub1(sub, n, &n.Val)
}

func (*Unreachable) sub(valMap) {}

func (val) sub(valMap) {}

func (n *Op) sub(sub valMap) {
	for i := range n.Args {
		sub1(sub, n, &n.Args[i])
	}
}

func (n *Load) sub(sub valMap) {
	sub1(sub, n, &n.Src)
}

func (n *Field) sub(sub valMap) {
	sub1(sub, n, &n.Obj)
}

func (n *Extract) sub(sub valMap) {
	sub1(sub, n, &n.Agg)
}

func (n *Tuple) sub(sub valMap) {
	for i := range n.Elems {
		sub1(sub, n, &n.Elems[i])
	}
}

func (n *Union) sub(sub valMap) {
	if n.Arg != nil {
		sub1(sub, n, &n.Arg)
	}
}

func (n *Bitcast) sub(sub valMap) {
	sub1(sub, n, &n.X)
}

func (n *Upcast) sub(sub valMap) {
	sub1(sub, n, &n.X)
}

func (n *MakeClosure) sub(sub valMap) {
	for i := range n.Caps {
		sub1(sub, n, &n.Caps[i])
	}
}

func (n *Call) sub(sub valMap) {
	sub1(sub, n, &n.Callee)
	for i := range n.Args {
		sub1(sub, n, &n.Args[i])
	}
}

func sub1(sub valMap, s Stmt, v *Val) {
	if u := sub.get(*v); *v != u {
		(*v).value().rmUser(s)
		u.value().addUser(s)
		*v = u
	}
}

type bblkMap []*BBlk

func makeBBlkMap(n int) bblkMap {
	return bblkMap(make([]*BBlk, n))
}

func (s bblkMap) add(key, blk *BBlk) {
	s[key.N] = blk
}

func (s bblkMap) get(b *BBlk) *BBlk {
	if b == nil || b.N >= len(s) {
		return b
	}
	u := b
	// Empty blocks jumping in a cycle map to each other;
	// any chain longer than the map has cycled.
	for i := 0; i < len(s); i++ {
		v := s[u.N]
		if v == nil || v == b {
			break
		}
		u = v
	}
	if u != b {
		s[b.N] = u
	}
	return u
}

func subBBlks(bs []*BBlk, sub bblkMap) {
	for _, b := range bs {
		if term := b.Term(); term != nil {
			term.subBBlk(sub)
		}
	}
}

func (*Ret) subBBlk(bblkMap) {}

func (n *Jmp) subBBlk(sub bblkMap) {
	subB(sub, n.Blk(), &n.Dst)
}

func (n *CondBr) subBBlk(sub bblkMap) {
	subB(sub, n.Blk(), &n.Then)
	subB(sub, n.Blk(), &n.Else)
}

func (n *SwitchVal) subBBlk(sub bblkMap) {
	for i := range n.Cases {
		subB(sub, n.Blk(), &n.Cases[i].Dst)
	}
	if n.Default != nil {
		subB(sub, n.Blk(), &n.Default)
	}
}

func (n *SwitchUnion) subBBlk(sub bblkMap) {
	for i := range n.Cases {
		subB(sub, n.Blk(), &n.Cases[i].Dst)
	}
	if n.Default != nil {
		subB(sub, n.Blk(), &n.Default)
	}
}

func (n *CastBr) subBBlk(sub bblkMap) {
	subB(sub, n.Blk(), &n.Yes)
	subB(sub, n.Blk(), &n.No)
}

func (*Unreachable) subBBlk(bblkMap) {}

func subB(sub bblkMap, from *BBlk, b **BBlk) {
	if u := sub.get(*b); *b != u {
		(*b).rmIn(from)
		u.addIn(from)
		*b = u
	}
}
