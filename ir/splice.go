// Copyright © 2021 The Mir Authors under an MIT-style license.

package ir

// Inline splices the body of the direct callee of call
// into the calling function in place of the call,
// and reports whether the call was inlined.
// On a false return the caller is unchanged.
//
// Whether inlining the call is legal and profitable
// is decided elsewhere; Inline only refuses calls
// it cannot splice at all:
// an indirect callee, a bodiless callee, or a direct self-call.
func Inline(call *Call) bool {
	callee := call.Fun()
	caller := call.Blk().Fun
	if callee == nil || callee.ExternalDecl() || callee == caller {
		return false
	}
	b := call.Blk()
	j := -1
	for i, s := range b.Stmts {
		if s == call {
			j = i
			break
		}
	}
	if j < 0 || call.deleted() {
		return false
	}

	call.delete()
	b0, b1 := splitBBlk(b, j)
	bs, load := copyForInline(callee, caller, b1, call.Args)
	moveAllocs(caller.BBlks[0], bs[0])
	b0.AddJmp(bs[0])

	if load != nil {
		load.setBlk(b1)
		b1.Stmts = append([]Stmt{load}, b1.Stmts...)
	}

	n := blockIndex(caller, b0)
	bblks := make([]*BBlk, 0, len(caller.BBlks)+len(bs)+1)
	bblks = append(bblks, caller.BBlks[:n+1]...)
	bblks = append(bblks, bs...)
	bblks = append(bblks, b1)
	bblks = append(bblks, caller.BBlks[n+1:]...)
	caller.BBlks = bblks
	for i, blk := range caller.BBlks {
		blk.N = i
	}

	if load != nil {
		sub := makeValMap(caller.NVals)
		sub.add(call, load)
		subVals(caller.BBlks, sub)
	}
	return true
}

func blockIndex(f *Fun, b *BBlk) int {
	for i, o := range f.BBlks {
		if o == b {
			return i
		}
	}
	panic("impossible")
}

// splitBBlk splits BBlk at statement i and returns the two halves.
// This modifies the input *BBlk, and returns it as the first return value.
func splitBBlk(b0 *BBlk, i int) (*BBlk, *BBlk) {
	b1 := &BBlk{N: b0.N, Fun: b0.Fun}
	for _, o := range b0.Out() {
		o.rmIn(b0)
		o.addIn(b1)
	}
	b1.Stmts = b0.Stmts[i:]
	b0.Stmts = b0.Stmts[:i:i]
	for _, s := range b1.Stmts {
		s.setBlk(b1)
	}
	return b0, b1
}

// copyForInline returns a copy of the src.BBlks to be inlined into dst,
// and, if src returns a value, a load of the result slot
// for the caller to substitute for the call's result.
//
// The returned BBlks and their Vals are all fully, internally linked.
//
// Returns are converted to stores to an allocated result slot
// followed by Jmps to bRet.
// The result slot Alloc is placed at the head of the first returned block
// so that moveAllocs can hoist it to the caller's entry.
//
// Args(i) are substituted with the corresponding args[i] Val.
//
// copyForInline assumes that the src Fun
// BBlks and their Vals are numbered sequentially from 0.
func copyForInline(src, dst *Fun, bRet *BBlk, args []Val) ([]*BBlk, *Load) {
	bblks := copyBBlks(src.BBlks, src.NVals, dst)
	// One extra slot for the result slot Alloc added below.
	valMap := makeValMap(src.NVals + dst.NVals + 1)

	var res *Alloc
	if returnsVal(src) {
		res = &Alloc{}
		res.setBlk(bblks[0])
		bblks[0].Stmts = append([]Stmt{res}, bblks[0].Stmts...)
	}

	n := dst.NVals
	for _, b := range bblks {
		for i, s := range b.Stmts {
			switch s := s.(type) {
			case *Ret:
				if i != len(b.Stmts)-1 {
					// Deleted Stmts are not copied by copyBBlks,
					// and it is impossible for a non-deleted
					// Ret to be in a position other than final.
					panic("impossible")
				}
				s.delete()
				if res != nil && s.Val != nil {
					st := &Store{Dst: res, Val: s.Val}
					st.setBlk(b)
					res.addUser(st)
					s.Val.value().addUser(st)
					b.Stmts = append(b.Stmts, st)
				}
				jmp := &Jmp{Dst: bRet}
				jmp.setBlk(b)
				bRet.addIn(b)
				b.Stmts = append(b.Stmts, jmp)
			case *Arg:
				s.value().n = n
				n++
				s.delete()
				valMap.add(s, args[s.Parm.N])
			case Val:
				s.value().n = n
				n++
			}
		}
	}
	dst.NVals = n
	subVals(bblks, valMap)

	var load *Load
	if res != nil {
		load = &Load{Src: res}
		load.n = dst.NVals
		dst.NVals++
		res.addUser(load)
	}
	return bblks, load
}

func returnsVal(f *Fun) bool {
	for _, b := range f.BBlks {
		for _, s := range b.Stmts {
			if r, ok := s.(*Ret); ok && !r.deleted() && r.Val != nil {
				return true
			}
		}
	}
	return false
}

// moveAllocs moves the Allocs of src to dst,
// before dst's terminator if it has one.
func moveAllocs(dst, src *BBlk) {
	var term Stmt
	if t := dst.Term(); t != nil {
		term = t
		dst.Stmts = dst.Stmts[:len(dst.Stmts)-1]
	}
	var i int
	for _, s := range src.Stmts {
		if alloc, ok := s.(*Alloc); ok {
			alloc.setBlk(dst)
			dst.Stmts = append(dst.Stmts, alloc)
		} else {
			src.Stmts[i] = s
			i++
		}
	}
	src.Stmts = src.Stmts[:i]
	if term != nil {
		dst.Stmts = append(dst.Stmts, term)
	}
}

// copyBBlks returns a copy of the basic blocks owned by fun.
// The returned blocks and their values are all
// properly, internally linked.
// Deleted statements are not copied.
// The numbers of the returned blocks
// begin sequentially from len(bs0).
// The numbers of the values in the returned blocks
// begin sequentially from nval.
//
// copyBBlks assumes that the input BBlks
// and their Vals are numbered sequentially from 0.
func copyBBlks(bs0 []*BBlk, nval int, fun *Fun) []*BBlk {
	bs1 := make([]*BBlk, len(bs0))
	bblkMap := makeBBlkMap(2 * len(bs0))
	valMap := makeValMap(2 * nval)
	for i, b0 := range bs0 {
		b1 := &BBlk{N: b0.N + len(bs0), Fun: fun}
		b1.Stmts = make([]Stmt, 0, len(b0.Stmts))
		for _, s0 := range b0.Stmts {
			if s0.deleted() {
				continue
			}
			s1 := s0.shallowCopy()
			s1.setBlk(b1)
			b1.Stmts = append(b1.Stmts, s1)
			if v, ok := s1.(Val); ok {
				// A following subVals will fix users.
				v.value().users = nil
				v.value().n = nval
				nval++
				valMap.add(s0.(Val), v)
			}
		}
		bs1[i] = b1
		bblkMap.add(b0, b1)
	}
	subVals(bs1, valMap)
	for _, b1 := range bs1 {
		term := b1.Stmts[len(b1.Stmts)-1].(Term)
		term.subBBlk(bblkMap)
		for _, o := range term.Out() {
			o.addIn(b1)
		}
	}
	return bs1
}

func (n Store) shallowCopy() Stmt { return &n }
func (n Copy) shallowCopy() Stmt  { return &n }
func (n Ret) shallowCopy() Stmt   { return &n }
func (n Jmp) shallowCopy() Stmt   { return &n }

func (n CondBr) shallowCopy() Stmt { return &n }

func (n SwitchVal) shallowCopy() Stmt {
	n.Cases = append([]ValCase{}, n.Cases...)
	return &n
}

func (n SwitchUnion) shallowCopy() Stmt {
	n.Cases = append([]UnionCase{}, n.Cases...)
	return &n
}

func (n CastBr) shallowCopy() Stmt      { return &n }
func (n Unreachable) shallowCopy() Stmt { return &n }
func (n IntLit) shallowCopy() Stmt      { return &n }

func (n Op) shallowCopy() Stmt {
	n.Args = append([]Val{}, n.Args...)
	return &n
}

func (n Load) shallowCopy() Stmt    { return &n }
func (n Alloc) shallowCopy() Stmt   { return &n }
func (n Arg) shallowCopy() Stmt     { return &n }
func (n Field) shallowCopy() Stmt   { return &n }
func (n Extract) shallowCopy() Stmt { return &n }

func (n Tuple) shallowCopy() Stmt {
	n.Elems = append([]Val{}, n.Elems...)
	return &n
}

func (n Union) shallowCopy() Stmt  { return &n }
func (n FunRef) shallowCopy() Stmt { return &n }

func (n MakeClosure) shallowCopy() Stmt {
	n.Caps = append([]Val{}, n.Caps...)
	return &n
}

func (n Bitcast) shallowCopy() Stmt { return &n }
func (n Upcast) shallowCopy() Stmt  { return &n }

func (n Call) shallowCopy() Stmt {
	n.Args = append([]Val{}, n.Args...)
	return &n
}
