// Copyright © 2021 The Mir Authors under an MIT-style license.

package ir

import (
	"sort"
)

// CleanUp removes deleted and trivially-dead statements,
// removes empty and unreachable blocks, collapses jump chains,
// and renumbers the function's blocks and values.
func CleanUp(f *Fun) {
	propagateDeletes(f)
	rmDeletes(f)
	rmEmptyBBlks(f)
	collapseChains(f)
	renumber(f)
}

func propagateDeletes(f *Fun) {
	ds := findDeletes(f.BBlks)
	for len(ds) > 0 {
		d := ds[len(ds)-1]
		ds = ds[:len(ds)-1]
		for _, u := range d.Uses() {
			u.value().rmUser(d)
			if !u.deleted() && unused(u) {
				ds = deleteValueAndUsers(ds, u)
			}
		}
	}
}

func findDeletes(bs []*BBlk) []Stmt {
	var ds []Stmt
	for _, b := range bs {
		for _, s := range b.Stmts {
			if s.deleted() {
				if term, ok := s.(Term); ok {
					for _, o := range term.Out() {
						o.rmIn(b)
					}
				}
				ds = append(ds, s)
				continue
			}
			if v, ok := s.(Val); ok && unused(v) {
				ds = deleteValueAndUsers(ds, v)
				continue
			}
			if c, ok := s.(*Copy); ok && c.Src == c.Dst {
				c.delete()
				ds = append(ds, c)
				continue
			}
		}
	}
	return ds
}

func deleteValueAndUsers(ds []Stmt, v Val) []Stmt {
	v.delete()
	ds = append(ds, v)
	for _, u := range v.Users() {
		u.delete()
		ds = append(ds, u)
	}
	return ds
}

func unused(v Val) bool {
	// Calls and terminators are never removed for being unused;
	// they have effects beyond their value.
	switch v.(type) {
	case *Call:
		return false
	case Term:
		return false
	}
	// Initialization of Allocs is not visible outside the function.
	// So they can be removed if their only uses are initializations.
	// Other Vals can only be removed if they have no uses whatsoever.
	alloc, ok := v.(*Alloc)
	if !ok {
		return len(v.Users()) == 0
	}
	for _, u := range alloc.Users() {
		if !u.storesTo(alloc) {
			return false
		}
	}
	return true
}

func rmDeletes(f *Fun) {
	for _, b := range f.BBlks {
		var i int
		for _, s := range b.Stmts {
			if !s.deleted() {
				b.Stmts[i] = s
				i++
			}
		}
		b.Stmts = b.Stmts[:i]
	}
}

func rmEmptyBBlks(f *Fun) {
	sub := makeBBlkMap(len(f.BBlks))
	for _, b := range f.BBlks {
		// A block jumping to itself must not map to itself.
		if len(b.Stmts) == 1 && len(b.Out()) == 1 && b.Out()[0] != b {
			sub.add(b, b.Out()[0])
		}
	}
	subBBlks(f.BBlks, sub)
	var i int
	for _, b := range f.BBlks {
		if i == 0 || len(b.In) > 0 {
			f.BBlks[i] = b
			i++
		} else {
			for _, o := range b.Out() {
				o.rmIn(b)
			}
		}
	}
	f.BBlks = f.BBlks[:i]
}

func collapseChains(f *Fun) {
	var i int
	for _, b := range f.BBlks {
		if b.Stmts == nil || (b.N > 0 && len(b.In) == 0) {
			// This was deleted.
			continue
		}
		for len(b.Out()) == 1 && len(b.Out()[0].In) == 1 && b.Out()[0] != b {
			o := b.Out()[0]
			b.Stmts = append(b.Stmts[:len(b.Stmts)-1], o.Stmts...)
			for _, s := range o.Stmts {
				s.setBlk(b)
			}
			for _, oo := range o.Out() {
				oo.rmIn(o)
				oo.addIn(b)
			}
			// Setting o.Stmts=nil marks it as deleted on the next iteration.
			o.Stmts = nil
			o.In = nil
		}
		f.BBlks[i] = b
		i++
	}
	f.BBlks = f.BBlks[:i]
}

func renumber(f *Fun) {
	var iv int
	for ib, b := range f.BBlks {
		b.N = ib
		for _, s := range b.Stmts {
			if v, ok := s.(Val); ok {
				v.value().n = iv
				iv++
			}
		}
	}
	f.NVals = iv
	for _, b := range f.BBlks {
		sort.Slice(b.In, func(i, j int) bool { return b.In[i].N < b.In[j].N })
	}
}
