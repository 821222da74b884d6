// Copyright © 2021 The Mir Authors under an MIT-style license.

package inline

import (
	"math/big"

	"github.com/eaburns/mir/ir"
)

// constDepthLimit bounds the recursion of intConst
// so constant estimation stays cheap.
const constDepthLimit = 10

// An IntConst is the result of estimating a value as an integer constant.
type IntConst struct {
	// Val is the estimated value; nil unless Valid.
	Val *big.Int
	// Valid reports whether the value could be estimated at all.
	Valid bool
	// FromCaller reports that the value is constant
	// only because the caller supplies a constant argument.
	// False means constant propagation could fold it
	// inside the callee without inlining.
	FromCaller bool
}

// A constTracker estimates which values become constant
// if a callee is inlined.
// It simulates scalar replacement, load forwarding,
// and constant propagation in a simplified way:
// it ignores aliasing, so it can miss constants
// but never reports a wrong one in a way that affects correctness,
// since the estimate only steers profitability.
//
// A callee's tracker chains to its caller's tracker
// through the call site under analysis,
// so values can be traced across the call boundary.
type constTracker struct {
	// links maps a Load or Copy to the Store or Copy
	// that stored the loaded value.
	links map[ir.Stmt]ir.Stmt

	// mem maps a base address, with projections stripped,
	// to the Store or Copy holding its current value.
	// It is cleared at each block boundary
	// since the simulation does no real dataflow analysis.
	mem map[ir.Val]ir.Stmt

	// cache holds evaluated built-in operations.
	cache map[*ir.Op]IntConst

	fun *ir.Fun

	// caller and call are the caller's tracker and the call site
	// under analysis; both nil for a top-level tracker.
	caller *constTracker
	call   *ir.Call
}

// newTracker returns a tracker for a top-level caller function.
func newTracker(f *ir.Fun) *constTracker {
	return &constTracker{
		links: make(map[ir.Stmt]ir.Stmt),
		mem:   make(map[ir.Val]ir.Stmt),
		cache: make(map[*ir.Op]IntConst),
		fun:   f,
	}
}

// newCalleeTracker returns a tracker for the callee of call,
// chained to the caller's tracker.
func newCalleeTracker(f *ir.Fun, caller *constTracker, call *ir.Call) *constTracker {
	t := newTracker(f)
	t.caller = caller
	t.call = call
	return t
}

// beginBlock must be called when the walk enters a new block.
func (t *constTracker) beginBlock() {
	for k := range t.mem {
		delete(t.mem, k)
	}
}

// trackInst must be called for each instruction visited in dominance order.
func (t *constTracker) trackInst(s ir.Stmt) {
	switch s := s.(type) {
	case *ir.Load:
		base := t.scanProjs(s.Src, nil)
		if link := t.memContent(base); link != nil {
			t.links[s] = link
		}
	case *ir.Store:
		base := t.scanProjs(s.Dst, nil)
		t.mem[base] = s
	case *ir.Copy:
		// A copy acts as a load fused with a store.
		loadAddr := t.scanProjs(s.Src, nil)
		if link := t.memContent(loadAddr); link != nil {
			t.links[s] = link
			storeAddr := t.scanProjs(s.Dst, nil)
			t.mem[storeAddr] = s
		}
	}
}

// param continues a function argument at the call site in the caller.
func (t *constTracker) param(v ir.Val) ir.Val {
	if arg, ok := v.(*ir.Arg); ok && t.call != nil && arg.Blk().Fun == t.fun {
		return t.call.Args[arg.Parm.N]
	}
	return nil
}

// scanProjs strips a chain of address projections,
// optionally collecting their indices,
// and returns the base address.
// An address that traces to a function parameter
// continues at the caller's argument.
func (t *constTracker) scanProjs(addr ir.Val, projs *[]int) ir.Val {
	for {
		if f, ok := addr.(*ir.Field); ok {
			if projs != nil {
				*projs = append(*projs, f.Index)
			}
			addr = f.Obj
			continue
		}
		if p := t.param(addr); p != nil {
			addr = p
			continue
		}
		return addr
	}
}

// memContent returns the instruction holding the current value at addr,
// consulting the caller's tracker if this one has no record.
func (t *constTracker) memContent(addr ir.Val) ir.Stmt {
	if s := t.mem[addr]; s != nil {
		return s
	}
	if t.caller != nil {
		return t.caller.memContent(addr)
	}
	return nil
}

// storedValue returns the value stored by the instruction
// linked to the given Load or Copy, or nil if there is none
// or its projections do not match the pending ones on stack.
func (t *constTracker) storedValue(load ir.Stmt, stack *[]int) ir.Val {
	store := t.links[load]
	if store == nil && t.caller != nil {
		store = t.caller.links[load]
	}
	if store == nil {
		return nil
	}

	var loadAddr ir.Val
	switch load := load.(type) {
	case *ir.Load:
		loadAddr = load.Src
	case *ir.Copy:
		loadAddr = load.Src
	default:
		panic("impossible")
	}
	var loadProjs []int
	t.scanProjs(loadAddr, &loadProjs)
	*stack = append(*stack, loadProjs...)

	var storeAddr ir.Val
	switch store := store.(type) {
	case *ir.Store:
		storeAddr = store.Dst
	case *ir.Copy:
		storeAddr = store.Dst
	default:
		panic("impossible")
	}
	var storeProjs []int
	t.scanProjs(storeAddr, &storeProjs)
	for i := len(storeProjs) - 1; i >= 0; i-- {
		// Each store projection must match the pending load projection.
		if len(*stack) == 0 || (*stack)[len(*stack)-1] != storeProjs[i] {
			return nil
		}
		*stack = (*stack)[:len(*stack)-1]
	}

	if s, ok := store.(*ir.Store); ok {
		return s.Val
	}
	// A copy is both a load and a store, so follow its link again.
	return t.storedValue(store, stack)
}

// member is the inverse of a projection:
// the element of an aggregate construction
// selected by the pending projection on top of stack.
func member(v ir.Val, stack []int) ir.Val {
	if len(stack) == 0 {
		return nil
	}
	top := stack[len(stack)-1]
	switch v := v.(type) {
	case *ir.Tuple:
		if top < len(v.Elems) {
			return v.Elems[top]
		}
	case *ir.Union:
		if v.Case == top {
			return v.Arg
		}
	}
	return nil
}

// def returns the estimated defining instruction of v,
// tracing through extractions, constructions, forwarded loads,
// trivial casts, and the parameter-to-argument substitution
// at the call site; nil if the trace dead-ends.
func (t *constTracker) def(v ir.Val) ir.Val {
	var stack []int
	return t.getDef(v, &stack)
}

// defInCaller returns the estimated definition of v
// only if that definition is in the caller, and nil otherwise.
func (t *constTracker) defInCaller(v ir.Val) ir.Val {
	d := t.def(v)
	if d != nil && d.Blk().Fun != t.fun {
		return d
	}
	return nil
}

func (t *constTracker) getDef(v ir.Val, stack *[]int) ir.Val {
	for {
		switch inst := v.(type) {
		case *ir.Extract:
			*stack = append(*stack, inst.Index)
			v = inst.Agg
			continue
		case *ir.Bitcast:
			v = inst.X
			continue
		case *ir.Arg:
			if p := t.param(inst); p != nil {
				v = p
				continue
			}
			return nil
		}
		if m := member(v, *stack); m != nil {
			*stack = (*stack)[:len(*stack)-1]
			v = m
			continue
		}
		if load, ok := v.(*ir.Load); ok {
			if stored := t.storedValue(load, stack); stored != nil {
				v = stored
				continue
			}
		}
		return v
	}
}

// intConst estimates v as an integer constant.
// depth limits the recursion; callers pass 0.
func (t *constTracker) intConst(v ir.Val, depth int) IntConst {
	if depth >= constDepthLimit {
		return IntConst{}
	}
	d := t.def(v)
	if d == nil {
		return IntConst{}
	}
	switch d := d.(type) {
	case *ir.IntLit:
		return IntConst{Val: d.Val, Valid: true, FromCaller: d.Blk().Fun != t.fun}
	case *ir.Op:
		if c, ok := t.cache[d]; ok {
			return c
		}
		c := t.opConst(d, depth+1)
		t.cache[d] = c
		return c
	}
	return IntConst{}
}

// opConst folds a built-in operation whose operands are estimated constants.
func (t *constTracker) opConst(op *ir.Op, depth int) IntConst {
	switch op.Code {
	case ir.EqOp, ir.NeqOp, ir.LessOp, ir.LessEqOp, ir.GreaterOp, ir.GreaterEqOp:
		lhs, rhs := t.intConst(op.Args[0], depth), t.intConst(op.Args[1], depth)
		if lhs.Valid && rhs.Valid {
			return result(foldCmp(op.Code, lhs.Val, rhs.Val), lhs, rhs)
		}

	case ir.PlusOp, ir.MinusOp, ir.TimesOp:
		lhs, rhs := t.intConst(op.Args[0], depth), t.intConst(op.Args[1], depth)
		if lhs.Valid && rhs.Valid {
			return result(foldArith(op.Code, lhs.Val, rhs.Val), lhs, rhs)
		}

	case ir.DivideOp, ir.ModOp:
		lhs, rhs := t.intConst(op.Args[0], depth), t.intConst(op.Args[1], depth)
		if lhs.Valid && rhs.Valid && rhs.Val.Sign() != 0 {
			return result(foldArith(op.Code, lhs.Val, rhs.Val), lhs, rhs)
		}

	case ir.BitwiseAndOp, ir.BitwiseOrOp, ir.BitwiseXorOp,
		ir.LeftShiftOp, ir.RightShiftOp:
		lhs, rhs := t.intConst(op.Args[0], depth), t.intConst(op.Args[1], depth)
		if lhs.Valid && rhs.Valid {
			if v := foldBits(op.Code, lhs.Val, rhs.Val); v != nil {
				return result(v, lhs, rhs)
			}
		}

	case ir.NegOp:
		v := t.intConst(op.Args[0], depth)
		if v.Valid {
			return IntConst{
				Val:        new(big.Int).Neg(v.Val),
				Valid:      true,
				FromCaller: v.FromCaller,
			}
		}

	case ir.NumConvertOp:
		// Without bit widths a conversion is the identity.
		return t.intConst(op.Args[0], depth)
	}
	return IntConst{}
}

func result(v *big.Int, lhs, rhs IntConst) IntConst {
	return IntConst{Val: v, Valid: true, FromCaller: lhs.FromCaller || rhs.FromCaller}
}

func foldCmp(code ir.OpCode, lhs, rhs *big.Int) *big.Int {
	c := lhs.Cmp(rhs)
	var b bool
	switch code {
	case ir.EqOp:
		b = c == 0
	case ir.NeqOp:
		b = c != 0
	case ir.LessOp:
		b = c < 0
	case ir.LessEqOp:
		b = c <= 0
	case ir.GreaterOp:
		b = c > 0
	case ir.GreaterEqOp:
		b = c >= 0
	default:
		panic("impossible")
	}
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}

func foldArith(code ir.OpCode, lhs, rhs *big.Int) *big.Int {
	z := new(big.Int)
	switch code {
	case ir.PlusOp:
		return z.Add(lhs, rhs)
	case ir.MinusOp:
		return z.Sub(lhs, rhs)
	case ir.TimesOp:
		return z.Mul(lhs, rhs)
	case ir.DivideOp:
		return z.Quo(lhs, rhs)
	case ir.ModOp:
		return z.Rem(lhs, rhs)
	}
	panic("impossible")
}

// foldBits folds a bitwise operation,
// or returns nil for a shift count too large to bother with.
func foldBits(code ir.OpCode, lhs, rhs *big.Int) *big.Int {
	z := new(big.Int)
	switch code {
	case ir.BitwiseAndOp:
		return z.And(lhs, rhs)
	case ir.BitwiseOrOp:
		return z.Or(lhs, rhs)
	case ir.BitwiseXorOp:
		return z.Xor(lhs, rhs)
	case ir.LeftShiftOp, ir.RightShiftOp:
		if !rhs.IsUint64() || rhs.Uint64() > 1<<16 {
			return nil
		}
		n := uint(rhs.Uint64())
		if code == ir.LeftShiftOp {
			return z.Lsh(lhs, n)
		}
		return z.Rsh(lhs, n)
	}
	panic("impossible")
}
