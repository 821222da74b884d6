// Copyright © 2021 The Mir Authors under an MIT-style license.

package inline

import (
	"github.com/eaburns/mir/analysis"
	"github.com/eaburns/mir/ir"
)

// An Inliner inlines profitable direct calls into functions.
// It collects all candidates of a caller before mutating it,
// so the analyses stay valid throughout a collection pass.
type Inliner struct {
	cfg   Config
	cache *analysis.Cache

	// NumInlined counts calls inlined over the Inliner's lifetime.
	NumInlined int
}

// New returns an Inliner with the given tuning,
// reading and invalidating analyses through cache.
func New(cfg Config, cache *analysis.Cache) *Inliner {
	return &Inliner{cfg: cfg.withDefaults(), cache: cache}
}

// maxRounds bounds re-running the pass on one function
// after it mutated, in case mutually recursive callees
// keep exposing new call sites.
const maxRounds = 10

// Optimize inlines profitable calls into every function of m
// and returns the number of calls inlined.
// A function that was mutated has its analyses invalidated
// and is re-examined, since inlining one call
// often exposes further profitable calls.
func Optimize(m *ir.Mod, cfg Config) int {
	cfg = cfg.withDefaults()
	if cfg.Threshold == 0 {
		return 0
	}
	cache := analysis.NewCache()
	in := New(cfg, cache)
	for _, f := range m.Funs {
		if !f.ShouldOptimize() {
			continue
		}
		for i := 0; i < maxRounds && in.InlineCallsInto(f); i++ {
			cache.Invalidate(f)
		}
	}
	return in.NumInlined
}

// InlineCallsInto collects the profitable call sites of caller,
// inlines them, and returns whether anything was inlined.
func (in *Inliner) InlineCallsInto(caller *ir.Fun) bool {
	if !caller.ShouldOptimize() {
		return false
	}

	// Collect before changing anything
	// so the dominance information remains valid.
	return in.inlineCalls(caller, in.collectCalls(caller))
}

// inlineCalls splices the collected candidates into caller,
// skipping any whose callee can no longer be optimized,
// and returns whether anything was inlined.
func (in *Inliner) inlineCalls(caller *ir.Fun, calls []*ir.Call) bool {
	inlined := false
	for _, call := range calls {
		callee := call.Fun()
		if callee == nil {
			panic("collected call site lost its direct callee")
		}
		// Earlier splices in this batch may have changed the callee.
		if !callee.ShouldOptimize() {
			continue
		}
		in.cfg.Log.Printw("inline",
			"caller", caller.Name,
			"callee", callee.Name,
			"callee_blocks", callee.Size(),
			"caller_blocks", caller.Size())
		if !ir.Inline(call) {
			panic("collected call site failed to inline")
		}
		in.NumInlined++
		inlined = true
	}
	if inlined {
		ir.CleanUp(caller)
	}
	return inlined
}

// selfRecursive returns whether the function directly calls itself
// anywhere in its body.
// Inlining self-recursive callees duplicates code on every pass run,
// so they are never inlined.
func selfRecursive(f *ir.Fun) bool {
	for _, b := range f.BBlks {
		for _, s := range b.Stmts {
			if call, ok := s.(*ir.Call); ok && call.Fun() == f {
				return true
			}
		}
	}
	return false
}

// eligibleFun returns the callee of call if it may be inlined at all,
// independent of any cost, and nil otherwise.
func (in *Inliner) eligibleFun(call *ir.Call) *ir.Fun {
	callee := call.Fun()
	if callee == nil {
		return nil
	}

	// Skip attributed callees that this phase is configured to keep.
	if len(callee.Semantics) > 0 || callee.Effects {
		if in.cfg.What == NoSemanticsAndGlobalInit {
			return nil
		}
		// Availability semantics are treated like global initializers.
		if len(callee.Semantics) > 0 &&
			in.cfg.What != Everything &&
			callee.HasSemantics("availability") {
			return nil
		}
	} else if callee.GlobalInit {
		if in.cfg.What != Everything {
			return nil
		}
	}

	if callee.ExternalDecl() {
		return nil
	}
	if callee.Strategy == ir.NoInline {
		return nil
	}
	if !callee.ShouldOptimize() {
		return nil
	}
	// Generic call sites are not supported.
	if len(call.Subs) > 0 {
		return nil
	}
	// There is no mechanism to preserve a late-bound self type
	// after the callee's body moves into the caller.
	if callee.BindsSelf {
		return nil
	}

	caller := call.Blk().Fun
	if caller == callee {
		return nil
	}
	// A non-fragile callee may not be inlined into a fragile caller.
	if caller.Fragile && !callee.Fragile {
		return nil
	}

	if selfRecursive(callee) {
		return nil
	}
	return callee
}

// takenBlock returns the successor a terminator must take
// given constants the caller supplies, or nil if it is unknown.
// Only caller-supplied constants count:
// a condition foldable inside the callee is no reason to inline.
func takenBlock(term ir.Term, t *constTracker) *ir.BBlk {
	switch term := term.(type) {
	case *ir.CondBr:
		c := t.intConst(term.Cond, 0)
		if c.Valid && c.FromCaller {
			if c.Val.Sign() != 0 {
				return term.Then
			}
			return term.Else
		}

	case *ir.SwitchVal:
		c := t.intConst(term.Val, 0)
		if c.Valid && c.FromCaller {
			for _, cas := range term.Cases {
				lit, ok := cas.Val.(*ir.IntLit)
				if !ok {
					// A non-literal case could match anything.
					return nil
				}
				if c.Val.Cmp(lit.Val) == 0 {
					return cas.Dst
				}
			}
			if term.Default != nil {
				return term.Default
			}
		}

	case *ir.SwitchUnion:
		if u, ok := t.defInCaller(term.Val).(*ir.Union); ok {
			for _, cas := range term.Cases {
				if cas.Case == u.Case {
					return cas.Dst
				}
			}
			if term.Default != nil {
				return term.Default
			}
		}

	case *ir.CastBr:
		if up, ok := t.defInCaller(term.Val).(*ir.Upcast); ok {
			src := up.X.Type()
			if src != nil && src.SubtypeOf(term.Typ) {
				return term.Yes
			}
			if src != nil && !term.Typ.SubtypeOf(src) {
				return term.No
			}
		}
	}
	return nil
}

// profitable returns whether inlining call is a net improvement.
//
// It walks the callee in dominance order,
// charging per-instruction cost but skipping blocks
// that caller-supplied constants prove dead,
// and weighs the total against a threshold that decays cubically
// in the running caller block count,
// so later candidates in a large caller are harder to justify.
// On acceptance the callee's blocks are added to that count.
func (in *Inliner) profitable(call *ir.Call, loopDepth int, callerTracker *constTracker, numCallerBlocks *int) bool {
	callee := call.Fun()
	if callee.Strategy == ir.AlwaysInline {
		return true
	}

	tracker := newCalleeTracker(callee, callerTracker, call)
	li := in.cache.Loops(callee)
	order := analysis.NewDomOrder(in.cache.Dominators(callee))

	cost := 0
	benefit := in.cfg.RemovedCallBenefit
	if in.cfg.Threshold > 0 {
		benefit = in.cfg.Threshold
	}
	benefit += loopDepth * in.cfg.LoopBenefitFactor
	testThreshold := in.cfg.TestThreshold

	for b := order.Next(); b != nil; b = order.Next() {
		tracker.beginBlock()
		for _, s := range b.Stmts {
			tracker.trackInst(s)

			if testThreshold >= 0 {
				cost += testCost(s)
			} else {
				cost += in.cfg.Cost(s)
			}

			if nested, ok := s.(*ir.Call); ok {
				// A callee passed in as an argument will become constant:
				// inlining probably eliminates the closure too.
				switch tracker.defInCaller(nested.Callee).(type) {
				case *ir.FunRef, *ir.MakeClosure:
					benefit += in.cfg.ConstCalleeBenefit +
						li.Depth(b)*in.cfg.LoopBenefitFactor
					testThreshold *= 2
				}
			}
		}
		// Don't charge for blocks which are dead after inlining.
		if taken := takenBlock(b.Term(), tracker); taken != nil {
			benefit += in.cfg.ConstTerminatorBenefit
			order.PushChildrenIf(b, func(child *ir.BBlk) bool {
				return child.SinglePred() != b || child == taken
			})
		} else {
			order.PushChildren(b)
		}
	}

	threshold := benefit
	switch {
	case testThreshold >= 0:
		threshold = testThreshold
	case call.Blk().Fun.Thunk:
		// Thunks must not grow.
		threshold = in.cfg.TrivialFunctionThreshold
	default:
		// Cubic decay in the caller's block count;
		// this starts to prevent inlining
		// at about 800 to 1000 caller blocks.
		n := *numCallerBlocks
		minus := n * n / in.cfg.BlockLimitDenominator * n / in.cfg.BlockLimitDenominator
		if threshold > minus+in.cfg.TrivialFunctionThreshold {
			threshold -= minus
		} else {
			threshold = in.cfg.TrivialFunctionThreshold
		}
	}

	if cost > threshold {
		return false
	}
	*numCallerBlocks += callee.Size()

	in.cfg.Log.Printw("inline decision",
		"caller", call.Blk().Fun.Name,
		"callee", callee.Name,
		"cost", cost,
		"threshold", threshold,
		"loop_depth", loopDepth,
		"caller_blocks", *numCallerBlocks)
	return true
}

// profitableInColdBlock returns whether inlining call is worthwhile
// on a slow path.
// Cold code size buys nothing, so the whole callee must stay
// at or under the trivial-function ceiling.
func (in *Inliner) profitableInColdBlock(call *ir.Call, callee *ir.Fun) bool {
	if callee.Strategy == ir.AlwaysInline {
		return true
	}
	// Test mode disables inlining into cold blocks.
	if in.cfg.TestThreshold >= 0 {
		return false
	}

	cost := 0
	for _, b := range callee.BBlks {
		for _, s := range b.Stmts {
			cost += in.cfg.Cost(s)
			if cost > in.cfg.TrivialFunctionThreshold {
				return false
			}
		}
	}
	in.cfg.Log.Printw("cold inline decision",
		"caller", call.Blk().Fun.Name,
		"callee", callee.Name,
		"cost", cost)
	return true
}

// collectCalls returns the call sites of caller worth inlining,
// in discovery order.
//
// The walk is in dominance order for the constant tracker.
// Subtrees hanging off a slow-path edge are diverted
// to the conservative cold-block rule
// and do not count against the caller's normal accounting.
// Finally, a callee called from too many collected sites
// has all of its sites dropped to avoid pathological growth.
func (in *Inliner) collectCalls(caller *ir.Fun) []*ir.Call {
	dt := in.cache.Dominators(caller)
	li := in.cache.Loops(caller)
	tracker := newTracker(caller)
	order := analysis.NewDomOrder(dt)

	numCallerBlocks := caller.Size()

	var initial []*ir.Call
	for b := order.Next(); b != nil; b = order.Next() {
		tracker.beginBlock()
		loopDepth := li.Depth(b)
		for _, s := range b.Stmts {
			tracker.trackInst(s)

			call, ok := s.(*ir.Call)
			if !ok {
				continue
			}
			if in.eligibleFun(call) == nil {
				continue
			}
			if in.profitable(call, loopDepth, tracker, &numCallerBlocks) {
				initial = append(initial, call)
			}
		}
		order.PushChildrenIf(b, func(child *ir.BBlk) bool {
			if analysis.IsSlowPath(b, child) {
				in.visitColdBlocks(&initial, child, dt)
				return false
			}
			return true
		})
	}

	count := make(map[*ir.Fun]int)
	for _, call := range initial {
		callee := call.Fun()
		if callee == nil {
			panic("collected call site lost its direct callee")
		}
		count[callee]++
	}
	var calls []*ir.Call
	for _, call := range initial {
		if count[call.Fun()] <= in.cfg.CalleeCallLimit {
			calls = append(calls, call)
		}
	}
	return calls
}

// visitColdBlocks collects forced and trivially small call sites
// from the dominated subtree at root; nothing else is inlined cold.
func (in *Inliner) visitColdBlocks(calls *[]*ir.Call, root *ir.BBlk, dt *analysis.DomTree) {
	order := analysis.NewDomOrderAt(dt, root)
	for b := order.Next(); b != nil; b = order.Next() {
		for _, s := range b.Stmts {
			call, ok := s.(*ir.Call)
			if !ok {
				continue
			}
			callee := in.eligibleFun(call)
			if callee != nil && in.profitableInColdBlock(call, callee) {
				*calls = append(*calls, call)
			}
		}
		order.PushChildren(b)
	}
}
