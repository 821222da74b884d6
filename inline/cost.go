// Copyright © 2021 The Mir Authors under an MIT-style license.

package inline

import (
	"github.com/eaburns/mir/ir"
)

// testCost is the simplified test-mode cost model:
// only built-in operations have a cost, and that's exactly 1.
func testCost(s ir.Stmt) int {
	if _, ok := s.(*ir.Op); ok {
		return 1
	}
	return 0
}

// DefaultCost is the normal-mode per-instruction cost model.
// The values are a tuning of this representation;
// an integrating compiler may substitute its own via Config.Cost.
func DefaultCost(s ir.Stmt) int {
	switch s.(type) {
	case *ir.IntLit, *ir.Arg, *ir.FunRef, *ir.Alloc,
		*ir.Tuple, *ir.Union, *ir.Extract, *ir.Field,
		*ir.Bitcast, *ir.Upcast,
		*ir.Jmp, *ir.Ret, *ir.Unreachable:
		return 0
	case *ir.Op, *ir.Load, *ir.Store,
		*ir.CondBr, *ir.SwitchVal, *ir.SwitchUnion:
		return 1
	case *ir.Copy, *ir.Call, *ir.MakeClosure, *ir.CastBr:
		return 2
	}
	return 1
}
