// Copyright © 2021 The Mir Authors under an MIT-style license.

package analysis

import (
	"github.com/eaburns/mir/ir"
)

// coldSearchDepth bounds the successor search of IsCold.
const coldSearchDepth = 4

// IsSlowPath returns whether the edge from→to is known to be cold:
// either from's terminator hints that the edge is not taken,
// or to cannot avoid reaching an Unreachable terminator.
func IsSlowPath(from, to *ir.BBlk) bool {
	if br, ok := from.Term().(*ir.CondBr); ok {
		switch br.Likely {
		case ir.BranchLikely:
			return to == br.Else
		case ir.BranchUnlikely:
			return to == br.Then
		}
	}
	return IsCold(to)
}

// IsCold returns whether every path from b
// ends at an Unreachable terminator,
// searching successors to a fixed depth.
func IsCold(b *ir.BBlk) bool {
	return isCold(b, coldSearchDepth)
}

func isCold(b *ir.BBlk, depth int) bool {
	term := b.Term()
	if term == nil {
		return false
	}
	switch term := term.(type) {
	case *ir.Unreachable:
		return true
	case *ir.Ret:
		return false
	case *ir.CondBr:
		// A hinted branch is decided by its likely successor alone.
		switch term.Likely {
		case ir.BranchLikely:
			return depth > 0 && isCold(term.Then, depth-1)
		case ir.BranchUnlikely:
			return depth > 0 && isCold(term.Else, depth-1)
		}
	}
	if depth == 0 {
		return false
	}
	for _, o := range term.Out() {
		if !isCold(o, depth-1) {
			return false
		}
	}
	return true
}
