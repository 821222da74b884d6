// Copyright © 2021 The Mir Authors under an MIT-style license.

// Package inline has a cost-based function inliner:
// it decides, per call site, whether splicing the callee's body
// in place of the call is a net improvement, and performs the splice.
//
// The decision combines a per-instruction cost model,
// a lightweight constant-flow simulation across the call boundary,
// a dominance-ordered walk of the callee that prunes branches
// proven dead by caller-supplied constants,
// and a per-callee call-site multiplicity guard.
// Declining to inline is always safe;
// a wrong decision only costs code size or speed, never correctness.
package inline

import (
	"github.com/eaburns/mir/ir"
	"tlog.app/go/tlog"
)

// Selection controls which attributed callees an inliner run skips.
// Attributed functions are inlined late so that earlier phases
// can still recognize them by their attributes.
type Selection int

const (
	// Everything inlines regardless of attributes.
	Everything Selection = iota
	// NoGlobalInit skips global initializers
	// and callees with availability semantics.
	NoGlobalInit
	// NoSemanticsAndGlobalInit skips all attributed callees.
	NoSemanticsAndGlobalInit
)

// A Config is the tuning of an inliner run.
// The zero Config disables the pass (Threshold 0)
// and enables test mode (TestThreshold 0);
// use DefaultConfig for the defaults.
type Config struct {
	// Threshold is the base benefit of removing a call.
	// Zero disables the pass entirely.
	// A positive value overrides RemovedCallBenefit.
	// A negative value uses RemovedCallBenefit.
	Threshold int

	// TestThreshold, if non-negative, enables test mode:
	// the simplified cost model where only built-in operations
	// cost anything, and TestThreshold itself is the threshold.
	// Test mode makes decisions exactly predictable in tests.
	TestThreshold int

	// What selects which attributed callees to skip.
	What Selection

	// The cost model constants. Zero fields get defaults.

	// RemovedCallBenefit is the base benefit of removing a call.
	RemovedCallBenefit int
	// ConstTerminatorBenefit is added each time a terminator condition
	// becomes constant due to inlining.
	ConstTerminatorBenefit int
	// ConstCalleeBenefit is added when a nested call's callee
	// becomes constant due to inlining,
	// since that likely enables inlining the nested call too.
	ConstCalleeBenefit int
	// LoopBenefitFactor is the additional benefit per loop level.
	LoopBenefitFactor int
	// TrivialFunctionThreshold is approximately the cost level
	// up to which a function can be inlined
	// without increasing code size.
	TrivialFunctionThreshold int
	// BlockLimitDenominator scales the cubic decay of the threshold
	// in the running caller block count.
	BlockLimitDenominator int
	// CalleeCallLimit is the most profitable call sites to one callee,
	// within one caller, that will still be inlined in one run.
	CalleeCallLimit int

	// Cost is the normal-mode per-instruction cost model.
	// Nil means DefaultCost.
	Cost func(ir.Stmt) int

	// Log, if non-nil, records inlining decisions.
	Log *tlog.Logger
}

// DefaultConfig returns the default tuning:
// the pass enabled, test mode off, and the built-in cost model.
func DefaultConfig() Config {
	return Config{Threshold: -1, TestThreshold: -1}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.RemovedCallBenefit == 0 {
		c.RemovedCallBenefit = 80
	}
	if c.ConstTerminatorBenefit == 0 {
		c.ConstTerminatorBenefit = 2
	}
	if c.ConstCalleeBenefit == 0 {
		c.ConstCalleeBenefit = 150
	}
	if c.LoopBenefitFactor == 0 {
		c.LoopBenefitFactor = 40
	}
	if c.TrivialFunctionThreshold == 0 {
		c.TrivialFunctionThreshold = 20
	}
	if c.BlockLimitDenominator == 0 {
		c.BlockLimitDenominator = 10000
	}
	if c.CalleeCallLimit == 0 {
		c.CalleeCallLimit = 1024
	}
	if c.Cost == nil {
		c.Cost = DefaultCost
	}
	return c
}
