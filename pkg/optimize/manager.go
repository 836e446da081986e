package optimize

import (
	"github.com/raymyers/ralph-cc/pkg/flowgraph"
	"github.com/raymyers/ralph-cc/pkg/mtac"
)

// maxIterations bounds the fixed-point driver per spec §4.3: "run the
// declared sequence at most N iterations (or to fixed point)". A whole
// pipeline of these function passes converges in a handful of iterations
// in practice; this is only a backstop against an oscillating pair of
// passes undoing each other forever.
const maxIterations = 100

// passSequence is spec §4.3's pass table, in the stable order its tests
// expect: peephole-style local/basic-block cleanups first, then the
// function-level dataflow passes, then the loop optimizations (which
// depend on loops/dominators already having had a chance to see simplified
// code), then block-structure cleanup, then variable cleanup.
var passSequence = []FunctionPass{
	ArithmeticIdentities,
	SignReduction,
	ConstantFolding,
	ConstantPropagation,
	OffsetConstantPropagation,
	CommonSubexpressionElimination,
	MathPropagation,
	PointerPropagation,
	CopyPropagation,
	RemoveAssign,
	DeadCodeElimination,
	RemoveEmptyLoops,
	LoopInvariantCodeMotion,
	InductionVariableOptimization,
	CompleteLoopPeeling,
	MergeBasicBlocks,
	RemoveDeadBasicBlocks,
	CleanVariables,
}

// RunFunction drives passSequence to a fixed point over f (or maxIterations,
// whichever comes first). Before each pass it ensures the structural
// analyses it Requires (CFG, dominators, loops) are fresh, recomputing only
// what a prior pass actually invalidated; liveness, escape, and
// reaching-definitions facts are not memoized here at all, since every pass
// that requires one of those (RemoveAssign, CommonSubexpressionElimination,
// ...) recomputes it internally from the function's current statements
// rather than consulting a cached result (spec §5: "non-structural edits
// only invalidate dataflow results", and this driver never caches a
// dataflow result across a pass boundary in the first place). Reports
// whether any pass ever changed f.
func RunFunction(f *mtac.Function) bool {
	everChanged := false
	for iter := 0; iter < maxIterations; iter++ {
		iterationChanged := false
		for _, pass := range passSequence {
			ensureFresh(f, pass.Requires)
			if pass.Run(f) {
				iterationChanged = true
				everChanged = true
				markStale(f, pass.Invalidates)
			}
		}
		if !iterationChanged {
			break
		}
	}
	return everChanged
}

// RunProgram drives RunFunction over every function in p, then the single
// IPA pass, repeating the whole cycle until neither produces a change.
// Re-running the per-function sequence after a function is deleted costs
// nothing when nothing else changed (each FunctionPass is itself a no-op on
// an already-fixed-point function), and covers the case where this driver's
// pass table grows an interprocedural rewrite that depends on the pruned
// call graph later.
func RunProgram(p *mtac.Program) {
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for _, f := range p.Functions {
			if RunFunction(f) {
				changed = true
			}
		}
		if RemoveUnusedFunctions.Run(p) {
			changed = true
		}
		if !changed {
			return
		}
	}
}

// ensureFresh recomputes whatever structural analysis need references and
// f's stale bits say is out of date, in dependency order: the CFG itself,
// then dominators (which read Succ/Pred), then natural loops (which read
// dominance).
func ensureFresh(f *mtac.Function, need Property) {
	if need.Has(PropLoops) {
		need |= PropDominators
	}
	if need.Has(PropDominators) {
		need |= PropCFG
	}
	if need.Has(PropCFG) && f.CFGStale {
		flowgraph.RecomputeCFG(f)
	}
	if need.Has(PropDominators) && f.DominatorsStale {
		flowgraph.Dominators(f)
		f.DominatorsStale = false
	}
	if need.Has(PropLoops) && f.LoopsStale {
		flowgraph.FindLoops(f)
	}
}

// markStale flips f's structural dirty bits for whatever a pass declared it
// Invalidates. Liveness/escape/defs carry no persistent staleness bit on
// Function: every pass that needs one recomputes it fresh, so there is
// nothing to mark.
func markStale(f *mtac.Function, invalidated Property) {
	if invalidated.Has(PropCFG) {
		f.InvalidateCFG() // also marks loops and dominators stale, per spec §5
		return
	}
	if invalidated.Has(PropDominators) {
		f.DominatorsStale = true
		f.LoopsStale = true
	}
	if invalidated.Has(PropLoops) {
		f.LoopsStale = true
	}
}
