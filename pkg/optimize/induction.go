package optimize

import (
	"github.com/raymyers/ralph-cc/pkg/flowgraph"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// ivFact records a dependent induction variable's linear relationship to a
// basic induction variable: the variable's value on iteration k equals
// Base's initial-of-iteration-k value times E plus D. A basic induction
// variable is its own fact with E=1, D=0.
type ivFact struct {
	Base *types.Variable
	E, D int64
}

// InductionVariableOptimization implements spec §4.3's induction-variable
// analysis, strength reduction, IV removal, and loop-exit condition
// replacement. Like LICM, candidates are restricted to loops consisting of
// a single block (the header): every write under consideration then runs
// exactly once per iteration, with no need to reason about dominance of
// definitions over uses spread across several blocks.
var InductionVariableOptimization = FunctionPass{
	Name:        "induction-variable optimization",
	Kind:        FunctionKind,
	Requires:    PropLoops | PropDominators,
	Invalidates: PropDefs,
	Run: func(f *mtac.Function) bool {
		changed := false
		for _, l := range f.Loops {
			if len(l.Blocks) != 1 {
				continue
			}
			if inductionVarsOneLoop(f, l) {
				changed = true
			}
		}
		return changed
	},
}

func inductionVarsOneLoop(f *mtac.Function, l *mtac.Loop) bool {
	header := l.Header
	defCount := map[*types.Variable]int{}
	for _, s := range header.Stmts {
		if v := mtac.Defines(s); v != nil {
			defCount[v]++
		}
	}

	bivs := map[*types.Variable]int64{}  // variable -> per-iteration step
	bivAt := map[*types.Variable]int{}   // variable -> stmt index of its update
	facts := map[*types.Variable]ivFact{}
	for i, s := range header.Stmts {
		q, ok := s.(mtac.Quadruple)
		if !ok || q.Op != mtac.ADD || q.Result == nil || defCount[q.Result] != 1 {
			continue
		}
		if step, ok := basicStep(q, q.Result); ok {
			bivs[q.Result] = step
			bivAt[q.Result] = i
			facts[q.Result] = ivFact{Base: q.Result, E: 1, D: 0}
		}
	}
	if len(bivs) == 0 {
		return false
	}

	depAt := map[*types.Variable]int{}
	for i, s := range header.Stmts {
		q, ok := s.(mtac.Quadruple)
		if !ok || q.Result == nil {
			continue
		}
		if _, isBiv := bivs[q.Result]; isBiv {
			continue
		}
		if defCount[q.Result] != 1 {
			continue
		}
		if fact, ok := deriveFact(q, facts); ok {
			facts[q.Result] = fact
			depAt[q.Result] = i
		}
	}
	if len(depAt) == 0 {
		return false
	}

	pre := flowgraph.Preheader(l)
	if pre == nil {
		pre = flowgraph.EnsurePreheader(f, l)
	}
	if pre.IsSentinel() {
		// No statement-bearing block to host an initializer; leave the
		// loop's induction variables alone.
		return false
	}

	// Snapshot, for each biv, how many times it is read outside the loop
	// block before strength reduction inserts its own (legitimate) reads
	// into the pre-header; replaceLoopExitCondition needs this to tell a
	// pre-existing external use of biv apart from the initializer it is
	// about to introduce.
	bivReadsOutsideLoop := map[*types.Variable]int{}
	for biv := range bivs {
		for _, b := range f.Blocks {
			if b == header {
				continue
			}
			for _, s := range b.Stmts {
				for _, u := range mtac.Uses(s) {
					if u == biv {
						bivReadsOutsideLoop[biv]++
					}
				}
			}
		}
	}

	// Collect every rewrite against the ORIGINAL header.Stmts indices first,
	// then rebuild the block once: strength-reducing more than one dependent
	// on the same biv would otherwise shift indices recorded for the others
	// out from under them.
	overwrite := map[int]mtac.Statement{}
	carriesAt := map[int][]mtac.Statement{}
	var tempOf = map[*types.Variable]*types.Variable{}
	for j, idx := range depAt {
		fact := facts[j]
		step, ok := bivs[fact.Base]
		if !ok || fact.E == 0 {
			continue
		}
		tj := f.Context.NewTemporary(j.Type)
		tempOf[j] = tj

		if fact.E == 1 {
			insertBeforeTerminator(pre, mtac.Quadruple{Result: tj, Op: mtac.ASSIGN, Arg1: mtac.VarArg{Var: fact.Base}})
		} else {
			insertBeforeTerminator(pre, mtac.Quadruple{Result: tj, Op: mtac.MUL, Arg1: mtac.VarArg{Var: fact.Base}, Arg2: mtac.IntConst{Value: fact.E}})
		}
		if fact.D != 0 {
			insertBeforeTerminator(pre, mtac.Quadruple{Result: tj, Op: mtac.ADD, Arg1: mtac.VarArg{Var: tj}, Arg2: mtac.IntConst{Value: fact.D}})
		}

		overwrite[idx] = mtac.Quadruple{Result: j, Op: mtac.ASSIGN, Arg1: mtac.VarArg{Var: tj}}
		baseIdx := bivAt[fact.Base]
		carry := mtac.Quadruple{Result: tj, Op: mtac.ADD, Arg1: mtac.VarArg{Var: tj}, Arg2: mtac.IntConst{Value: fact.E * step}}
		carriesAt[baseIdx] = append(carriesAt[baseIdx], carry)
	}
	if len(overwrite) == 0 {
		return false
	}

	var rebuilt []mtac.Statement
	for i, s := range header.Stmts {
		if replacement, ok := overwrite[i]; ok {
			rebuilt = append(rebuilt, replacement)
		} else {
			rebuilt = append(rebuilt, s)
		}
		rebuilt = append(rebuilt, carriesAt[i]...)
	}
	header.Stmts = rebuilt

	for j, tj := range tempOf {
		removeInductionVariableIfDead(f, j, tj)
	}
	replaceLoopExitCondition(f, header, bivs, bivAt, depAt, facts, bivReadsOutsideLoop)
	return true
}

// basicStep reports whether q is v's basic induction update v := v + c (or
// v := c + v), returning the non-zero integer step c.
func basicStep(q mtac.Quadruple, v *types.Variable) (int64, bool) {
	if a, ok := mtac.AsVariable(q.Arg1); ok && a == v {
		if c, ok := mtac.AsInt(q.Arg2); ok && c != 0 {
			return c, true
		}
	}
	if a, ok := mtac.AsVariable(q.Arg2); ok && a == v {
		if c, ok := mtac.AsInt(q.Arg1); ok && c != 0 {
			return c, true
		}
	}
	return 0, false
}

// deriveFact recognizes a dependent induction variable's defining quadruple:
// a plain copy, or an ADD/SUB/MUL of an already-classified induction
// variable against an integer constant.
func deriveFact(q mtac.Quadruple, facts map[*types.Variable]ivFact) (ivFact, bool) {
	switch q.Op {
	case mtac.ASSIGN:
		if v, ok := mtac.AsVariable(q.Arg1); ok {
			if f0, ok := facts[v]; ok {
				return f0, true
			}
		}
	case mtac.ADD:
		if v, c, ok := varPlusConst(q); ok {
			if f0, ok := facts[v]; ok {
				return ivFact{Base: f0.Base, E: f0.E, D: f0.D + c}, true
			}
		}
	case mtac.SUB:
		if v, ok := mtac.AsVariable(q.Arg1); ok {
			if c, ok := mtac.AsInt(q.Arg2); ok {
				if f0, ok := facts[v]; ok {
					return ivFact{Base: f0.Base, E: f0.E, D: f0.D - c}, true
				}
			}
		}
	case mtac.MUL:
		if v, c, ok := varPlusConst(q); ok {
			if f0, ok := facts[v]; ok {
				return ivFact{Base: f0.Base, E: f0.E * c, D: f0.D * c}, true
			}
		}
	}
	return ivFact{}, false
}

// varPlusConst reports whether one of q's operands is a variable and the
// other an integer constant, in either order (ADD and MUL are commutative).
func varPlusConst(q mtac.Quadruple) (*types.Variable, int64, bool) {
	if v, ok := mtac.AsVariable(q.Arg1); ok {
		if c, ok := mtac.AsInt(q.Arg2); ok {
			return v, c, true
		}
	}
	if v, ok := mtac.AsVariable(q.Arg2); ok {
		if c, ok := mtac.AsInt(q.Arg1); ok {
			return v, c, true
		}
	}
	return nil, 0, false
}

// removeInductionVariableIfDead turns j's copy from tj into a NOP when
// nothing else in the function ever reads j, and turns tj's own
// initializer/carry updates into NOPs when nothing reads tj either (spec
// §4.3's induction-variable removal).
func removeInductionVariableIfDead(f *mtac.Function, j, tj *types.Variable) {
	if countReads(f, j) > 0 {
		return
	}
	for _, b := range f.Blocks {
		for i, s := range b.Stmts {
			if q, ok := s.(mtac.Quadruple); ok && q.Result == j && q.Op == mtac.ASSIGN {
				if v, ok := mtac.AsVariable(q.Arg1); ok && v == tj {
					b.Stmts[i] = mtac.Quadruple{Op: mtac.NOP}
				}
			}
		}
	}
	if countReads(f, tj) > 0 {
		return
	}
	for _, b := range f.Blocks {
		for i, s := range b.Stmts {
			if q, ok := s.(mtac.Quadruple); ok && q.Result == tj {
				b.Stmts[i] = mtac.Quadruple{Op: mtac.NOP}
			}
		}
	}
}

// countReads counts every statement operand across f that reads v.
func countReads(f *mtac.Function, v *types.Variable) int {
	n := 0
	for _, b := range f.Blocks {
		for _, s := range b.Stmts {
			for _, u := range mtac.Uses(s) {
				if u == v {
					n++
				}
			}
		}
	}
	return n
}

// replaceLoopExitCondition rewrites the header's branch test to use a
// dependent induction variable in place of its basic induction variable
// when biv's only non-self uses are the comparison itself and exactly one
// dependent, per spec §4.3's "loop-exit condition replacement". bivAt/depAt
// are the pass's original (pre-rewrite) statement indices, used only to
// check that div's defining statement reads biv's post-update value (the
// same snapshot the trailing comparison reads) rather than the value from
// before biv's own update earlier in the same iteration.
func replaceLoopExitCondition(f *mtac.Function, header *mtac.BasicBlock, bivs map[*types.Variable]int64, bivAt, depAt map[*types.Variable]int, facts map[*types.Variable]ivFact, bivReadsOutsideLoop map[*types.Variable]int) {
	cond, ok := header.Terminator().(mtac.If)
	if !ok {
		return
	}
	var biv *types.Variable
	var onArg1 bool
	if v, ok := mtac.AsVariable(cond.Arg1); ok {
		biv, onArg1 = v, true
	} else if v, ok := mtac.AsVariable(cond.Arg2); ok {
		biv, onArg1 = v, false
	} else {
		return
	}
	if _, ok := bivs[biv]; !ok {
		return
	}

	var div *types.Variable
	var divFact ivFact
	for v, fact := range facts {
		if fact.Base != biv || v == biv {
			continue
		}
		if fact.E <= 0 {
			continue
		}
		if div != nil {
			return // more than one dependent: ambiguous, leave the test alone
		}
		div, divFact = v, fact
	}
	if div == nil {
		return
	}
	divStillLive := false
	for _, s := range header.Stmts {
		if q, ok := s.(mtac.Quadruple); ok && q.Result == div && q.Op == mtac.ASSIGN {
			divStillLive = true
			break
		}
	}
	if !divStillLive {
		// Induction-variable removal already turned div's copy into a NOP
		// because nothing read it; it no longer carries a value to test.
		return
	}
	if depAt[div] < bivAt[biv] {
		// div's fact was derived from biv's value before this iteration's
		// update, but the comparison (always the block's last statement)
		// reads biv's value after it: the two disagree by one step and
		// cannot be substituted for each other.
		return
	}
	// biv must be unused outside its own update (self-reference), this
	// comparison, and the pre-header initializer this pass itself just
	// introduced; otherwise deleting its update would change another
	// read's value. After strength reduction div's defining statement no
	// longer reads biv, so the in-loop count reduces to exactly those two
	// self/comparison reads once the initializer reads are excluded.
	inLoopReads := 0
	for _, s := range header.Stmts {
		for _, u := range mtac.Uses(s) {
			if u == biv {
				inLoopReads++
			}
		}
	}
	if inLoopReads != 2 || bivReadsOutsideLoop[biv] != 0 {
		return
	}

	// Only a compile-time-constant bound is handled: a variable bound would
	// need its own translated-bound temporary computed once per loop entry,
	// which this pass does not attempt.
	var otherArg mtac.Arg
	if onArg1 {
		otherArg = cond.Arg2
	} else {
		otherArg = cond.Arg1
	}
	c, ok := mtac.AsInt(otherArg)
	if !ok {
		return
	}
	bound := mtac.IntConst{Value: divFact.E*c + divFact.D}

	bivIdx := -1
	for i, s := range header.Stmts {
		if q, ok := s.(mtac.Quadruple); ok && q.Op == mtac.ADD && q.Result == biv {
			if _, ok := basicStep(q, biv); ok {
				bivIdx = i
				break
			}
		}
	}
	if bivIdx < 0 {
		return
	}

	newCond := cond
	if onArg1 {
		newCond.Arg1 = mtac.VarArg{Var: div}
		newCond.Arg2 = bound
	} else {
		newCond.Arg2 = mtac.VarArg{Var: div}
		newCond.Arg1 = bound
	}
	header.Stmts[len(header.Stmts)-1] = newCond
	header.Stmts[bivIdx] = mtac.Quadruple{Op: mtac.NOP}
}
