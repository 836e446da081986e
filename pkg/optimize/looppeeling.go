package optimize

import (
	"github.com/raymyers/ralph-cc/pkg/flowgraph"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// maxPeelTripCount and maxPeelBodyLength are spec §4.3's two caps on
// "complete loop peeling": a loop only unrolls when its trip count is known
// at compile time and small, and its body isn't already large.
const (
	maxPeelTripCount  = 12
	maxPeelSimulation = 4096 // generous slack before giving up on a bound search
	maxPeelBodyLength = 100
)

// CompleteLoopPeeling fully unrolls a single-block counted loop whose trip
// count can be determined at compile time: it reads the induction variable's
// constant initial value off the pre-header, its per-iteration step off the
// header's own update, and the constant bound off the header's branch test,
// then simulates the loop to find how many times it runs. A trip count of
// zero deletes the loop entirely (the pre-header jumps straight past it); a
// positive trip count up to maxPeelTripCount concatenates that many copies
// of the body and removes the back edge, leaving no runtime test at all
// (spec §4.3). Loops whose shape doesn't fit this counted pattern, or whose
// trip count can't be pinned down this way, are left for "remove empty
// loops" and induction-variable optimization to handle instead.
var CompleteLoopPeeling = FunctionPass{
	Name:        "complete loop peeling",
	Kind:        FunctionKind,
	Requires:    PropLoops,
	Invalidates: PropCFG | PropLoops,
	Run: func(f *mtac.Function) bool {
		changed := false
		for _, l := range f.Loops {
			if peelOneLoop(f, l) {
				changed = true
			}
		}
		if changed {
			f.InvalidateCFG()
		}
		return changed
	},
}

func peelOneLoop(f *mtac.Function, l *mtac.Loop) bool {
	if len(l.Blocks) != 1 {
		return false
	}
	header := l.Header
	cond, ok := header.Terminator().(mtac.If)
	if !ok {
		return false
	}
	biv, bound, bivOnArg1, ok := condShape(cond)
	if !ok {
		return false
	}
	updateStmt, ok := findBivUpdateStmt(header, biv)
	if !ok {
		return false
	}
	step, ok := basicStep(updateStmt, biv)
	if !ok {
		return false
	}
	pre := flowgraph.Preheader(l)
	if pre == nil || pre.IsSentinel() {
		return false
	}
	init, ok := constantInitialValue(pre, biv)
	if !ok {
		return false
	}
	op := cond.Op
	if !bivOnArg1 {
		op = mirrorRelop(op)
	}
	tripCount, ok := simulateTripCount(init, step, op, bound, !cond.Negated)
	if !ok {
		return false
	}
	exit, ok := uniqueExitTarget(l)
	if !ok {
		return false
	}

	body := header.Stmts[:len(header.Stmts)-1] // everything but the branch test
	if tripCount == 0 {
		return redirectToExit(pre, header, exit)
	}
	if tripCount > maxPeelTripCount || len(body) > maxPeelBodyLength {
		return false
	}

	unrolled := make([]mtac.Statement, 0, len(body)*int(tripCount)+1)
	for k := int64(0); k < tripCount; k++ {
		unrolled = append(unrolled, body...)
	}
	unrolled = append(unrolled, mtac.Goto{Label: exit.Label, Target: exit})
	header.Stmts = unrolled

	header.Succ = removeBlockFrom(header.Succ, header)
	header.Pred = removeBlockFrom(header.Pred, header)
	return true
}

// condShape reports whether cond compares a single variable against a
// compile-time integer constant, returning the variable, the constant, and
// which side of the comparison the variable was on.
func condShape(cond mtac.If) (biv *types.Variable, bound int64, bivOnArg1 bool, ok bool) {
	if v, isVar := mtac.AsVariable(cond.Arg1); isVar {
		if c, isConst := mtac.AsInt(cond.Arg2); isConst {
			return v, c, true, true
		}
	}
	if v, isVar := mtac.AsVariable(cond.Arg2); isVar {
		if c, isConst := mtac.AsInt(cond.Arg1); isConst {
			return v, c, false, true
		}
	}
	return nil, 0, false, false
}

// findBivUpdateStmt finds biv's own "biv := biv + c" update within b.
func findBivUpdateStmt(b *mtac.BasicBlock, biv *types.Variable) (mtac.Quadruple, bool) {
	for _, s := range b.Stmts {
		q, ok := s.(mtac.Quadruple)
		if !ok || q.Op != mtac.ADD || q.Result != biv {
			continue
		}
		if _, ok := basicStep(q, biv); ok {
			return q, true
		}
	}
	return mtac.Quadruple{}, false
}

// constantInitialValue scans pre for the last plain "biv := const" assignment
// reaching the loop, the value biv holds the first time header executes.
func constantInitialValue(pre *mtac.BasicBlock, biv *types.Variable) (int64, bool) {
	val, found := int64(0), false
	for _, s := range pre.Stmts {
		q, ok := s.(mtac.Quadruple)
		if !ok || q.Op != mtac.ASSIGN || q.Result != biv {
			continue
		}
		if c, ok := mtac.AsInt(q.Arg1); ok {
			val, found = c, true
		}
	}
	return val, found
}

// mirrorRelop returns the operator for "b OP' a" equivalent to "a OP b",
// used when the induction variable appears on the comparison's right side.
func mirrorRelop(op mtac.Operator) mtac.Operator {
	switch op {
	case mtac.LESS:
		return mtac.GREATER
	case mtac.LESS_EQUALS:
		return mtac.GREATER_EQUALS
	case mtac.GREATER:
		return mtac.LESS
	case mtac.GREATER_EQUALS:
		return mtac.LESS_EQUALS
	}
	return op // EQUAL / NOT_EQUALS are symmetric
}

// evalRelop evaluates a mtac comparison operator over two known integers.
func evalRelop(op mtac.Operator, a, b int64) (bool, bool) {
	switch op {
	case mtac.EQUAL:
		return a == b, true
	case mtac.NOT_EQUALS:
		return a != b, true
	case mtac.LESS:
		return a < b, true
	case mtac.LESS_EQUALS:
		return a <= b, true
	case mtac.GREATER:
		return a > b, true
	case mtac.GREATER_EQUALS:
		return a >= b, true
	}
	return false, false
}

// simulateTripCount computes how many times a counted single-block loop
// runs, given the induction variable's initial value, its per-iteration
// step, the branch test's operator and constant bound, and whether the
// branch is taken back to the header ("continue") when the raw comparison
// is true. The header's update statement always runs before its own trailing
// branch test within one execution of the block, so the value compared on
// iteration k (1-indexed) is always init + k*step; the trip count is the
// first k for which the loop no longer continues. Bails out past
// maxPeelSimulation iterations rather than search for an arbitrarily large
// or non-terminating trip count, which peeling would reject anyway once it
// exceeds maxPeelTripCount.
func simulateTripCount(init, step int64, op mtac.Operator, bound int64, continueWhenTrue bool) (int64, bool) {
	if step == 0 {
		return 0, false
	}
	for k := int64(1); k <= maxPeelSimulation; k++ {
		value := init + k*step
		raw, ok := evalRelop(op, value, bound)
		if !ok {
			return 0, false
		}
		if raw != continueWhenTrue {
			return k, true
		}
	}
	return 0, false
}
