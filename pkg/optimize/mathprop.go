package optimize

import (
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// linearFact records "this variable equals Base plus Offset" the way
// analysis.OffsetConst does, but tracked purely locally within one block
// (spec.md lists math propagation's Requires as "—", unlike offset constant
// propagation which is a whole-function dataflow problem).
type linearFact struct {
	Base   *types.Variable
	Offset int64
}

// MathPropagation is spec §4.3's basic-block math-propagation pass: chains
// of ADD/SUB against a constant are collapsed against their ultimate base
// variable as they're discovered, so "p := base+4; q := p+4" rewrites q's
// quadruple directly to "base+8" instead of leaving the intermediate hop
// through p for a later pass to find.
var MathPropagation = FunctionPass{
	Name:        "math propagation",
	Kind:        BasicBlock,
	Invalidates: PropDefs,
	Run: func(f *mtac.Function) bool {
		changed := false
		for _, b := range f.Blocks {
			known := map[*types.Variable]linearFact{}
			for i, s := range b.Stmts {
				q, ok := s.(mtac.Quadruple)
				if !ok {
					if _, ok := s.(mtac.Call); ok {
						// No escape info available at this Requires: "—"
						// scope, so a call conservatively invalidates every
						// fact rather than just ones reachable by address.
						known = map[*types.Variable]linearFact{}
					}
					continue
				}
				if nq, ok := collapseLinear(q, known); ok {
					b.Stmts[i] = nq
					changed = true
					q = nq
				}
				if q.Result == nil {
					continue
				}
				killLinearFactsOf(known, q.Result)
				if fact, ok := linearFactOf(q, known); ok {
					known[q.Result] = fact
				}
			}
		}
		return changed
	},
}

// linearFactOf derives the (Base, Offset) fact a quadruple's result holds,
// if any: a plain copy of an already-known variable, ADD/SUB of a known
// variable against a constant, or the variable-plus-constant base case.
func linearFactOf(q mtac.Quadruple, known map[*types.Variable]linearFact) (linearFact, bool) {
	switch q.Op {
	case mtac.ASSIGN:
		if q.Arg2 != nil {
			return linearFact{}, false
		}
		v, ok := mtac.AsVariable(q.Arg1)
		if !ok {
			return linearFact{}, false
		}
		if f, ok := known[v]; ok {
			return f, true
		}
		return linearFact{Base: v, Offset: 0}, true
	case mtac.ADD, mtac.SUB:
		v, ok := mtac.AsVariable(q.Arg1)
		c, cok := mtac.AsInt(q.Arg2)
		if !ok || !cok {
			return linearFact{}, false
		}
		if q.Op == mtac.SUB {
			c = -c
		}
		if f, ok := known[v]; ok {
			return linearFact{Base: f.Base, Offset: f.Offset + c}, true
		}
		return linearFact{Base: v, Offset: c}, true
	}
	return linearFact{}, false
}

// collapseLinear rewrites an ADD/SUB quadruple whose variable operand has a
// known fact with a Base other than the operand itself (a plain alias,
// Offset 0, included) into a direct ADD against the fact's Base, merging
// the constants (SUB when the merged constant is negative). A fact whose
// Base is the operand itself is left alone.
func collapseLinear(q mtac.Quadruple, known map[*types.Variable]linearFact) (mtac.Quadruple, bool) {
	if q.Op != mtac.ADD && q.Op != mtac.SUB {
		return q, false
	}
	v, ok := mtac.AsVariable(q.Arg1)
	c, cok := mtac.AsInt(q.Arg2)
	if !ok || !cok {
		return q, false
	}
	fact, ok := known[v]
	if !ok || fact.Base == v {
		return q, false
	}
	delta := c
	if q.Op == mtac.SUB {
		delta = -c
	}
	merged := fact.Offset + delta
	nq := mtac.Quadruple{Result: q.Result, Op: mtac.ADD, Arg1: mtac.VarArg{Var: fact.Base}, Arg2: mtac.IntConst{Value: merged}}
	if merged < 0 {
		nq.Op = mtac.SUB
		nq.Arg2 = mtac.IntConst{Value: -merged}
	}
	return nq, true
}

func killLinearFactsOf(known map[*types.Variable]linearFact, v *types.Variable) {
	delete(known, v)
	for dst, f := range known {
		if f.Base == v {
			delete(known, dst)
		}
	}
}
