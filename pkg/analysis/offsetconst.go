package analysis

import (
	"github.com/raymyers/ralph-cc/pkg/dataflow"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// OffsetConst describes a variable's known value as base-plus-constant:
// either a bare integer (Base == nil) or base-variable-plus-offset, used by
// the offset-constant-propagation pass to fold "p := base + k; *p" chains
// and by strength reduction to track an induction variable's closed form
// (spec §4.2/§4.4).
type OffsetConst struct {
	Base   *types.Variable // nil for a bare constant
	Offset int64
}

// ConstMap is a map-lattice from variable to its known OffsetConst, or
// "unknown" if absent. Meet is the standard constant-propagation meet:
// unequal facts from two paths collapse to unknown (removed from the map).
type ConstMap map[*types.Variable]OffsetConst

func NewConstMap() ConstMap { return make(ConstMap) }

func (m ConstMap) clone() ConstMap {
	out := make(ConstMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m ConstMap) Meet(other dataflow.Lattice) dataflow.Lattice {
	o := other.(ConstMap)
	out := make(ConstMap)
	for v, c := range m {
		if oc, ok := o[v]; ok && oc == c {
			out[v] = c
		}
	}
	return out
}

func (m ConstMap) Equal(other dataflow.Lattice) bool {
	o := other.(ConstMap)
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		if o[k] != v {
			return false
		}
	}
	return true
}

// Lookup returns the known OffsetConst for v and whether it's known.
func (m ConstMap) Lookup(v *types.Variable) (OffsetConst, bool) {
	c, ok := m[v]
	return c, ok
}

type offsetConstProblem struct{}

func (offsetConstProblem) Forward() bool      { return true }
func (offsetConstProblem) Init() dataflow.Lattice     { return NewConstMap() }
func (offsetConstProblem) Boundary() dataflow.Lattice { return NewConstMap() }

// Transfer folds ASSIGN/ADD/SUB of an already-known base into a new
// OffsetConst fact, and invalidates any fact mentioning a redefined
// variable as its base. Any other assignment simply kills the destination's
// own entry (its value is no longer known as base+k).
func (offsetConstProblem) Transfer(b *mtac.BasicBlock, in dataflow.Lattice, rec dataflow.StatementRecorder) dataflow.Lattice {
	cur := in.(ConstMap)
	for i, s := range b.Stmts {
		before := cur
		q, ok := s.(mtac.Quadruple)
		if !ok || q.Result == nil {
			rec.Record(mtac.StmtRef{Block: b, Index: i}, before, cur)
			continue
		}
		next := cur.clone()
		delete(next, q.Result)
		for k, c := range next {
			if c.Base == q.Result {
				delete(next, k)
			}
		}
		if c, ok := evalOffsetConst(q, cur); ok {
			next[q.Result] = c
		}
		cur = next
		rec.Record(mtac.StmtRef{Block: b, Index: i}, before, cur)
	}
	return cur
}

// evalOffsetConst computes a closed-form OffsetConst for a quadruple when
// possible: a bare int constant, a copy of an already-known variable, or an
// ADD/SUB of a known base against a constant delta.
func evalOffsetConst(q mtac.Quadruple, known ConstMap) (OffsetConst, bool) {
	switch q.Op {
	case mtac.ASSIGN:
		if n, ok := mtac.AsInt(q.Arg1); ok {
			return OffsetConst{Offset: n}, true
		}
		if v, ok := mtac.AsVariable(q.Arg1); ok {
			if c, ok := known.Lookup(v); ok {
				return c, true
			}
		}
	case mtac.ADD, mtac.SUB:
		base, delta, baseIsArg1, ok := splitBaseDelta(q.Arg1, q.Arg2, known)
		if !ok {
			return OffsetConst{}, false
		}
		if q.Op == mtac.SUB && !baseIsArg1 {
			// k - v has no closed base+offset form (base would need negation
			// of itself, not just the delta).
			return OffsetConst{}, false
		}
		if q.Op == mtac.SUB {
			delta = -delta
		}
		if base == nil {
			return OffsetConst{Offset: delta}, true
		}
		return OffsetConst{Base: base, Offset: delta}, true
	}
	return OffsetConst{}, false
}

// splitBaseDelta recognizes "knownVar op constant" (in either argument
// order) and returns the base variable (nil if both sides are constants),
// the constant delta, and whether the base was Arg1.
func splitBaseDelta(a1, a2 mtac.Arg, known ConstMap) (base *types.Variable, delta int64, baseIsArg1 bool, ok bool) {
	c1, isConst1 := mtac.AsInt(a1)
	c2, isConst2 := mtac.AsInt(a2)
	if isConst1 && isConst2 {
		return nil, c1 + c2, true, true
	}
	if v1, isVar1 := mtac.AsVariable(a1); isVar1 && isConst2 {
		if oc, found := known.Lookup(v1); found {
			return oc.Base, oc.Offset + c2, true, true
		}
		return v1, c2, true, true
	}
	if v2, isVar2 := mtac.AsVariable(a2); isVar2 && isConst1 {
		if oc, found := known.Lookup(v2); found {
			return oc.Base, oc.Offset + c1, false, true
		}
		return v2, c1, false, true
	}
	return nil, 0, false, false
}

// OffsetConstants holds the solved offset-constant-propagation facts.
type OffsetConstants struct {
	res *dataflow.Result
}

// ComputeOffsetConstants runs the analysis over f.
func ComputeOffsetConstants(f *mtac.Function) *OffsetConstants {
	return &OffsetConstants{res: dataflow.Solve(f, offsetConstProblem{})}
}

// ConstantsIn returns the known base+offset facts immediately before ref.
func (o *OffsetConstants) ConstantsIn(ref mtac.StmtRef) ConstMap {
	if v, ok := o.res.StmtIn[ref]; ok {
		return v.(ConstMap)
	}
	return NewConstMap()
}
