package optimize

import (
	"github.com/raymyers/ralph-cc/pkg/analysis"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// PointerPropagation is spec §4.3's basic-block pointer-propagation pass:
// like CopyPropagation, but restricted to pointer-typed "dst := src"
// copies, and using escape info (stamped on *types.Variable by
// analysis.ComputeEscape, assumed already fresh per Requires: PropEscape)
// to decide whether a CALL statement can invalidate a fact. A CALL can only
// retarget a pointer reachable from outside the function, so a fact
// between two variables that have both never escaped survives a call.
var PointerPropagation = FunctionPass{
	Name:        "pointer propagation",
	Kind:        BasicBlock,
	Requires:    PropEscape,
	Invalidates: PropDefs,
	Run: func(f *mtac.Function) bool {
		analysis.ComputeEscape(f)

		changed := false
		for _, b := range f.Blocks {
			known := map[*types.Variable]*types.Variable{}
			for i, s := range b.Stmts {
				q, ok := s.(mtac.Quadruple)
				if ok {
					nq := q
					if v, ok := substPointer(nq.Arg1, known); ok {
						nq.Arg1 = v
					}
					if !q.Op.IsMemoryAccess() {
						// Arg2 of a memory-access op is a field/index offset,
						// never itself a pointer operand worth substituting.
						if v, ok := substPointer(nq.Arg2, known); ok {
							nq.Arg2 = v
						}
					}
					if nq != q {
						b.Stmts[i] = nq
						changed = true
						q = nq
					}
					if q.Result != nil {
						killPointerCopiesOf(known, q.Result)
						if q.Op == mtac.ASSIGN && q.Arg2 == nil && q.Result.Type.Kind() == types.KindPointer {
							if v, ok := mtac.AsVariable(q.Arg1); ok && v.Type.Kind() == types.KindPointer {
								known[q.Result] = v
							}
						}
					}
					continue
				}
				if c, ok := s.(mtac.Call); ok {
					for dst, src := range known {
						if dst.Escaped || src.Escaped {
							delete(known, dst)
						}
					}
					if c.Return1 != nil {
						killPointerCopiesOf(known, c.Return1)
					}
				}
			}
		}
		return changed
	},
}

func substPointer(a mtac.Arg, known map[*types.Variable]*types.Variable) (mtac.Arg, bool) {
	v, ok := mtac.AsVariable(a)
	if !ok {
		return a, false
	}
	src, ok := known[v]
	if !ok {
		return a, false
	}
	return mtac.VarArg{Var: src}, true
}

func killPointerCopiesOf(known map[*types.Variable]*types.Variable, v *types.Variable) {
	delete(known, v)
	for dst, src := range known {
		if src == v {
			delete(known, dst)
		}
	}
}
