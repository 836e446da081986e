package optimize

import (
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// CopyPropagation is spec §4.3's basic-block copy-propagation pass: a plain
// "dst := src" (src itself a variable, not a constant) records dst as an
// alias of src for the rest of the block, and later operand references to
// dst are rewritten to src directly. Mirrors ConstantPropagation's
// per-block map/kill discipline but for variable-to-variable copies rather
// than variable-to-constant facts.
var CopyPropagation = FunctionPass{
	Name:        "copy propagation",
	Kind:        BasicBlock,
	Invalidates: PropDefs,
	Run: func(f *mtac.Function) bool {
		changed := false
		for _, b := range f.Blocks {
			known := map[*types.Variable]*types.Variable{}
			for i, s := range b.Stmts {
				switch st := s.(type) {
				case mtac.Quadruple:
					nq := st
					if v, ok := substCopy(nq.Arg1, known); ok {
						nq.Arg1 = v
					}
					if v, ok := substCopy(nq.Arg2, known); ok {
						nq.Arg2 = v
					}
					if nq != st {
						b.Stmts[i] = nq
						changed = true
						st = nq
					}
					if st.Result != nil {
						killCopiesOf(known, st.Result)
						if (st.Op == mtac.ASSIGN || st.Op == mtac.FASSIGN) && st.Arg2 == nil {
							if v, ok := mtac.AsVariable(st.Arg1); ok {
								known[st.Result] = v
							}
						}
					}
				case mtac.If:
					nst := st
					if v, ok := substCopy(nst.Arg1, known); ok {
						nst.Arg1 = v
					}
					if v, ok := substCopy(nst.Arg2, known); ok {
						nst.Arg2 = v
					}
					if nst != st {
						b.Stmts[i] = nst
						changed = true
					}
				case mtac.Param:
					nst := st
					if v, ok := substCopy(nst.Value, known); ok {
						nst.Value = v
						b.Stmts[i] = nst
						changed = true
					}
				case mtac.Return:
					nst := st
					mutated := false
					for j, v := range nst.Values {
						if c, ok := substCopy(v, known); ok {
							nst.Values[j] = c
							mutated = true
						}
					}
					if mutated {
						changed = true
					}
				case mtac.Call:
					known = map[*types.Variable]*types.Variable{}
					if st.Return1 != nil {
						killCopiesOf(known, st.Return1)
					}
				}
			}
		}
		return changed
	},
}

// substCopy replaces a with the variable it's a known copy of, chasing a
// single hop (a copy's source operand is substituted before the copy is
// recorded, and killCopiesOf drops every fact whose source is overwritten,
// so chains collapse to their current root as they're formed).
func substCopy(a mtac.Arg, known map[*types.Variable]*types.Variable) (mtac.Arg, bool) {
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

// killCopiesOf drops any fact naming v as either side: v itself has been
// redefined, or any variable recorded as a copy of v may now disagree.
func killCopiesOf(known map[*types.Variable]*types.Variable, v *types.Variable) {
	delete(known, v)
	for dst, src := range known {
		if src == v {
			delete(known, dst)
		}
	}
}
