package optimize

import (
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// ConstantPropagation is spec §4.3's basic-block constant-propagation pass:
// a per-block map of variable to known constant, substituted into operand
// positions before each statement is reprocessed; any write clears its own
// variable's entry, and any CALL that may alias a global clears the whole
// map.
var ConstantPropagation = FunctionPass{
	Name:        "constant propagation",
	Kind:        BasicBlock,
	Invalidates: PropDefs,
	Run: func(f *mtac.Function) bool {
		changed := false
		for _, b := range f.Blocks {
			known := map[*types.Variable]int64{}
			for i, s := range b.Stmts {
				switch st := s.(type) {
				case mtac.Quadruple:
					nq := st
					if v, ok := substConst(nq.Arg1, known); ok {
						nq.Arg1 = v
					}
					if v, ok := substConst(nq.Arg2, known); ok {
						nq.Arg2 = v
					}
					if nq != st {
						b.Stmts[i] = nq
						changed = true
						st = nq
					}
					if st.Result != nil {
						delete(known, st.Result)
						if st.Op == mtac.ASSIGN {
							if n, ok := mtac.AsInt(st.Arg1); ok {
								known[st.Result] = n
							}
						}
					}
				case mtac.If:
					nst := st
					if v, ok := substConst(nst.Arg1, known); ok {
						nst.Arg1 = v
					}
					if v, ok := substConst(nst.Arg2, known); ok {
						nst.Arg2 = v
					}
					if nst != st {
						b.Stmts[i] = nst
						changed = true
					}
				case mtac.Param:
					nst := st
					if v, ok := substConst(nst.Value, known); ok {
						nst.Value = v
						b.Stmts[i] = nst
						changed = true
					}
				case mtac.Return:
					nst := st
					mutated := false
					for j, v := range nst.Values {
						if c, ok := substConst(v, known); ok {
							nst.Values[j] = c
							mutated = true
						}
					}
					if mutated {
						changed = true
					}
				case mtac.Call:
					known = map[*types.Variable]int64{}
					if st.Return1 != nil {
						delete(known, st.Return1)
					}
				}
			}
		}
		return changed
	},
}

// substConst replaces a with its known constant when a is a VarArg with a
// recorded value, reporting whether a substitution happened.
func substConst(a mtac.Arg, known map[*types.Variable]int64) (mtac.Arg, bool) {
	v, ok := mtac.AsVariable(a)
	if !ok {
		return a, false
	}
	n, ok := known[v]
	if !ok {
		return a, false
	}
	return mtac.IntConst{Value: n}, true
}
