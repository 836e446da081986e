package optimize

import (
	"github.com/raymyers/ralph-cc/pkg/analysis"
	"github.com/raymyers/ralph-cc/pkg/mtac"
)

// OffsetConstantPropagation runs analysis.ComputeOffsetConstants and folds
// any quadruple operand known to be a bare constant (Base == nil) into an
// IntConst, the MTAC-level half of spec §4.3's "offset constant
// propagation" entry; base+offset facts with a non-nil Base feed induction
// variable analysis directly rather than being substituted here, since
// there is no MTAC operand form for "variable plus constant" other than
// the ADD/SUB quadruple that already computes it.
var OffsetConstantPropagation = FunctionPass{
	Name:        "offset constant propagation",
	Kind:        BasicBlock,
	Invalidates: PropDefs,
	Run: func(f *mtac.Function) bool {
		changed := false
		oc := analysis.ComputeOffsetConstants(f)
		for _, b := range f.Blocks {
			for i, s := range b.Stmts {
				q, ok := s.(mtac.Quadruple)
				if !ok {
					continue
				}
				facts := oc.ConstantsIn(mtac.StmtRef{Block: b, Index: i})
				nq := q
				if v, ok := mtac.AsVariable(nq.Arg1); ok {
					if c, found := facts.Lookup(v); found && c.Base == nil {
						nq.Arg1 = mtac.IntConst{Value: c.Offset}
					}
				}
				if v, ok := mtac.AsVariable(nq.Arg2); ok {
					if c, found := facts.Lookup(v); found && c.Base == nil {
						nq.Arg2 = mtac.IntConst{Value: c.Offset}
					}
				}
				if nq != q {
					b.Stmts[i] = nq
					changed = true
				}
			}
		}
		return changed
	},
}
