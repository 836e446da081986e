package optimize

import (
	"github.com/raymyers/ralph-cc/pkg/analysis"
	"github.com/raymyers/ralph-cc/pkg/mtac"
)

// DeadCodeElimination is spec §4.3's broader dead-code pass: any quadruple
// computing a pure value (no memory write, no call) whose result is dead
// immediately after it is dropped, regardless of opcode. Unlike
// RemoveAssign this also catches dead arithmetic/comparison results, which
// is why spec.md lists it as invalidating nothing further: it's meant to
// run last in a propagation/fold/cse sequence, once every substitution that
// could still observe the dropped value has already happened.
var DeadCodeElimination = FunctionPass{
	Name:     "dead-code elimination",
	Kind:     FunctionKind,
	Requires: PropLiveness,
	Run: func(f *mtac.Function) bool {
		live := analysis.ComputeLiveness(f)
		changed := false
		for _, b := range f.Blocks {
			kept := b.Stmts[:0]
			for i, s := range b.Stmts {
				q, ok := s.(mtac.Quadruple)
				if ok && q.Result != nil && q.Op != mtac.NOP && !q.Op.IsMemoryAccess() {
					out := live.LiveOut(mtac.StmtRef{Block: b, Index: i})
					if !out.Contains(q.Result) {
						changed = true
						continue
					}
				}
				kept = append(kept, s)
			}
			b.Stmts = kept
		}
		return changed
	},
}
