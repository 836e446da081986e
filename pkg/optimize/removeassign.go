package optimize

import (
	"github.com/raymyers/ralph-cc/pkg/analysis"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// RemoveAssign is spec §4.3's dead-store pass: an ASSIGN/FASSIGN whose
// result is not live immediately after it has no observable effect and is
// dropped outright. Scoped to the plain-copy opcodes rather than every
// quadruple (DeadCodeElimination covers the general case) since a bare
// assign is the common shape left behind by constant/copy propagation once
// their substitutions make the original destination unused.
//
// Exception: a write to a non-temporary, non-register variable is kept even
// when dead by liveness, since such a variable's storage (stack, parameter,
// or global) is observable through aliasing that this function's own
// liveness facts don't see.
var RemoveAssign = FunctionPass{
	Name:        "remove assign",
	Kind:        FunctionKind,
	Requires:    PropLiveness,
	Invalidates: PropLiveness,
	Run: func(f *mtac.Function) bool {
		live := analysis.ComputeLiveness(f)
		changed := false
		for _, b := range f.Blocks {
			kept := b.Stmts[:0]
			for i, s := range b.Stmts {
				q, ok := s.(mtac.Quadruple)
				if ok && (q.Op == mtac.ASSIGN || q.Op == mtac.FASSIGN) && q.Result != nil && canDropDeadStore(q.Result) {
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

// canDropDeadStore reports whether a dead write to v may be removed at all:
// only a compiler-introduced temporary or an already-allocated register has
// no observer outside this function's own liveness facts.
func canDropDeadStore(v *types.Variable) bool {
	return v.IsTemporary() || v.Position.IsRegisterAssigned()
}
