package optimize

import "github.com/raymyers/ralph-cc/pkg/mtac"

// MergeBasicBlocks folds a block into its sole successor when that
// successor has no other predecessor, the classic straight-line merge
// (spec §4.3). A trailing unconditional Goto into the absorbed block is
// dropped since falling off the end of the merged block now reaches it
// directly.
var MergeBasicBlocks = FunctionPass{
	Name:        "merge basic blocks",
	Kind:        FunctionKind,
	Invalidates: PropCFG | PropLoops | PropDominators,
	Run: func(f *mtac.Function) bool {
		changed := false
		for _, a := range f.Blocks {
			for {
				if a.Dead() || len(a.Succ) != 1 {
					break
				}
				b := a.Succ[0]
				if b.IsSentinel() || b == a || len(b.Pred) != 1 || b.Pred[0] != a {
					break
				}
				if g, ok := a.Terminator().(mtac.Goto); ok && g.Target == b {
					a.Stmts = a.Stmts[:len(a.Stmts)-1]
				}
				a.Stmts = append(a.Stmts, b.Stmts...)
				succ := append([]*mtac.BasicBlock{}, b.Succ...)
				b.ClearEdges()
				for _, s := range succ {
					a.AddSuccessor(s)
				}
				b.MarkDead()
				changed = true
			}
		}
		if changed {
			f.SweepDead()
		}
		return changed
	},
}
