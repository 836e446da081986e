package optimize

import "github.com/raymyers/ralph-cc/pkg/mtac"

// RemoveDeadBasicBlocks is spec §4.3's unreachable-block cleanup: any block
// not reachable from ENTRY by walking Succ edges is flagged dead and swept
// from f.Blocks.
var RemoveDeadBasicBlocks = FunctionPass{
	Name:        "remove dead basic blocks",
	Kind:        FunctionKind,
	Requires:    PropCFG,
	Invalidates: PropCFG | PropLoops,
	Run: func(f *mtac.Function) bool {
		reachable := map[*mtac.BasicBlock]bool{f.EntryBlock: true}
		var stack []*mtac.BasicBlock
		stack = append(stack, f.EntryBlock)
		for len(stack) > 0 {
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, s := range b.Succ {
				if reachable[s] {
					continue
				}
				reachable[s] = true
				stack = append(stack, s)
			}
		}
		any := false
		for _, b := range f.Blocks {
			if !reachable[b] {
				b.MarkDead()
				any = true
			}
		}
		if !any {
			return false
		}
		f.SweepDead()
		return true
	},
}
