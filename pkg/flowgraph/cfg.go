package flowgraph

import "github.com/raymyers/ralph-cc/pkg/mtac"

// RecomputeCFG rebuilds every edge in f from scratch by inspecting each
// block's terminator, per spec §4.1's contract: fallthrough to the next
// block in Blocks order iff the last statement isn't an unconditional
// terminator, a GOTO's resolved Target, or a conditional branch's Target
// plus fallthrough. Also rewires ENTRY->first and every return block->EXIT.
// Used as the RECOMPUTE_CFG maintenance step after a pass reports a
// structural edit (spec §4.3's todo_after matrix).
func RecomputeCFG(f *mtac.Function) {
	for _, b := range f.Blocks {
		b.ClearEdges()
	}
	f.EntryBlock.ClearEdges()
	f.ExitBlock.ClearEdges()

	if len(f.Blocks) == 0 {
		f.EntryBlock.Succ = []*mtac.BasicBlock{f.ExitBlock}
		f.ExitBlock.Pred = []*mtac.BasicBlock{f.EntryBlock}
		f.CFGStale = false
		return
	}

	f.EntryBlock.AddSuccessor(f.Blocks[0])

	for i, b := range f.Blocks {
		var fallthroughTarget *mtac.BasicBlock
		if i+1 < len(f.Blocks) {
			fallthroughTarget = f.Blocks[i+1]
		}
		switch t := b.Terminator().(type) {
		case mtac.Goto:
			b.AddSuccessor(t.Target)
		case mtac.If:
			b.AddSuccessor(t.Target)
			if fallthroughTarget != nil {
				b.AddSuccessor(fallthroughTarget)
			}
		case mtac.Return:
			b.AddSuccessor(f.ExitBlock)
		default:
			if fallthroughTarget != nil {
				b.AddSuccessor(fallthroughTarget)
			} else {
				b.AddSuccessor(f.ExitBlock)
			}
		}
	}
	f.CFGStale = false
}

// Reachable returns the set of blocks reachable from ENTRY, used by "remove
// dead basic blocks" (spec §4.3) to find MarkDead candidates.
func Reachable(f *mtac.Function) map[*mtac.BasicBlock]bool {
	seen := map[*mtac.BasicBlock]bool{f.EntryBlock: true}
	var stack []*mtac.BasicBlock
	stack = append(stack, f.EntryBlock)
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range b.Succ {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return seen
}
