package flowgraph

import "github.com/raymyers/ralph-cc/pkg/mtac"

// FindLoops identifies every natural loop in f (spec §4.1, §3): for each
// back edge u->h where h dominates u, the loop is {h} union every block
// that can reach u without passing through h. Requires Dominators to have
// already run: the blocks' IDom pointers are read as they are, without a
// check, so with no dominator information only self-loops (h->h) are found.
func FindLoops(f *mtac.Function) []*mtac.Loop {
	var loops []*mtac.Loop
	for _, h := range f.Blocks {
		for _, u := range h.Pred {
			if !Dominates(h, u) {
				continue // not a back edge
			}
			loops = append(loops, buildLoop(h, u))
		}
	}
	f.Loops = loops
	f.LoopsStale = false
	return loops
}

func buildLoop(header, latch *mtac.BasicBlock) *mtac.Loop {
	blocks := map[*mtac.BasicBlock]bool{header: true}
	var stack []*mtac.BasicBlock
	if latch != header {
		blocks[latch] = true
		stack = append(stack, latch)
	}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range b.Pred {
			if blocks[p] {
				continue
			}
			blocks[p] = true
			stack = append(stack, p)
		}
	}
	return &mtac.Loop{Header: header, Blocks: blocks, TripCount: -1}
}

// Preheader returns the loop's unique non-loop predecessor of Header if
// there is exactly one, or nil. LICM and induction-variable
// initialization (spec §4.3) require this to insert a pre-header; callers
// that need one unconditionally should call EnsurePreheader instead.
func Preheader(l *mtac.Loop) *mtac.BasicBlock {
	var outside *mtac.BasicBlock
	count := 0
	for _, p := range l.Header.Pred {
		if !l.Contains(p) {
			outside = p
			count++
		}
	}
	if count == 1 {
		return outside
	}
	return nil
}

// EnsurePreheader returns the loop's pre-header, inserting a fresh block
// holding only a Goto to Header between every non-loop predecessor of
// Header and Header itself if
// one doesn't already uniquely exist (spec §4.3's "pre-header" glossary
// entry: "such that the header has exactly one non-loop predecessor").
// The new block's index is len(f.Blocks); it is appended to f.Blocks and
// f.InvalidateCFG is called.
func EnsurePreheader(f *mtac.Function, l *mtac.Loop) *mtac.BasicBlock {
	if ph := Preheader(l); ph != nil {
		return ph
	}

	pre := &mtac.BasicBlock{Index: mtac.BlockIndex(len(f.Blocks))}
	pre.Label = syntheticLabel(f, pre)
	pre.Stmts = []mtac.Statement{mtac.Goto{Label: l.Header.Label, Target: l.Header}}
	if l.Header.Label == "" {
		// Synthesize a label so the Goto is well-formed even though nothing
		// else in the function needs to resolve it by name.
		l.Header.Label = syntheticLabel(f, l.Header)
		pre.Stmts[0] = mtac.Goto{Label: l.Header.Label, Target: l.Header}
	}

	var outsidePreds []*mtac.BasicBlock
	for _, p := range l.Header.Pred {
		if !l.Contains(p) {
			outsidePreds = append(outsidePreds, p)
		}
	}
	for _, p := range outsidePreds {
		rewireTarget(p, l.Header, pre)
	}
	pre.AddSuccessor(l.Header)

	f.Blocks = append(f.Blocks, pre)
	f.InvalidateCFG()
	return pre
}

func syntheticLabel(f *mtac.Function, b *mtac.BasicBlock) string {
	return f.Name + "$hdr" + string(rune('0'+int(b.Index)%10))
}

// rewireTarget redirects every branch in from that targets to, and fixes
// the CFG edge accordingly, pointing it at replacement instead. from may
// also reach to purely by implicit fallthrough (no Goto/If names it at
// all); since replacement is appended at the end of f.Blocks rather than
// spliced in between from and to, that positional adjacency no longer
// holds, so an explicit Goto is appended to from to keep the edge real
// once flowgraph.RecomputeCFG re-derives edges from scratch.
func rewireTarget(from, to, replacement *mtac.BasicBlock) {
	term := from.Terminator()
	switch t := term.(type) {
	case mtac.Goto:
		if t.Target == to {
			t.Target = replacement
			t.Label = replacement.Label
			from.Stmts[len(from.Stmts)-1] = t
		}
	case mtac.If:
		if t.Target == to {
			t.Target = replacement
			t.Label = replacement.Label
			from.Stmts[len(from.Stmts)-1] = t
		}
	default:
		from.Stmts = append(from.Stmts, mtac.Goto{Label: replacement.Label, Target: replacement})
	}
	for i, s := range from.Succ {
		if s == to {
			from.Succ[i] = replacement
			break
		}
	}
	to.Pred = removePred(to.Pred, from)
	replacement.Pred = append(replacement.Pred, from)
}

func removePred(list []*mtac.BasicBlock, target *mtac.BasicBlock) []*mtac.BasicBlock {
	out := list[:0]
	for _, b := range list {
		if b != target {
			out = append(out, b)
		}
	}
	return out
}
