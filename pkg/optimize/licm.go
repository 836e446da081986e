package optimize

import (
	"github.com/raymyers/ralph-cc/pkg/flowgraph"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// LoopInvariantCodeMotion hoists a pure computation out of a loop's header
// into its pre-header when its result is defined exactly once in the loop
// and every operand is either a constant or a variable with no definition
// left inside the loop (spec §4.3). Restricting candidates to statements in
// l.Header keeps the motion safe without a full dominance-of-all-exits
// check: the header runs on every iteration, so anything computed there
// unconditionally executes exactly as often hoisted as it did in place.
var LoopInvariantCodeMotion = FunctionPass{
	Name:        "loop-invariant code motion",
	Kind:        FunctionKind,
	Requires:    PropLoops | PropDominators,
	Invalidates: PropCFG,
	Run: func(f *mtac.Function) bool {
		changed := false
		for _, l := range f.Loops {
			if licmOneLoop(f, l) {
				changed = true
			}
		}
		return changed
	},
}

func licmOneLoop(f *mtac.Function, l *mtac.Loop) bool {
	defCount := map[*types.Variable]int{}
	for b := range l.Blocks {
		for _, s := range b.Stmts {
			countDefs(s, defCount)
		}
	}

	changed := false
	var pre *mtac.BasicBlock
	header := l.Header
	remaining := header.Stmts[:0]
	for _, s := range header.Stmts {
		q, ok := s.(mtac.Quadruple)
		if !ok || q.Op == mtac.NOP || q.Op.IsMemoryAccess() || q.Result == nil || defCount[q.Result] != 1 {
			remaining = append(remaining, s)
			continue
		}
		if !operandInvariant(q.Arg1, l, defCount) || !operandInvariant(q.Arg2, l, defCount) {
			remaining = append(remaining, s)
			continue
		}
		if pre == nil {
			pre = flowgraph.EnsurePreheader(f, l)
			if pre.IsSentinel() {
				// The loop's header is reached directly from the function's
				// implicit entry edge; ENTRY carries no statements of its
				// own in this IR, so there is nowhere to place a hoisted
				// computation. Leave this loop's invariants in place.
				remaining = append(remaining, s)
				pre = nil
				continue
			}
		}
		insertBeforeTerminator(pre, s)
		delete(defCount, q.Result) // now defined once, outside the loop
		changed = true
	}
	if changed {
		header.Stmts = remaining
	}
	return changed
}

func operandInvariant(a mtac.Arg, l *mtac.Loop, defCount map[*types.Variable]int) bool {
	v, ok := mtac.AsVariable(a)
	if !ok {
		return true // constant or no operand at all
	}
	return defCount[v] == 0
}

func countDefs(s mtac.Statement, defCount map[*types.Variable]int) {
	switch st := s.(type) {
	case mtac.Quadruple:
		if st.Result != nil {
			defCount[st.Result]++
		}
	case mtac.Call:
		if st.Return1 != nil {
			defCount[st.Return1]++
		}
		if st.Return2 != nil {
			defCount[st.Return2]++
		}
	}
}

// insertBeforeTerminator appends s to b just before its final control-flow
// statement (Goto/If), or at the end if b has none.
func insertBeforeTerminator(b *mtac.BasicBlock, s mtac.Statement) {
	switch b.Terminator().(type) {
	case mtac.Goto, mtac.If:
		idx := len(b.Stmts) - 1
		b.Stmts = append(b.Stmts, nil)
		copy(b.Stmts[idx+1:], b.Stmts[idx:])
		b.Stmts[idx] = s
	default:
		b.Stmts = append(b.Stmts, s)
	}
}
