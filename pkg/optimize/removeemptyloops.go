package optimize

import (
	"github.com/raymyers/ralph-cc/pkg/flowgraph"
	"github.com/raymyers/ralph-cc/pkg/mtac"
)

// RemoveEmptyLoops drops a natural loop whose blocks compute nothing at all
// (every statement is a NOP, an unconditional Goto, or the header's own
// branch test) and that exits to exactly one block outside itself. Such a
// loop either runs zero times or spins with no observable effect, so its
// preheader can jump straight to the exit target instead (spec §4.3).
// Assumes f.Loops and dominators are already fresh (Requires: loops,
// dominators).
var RemoveEmptyLoops = FunctionPass{
	Name:        "remove empty loops",
	Kind:        FunctionKind,
	Requires:    PropLoops | PropDominators,
	Invalidates: PropLoops | PropCFG,
	Run: func(f *mtac.Function) bool {
		changed := false
		for _, l := range f.Loops {
			if !loopBodyIsEmpty(l) {
				continue
			}
			exit, ok := uniqueExitTarget(l)
			if !ok {
				continue
			}
			pre := flowgraph.Preheader(l)
			if pre == nil {
				continue
			}
			if redirectToExit(pre, l.Header, exit) {
				changed = true
			}
		}
		if changed {
			f.InvalidateCFG()
		}
		return changed
	},
}

func loopBodyIsEmpty(l *mtac.Loop) bool {
	for b := range l.Blocks {
		for _, s := range b.Stmts {
			switch s.(type) {
			case mtac.Quadruple:
				if q := s.(mtac.Quadruple); q.Op != mtac.NOP {
					return false
				}
			case mtac.Goto, mtac.If:
				// control flow only, no computation
			default:
				return false
			}
		}
	}
	return true
}

// uniqueExitTarget returns the single block outside l that some block
// inside l branches to, or false if there are zero or more than one.
func uniqueExitTarget(l *mtac.Loop) (*mtac.BasicBlock, bool) {
	var exit *mtac.BasicBlock
	for b := range l.Blocks {
		for _, s := range b.Succ {
			if l.Contains(s) {
				continue
			}
			if exit != nil && exit != s {
				return nil, false
			}
			exit = s
		}
	}
	if exit == nil {
		return nil, false
	}
	return exit, true
}

// redirectToExit rewrites pre's branch into header to instead target exit
// directly, skipping the loop entirely. pre's edge into header may be an
// explicit Goto/If, or (the ENTRY sentinel, or an ordinary block that
// simply falls into header by block order) purely structural; the latter
// two cases carry no statement to rewrite, so an explicit Goto is appended
// instead of relying on fallthrough order, which would no longer be valid
// once header is skipped.
func redirectToExit(pre, header, exit *mtac.BasicBlock) bool {
	switch t := pre.Terminator().(type) {
	case mtac.Goto:
		if t.Target != header {
			return false
		}
		t.Target = exit
		t.Label = exit.Label
		pre.Stmts[len(pre.Stmts)-1] = t
	case mtac.If:
		if t.Target != header {
			return false
		}
		t.Target = exit
		t.Label = exit.Label
		pre.Stmts[len(pre.Stmts)-1] = t
	default:
		if !pre.IsSentinel() {
			pre.Stmts = append(pre.Stmts, mtac.Goto{Label: exit.Label, Target: exit})
		}
	}
	for i, s := range pre.Succ {
		if s == header {
			pre.Succ[i] = exit
			break
		}
	}
	header.Pred = removeBlockFrom(header.Pred, pre)
	exit.Pred = append(exit.Pred, pre)
	return true
}

func removeBlockFrom(list []*mtac.BasicBlock, target *mtac.BasicBlock) []*mtac.BasicBlock {
	out := list[:0]
	for _, b := range list {
		if b != target {
			out = append(out, b)
		}
	}
	return out
}
