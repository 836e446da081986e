package optimize

import "github.com/raymyers/ralph-cc/pkg/mtac"

// allProperties is the bit pattern spec §4.3's pass table spells as "all"
// in the remove-unused-functions row: deleting whole functions invalidates
// every per-function analysis this manager tracks.
const allProperties = PropLiveness | PropEscape | PropDominators | PropLoops | PropDefs | PropCFG | PropCallGraph

// RemoveUnusedFunctions is the sole IPA pass: it deletes every function not
// reachable, by CALL statements, from the program's "main" entry point. A
// function kept alive only by being unreachable garbage is "unused"; a
// function whose body computes nothing but is still called by live code is
// left in place; removing the function would also require rewriting every
// call site (and, for a non-void callee, synthesizing whatever constant
// value its single return produced), which is a call-site inlining
// transform this pass's Requires/Invalidates profile doesn't ask for.
var RemoveUnusedFunctions = ProgramPass{
	Name:        "remove unused / empty functions",
	Requires:    PropCallGraph,
	Invalidates: allProperties,
	Run: func(p *mtac.Program) bool {
		reachable := reachableFunctions(p)
		if reachable == nil {
			return false
		}
		kept := p.Functions[:0]
		changed := false
		for _, f := range p.Functions {
			if reachable[f.Name] {
				kept = append(kept, f)
			} else {
				changed = true
			}
		}
		if changed {
			p.Functions = kept
		}
		return changed
	},
}

// reachableFunctions walks the call graph from the function named "main",
// returning the set of function names reachable from it (main included).
// Returns nil when no "main" exists: without a known entry point, a
// function with zero visible callers might still be reachable from outside
// this compilation unit, so nothing can be safely pronounced unused.
func reachableFunctions(p *mtac.Program) map[string]bool {
	var root *mtac.Function
	for _, f := range p.Functions {
		if f.Name == "main" {
			root = f
			break
		}
	}
	if root == nil {
		return nil
	}
	byName := make(map[string]*mtac.Function, len(p.Functions))
	for _, f := range p.Functions {
		byName[f.Name] = f
	}

	seen := map[string]bool{root.Name: true}
	queue := []*mtac.Function{root}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		for _, b := range f.Blocks {
			for _, s := range b.Stmts {
				call, ok := s.(mtac.Call)
				if !ok || seen[call.Callee] {
					continue
				}
				callee, ok := byName[call.Callee]
				if !ok {
					continue // not part of this program's Functions (a runtime call)
				}
				seen[call.Callee] = true
				queue = append(queue, callee)
			}
		}
	}
	return seen
}
