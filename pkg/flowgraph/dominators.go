// Package flowgraph computes dominator trees and natural loops over an
// mtac.Function's CFG (spec §4.1). CFG successor/predecessor edges
// themselves are wired during mtac.Extract and re-wired in place by
// optimization passes; this package derives dominance and loop structure
// from whatever edges are currently present, and RecomputeCFG (cfg.go)
// rebuilds those edges from each block's terminator.
package flowgraph

import "github.com/raymyers/ralph-cc/pkg/mtac"

// Dominators computes the immediate dominator of every reachable block
// using the standard iterative fixed-point algorithm (spec §4.1 accepts
// this as an alternative to Lengauer-Tarjan). f.EntryBlock dominates every
// block; IDom is left nil on unreachable blocks.
func Dominators(f *mtac.Function) {
	f.EntryBlock.IDom = nil
	for _, b := range f.Blocks {
		b.IDom = nil
	}

	order := reversePostorder(f)
	rpoIndex := make(map[*mtac.BasicBlock]int, len(order))
	for i, b := range order {
		rpoIndex[b] = i
	}

	// idom[entry] = entry, by convention, to seed the fixed point.
	idom := make(map[*mtac.BasicBlock]*mtac.BasicBlock)
	idom[f.EntryBlock] = f.EntryBlock

	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == f.EntryBlock {
				continue
			}
			var newIdom *mtac.BasicBlock
			for _, p := range b.Pred {
				if idom[p] == nil {
					continue // predecessor not yet processed / unreachable
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, idom, rpoIndex)
			}
			if newIdom != nil && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	for b, d := range idom {
		if b == f.EntryBlock {
			continue
		}
		b.IDom = d
	}
}

func intersect(a, b *mtac.BasicBlock, idom map[*mtac.BasicBlock]*mtac.BasicBlock, rpo map[*mtac.BasicBlock]int) *mtac.BasicBlock {
	for a != b {
		for rpo[a] > rpo[b] {
			a = idom[a]
		}
		for rpo[b] > rpo[a] {
			b = idom[b]
		}
	}
	return a
}

// reversePostorder walks the CFG from ENTRY in DFS order and returns it
// reversed, the standard ordering for the dominator fixed point.
func reversePostorder(f *mtac.Function) []*mtac.BasicBlock {
	visited := make(map[*mtac.BasicBlock]bool)
	var post []*mtac.BasicBlock
	var dfs func(b *mtac.BasicBlock)
	dfs = func(b *mtac.BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succ {
			if s == f.ExitBlock {
				continue
			}
			dfs(s)
		}
		post = append(post, b)
	}
	dfs(f.EntryBlock)
	out := make([]*mtac.BasicBlock, len(post))
	for i, b := range post {
		out[len(post)-1-i] = b
	}
	return out
}

// Dominates reports whether a dominates b (every path from ENTRY to b
// passes through a), by walking b's IDom chain. a dominates itself.
func Dominates(a, b *mtac.BasicBlock) bool {
	for cur := b; cur != nil; cur = cur.IDom {
		if cur == a {
			return true
		}
		if cur.IDom == cur {
			break // reached the synthetic self-dominating root
		}
	}
	return a == b
}
