package analysis

import (
	"github.com/raymyers/ralph-cc/pkg/dataflow"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// Definition identifies one assignment site by the variable it writes and
// the statement that writes it, so that two writes to the same variable at
// different program points are distinguishable reaching-definitions facts.
type Definition struct {
	Var *types.Variable
	Ref mtac.StmtRef
}

// DefSet is a set-of-Definition lattice (forward, per spec §4.2).
type DefSet map[Definition]bool

func NewDefSet() DefSet { return make(DefSet) }

func (s DefSet) clone() DefSet {
	out := make(DefSet, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func (s DefSet) Meet(other dataflow.Lattice) dataflow.Lattice {
	o := other.(DefSet)
	out := make(DefSet, len(s)+len(o))
	for k := range s {
		out[k] = true
	}
	for k := range o {
		out[k] = true
	}
	return out
}

func (s DefSet) Equal(other dataflow.Lattice) bool {
	o := other.(DefSet)
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if !o[k] {
			return false
		}
	}
	return true
}

// OfVariable returns every definition of v present in the set, used by
// analyses/optimizations that need "all defs reaching here for variable v"
// (e.g. checking whether a loop-candidate variable has a single reaching
// definition from outside the loop).
func (s DefSet) OfVariable(v *types.Variable) []Definition {
	var out []Definition
	for d := range s {
		if d.Var == v {
			out = append(out, d)
		}
	}
	return out
}

type reachingDefsProblem struct{}

func (reachingDefsProblem) Forward() bool      { return true }
func (reachingDefsProblem) Init() dataflow.Lattice     { return NewDefSet() }
func (reachingDefsProblem) Boundary() dataflow.Lattice { return NewDefSet() }

// Transfer implements the standard "gen/kill" reaching-definitions rule:
// a new write to v kills every other reaching definition of v and adds
// itself.
func (reachingDefsProblem) Transfer(b *mtac.BasicBlock, in dataflow.Lattice, rec dataflow.StatementRecorder) dataflow.Lattice {
	cur := in.(DefSet).clone()
	for i, s := range b.Stmts {
		before := cur
		for _, d := range mtac.DefinesAll(s) {
			next := make(DefSet, len(cur)+1)
			for def := range cur {
				if def.Var != d {
					next[def] = true
				}
			}
			next[Definition{Var: d, Ref: mtac.StmtRef{Block: b, Index: i}}] = true
			cur = next
		}
		rec.Record(mtac.StmtRef{Block: b, Index: i}, before, cur)
	}
	return cur
}

// ReachingDefs holds the solved reaching-definitions facts for a function.
type ReachingDefs struct {
	res *dataflow.Result
}

// ComputeReachingDefs runs the reaching-definitions analysis over f.
func ComputeReachingDefs(f *mtac.Function) *ReachingDefs {
	return &ReachingDefs{res: dataflow.Solve(f, reachingDefsProblem{})}
}

// ReachingIn returns the definitions reaching the point immediately before
// ref.
func (r *ReachingDefs) ReachingIn(ref mtac.StmtRef) DefSet {
	if v, ok := r.res.StmtIn[ref]; ok {
		return v.(DefSet)
	}
	return NewDefSet()
}
