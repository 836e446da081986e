// Package analysis implements the concrete dataflow analyses spec §4.2
// names: liveness, reaching definitions, escape/pointer-taken, available
// expressions, and offset-constant propagation, each as a
// dataflow.Problem instance.
package analysis

import (
	"github.com/raymyers/ralph-cc/pkg/dataflow"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// VarSet is a set-of-*Variable lattice, used by liveness and escape
// analysis (reaching definitions uses DefSet instead). Grounded on the teacher's hand-rolled
// RegSet in pkg/regalloc/interference.go (a map-backed set, not a
// third-party bitset — the corpus has no dependency for this).
type VarSet map[*types.Variable]bool

func NewVarSet() VarSet { return make(VarSet) }

func (s VarSet) Add(v *types.Variable) VarSet {
	out := s.clone()
	out[v] = true
	return out
}

func (s VarSet) Remove(v *types.Variable) VarSet {
	out := s.clone()
	delete(out, v)
	return out
}

func (s VarSet) Contains(v *types.Variable) bool { return s[v] }

func (s VarSet) clone() VarSet {
	out := make(VarSet, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func (s VarSet) Meet(other dataflow.Lattice) dataflow.Lattice {
	o := other.(VarSet)
	out := make(VarSet, len(s)+len(o))
	for k := range s {
		out[k] = true
	}
	for k := range o {
		out[k] = true
	}
	return out
}

func (s VarSet) Equal(other dataflow.Lattice) bool {
	o := other.(VarSet)
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
