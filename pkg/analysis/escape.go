package analysis

import (
	"github.com/raymyers/ralph-cc/pkg/dataflow"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// escapeProblem is the forward set-of-variables problem from spec §4.2:
// any PARAM with the address-taken flag set, or a DOT/ARRAY operator
// taking a pointer, marks its variable as escaped. Once escaped, a
// variable is forbidden from residing only in a register (enforced later
// by pkg/regalloc).
type escapeProblem struct{}

func (escapeProblem) Forward() bool      { return true }
func (escapeProblem) Init() dataflow.Lattice     { return NewVarSet() }
func (escapeProblem) Boundary() dataflow.Lattice { return NewVarSet() }

func (escapeProblem) Transfer(b *mtac.BasicBlock, in dataflow.Lattice, rec dataflow.StatementRecorder) dataflow.Lattice {
	cur := in.(VarSet)
	for i, s := range b.Stmts {
		before := cur
		switch st := s.(type) {
		case mtac.Param:
			if st.AddressTaken {
				if v, ok := mtac.AsVariable(st.Value); ok {
					cur = cur.Add(v)
				}
			}
		case mtac.Quadruple:
			if st.Op.IsMemoryAccess() {
				if v, ok := mtac.AsVariable(st.Arg1); ok && v.Type.Kind() == types.KindPointer {
					cur = cur.Add(v)
				}
			}
		}
		rec.Record(mtac.StmtRef{Block: b, Index: i}, before, cur)
	}
	return cur
}

// Escape holds the solved set of escaped variables for a function (the
// union of every block's OUT, since escape is monotone and only ever
// grows).
type Escape struct {
	vars VarSet
}

// ComputeEscape runs escape analysis over f and also stamps Variable.Escaped
// on every variable found to escape, per spec §3's lifecycle note that
// escape analysis is the only thing besides register allocation allowed to
// mutate a Variable after front-end construction.
func ComputeEscape(f *mtac.Function) *Escape {
	res := dataflow.Solve(f, escapeProblem{})
	all := NewVarSet()
	for _, b := range f.AllBlocks() {
		if out, ok := res.BlockOut[b]; ok {
			for v := range out.(VarSet) {
				all = all.Add(v)
			}
		}
	}
	for v := range all {
		v.Escaped = true
	}
	return &Escape{vars: all}
}

// Escapes reports whether v was found to escape.
func (e *Escape) Escapes(v *types.Variable) bool { return e.vars.Contains(v) }
