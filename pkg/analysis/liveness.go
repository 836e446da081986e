package analysis

import (
	"github.com/raymyers/ralph-cc/pkg/dataflow"
	"github.com/raymyers/ralph-cc/pkg/mtac"
)

// livenessProblem is the backward set-of-variables problem from spec §4.2:
// "use minus def" transfer, output consumed by the register allocator and
// by dead-code elimination.
type livenessProblem struct{}

func (livenessProblem) Forward() bool     { return false }
func (livenessProblem) Init() dataflow.Lattice    { return NewVarSet() }
func (livenessProblem) Boundary() dataflow.Lattice { return NewVarSet() }

func (livenessProblem) Transfer(b *mtac.BasicBlock, out dataflow.Lattice, rec dataflow.StatementRecorder) dataflow.Lattice {
	live := out.(VarSet)
	// Walk statements in reverse: live-in of a statement is
	// (live-out - def) union use.
	for i := len(b.Stmts) - 1; i >= 0; i-- {
		s := b.Stmts[i]
		after := live
		for _, d := range mtac.DefinesAll(s) {
			live = live.Remove(d)
		}
		for _, u := range mtac.Uses(s) {
			live = live.Add(u)
		}
		rec.Record(mtac.StmtRef{Block: b, Index: i}, live, after)
	}
	return live
}

// Liveness is the set of live variables at every block/statement boundary.
type Liveness struct {
	res *dataflow.Result
}

// ComputeLiveness runs the liveness analysis over f.
func ComputeLiveness(f *mtac.Function) *Liveness {
	return &Liveness{res: dataflow.Solve(f, livenessProblem{})}
}

// LiveOut returns the set of variables live immediately after ref.
func (l *Liveness) LiveOut(ref mtac.StmtRef) VarSet {
	if v, ok := l.res.StmtOut[ref]; ok {
		return v.(VarSet)
	}
	return NewVarSet()
}

// LiveIn returns the set of variables live immediately before ref.
func (l *Liveness) LiveIn(ref mtac.StmtRef) VarSet {
	if v, ok := l.res.StmtIn[ref]; ok {
		return v.(VarSet)
	}
	return NewVarSet()
}

// BlockLiveOut returns the set of variables live at a block's exit.
func (l *Liveness) BlockLiveOut(b *mtac.BasicBlock) VarSet {
	return l.res.BlockOut[b].(VarSet)
}

// BlockLiveIn returns the set of variables live at a block's entry.
func (l *Liveness) BlockLiveIn(b *mtac.BasicBlock) VarSet {
	return l.res.BlockIn[b].(VarSet)
}
