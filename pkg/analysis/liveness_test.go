package analysis

import (
	"testing"

	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

func straightLineFunc(t *testing.T) (*mtac.Function, *types.Variable, *types.Variable) {
	t.Helper()
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	x := ctx.Declare("x", types.Int, types.StackPosition(-8))
	y := ctx.Declare("y", types.Int, types.StackPosition(-16))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: x, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: 1}},
		mtac.Quadruple{Result: y, Op: mtac.ADD, Arg1: mtac.VarArg{Var: x}, Arg2: mtac.IntConst{Value: 2}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: y}}},
	}
	mtac.Extract(f, flat)
	return f, x, y
}

func TestLivenessDeadAssignmentNotLive(t *testing.T) {
	f, x, y := straightLineFunc(t)
	l := ComputeLiveness(f)
	b := f.Blocks[0]

	// y is live after statement 1 (it's used by the return) and x is live
	// after statement 0 (used by statement 1) but dead after statement 1.
	out0 := l.LiveOut(mtac.StmtRef{Block: b, Index: 0})
	if !out0.Contains(x) {
		t.Error("x should be live immediately after its own assignment, since stmt 1 uses it")
	}

	out1 := l.LiveOut(mtac.StmtRef{Block: b, Index: 1})
	if out1.Contains(x) {
		t.Error("x should be dead after stmt 1, nothing else reads it")
	}
	if !out1.Contains(y) {
		t.Error("y should be live after its assignment, the return reads it")
	}
}

func TestLivenessBlockBoundaries(t *testing.T) {
	f, _, y := straightLineFunc(t)
	l := ComputeLiveness(f)
	b := f.Blocks[0]
	// Nothing is live past the block's exit: the function returns, so y's
	// last use is the RETURN statement itself, inside the block.
	if l.BlockLiveOut(b).Contains(y) {
		t.Error("nothing should be live out of the block that ends in RETURN")
	}
	if l.BlockLiveIn(f.EntryBlock).Contains(y) {
		t.Error("nothing should be live into ENTRY in this function")
	}
}
