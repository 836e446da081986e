package optimize

import (
	"testing"

	"github.com/raymyers/ralph-cc/pkg/flowgraph"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

func TestRemoveEmptyLoopsSkipsSpinLoop(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	c := ctx.Declare("c", types.Bool, types.StackPosition(-8))
	flat := []mtac.Statement{
		mtac.Label{Name: "loop"},
		mtac.If{Op: mtac.EQUAL, Arg1: mtac.VarArg{Var: c}, Arg2: mtac.IntConst{Value: 1}, Negated: true, Label: "loop"},
		mtac.Return{Values: nil},
	}
	mtac.Extract(f, flat)
	flowgraph.Dominators(f)
	flowgraph.FindLoops(f)
	if len(f.Loops) != 1 {
		t.Fatalf("expected 1 natural loop, got %d", len(f.Loops))
	}

	if !RemoveEmptyLoops.Run(f) {
		t.Fatal("expected the empty loop to be removed")
	}
	header := f.BlockByLabel("loop")
	for _, p := range header.Pred {
		if p == f.EntryBlock {
			t.Fatal("expected ENTRY redirected past the loop header")
		}
	}
	if len(f.EntryBlock.Succ) != 1 || f.EntryBlock.Succ[0] == header {
		t.Fatalf("expected ENTRY to jump straight to the loop's exit block, got %+v", f.EntryBlock.Succ)
	}
}

func TestRemoveEmptyLoopsLeavesRealWorkAlone(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	c := ctx.Declare("c", types.Bool, types.StackPosition(-8))
	x := ctx.Declare("x", types.Int, types.StackPosition(-16))
	flat := []mtac.Statement{
		mtac.Label{Name: "loop"},
		mtac.Quadruple{Result: x, Op: mtac.ADD, Arg1: mtac.VarArg{Var: x}, Arg2: mtac.IntConst{Value: 1}},
		mtac.If{Op: mtac.EQUAL, Arg1: mtac.VarArg{Var: c}, Arg2: mtac.IntConst{Value: 1}, Negated: true, Label: "loop"},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: x}}},
	}
	mtac.Extract(f, flat)
	flowgraph.Dominators(f)
	flowgraph.FindLoops(f)

	if RemoveEmptyLoops.Run(f) {
		t.Fatal("expected no change: the loop body does real work")
	}
}
