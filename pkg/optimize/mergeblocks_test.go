package optimize

import (
	"testing"

	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

func TestMergeBasicBlocksFoldsStraightLineSuccessor(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	x := ctx.Declare("x", types.Int, types.StackPosition(-8))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: x, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: 1}},
		mtac.Goto{Label: "next"},
		mtac.Label{Name: "next"},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: x}}},
	}
	mtac.Extract(f, flat)
	if len(f.Blocks) != 2 {
		t.Fatalf("expected 2 blocks before merge, got %d", len(f.Blocks))
	}

	if !MergeBasicBlocks.Run(f) {
		t.Fatal("expected the blocks to merge")
	}
	if len(f.Blocks) != 1 {
		t.Fatalf("expected a single block after merge, got %d", len(f.Blocks))
	}
	stmts := f.Blocks[0].Stmts
	if len(stmts) != 2 {
		t.Fatalf("expected the Goto dropped and both real statements kept, got %+v", stmts)
	}
	if _, ok := stmts[1].(mtac.Return); !ok {
		t.Fatalf("expected the return to be the merged block's last statement, got %+v", stmts[1])
	}
}

func TestMergeBasicBlocksLeavesSharedSuccessorAlone(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	c := ctx.Declare("c", types.Bool, types.StackPosition(-8))
	flat := []mtac.Statement{
		mtac.If{Op: mtac.EQUAL, Arg1: mtac.VarArg{Var: c}, Arg2: mtac.IntConst{Value: 1}, Negated: true, Label: "join"},
		mtac.Goto{Label: "join"},
		mtac.Label{Name: "join"},
		mtac.Return{Values: nil},
	}
	mtac.Extract(f, flat)
	before := len(f.Blocks)

	if MergeBasicBlocks.Run(f) {
		t.Fatal("expected no merge: join block has two predecessors")
	}
	if len(f.Blocks) != before {
		t.Fatalf("expected block count unchanged, got %d want %d", len(f.Blocks), before)
	}
}
