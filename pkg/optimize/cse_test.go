package optimize

import (
	"testing"

	"github.com/raymyers/ralph-cc/pkg/flowgraph"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

func TestCSERedirectsDuplicateComputation(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	a := ctx.Declare("a", types.Int, types.StackPosition(-8))
	b := ctx.Declare("b", types.Int, types.StackPosition(-16))
	r1 := ctx.Declare("r1", types.Int, types.StackPosition(-24))
	r2 := ctx.Declare("r2", types.Int, types.StackPosition(-32))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: r1, Op: mtac.ADD, Arg1: mtac.VarArg{Var: a}, Arg2: mtac.VarArg{Var: b}},
		mtac.Quadruple{Result: r2, Op: mtac.ADD, Arg1: mtac.VarArg{Var: a}, Arg2: mtac.VarArg{Var: b}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: r2}}},
	}
	mtac.Extract(f, flat)
	flowgraph.Dominators(f)

	if !CommonSubexpressionElimination.Run(f) {
		t.Fatal("expected a redirect")
	}
	second := f.Blocks[0].Stmts[2].(mtac.Quadruple)
	if second.Op != mtac.ASSIGN {
		t.Fatalf("expected the duplicate site rewritten to a plain assign, got %+v", second)
	}
	firstVar, ok := mtac.AsVariable(second.Arg1)
	if !ok {
		t.Fatalf("expected the duplicate to read the temporary introduced at the first site, got %+v", second.Arg1)
	}

	// The original first site (now at index 0) should compute into that same
	// temporary, with a restoring assign into r1 spliced right after it.
	first := f.Blocks[0].Stmts[0].(mtac.Quadruple)
	if first.Result != firstVar {
		t.Fatalf("expected the first site's result rewritten to the shared temporary, got %+v", first.Result)
	}
	restore := f.Blocks[0].Stmts[1].(mtac.Quadruple)
	if restore.Op != mtac.ASSIGN || restore.Result != r1 {
		t.Fatalf("expected a restoring assign into r1 spliced after the first site, got %+v", restore)
	}
}

func TestCSEDoesNotReuseAcrossAnInterveningWrite(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	a := ctx.Declare("a", types.Int, types.StackPosition(-8))
	b := ctx.Declare("b", types.Int, types.StackPosition(-16))
	r1 := ctx.Declare("r1", types.Int, types.StackPosition(-24))
	r2 := ctx.Declare("r2", types.Int, types.StackPosition(-32))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: r1, Op: mtac.ADD, Arg1: mtac.VarArg{Var: a}, Arg2: mtac.VarArg{Var: b}},
		mtac.Quadruple{Result: a, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: 5}},
		mtac.Quadruple{Result: r2, Op: mtac.ADD, Arg1: mtac.VarArg{Var: a}, Arg2: mtac.VarArg{Var: b}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: r2}}},
	}
	mtac.Extract(f, flat)
	flowgraph.Dominators(f)

	if CommonSubexpressionElimination.Run(f) {
		t.Fatal("expected no redirect: a is reassigned between the two a+b computations")
	}
	third := f.Blocks[0].Stmts[2].(mtac.Quadruple)
	if third.Op != mtac.ADD {
		t.Fatalf("expected the second a+b to still be recomputed, got %+v", third)
	}
}

func TestCSELeavesDistinctExpressionsAlone(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	a := ctx.Declare("a", types.Int, types.StackPosition(-8))
	b := ctx.Declare("b", types.Int, types.StackPosition(-16))
	r1 := ctx.Declare("r1", types.Int, types.StackPosition(-24))
	r2 := ctx.Declare("r2", types.Int, types.StackPosition(-32))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: r1, Op: mtac.ADD, Arg1: mtac.VarArg{Var: a}, Arg2: mtac.VarArg{Var: b}},
		mtac.Quadruple{Result: r2, Op: mtac.SUB, Arg1: mtac.VarArg{Var: a}, Arg2: mtac.VarArg{Var: b}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: r2}}},
	}
	mtac.Extract(f, flat)
	flowgraph.Dominators(f)

	if CommonSubexpressionElimination.Run(f) {
		t.Fatal("expected no change: ADD and SUB are different expressions")
	}
}
