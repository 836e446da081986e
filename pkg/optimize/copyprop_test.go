package optimize

import (
	"testing"

	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

func TestCopyPropagationSubstitutesAlias(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	x := ctx.Declare("x", types.Int, types.StackPosition(-8))
	y := ctx.Declare("y", types.Int, types.StackPosition(-16))
	z := ctx.Declare("z", types.Int, types.StackPosition(-24))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: y, Op: mtac.ASSIGN, Arg1: mtac.VarArg{Var: x}},
		mtac.Quadruple{Result: z, Op: mtac.ADD, Arg1: mtac.VarArg{Var: y}, Arg2: mtac.IntConst{Value: 1}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: z}}},
	}
	mtac.Extract(f, flat)

	if !CopyPropagation.Run(f) {
		t.Fatal("expected a substitution")
	}
	got := f.Blocks[0].Stmts[1].(mtac.Quadruple)
	if got.Arg1 != (mtac.VarArg{Var: x}) {
		t.Fatalf("expected y's alias x substituted in, got %+v", got.Arg1)
	}
}

func TestCopyPropagationKilledByRedefinitionOfSource(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	x := ctx.Declare("x", types.Int, types.StackPosition(-8))
	y := ctx.Declare("y", types.Int, types.StackPosition(-16))
	z := ctx.Declare("z", types.Int, types.StackPosition(-24))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: y, Op: mtac.ASSIGN, Arg1: mtac.VarArg{Var: x}},
		mtac.Quadruple{Result: x, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: 9}},
		mtac.Quadruple{Result: z, Op: mtac.ADD, Arg1: mtac.VarArg{Var: y}, Arg2: mtac.IntConst{Value: 1}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: z}}},
	}
	mtac.Extract(f, flat)

	CopyPropagation.Run(f)
	got := f.Blocks[0].Stmts[2].(mtac.Quadruple)
	if got.Arg1 != (mtac.VarArg{Var: y}) {
		t.Fatalf("expected y left alone since x was redefined after the copy, got %+v", got.Arg1)
	}
}

func TestCopyPropagationClearsOnCall(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	x := ctx.Declare("x", types.Int, types.StackPosition(-8))
	y := ctx.Declare("y", types.Int, types.StackPosition(-16))
	z := ctx.Declare("z", types.Int, types.StackPosition(-24))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: y, Op: mtac.ASSIGN, Arg1: mtac.VarArg{Var: x}},
		mtac.Call{Callee: "side_effect"},
		mtac.Quadruple{Result: z, Op: mtac.ADD, Arg1: mtac.VarArg{Var: y}, Arg2: mtac.IntConst{Value: 1}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: z}}},
	}
	mtac.Extract(f, flat)

	CopyPropagation.Run(f)
	got := f.Blocks[0].Stmts[2].(mtac.Quadruple)
	if got.Arg1 != (mtac.VarArg{Var: y}) {
		t.Fatalf("expected the alias cleared by the intervening call, got %+v", got.Arg1)
	}
}
