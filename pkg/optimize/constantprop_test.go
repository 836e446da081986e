package optimize

import (
	"testing"

	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

func TestConstantPropagationSubstitutesKnownValue(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	x := ctx.Declare("x", types.Int, types.StackPosition(-8))
	y := ctx.Declare("y", types.Int, types.StackPosition(-16))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: x, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: 5}},
		mtac.Quadruple{Result: y, Op: mtac.ADD, Arg1: mtac.VarArg{Var: x}, Arg2: mtac.IntConst{Value: 1}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: y}}},
	}
	mtac.Extract(f, flat)

	if !ConstantPropagation.Run(f) {
		t.Fatal("expected a substitution")
	}
	got := f.Blocks[0].Stmts[1].(mtac.Quadruple)
	if got.Arg1 != (mtac.IntConst{Value: 5}) {
		t.Fatalf("expected x's known constant substituted, got %+v", got)
	}
}

func TestConstantPropagationClearsOnCall(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	x := ctx.Declare("x", types.Int, types.StackPosition(-8))
	y := ctx.Declare("y", types.Int, types.StackPosition(-16))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: x, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: 5}},
		mtac.Call{Callee: "side_effect"},
		mtac.Quadruple{Result: y, Op: mtac.ADD, Arg1: mtac.VarArg{Var: x}, Arg2: mtac.IntConst{Value: 1}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: y}}},
	}
	mtac.Extract(f, flat)

	ConstantPropagation.Run(f)
	got := f.Blocks[0].Stmts[2].(mtac.Quadruple)
	if _, ok := mtac.AsInt(got.Arg1); ok {
		t.Fatalf("expected x's fact cleared by the intervening call, got %+v", got)
	}
}
