package optimize

import (
	"testing"

	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

func TestArithmeticIdentityAddZero(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	x := ctx.Declare("x", types.Int, types.StackPosition(-8))
	y := ctx.Declare("y", types.Int, types.StackPosition(-16))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: y, Op: mtac.ADD, Arg1: mtac.VarArg{Var: x}, Arg2: mtac.IntConst{Value: 0}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: y}}},
	}
	mtac.Extract(f, flat)

	changed := ArithmeticIdentities.Run(f)
	if !changed {
		t.Fatal("expected pass to report a change")
	}
	got := f.Blocks[0].Stmts[0].(mtac.Quadruple)
	if got.Op != mtac.ASSIGN || got.Arg1 != (mtac.VarArg{Var: x}) {
		t.Fatalf("expected y := x, got %+v", got)
	}
}

func TestArithmeticIdentityMulByZero(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	x := ctx.Declare("x", types.Int, types.StackPosition(-8))
	y := ctx.Declare("y", types.Int, types.StackPosition(-16))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: y, Op: mtac.MUL, Arg1: mtac.VarArg{Var: x}, Arg2: mtac.IntConst{Value: 0}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: y}}},
	}
	mtac.Extract(f, flat)

	ArithmeticIdentities.Run(f)
	got := f.Blocks[0].Stmts[0].(mtac.Quadruple)
	if got.Op != mtac.ASSIGN || got.Arg1 != (mtac.IntConst{Value: 0}) {
		t.Fatalf("expected y := 0, got %+v", got)
	}
}

func TestArithmeticIdentityNoOpLeftUnchanged(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	x := ctx.Declare("x", types.Int, types.StackPosition(-8))
	y := ctx.Declare("y", types.Int, types.StackPosition(-16))
	z := ctx.Declare("z", types.Int, types.StackPosition(-24))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: z, Op: mtac.ADD, Arg1: mtac.VarArg{Var: x}, Arg2: mtac.VarArg{Var: y}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: z}}},
	}
	mtac.Extract(f, flat)

	if ArithmeticIdentities.Run(f) {
		t.Fatal("expected no change for a genuine two-variable add")
	}
}
