package analysis

import (
	"testing"

	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

func TestOffsetConstPropagatesThroughAdd(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	base := ctx.Declare("base", types.Int, types.StackPosition(-8))
	p := ctx.Declare("p", types.Int, types.StackPosition(-16))
	q := ctx.Declare("q", types.Int, types.StackPosition(-24))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: base, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: 100}}, // base = 100
		mtac.Quadruple{Result: p, Op: mtac.ADD, Arg1: mtac.VarArg{Var: base}, Arg2: mtac.IntConst{Value: 4}},
		mtac.Quadruple{Result: q, Op: mtac.ADD, Arg1: mtac.VarArg{Var: p}, Arg2: mtac.IntConst{Value: 4}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: q}}},
	}
	mtac.Extract(f, flat)
	b := f.Blocks[0]

	oc := ComputeOffsetConstants(f)

	// Immediately before stmt 2 (q := p+4), p is known as base+4, which
	// folds down to a bare constant since base is itself known to be 100.
	in2 := oc.ConstantsIn(mtac.StmtRef{Block: b, Index: 2})
	pc, ok := in2.Lookup(p)
	if !ok {
		t.Fatal("p should have a known offset-constant fact")
	}
	if pc.Base != nil || pc.Offset != 104 {
		t.Errorf("p should fold to bare constant 104, got base=%v offset=%d", pc.Base, pc.Offset)
	}

	// Immediately before stmt 3 (return q), q should likewise fold to 108.
	in3 := oc.ConstantsIn(mtac.StmtRef{Block: b, Index: 3})
	qc, ok := in3.Lookup(q)
	if !ok {
		t.Fatal("q should have a known offset-constant fact")
	}
	if qc.Base != nil || qc.Offset != 108 {
		t.Errorf("q should fold to bare constant 108, got base=%v offset=%d", qc.Base, qc.Offset)
	}
}

func TestOffsetConstKilledByOpaqueRedefinition(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	x := ctx.Declare("x", types.Int, types.StackPosition(-8))
	y := ctx.Declare("y", types.Int, types.StackPosition(-16))
	unknown := ctx.Declare("unknown", types.Int, types.StackPosition(-24))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: x, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: 1}},
		mtac.Quadruple{Result: x, Op: mtac.MUL, Arg1: mtac.VarArg{Var: x}, Arg2: mtac.VarArg{Var: unknown}},
		mtac.Quadruple{Result: y, Op: mtac.ASSIGN, Arg1: mtac.VarArg{Var: x}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: y}}},
	}
	mtac.Extract(f, flat)
	b := f.Blocks[0]

	oc := ComputeOffsetConstants(f)
	in2 := oc.ConstantsIn(mtac.StmtRef{Block: b, Index: 2})
	if _, ok := in2.Lookup(x); ok {
		t.Error("x should have no known offset-constant fact after multiplying by an unknown variable")
	}
}
