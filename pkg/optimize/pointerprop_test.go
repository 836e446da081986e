package optimize

import (
	"testing"

	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

func TestPointerPropagationSubstitutesNonEscapingAlias(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	ptrType := types.PointerTo(types.Int)
	p := ctx.Declare("p", ptrType, types.StackPosition(-8))
	q := ctx.Declare("q", ptrType, types.StackPosition(-16))
	r := ctx.Declare("r", ptrType, types.StackPosition(-24))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: q, Op: mtac.ASSIGN, Arg1: mtac.VarArg{Var: p}},
		mtac.Call{Callee: "unrelated"},
		mtac.Quadruple{Result: r, Op: mtac.ASSIGN, Arg1: mtac.VarArg{Var: q}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: r}}},
	}
	mtac.Extract(f, flat)
	// Neither p nor q has its address taken nor is ever dereferenced through
	// a DOT/ARRAY op, so analysis.ComputeEscape leaves both non-escaping and
	// the call at index 1 must not invalidate the alias.

	if !PointerPropagation.Run(f) {
		t.Fatal("expected a substitution")
	}
	got := f.Blocks[0].Stmts[2].(mtac.Quadruple)
	if got.Arg1 != (mtac.VarArg{Var: p}) {
		t.Fatalf("expected q's non-escaping alias p substituted in, got %+v", got.Arg1)
	}
}

func TestPointerPropagationClearsEscapingAliasAcrossCall(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	ptrType := types.PointerTo(types.Int)
	p := ctx.Declare("p", ptrType, types.StackPosition(-8))
	q := ctx.Declare("q", ptrType, types.StackPosition(-16))
	r := ctx.Declare("r", ptrType, types.StackPosition(-24))

	flat := []mtac.Statement{
		mtac.Param{Value: mtac.VarArg{Var: p}, AddressTaken: true}, // p's address is observably taken: p escapes
		mtac.Quadruple{Result: q, Op: mtac.ASSIGN, Arg1: mtac.VarArg{Var: p}},
		mtac.Call{Callee: "may_mutate_p"},
		mtac.Quadruple{Result: r, Op: mtac.ASSIGN, Arg1: mtac.VarArg{Var: q}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: r}}},
	}
	mtac.Extract(f, flat)

	PointerPropagation.Run(f)
	got := f.Blocks[0].Stmts[3].(mtac.Quadruple)
	if got.Arg1 != (mtac.VarArg{Var: q}) {
		t.Fatalf("expected q left alone since p escaped and the call could retarget it, got %+v", got.Arg1)
	}
}
