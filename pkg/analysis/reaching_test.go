package analysis

import (
	"testing"

	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

func TestReachingDefsOverwriteKillsPrior(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	x := ctx.Declare("x", types.Int, types.StackPosition(-8))
	flat := []mtac.Statement{
		mtac.Quadruple{Result: x, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: 1}}, // def 0
		mtac.Quadruple{Result: x, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: 2}}, // def 1
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: x}}},                     // stmt 2
	}
	mtac.Extract(f, flat)
	b := f.Blocks[0]

	rd := ComputeReachingDefs(f)

	in1 := rd.ReachingIn(mtac.StmtRef{Block: b, Index: 1})
	defs := in1.OfVariable(x)
	if len(defs) != 1 || defs[0].Ref != (mtac.StmtRef{Block: b, Index: 0}) {
		t.Fatalf("expected exactly def 0 reaching stmt 1, got %v", defs)
	}

	in2 := rd.ReachingIn(mtac.StmtRef{Block: b, Index: 2})
	defs2 := in2.OfVariable(x)
	if len(defs2) != 1 || defs2[0].Ref != (mtac.StmtRef{Block: b, Index: 1}) {
		t.Fatalf("expected exactly def 1 reaching stmt 2 (def 0 killed), got %v", defs2)
	}
}

func TestReachingDefsMergeAtJoin(t *testing.T) {
	ctx := types.NewContext("f")
	f := mtac.NewFunction("f", types.Int, ctx)
	c := ctx.Declare("c", types.Bool, types.StackPosition(-8))
	x := ctx.Declare("x", types.Int, types.StackPosition(-16))
	flat := []mtac.Statement{
		mtac.If{Op: mtac.EQUAL, Arg1: mtac.VarArg{Var: c}, Arg2: mtac.IntConst{Value: 1}, Negated: true, Label: "else"},
		mtac.Quadruple{Result: x, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: 1}},
		mtac.Goto{Label: "join"},
		mtac.Label{Name: "else"},
		mtac.Quadruple{Result: x, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: 2}},
		mtac.Label{Name: "join"},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: x}}},
	}
	mtac.Extract(f, flat)

	rd := ComputeReachingDefs(f)
	join := f.BlockByLabel("join")
	if join == nil {
		t.Fatal("missing join block")
	}
	in := rd.ReachingIn(mtac.StmtRef{Block: join, Index: 0})
	defs := in.OfVariable(x)
	if len(defs) != 2 {
		t.Fatalf("expected both branch definitions of x to reach the join, got %d", len(defs))
	}
}
