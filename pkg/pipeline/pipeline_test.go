package pipeline

import (
	"strings"
	"testing"

	"github.com/raymyers/ralph-cc/pkg/config"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// constantFoldProgram builds spec.md §8 scenario 1: t1 := 3 + 4; t2 := t1*2;
// RETURN t2, expected to fold down to a single RETURN 14.
func constantFoldProgram() *mtac.Program {
	ctx := types.NewContext("main")
	t1 := ctx.NewTemporary(types.Int)
	t2 := ctx.NewTemporary(types.Int)
	f := mtac.NewFunction("main", types.Int, ctx)
	flat := []mtac.Statement{
		mtac.Quadruple{Result: t1, Op: mtac.ADD, Arg1: mtac.IntConst{Value: 3}, Arg2: mtac.IntConst{Value: 4}},
		mtac.Quadruple{Result: t2, Op: mtac.MUL, Arg1: mtac.VarArg{Var: t1}, Arg2: mtac.IntConst{Value: 2}},
		mtac.Return{Values: []mtac.Arg{mtac.VarArg{Var: t2}}},
	}
	mtac.Extract(f, flat)
	return &mtac.Program{Global: types.NewGlobalContext(), Functions: []*mtac.Function{f}}
}

func TestRunOptimizesLowersAllocatesAndPeepholes(t *testing.T) {
	p := constantFoldProgram()
	flags := config.Default()
	flags.DumpMTACBefore = true
	flags.DumpMTACAfter = true
	flags.DumpLTAC = true

	res := Run(p, flags)

	if !strings.Contains(res.MTACBefore, "3") || !strings.Contains(res.MTACBefore, "4") {
		t.Errorf("expected the pre-optimization dump to show the original constants, got %q", res.MTACBefore)
	}
	if !strings.Contains(res.MTACAfter, "14") {
		t.Errorf("expected constant folding and propagation to leave a literal 14 in the optimized dump, got %q", res.MTACAfter)
	}
	if res.LTAC == nil {
		t.Fatal("expected lowering to have produced an LTAC program")
	}
	if len(res.LTAC.Functions) != 1 {
		t.Fatalf("expected one lowered function, got %d", len(res.LTAC.Functions))
	}
	if res.LTACDump == "" {
		t.Error("expected a non-empty LTAC dump when DumpLTAC is set")
	}
	if !strings.Contains(res.LTACDump, "ret") {
		t.Errorf("expected the LTAC dump to contain a ret, got %q", res.LTACDump)
	}
}

func TestRunStopsAtMTACWhenMTACOnly(t *testing.T) {
	p := constantFoldProgram()
	flags := config.Default()
	flags.MTACOnly = true
	flags.DumpMTACAfter = true

	res := Run(p, flags)

	if res.LTAC != nil {
		t.Error("expected mtac-only to skip lowering entirely")
	}
	if res.MTACAfter == "" {
		t.Error("expected mtac-only to still produce the optimized MTAC dump")
	}
}
