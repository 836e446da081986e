package peephole

import (
	"testing"

	"github.com/raymyers/ralph-cc/pkg/ltac"
)

func countOps(code []ltac.Instruction, op ltac.Op) int {
	n := 0
	for _, inst := range code {
		if in, ok := inst.(ltac.Insn); ok && in.Op == op {
			n++
		}
	}
	return n
}

func TestFunctionRewritesMovZeroToXor(t *testing.T) {
	f := ltac.NewFunction("zero")
	f.Code = []ltac.Instruction{
		ltac.Insn{Op: ltac.MOV, Arg1: ltac.RAX, Arg2: ltac.IntImmediate{Value: 0}},
		ltac.Ret{},
	}

	Function(f)

	in, ok := f.Code[0].(ltac.Insn)
	if !ok || in.Op != ltac.XOR || !argEqual(in.Arg1, ltac.RAX) || !argEqual(in.Arg2, ltac.RAX) {
		t.Fatalf("expected mov rax,0 to become xor rax,rax, got %+v", f.Code[0])
	}
}

func TestFunctionDropsSelfMove(t *testing.T) {
	f := ltac.NewFunction("selfmove")
	f.Code = []ltac.Instruction{
		ltac.Insn{Op: ltac.MOV, Arg1: ltac.RBX, Arg2: ltac.RBX},
		ltac.Ret{},
	}

	Function(f)

	if len(f.Code) != 1 {
		t.Fatalf("expected the self-move to vanish, got %+v", f.Code)
	}
	if _, ok := f.Code[0].(ltac.Ret); !ok {
		t.Fatalf("expected only the ret to survive, got %+v", f.Code)
	}
}

func TestFunctionRewritesAddOneToInc(t *testing.T) {
	f := ltac.NewFunction("inc")
	f.Code = []ltac.Instruction{
		ltac.Insn{Op: ltac.ADD, Arg1: ltac.RCX, Arg2: ltac.IntImmediate{Value: 1}},
		ltac.Ret{},
	}

	Function(f)

	in, ok := f.Code[0].(ltac.Insn)
	if !ok || in.Op != ltac.INC || !argEqual(in.Arg1, ltac.RCX) {
		t.Fatalf("expected add rcx,1 to become inc rcx, got %+v", f.Code[0])
	}
}

func TestFunctionRewritesSubNegOneToInc(t *testing.T) {
	f := ltac.NewFunction("incviasub")
	f.Code = []ltac.Instruction{
		ltac.Insn{Op: ltac.SUB, Arg1: ltac.RDX, Arg2: ltac.IntImmediate{Value: -1}},
		ltac.Ret{},
	}

	Function(f)

	in, ok := f.Code[0].(ltac.Insn)
	if !ok || in.Op != ltac.INC || !argEqual(in.Arg1, ltac.RDX) {
		t.Fatalf("expected sub rdx,-1 to become inc rdx, got %+v", f.Code[0])
	}
}

func TestFunctionRewritesMulPowerOfTwoToShl(t *testing.T) {
	f := ltac.NewFunction("shift")
	f.Code = []ltac.Instruction{
		ltac.Insn{Op: ltac.MUL, Arg1: ltac.RAX, Arg2: ltac.IntImmediate{Value: 8}},
		ltac.Ret{},
	}

	Function(f)

	in, ok := f.Code[0].(ltac.Insn)
	if !ok || in.Op != ltac.SHL {
		t.Fatalf("expected mul rax,8 to become shl rax,3, got %+v", f.Code[0])
	}
	k, ok := intValue(in.Arg2)
	if !ok || k != 3 {
		t.Fatalf("expected shift count 3, got %+v", in.Arg2)
	}
}

func TestFunctionRewritesMulByThreeToLea(t *testing.T) {
	f := ltac.NewFunction("leamul")
	f.Code = []ltac.Instruction{
		ltac.Insn{Op: ltac.MUL, Arg1: ltac.RAX, Arg2: ltac.IntImmediate{Value: 3}},
		ltac.Ret{},
	}

	Function(f)

	in, ok := f.Code[0].(ltac.Insn)
	if !ok || in.Op != ltac.LEA {
		t.Fatalf("expected mul rax,3 to become a lea, got %+v", f.Code[0])
	}
	addr, ok := in.Arg2.(ltac.Address)
	if !ok || addr.Scale != 2 || !argEqual(addr.Base, ltac.RAX) || !argEqual(addr.Index, ltac.RAX) {
		t.Fatalf("expected [rax + rax*2], got %+v", in.Arg2)
	}
}

func TestFunctionRewritesCmpZeroToOr(t *testing.T) {
	f := ltac.NewFunction("cmpzero")
	f.Code = []ltac.Instruction{
		ltac.Insn{Op: ltac.CMP, Arg1: ltac.RSI, Arg2: ltac.IntImmediate{Value: 0}},
		ltac.CondJump{Cond: ltac.CondEqual, Target: 1},
	}

	Function(f)

	in, ok := f.Code[0].(ltac.Insn)
	if !ok || in.Op != ltac.OR || !argEqual(in.Arg1, ltac.RSI) || !argEqual(in.Arg2, ltac.RSI) {
		t.Fatalf("expected cmp rsi,0 to become or rsi,rsi, got %+v", f.Code[0])
	}
}

func TestFunctionDropsRedundantSecondLeave(t *testing.T) {
	f := ltac.NewFunction("doubleleave")
	f.Code = []ltac.Instruction{
		ltac.Leave{},
		ltac.Leave{},
		ltac.Ret{},
	}

	Function(f)

	if len(f.Code) != 2 {
		t.Fatalf("expected one leave to be swept away, got %+v", f.Code)
	}
	if _, ok := f.Code[0].(ltac.Leave); !ok {
		t.Fatalf("expected a leave to survive, got %+v", f.Code[0])
	}
}

func TestFunctionMergesAdjacentFreeStack(t *testing.T) {
	f := ltac.NewFunction("freestack")
	f.Code = []ltac.Instruction{
		ltac.FreeStack{Bytes: 16},
		ltac.FreeStack{Bytes: 8},
		ltac.Ret{},
	}

	Function(f)

	fs, ok := f.Code[0].(ltac.FreeStack)
	if !ok || fs.Bytes != 24 {
		t.Fatalf("expected the two frees to merge into 24 bytes, got %+v", f.Code[0])
	}
	if len(f.Code) != 2 {
		t.Fatalf("expected the second free_stack to be swept away, got %+v", f.Code)
	}
}

func TestFunctionDropsCrossMove(t *testing.T) {
	f := ltac.NewFunction("crossmove")
	f.Code = []ltac.Instruction{
		ltac.Insn{Op: ltac.MOV, Arg1: ltac.RAX, Arg2: ltac.RBX},
		ltac.Insn{Op: ltac.MOV, Arg1: ltac.RBX, Arg2: ltac.RAX},
		ltac.Ret{},
	}

	Function(f)

	if len(f.Code) != 2 {
		t.Fatalf("expected the undone cross move to vanish, got %+v", f.Code)
	}
	in, ok := f.Code[0].(ltac.Insn)
	if !ok || in.Op != ltac.MOV || !argEqual(in.Arg1, ltac.RAX) || !argEqual(in.Arg2, ltac.RBX) {
		t.Fatalf("expected only mov rax,rbx to survive, got %+v", f.Code[0])
	}
}

func TestFunctionDropsFirstOfDoubleWrite(t *testing.T) {
	f := ltac.NewFunction("doublewrite")
	f.Code = []ltac.Instruction{
		ltac.Insn{Op: ltac.MOV, Arg1: ltac.RAX, Arg2: ltac.IntImmediate{Value: 1}},
		ltac.Insn{Op: ltac.MOV, Arg1: ltac.RAX, Arg2: ltac.IntImmediate{Value: 2}},
		ltac.Ret{},
	}

	Function(f)

	if len(f.Code) != 2 {
		t.Fatalf("expected the dead first write to vanish, got %+v", f.Code)
	}
	in, ok := f.Code[0].(ltac.Insn)
	if !ok {
		t.Fatal("expected a mov to survive")
	}
	n, ok := intValue(in.Arg2)
	if !ok || n != 2 {
		t.Fatalf("expected the surviving write to be the later value, got %+v", in.Arg2)
	}
}

func TestFunctionDropsStoreBackAfterLoad(t *testing.T) {
	f := ltac.NewFunction("loadstoreback")
	addr := ltac.NewAddress(ltac.RBP, nil, 0, -8)
	f.Code = []ltac.Instruction{
		ltac.Insn{Op: ltac.MOV, Arg1: ltac.RAX, Arg2: addr},
		ltac.Insn{Op: ltac.MOV, Arg1: addr, Arg2: ltac.RAX},
		ltac.Ret{},
	}

	Function(f)

	if len(f.Code) != 2 {
		t.Fatalf("expected the redundant store-back to vanish, got %+v", f.Code)
	}
	in, ok := f.Code[0].(ltac.Insn)
	if !ok || in.Op != ltac.MOV || !argEqual(in.Arg1, ltac.RAX) {
		t.Fatalf("expected only the load to survive, got %+v", f.Code[0])
	}
}

func TestFunctionFusesMovAddIntoLea(t *testing.T) {
	f := ltac.NewFunction("movaddfuse")
	f.Code = []ltac.Instruction{
		ltac.Insn{Op: ltac.MOV, Arg1: ltac.RAX, Arg2: ltac.RDI},
		ltac.Insn{Op: ltac.ADD, Arg1: ltac.RAX, Arg2: ltac.IntImmediate{Value: 4}},
		ltac.Ret{},
	}

	Function(f)

	if len(f.Code) != 2 {
		t.Fatalf("expected the fused pair to collapse to one instruction, got %+v", f.Code)
	}
	in, ok := f.Code[0].(ltac.Insn)
	if !ok || in.Op != ltac.LEA {
		t.Fatalf("expected mov+add to fuse into a lea, got %+v", f.Code[0])
	}
	addr, ok := in.Arg2.(ltac.Address)
	if !ok || !argEqual(addr.Base, ltac.RDI) || addr.Disp != 4 {
		t.Fatalf("expected [rdi+4], got %+v", in.Arg2)
	}
}

func TestProgramRewritesEveryFunction(t *testing.T) {
	f1 := ltac.NewFunction("f1")
	f1.Code = []ltac.Instruction{
		ltac.Insn{Op: ltac.MOV, Arg1: ltac.RAX, Arg2: ltac.IntImmediate{Value: 0}},
		ltac.Ret{},
	}
	f2 := ltac.NewFunction("f2")
	f2.Code = []ltac.Instruction{
		ltac.Insn{Op: ltac.MOV, Arg1: ltac.RBX, Arg2: ltac.RBX},
		ltac.Ret{},
	}
	p := &ltac.Program{Functions: []*ltac.Function{f1, f2}}

	Program(p)

	if countOps(f1.Code, ltac.XOR) != 1 {
		t.Error("expected f1's mov-zero to become xor")
	}
	if len(f2.Code) != 1 {
		t.Error("expected f2's self-move to be swept away")
	}
}
