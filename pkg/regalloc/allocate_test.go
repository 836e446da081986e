package regalloc

import (
	"testing"

	"github.com/raymyers/ralph-cc/pkg/ltac"
	"github.com/raymyers/ralph-cc/pkg/platform"
)

func testDescriptor() *platform.Descriptor {
	return platform.Descriptors[platform.X86_64]
}

func noPseudosRemain(t *testing.T, code []ltac.Instruction) {
	t.Helper()
	for _, inst := range code {
		in, ok := inst.(ltac.Insn)
		if !ok {
			continue
		}
		for _, a := range []ltac.Arg{in.Arg1, in.Arg2, in.Arg3} {
			if _, ok := a.(ltac.PseudoReg); ok {
				t.Fatalf("pseudo-register survived allocation in %+v", in)
			}
			if addr, ok := a.(ltac.Address); ok {
				if _, ok := addr.Base.(ltac.PseudoReg); ok {
					t.Fatalf("pseudo-register survived allocation as an address base in %+v", in)
				}
			}
		}
	}
}

func TestFunctionAssignsDistinctRegistersToLiveRanges(t *testing.T) {
	f := ltac.NewFunction("two_live")
	a := f.NewIntPseudo()
	b := f.NewIntPseudo()
	f.Code = []ltac.Instruction{
		ltac.Enter{},
		ltac.Insn{Op: ltac.MOV, Arg1: a, Arg2: ltac.IntImmediate{Value: 1}},
		ltac.Insn{Op: ltac.MOV, Arg1: b, Arg2: ltac.IntImmediate{Value: 2}},
		ltac.Insn{Op: ltac.ADD, Arg1: a, Arg2: b},
		ltac.Leave{},
		ltac.Ret{},
	}

	Function(f, testDescriptor())

	noPseudosRemain(t, f.Code)

	add, ok := f.Code[3].(ltac.Insn)
	if !ok || add.Op != ltac.ADD {
		t.Fatalf("expected the ADD at index 3 to survive allocation, got %+v", f.Code[3])
	}
	r1, ok1 := add.Arg1.(ltac.HardReg)
	r2, ok2 := add.Arg2.(ltac.HardReg)
	if !ok1 || !ok2 {
		t.Fatal("both operands of the surviving ADD must be hard registers")
	}
	if r1 == r2 {
		t.Error("a and b are simultaneously live and must not share a register")
	}
}

func TestFunctionHonorsHint(t *testing.T) {
	f := ltac.NewFunction("hinted")
	dst := f.NewIntPseudo()
	rdi := ltac.RDI
	p := ltac.PseudoReg{ID: dst.ID + 1, Class: ltac.IntClass, Hint: &rdi}
	f.Code = []ltac.Instruction{
		ltac.Enter{},
		ltac.Insn{Op: ltac.MOV, Arg1: dst, Arg2: p},
		ltac.Leave{},
		ltac.Ret{},
	}

	Function(f, testDescriptor())

	mv, ok := f.Code[1].(ltac.Insn)
	if !ok {
		t.Fatal("expected the MOV to survive allocation")
	}
	src, ok := mv.Arg2.(ltac.HardReg)
	if !ok || src != ltac.RDI {
		t.Errorf("hinted parameter pseudo should have been bound to rdi, got %+v", mv.Arg2)
	}
}

func TestFunctionSavesCallerSavedAcrossCall(t *testing.T) {
	f := ltac.NewFunction("call_save")
	live := f.NewIntPseudo()
	f.Code = []ltac.Instruction{
		ltac.Enter{},
		ltac.Insn{Op: ltac.MOV, Arg1: live, Arg2: ltac.IntImmediate{Value: 42}},
		ltac.Call{Callee: ltac.FunSymbol{Name: "helper"}},
		ltac.Insn{Op: ltac.ADD, Arg1: live, Arg2: ltac.IntImmediate{Value: 1}},
		ltac.Leave{},
		ltac.Ret{},
	}

	Function(f, testDescriptor())

	pushes, pops := 0, 0
	for _, inst := range f.Code {
		switch inst.(type) {
		case ltac.Push:
			pushes++
		case ltac.Pop:
			pops++
		}
	}
	if pushes == 0 || pushes != pops {
		t.Errorf("expected a balanced push/pop pair saving the live value across the call, got %d pushes and %d pops", pushes, pops)
	}
}

func TestFunctionSpillsUnderRegisterPressure(t *testing.T) {
	f := ltac.NewFunction("pressure")
	var pseudos []ltac.PseudoReg
	var code []ltac.Instruction
	code = append(code, ltac.Enter{})
	// Define more simultaneously-live integer pseudos than there are
	// allocatable integer registers, forcing at least one spill.
	n := len(ltac.AllocatableIntRegs) + 4
	for i := 0; i < n; i++ {
		p := f.NewIntPseudo()
		pseudos = append(pseudos, p)
		code = append(code, ltac.Insn{Op: ltac.MOV, Arg1: p, Arg2: ltac.IntImmediate{Value: int64(i)}})
	}
	// Keep every one of them live by summing them all into the last.
	acc := pseudos[0]
	for i := 1; i < n; i++ {
		code = append(code, ltac.Insn{Op: ltac.ADD, Arg1: acc, Arg2: pseudos[i]})
	}
	code = append(code, ltac.Leave{}, ltac.Ret{})
	f.Code = code

	startStack := f.Stacksize
	Function(f, testDescriptor())

	noPseudosRemain(t, f.Code)
	if f.Stacksize <= startStack {
		t.Error("register pressure beyond the allocatable set should have grown the spill area")
	}
}
