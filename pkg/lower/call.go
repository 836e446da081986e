package lower

import (
	"github.com/raymyers/ralph-cc/pkg/abi"
	"github.com/raymyers/ralph-cc/pkg/diag"
	"github.com/raymyers/ralph-cc/pkg/ltac"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// word is one register-sized piece of a call argument: a string splits into
// two (pointer, length), every other type lowers to exactly one.
type word struct {
	value  ltac.Arg
	float  bool
}

// lowerCall lowers a run of PARAM statements immediately followed by their
// CALL into the System V calling convention: the first eligible words go to
// the descriptor's IntParamRegs/FloatParamRegs in order, the rest are pushed on the stack
// right-to-left, and FreeStack reclaims exactly what was pushed rather than
// trusting the front end's ArgBytes figure (spec §4.4).
func (fl *funcLowering) lowerCall(call mtac.Call, pending []mtac.Param) {
	var words []word
	for _, p := range pending {
		words = append(words, fl.paramWords(p)...)
	}

	var intWords, floatWords, overflow []word
	nextInt, nextFloat := 0, 0
	for _, w := range words {
		if w.float {
			if nextFloat < len(fl.desc.FloatParamRegs) {
				floatWords = append(floatWords, w)
				nextFloat++
				continue
			}
		} else if nextInt < len(fl.desc.IntParamRegs) {
			intWords = append(intWords, w)
			nextInt++
			continue
		}
		overflow = append(overflow, w)
	}

	for i := len(overflow) - 1; i >= 0; i-- {
		fl.out.Append(ltac.Push{Arg: overflow[i].value})
	}
	for i, w := range intWords {
		reg, ok := ltac.ParseHardReg(fl.desc.IntParamRegs[i])
		if !ok {
			diag.Panic("lower:"+fl.f.Name, "unrecognized integer parameter register %q", fl.desc.IntParamRegs[i])
		}
		fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: reg, Arg2: w.value})
	}
	for i, w := range floatWords {
		reg, ok := ltac.ParseHardReg(fl.desc.FloatParamRegs[i])
		if !ok {
			diag.Panic("lower:"+fl.f.Name, "unrecognized float parameter register %q", fl.desc.FloatParamRegs[i])
		}
		fl.out.Append(ltac.Insn{Op: ltac.FMOV, Arg1: reg, Arg2: w.value})
	}

	fl.out.Append(ltac.Call{Callee: ltac.FunSymbol{Name: call.Callee}, ArgBytes: int64(len(overflow)) * 8})
	if len(overflow) > 0 {
		fl.out.Append(ltac.FreeStack{Bytes: int64(len(overflow)) * 8})
	}

	fl.storeCallResult(call)
}

// storeCallResult copies the ABI return register(s) into the call's
// destination variable(s), honoring abi.Signatures' PairedRet for calls like
// concat that produce a {pointer, length} pair in IntReturn/IntReturn2.
func (fl *funcLowering) storeCallResult(call mtac.Call) {
	if call.Return1 == nil {
		return
	}
	intReturn, ok := ltac.ParseHardReg(fl.desc.IntReturn)
	if !ok {
		diag.Panic("lower:"+fl.f.Name, "unrecognized return register %q", fl.desc.IntReturn)
	}
	floatReturn, ok := ltac.ParseHardReg(fl.desc.FloatReturn)
	if !ok {
		diag.Panic("lower:"+fl.f.Name, "unrecognized return register %q", fl.desc.FloatReturn)
	}

	sig, known := abi.Signatures[abi.CallTarget(call.Callee)]
	if known && sig.PairedRet && call.Return2 != nil {
		dst1 := fl.argFor(call.Return1)
		dst2 := fl.argFor(call.Return2)
		intReturn2, ok := ltac.ParseHardReg(fl.desc.IntReturn2)
		if !ok {
			diag.Panic("lower:"+fl.f.Name, "unrecognized return register %q", fl.desc.IntReturn2)
		}
		fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: dst1, Arg2: intReturn})
		fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: dst2, Arg2: intReturn2})
		return
	}

	dst := fl.argFor(call.Return1)
	op, src := ltac.MOV, ltac.Arg(intReturn)
	if call.Return1.Type.FitsFloatRegister() {
		op, src = ltac.FMOV, floatReturn
	}
	fl.out.Append(ltac.Insn{Op: op, Arg1: dst, Arg2: src})
}

// paramWords splits one PARAM's value into its register-sized pieces: two
// for a string argument (its {pointer, length} pair), one otherwise.
// AddressTaken parameters (spec §4.2's escape-analysis feed) pass the
// address of the operand's storage rather than its value; this only applies
// to variables, since only a variable has addressable storage to take.
func (fl *funcLowering) paramWords(p mtac.Param) []word {
	if p.AddressTaken {
		v, ok := mtac.AsVariable(p.Value)
		if !ok {
			diag.Panic("lower:"+fl.f.Name, "address-taken parameter %v is not a variable", p.Value)
		}
		addr, ok := fl.argFor(v).(ltac.Address)
		if !ok {
			diag.Panic("lower:"+fl.f.Name, "address-taken parameter %q has no addressable storage", v.Name)
		}
		ptr := fl.out.NewIntPseudo()
		fl.out.Append(ltac.Insn{Op: ltac.LEA, Arg1: ptr, Arg2: addr})
		return []word{{value: ptr}}
	}

	if v, ok := mtac.AsVariable(p.Value); ok && v.Type.Kind() == types.KindString {
		addr, ok := fl.argFor(v).(ltac.Address)
		if !ok {
			diag.Panic("lower:"+fl.f.Name, "string parameter %q has no addressable storage", v.Name)
		}
		hi := addr
		hi.Disp += 8
		ptrWord := fl.out.NewIntPseudo()
		lenWord := fl.out.NewIntPseudo()
		fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: ptrWord, Arg2: addr})
		fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: lenWord, Arg2: hi})
		return []word{{value: ptrWord}, {value: lenWord}}
	}

	return []word{{value: fl.operand(p.Value), float: fl.valueIsFloat(p.Value)}}
}
