package peephole

import "github.com/raymyers/ralph-cc/pkg/ltac"

// rewritePair looks at two adjacent instructions and, if one of the pair
// rules matches, returns their replacement(s). ok is false when no rule
// applies. Either way runPass moves on by one instruction, so a replacement
// in the second slot can still pair with the instruction after it.
func rewritePair(s1, s2 ltac.Instruction) (r1, r2 ltac.Instruction, ok bool) {
	if _, is1 := s1.(ltac.Leave); is1 {
		if _, is2 := s2.(ltac.Leave); is2 {
			return s1, ltac.Nop{}, true
		}
	}

	if fs1, is1 := s1.(ltac.FreeStack); is1 {
		if fs2, is2 := s2.(ltac.FreeStack); is2 {
			return ltac.FreeStack{Bytes: fs1.Bytes + fs2.Bytes}, ltac.Nop{}, true
		}
	}

	in1, is1 := s1.(ltac.Insn)
	in2, is2 := s2.(ltac.Insn)
	if !is1 || !is2 {
		return nil, nil, false
	}

	if in1.Op == ltac.MOV && in2.Op == ltac.MOV {
		// Cross move: mov a,b ; mov b,a undoes itself.
		if argEqual(in1.Arg1, in2.Arg2) && argEqual(in1.Arg2, in2.Arg1) {
			return in1, ltac.Nop{}, true
		}
		// Same destination written twice in a row: the first write is never
		// observed.
		if argEqual(in1.Arg1, in2.Arg1) {
			return ltac.Nop{}, in2, true
		}
		// Load immediately followed by a store-back of the same value to the
		// same address, or the mirror (store immediately reloaded): the
		// second instruction is redundant.
		if isLoad(in1) && isStoreOf(in2, in1) {
			return in1, ltac.Nop{}, true
		}
		if isStore(in1) && isLoadOf(in2, in1) {
			return in1, ltac.Nop{}, true
		}
	}

	if in1.Op == ltac.MOV && in2.Op == ltac.ADD {
		if r, ok := ltac.AsReg(in1.Arg1); ok && argEqual(in1.Arg1, in2.Arg1) {
			if c, ok := intValue(in2.Arg2); ok {
				if base, isReg := ltac.AsReg(in1.Arg2); isReg {
					addr := ltac.NewAddress(base, nil, 0, int32(c))
					return ltac.Nop{}, ltac.Insn{Op: ltac.LEA, Arg1: r, Arg2: addr}, true
				}
				if lbl, isLabel := in1.Arg2.(ltac.LabelArg); isLabel {
					addr := ltac.NewAbsoluteAddress(lbl.Name, int32(c))
					return ltac.Nop{}, ltac.Insn{Op: ltac.LEA, Arg1: r, Arg2: addr}, true
				}
			}
		}
	}

	return nil, nil, false
}

// isLoad reports whether in reads from memory into a register.
func isLoad(in ltac.Insn) bool {
	_, fromMem := in.Arg2.(ltac.Address)
	_, toReg := ltac.AsReg(in.Arg1)
	return fromMem && toReg
}

// isStore reports whether in writes a register's value to memory.
func isStore(in ltac.Insn) bool {
	_, toMem := in.Arg1.(ltac.Address)
	_, fromReg := ltac.AsReg(in.Arg2)
	return toMem && fromReg
}

// isStoreOf reports whether store writes load's destination register back to
// load's source address.
func isStoreOf(store, load ltac.Insn) bool {
	return isStore(store) && argEqual(store.Arg1, load.Arg2) && argEqual(store.Arg2, load.Arg1)
}

// isLoadOf reports whether load reads back what store just wrote: the same
// address into the same register store read from.
func isLoadOf(load, store ltac.Insn) bool {
	return isLoad(load) && argEqual(load.Arg1, store.Arg2) && argEqual(load.Arg2, store.Arg1)
}

// sweepNops removes every Nop from code, compacting the stream. Labels and
// branch targets are unaffected since they address LabelMark instructions by
// identity, not by index.
func sweepNops(code []ltac.Instruction) []ltac.Instruction {
	out := make([]ltac.Instruction, 0, len(code))
	for _, inst := range code {
		if _, isNop := inst.(ltac.Nop); isNop {
			continue
		}
		out = append(out, inst)
	}
	return out
}

// runPass applies every single-instruction rewrite, then every pair rewrite,
// over code once, and sweeps the Nops the rewrites leave behind only at the
// end. Within the pass the pair rules see those Nops in place; a Nop matches
// no pair rule.
func runPass(code []ltac.Instruction) []ltac.Instruction {
	for i, inst := range code {
		if in, ok := inst.(ltac.Insn); ok {
			if r, matched := rewriteSingle(in); matched {
				code[i] = r
			}
		}
	}

	for i := 0; i < len(code)-1; i++ {
		r1, r2, matched := rewritePair(code[i], code[i+1])
		if !matched {
			continue
		}
		code[i] = r1
		code[i+1] = r2
	}

	return sweepNops(code)
}

// Function rewrites f's code in place, applying the rewrite table across two
// passes. Two passes suffice: a rewrite the first pass performs can expose at
// most one further rewrite opportunity (e.g. a fused LEA sitting next to an
// instruction it now matches), and the second pass catches it.
func Function(f *ltac.Function) {
	f.Code = runPass(f.Code)
	f.Code = runPass(f.Code)
}

// Program rewrites every function in p in place.
func Program(p *ltac.Program) {
	for _, f := range p.Functions {
		Function(f)
	}
}
