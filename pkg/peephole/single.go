// Package peephole rewrites LTAC code after register allocation, replacing
// short instruction sequences with cheaper equivalents. It never changes
// which values are live where, so it runs last, once every operand is a hard
// register or a fixed memory address.
package peephole

import "github.com/raymyers/ralph-cc/pkg/ltac"

// rewriteSingle applies the single-instruction rewrite table to in, returning
// the replacement and true if one applied.
func rewriteSingle(in ltac.Insn) (ltac.Instruction, bool) {
	switch in.Op {
	case ltac.MOV:
		if isZeroImm(in.Arg2) {
			return ltac.Insn{Op: ltac.XOR, Arg1: in.Arg1, Arg2: in.Arg1}, true
		}
		if argEqual(in.Arg1, in.Arg2) {
			return ltac.Nop{}, true
		}
	case ltac.ADD:
		if n, ok := intValue(in.Arg2); ok {
			switch n {
			case 1:
				return ltac.Insn{Op: ltac.INC, Arg1: in.Arg1}, true
			case -1:
				return ltac.Insn{Op: ltac.DEC, Arg1: in.Arg1}, true
			}
		}
	case ltac.SUB:
		if n, ok := intValue(in.Arg2); ok {
			switch n {
			case 1:
				return ltac.Insn{Op: ltac.DEC, Arg1: in.Arg1}, true
			case -1:
				return ltac.Insn{Op: ltac.INC, Arg1: in.Arg1}, true
			}
		}
	case ltac.MUL:
		if n, ok := intValue(in.Arg2); ok {
			if k, ok := log2(n); ok {
				return ltac.Insn{Op: ltac.SHL, Arg1: in.Arg1, Arg2: ltac.IntImmediate{Value: int64(k)}}, true
			}
			if scale, ok := leaScale(n); ok {
				r, ok := ltac.AsReg(in.Arg1)
				if ok {
					addr := ltac.NewAddress(r, r, scale, 0)
					return ltac.Insn{Op: ltac.LEA, Arg1: in.Arg1, Arg2: addr}, true
				}
			}
		}
	case ltac.CMP:
		if isZeroImm(in.Arg2) {
			return ltac.Insn{Op: ltac.OR, Arg1: in.Arg1, Arg2: in.Arg1}, true
		}
	}
	return nil, false
}

// leaScale maps a multiplier n that can be expressed as r + r*scale (i.e.
// n-1 is a valid LEA scale) to that scale.
func leaScale(n int64) (int, bool) {
	switch n {
	case 3:
		return 2, true
	case 5:
		return 4, true
	case 9:
		return 8, true
	}
	return 0, false
}

// log2 reports k such that n == 1<<k, for n > 1.
func log2(n int64) (int, bool) {
	if n <= 1 {
		return 0, false
	}
	k := 0
	for v := n; v > 1; v >>= 1 {
		if v&1 != 0 {
			return 0, false
		}
		k++
	}
	return k, true
}

func isZeroImm(a ltac.Arg) bool {
	n, ok := intValue(a)
	return ok && n == 0
}

func intValue(a ltac.Arg) (int64, bool) {
	imm, ok := a.(ltac.IntImmediate)
	if !ok {
		return 0, false
	}
	return imm.Value, true
}

// argEqual reports whether a and b are the same operand: the same hard
// register, the same address, the same immediate, or the same label.
func argEqual(a, b ltac.Arg) bool {
	switch av := a.(type) {
	case ltac.HardReg:
		bv, ok := b.(ltac.HardReg)
		return ok && av == bv
	case ltac.PseudoReg:
		bv, ok := b.(ltac.PseudoReg)
		return ok && av.ID == bv.ID && av.Class == bv.Class
	case ltac.Address:
		bv, ok := b.(ltac.Address)
		return ok && av == bv
	case ltac.IntImmediate:
		bv, ok := b.(ltac.IntImmediate)
		return ok && av == bv
	case ltac.FloatImmediate:
		bv, ok := b.(ltac.FloatImmediate)
		return ok && av == bv
	case ltac.LabelArg:
		bv, ok := b.(ltac.LabelArg)
		return ok && av == bv
	}
	return false
}
