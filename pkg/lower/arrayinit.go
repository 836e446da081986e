package lower

import (
	"github.com/raymyers/ralph-cc/pkg/ltac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// zeroFillArray emits the prologue code for one fixed-length local array
// v: store its length header, then zero every element from the last index
// down to the first (spec §4.4: "zero-initialize arrays by a backward
// fill"). The element storage begins 8 bytes after the array's base
// (the length header occupies those first 8 bytes), per spec §4.4's
// addressing rule "[base + index·elem_size + header_size]".
func (fl *funcLowering) zeroFillArray(v *types.Variable, length int) {
	const headerSize = 8
	base := fl.argFor(v).(ltac.Address)
	elemSize := v.Type.Elem().Size()

	fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: base, Arg2: ltac.IntImmediate{Value: int64(length)}})

	counter := fl.out.NewIntPseudo()
	fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: counter, Arg2: ltac.IntImmediate{Value: int64(length)}})

	start := ltac.Label(fl.freshRawLabel())
	end := ltac.Label(fl.freshRawLabel())
	fl.out.Append(ltac.LabelMark{Lbl: start})
	fl.out.Append(ltac.Insn{Op: ltac.CMP, Arg1: counter, Arg2: ltac.IntImmediate{Value: 0}})
	fl.out.Append(ltac.CondJump{Cond: ltac.CondEqual, Target: end})
	fl.out.Append(ltac.Insn{Op: ltac.SUB, Arg1: counter, Arg2: ltac.IntImmediate{Value: 1}})

	elemAddr := fl.elementAddress(base, counter, elemSize, headerSize)
	zero := ltac.Arg(ltac.IntImmediate{Value: 0})
	op := ltac.MOV
	if v.Type.Elem().FitsFloatRegister() {
		op = ltac.FMOV
		zero = ltac.FloatImmediate{Value: 0}
	}
	fl.out.Append(ltac.Insn{Op: op, Arg1: elemAddr, Arg2: zero})

	fl.out.Append(ltac.Jump{Target: start})
	fl.out.Append(ltac.LabelMark{Lbl: end})
}

// elementAddress builds the memory operand for array element `index`
// relative to `base`, using a scaled-index addressing mode when elemSize is
// one of x86's hardware-supported scales and falling back to an explicit
// multiply otherwise.
func (fl *funcLowering) elementAddress(base ltac.Address, index ltac.Reg, elemSize, headerSize int64) ltac.Address {
	disp := int32(base.Disp) + int32(headerSize)
	switch elemSize {
	case 1, 2, 4, 8:
		return ltac.NewAddress(base.Base, index, int(elemSize), disp)
	default:
		scaled := fl.out.NewIntPseudo()
		fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: scaled, Arg2: index})
		fl.out.Append(ltac.Insn{Op: ltac.MUL, Arg1: scaled, Arg2: ltac.IntImmediate{Value: elemSize}})
		return ltac.NewAddress(base.Base, scaled, 1, disp)
	}
}

// freshRawLabel allocates a label not tied to any MTAC block, for
// lowering-internal control flow like the array zero-fill loop above.
func (fl *funcLowering) freshRawLabel() int {
	fl.nextLbl++
	return fl.nextLbl
}
