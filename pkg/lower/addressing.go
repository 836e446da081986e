package lower

import (
	"github.com/raymyers/ralph-cc/pkg/config"
	"github.com/raymyers/ralph-cc/pkg/diag"
	"github.com/raymyers/ralph-cc/pkg/ltac"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/platform"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// funcLowering holds the per-function state lowering one MTAC function needs:
// the output LTAC function being built, a memoized variable→operand map, and
// the block→label numbering that keeps branch targets consistent.
type funcLowering struct {
	f     *mtac.Function
	desc  *platform.Descriptor
	flags *config.Flags
	out   *ltac.Function

	basePointer ltac.HardReg

	varArg map[*types.Variable]ltac.Arg
	labels map[*mtac.BasicBlock]ltac.Label
	nextLbl int
}

func newFuncLowering(f *mtac.Function, desc *platform.Descriptor, flags *config.Flags) *funcLowering {
	base, ok := ltac.ParseHardReg(desc.BasePointer)
	if !ok {
		diag.Panic("lower:"+f.Name, "unrecognized base pointer register %q", desc.BasePointer)
	}
	return &funcLowering{
		f:           f,
		desc:        desc,
		flags:       flags,
		out:         ltac.NewFunction(f.Name),
		basePointer: base,
		varArg:      make(map[*types.Variable]ltac.Arg),
		labels:      make(map[*mtac.BasicBlock]ltac.Label),
	}
}

// label returns b's LTAC label, assigning a fresh one on first reference.
func (fl *funcLowering) label(b *mtac.BasicBlock) ltac.Label {
	if l, ok := fl.labels[b]; ok {
		return l
	}
	fl.nextLbl++
	l := ltac.Label(fl.nextLbl)
	fl.labels[b] = l
	return l
}

// regClassOf reports the register class a variable's type occupies.
func regClassOf(t *types.Type) ltac.RegClass {
	if t.FitsFloatRegister() {
		return ltac.FloatClass
	}
	return ltac.IntClass
}

// argFor returns the operand a variable resolves to: a stack/global
// address for STACK/PARAMETER/GLOBAL variables (spec §4.4's literal
// addressing rules), or a pseudo-register for TEMPORARY variables and any
// parameter promoted to a register by assignParams. Results are memoized so
// every reference to the same variable resolves to the same operand.
func (fl *funcLowering) argFor(v *types.Variable) ltac.Arg {
	if a, ok := fl.varArg[v]; ok {
		return a
	}
	var a ltac.Arg
	switch v.Position.Kind {
	case types.PosStack:
		a = ltac.NewAddress(fl.basePointer, nil, 0, int32(v.Position.Offset))
	case types.PosParameter:
		a = ltac.NewAddress(fl.basePointer, nil, 0, int32(v.Position.Offset))
	case types.PosGlobal:
		a = ltac.NewAbsoluteAddress("V"+v.Position.Label, 0)
	case types.PosTemporary:
		a = fl.freshPseudo(v.Type)
	default:
		diag.Panic("lower:"+fl.f.Name, "variable %q has no front-end position to lower (%v)", v.Name, v.Position.Kind)
	}
	fl.varArg[v] = a
	return a
}

// bind forces v to resolve to a, overriding whatever argFor would otherwise
// compute. Used by assignParams to promote an eligible parameter straight
// into a hinted pseudo-register instead of its stack slot.
func (fl *funcLowering) bind(v *types.Variable, a ltac.Arg) {
	fl.varArg[v] = a
}

func (fl *funcLowering) freshPseudo(t *types.Type) ltac.PseudoReg {
	if regClassOf(t) == ltac.FloatClass {
		return fl.out.NewFloatPseudo()
	}
	return fl.out.NewIntPseudo()
}

// frameSize computes the local stack area size: the distance from the base
// pointer down to the lowest STACK offset in use, rounded up to
// stackAlignment. Spill slots pkg/regalloc introduces later extend this same
// field; lowering only accounts for what the front end and this pass have
// already placed on the stack.
func (fl *funcLowering) frameSize() int64 {
	var min int64
	for _, v := range fl.f.Context.Variables() {
		if v.Position.Kind == types.PosStack && v.Position.Offset < min {
			min = v.Position.Offset
		}
	}
	size := -min
	if rem := size % stackAlignment; rem != 0 {
		size += stackAlignment - rem
	}
	return size
}
