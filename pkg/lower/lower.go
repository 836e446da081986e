// Package lower implements MTAC → LTAC lowering (spec §4.4): materializing
// the calling convention, allocating stack frames, expanding DOT/ARRAY to
// address arithmetic, and emitting the function prologue/epilogue. Its
// output still carries pseudo-registers; pkg/regalloc assigns those to hard
// registers or spill slots afterward.
package lower

import (
	"github.com/raymyers/ralph-cc/pkg/config"
	"github.com/raymyers/ralph-cc/pkg/ltac"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/platform"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// stackAlignment is the frame alignment every lowered function rounds its
// local area up to, per the x86-64 System V ABI the default target follows.
const stackAlignment = int64(16)

// Program lowers every function and global in p against desc, honoring
// flags.ParameterAllocation for the first-parameters-in-registers decision
// (spec §6).
func Program(p *mtac.Program, desc *platform.Descriptor, flags *config.Flags) *ltac.Program {
	out := &ltac.Program{}
	for _, g := range p.Globals {
		out.Globals = append(out.Globals, ltac.GlobVar{Name: "V" + g.Name, Size: g.Type.Size()})
	}
	for _, f := range p.Functions {
		out.Functions = append(out.Functions, Function(f, desc, flags))
	}
	return out
}

// Function lowers a single MTAC function to LTAC.
func Function(f *mtac.Function, desc *platform.Descriptor, flags *config.Flags) *ltac.Function {
	fl := newFuncLowering(f, desc, flags)
	fl.assignParams()

	out := fl.out
	out.Append(ltac.Enter{}) // FrameSize patched below once the body has claimed every stack slot
	fl.emitArrayZeroInit()

	for _, b := range f.Blocks {
		fl.lowerBlock(b)
	}

	out.Stacksize = fl.frameSize()
	out.Code[0] = ltac.Enter{FrameSize: out.Stacksize} // the prologue is always instruction 0
	// CalleeSaveRegs is left empty here: which callee-saved registers end up
	// used is only known once pkg/regalloc has assigned pseudo-registers to
	// hard ones, so that package fills this field in after allocation.
	return out
}

// emitArrayZeroInit zero-fills every fixed-length local array, per spec
// §4.4's prologue responsibility ("zero-initialize arrays by a backward
// fill"). A parameter-passed or unbounded array's storage is the caller's
// responsibility, not the callee's.
func (fl *funcLowering) emitArrayZeroInit() {
	for _, v := range fl.f.Context.Variables() {
		if v.Position.Kind != types.PosStack || v.Type.Kind() != types.KindArray {
			continue
		}
		if length := v.Type.Length(); length >= 0 {
			fl.zeroFillArray(v, length)
		}
	}
}
