package lower

import "github.com/raymyers/ralph-cc/pkg/ltac"

// assignParams decides each parameter's home: a hinted pseudo-register bound
// to the matching ABI argument register, when flags.ParameterAllocation is
// on and a register of the right class is still available, or its front-end
// stack slot otherwise (spec §6: "fparameter-allocation (on): allocate the
// first eligible parameters to registers"). Register and stack-slot
// parameter counters advance independently per class, mirroring how the
// System V ABI tracks integer and floating argument registers separately.
// A parameter whose variable has escaped (analysis.ComputeEscape, run
// before lowering) is never eligible: it may not reside solely in a
// register, since its address is observed at some program point this
// function's own statements don't otherwise expose.
func (fl *funcLowering) assignParams() {
	if !fl.flags.ParameterAllocation {
		return
	}
	nextInt, nextFloat := 0, 0
	for _, p := range fl.f.Params {
		v := p.Var
		if v.Escaped {
			continue
		}
		if regClassOf(v.Type) == ltac.FloatClass {
			if nextFloat >= len(fl.desc.FloatParamRegs) {
				continue
			}
			reg, ok := ltac.ParseHardReg(fl.desc.FloatParamRegs[nextFloat])
			nextFloat++
			if !ok {
				continue
			}
			pseudo := fl.out.NewFloatPseudo()
			pseudo.Hint = &reg
			fl.bind(v, pseudo)
			continue
		}
		if nextInt >= len(fl.desc.IntParamRegs) {
			continue
		}
		reg, ok := ltac.ParseHardReg(fl.desc.IntParamRegs[nextInt])
		nextInt++
		if !ok {
			continue
		}
		pseudo := fl.out.NewIntPseudo()
		pseudo.Hint = &reg
		fl.bind(v, pseudo)
	}
}
