// Package pipeline orchestrates the middle-end end to end: optimization,
// MTAC→LTAC lowering, register allocation, and the peephole optimizer, given
// an already-extracted mtac.Program (spec.md §6's producer interface; basic
// block extraction itself is the front end's or a test fixture's job, via
// mtac.Extract).
package pipeline

import (
	"github.com/raymyers/ralph-cc/pkg/config"
	"github.com/raymyers/ralph-cc/pkg/ltac"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/optimize"
	"github.com/raymyers/ralph-cc/pkg/peephole"
	"github.com/raymyers/ralph-cc/pkg/platform"
	"github.com/raymyers/ralph-cc/pkg/regalloc"

	"github.com/raymyers/ralph-cc/pkg/lower"
)

// Result carries the dump text and generated code a Run produces, each piece
// present only when flags asked for it.
type Result struct {
	MTACBefore string // present when flags.DumpMTACBefore
	MTACAfter  string // present when flags.DumpMTACAfter
	LTACDump   string // present when flags.DumpLTAC (implies LTAC was generated)

	LTAC *ltac.Program // nil when flags.MTACOnly
}

// Run drives p through optimization and, unless flags.MTACOnly, lowering,
// register allocation, and the peephole optimizer. p is mutated in place by
// optimization (spec §5: passes edit functions directly); the returned
// Result's LTAC is a fresh program built from p's optimized state.
func Run(p *mtac.Program, flags *config.Flags) *Result {
	res := &Result{}

	if flags.DumpMTACBefore {
		res.MTACBefore = printProgram(p)
	}

	optimize.RunProgram(p)

	if flags.DumpMTACAfter {
		res.MTACAfter = printProgram(p)
	}

	if flags.MTACOnly {
		return res
	}

	desc := platform.Descriptors[flags.Target()]
	ltacProg := lower.Program(p, desc, flags)
	ltacProg = regalloc.Program(ltacProg, desc)
	peephole.Program(ltacProg)

	if flags.DumpLTAC {
		res.LTACDump = printLTACProgram(ltacProg)
	}

	res.LTAC = ltacProg
	return res
}

func printProgram(p *mtac.Program) string {
	out := ""
	for _, f := range p.Functions {
		out += mtac.Print(f)
	}
	return out
}

func printLTACProgram(p *ltac.Program) string {
	out := ""
	for _, f := range p.Functions {
		out += ltac.Print(f)
	}
	return out
}
