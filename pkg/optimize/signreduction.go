package optimize

import "github.com/raymyers/ralph-cc/pkg/mtac"

// SignReduction is spec §4.3's "sign reduction" pass. MTAC has no SHL/LEA
// opcode of its own (mtac.Operator stops at the quadruple arithmetic set),
// so the actual MUL-by-power-of-two-to-shift and MUL-by-{3,5,9}-to-LEA
// rewrites happen once pseudo-registers and concrete instructions exist —
// see pkg/peephole's MUL table, which implements exactly this table against
// LTAC. This pass's only MTAC-level job is a no-op placeholder in the pass
// sequence so the driver's stable pass ordering (spec §4.3) matches the
// spec's table position-for-position; it never changes a function.
var SignReduction = FunctionPass{
	Name: "sign reduction",
	Kind: Local,
	Run: func(f *mtac.Function) bool {
		return false
	},
}
