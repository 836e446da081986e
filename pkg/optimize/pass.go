// Package optimize implements the optimization pass manager and every named
// pass from spec §4.3: the pass taxonomy (local/basic-block/function/IPA),
// the property_flags/todo_after_flags bookkeeping, and the fixed-point
// driver, plus every individual rewrite.
package optimize

import "github.com/raymyers/ralph-cc/pkg/mtac"

// Kind is a pass's granularity, spec §4.3.
type Kind int

const (
	Local Kind = iota
	BasicBlock
	FunctionKind
	IPA
)

// Property names an analysis or structural fact a pass may require fresh
// before it runs, or invalidate after a change. Bits are combined with
// bitwise OR so a pass can declare several requirements/invalidations at
// once without a slice allocation.
type Property uint

const (
	PropLiveness Property = 1 << iota
	PropEscape
	PropDominators
	PropLoops
	PropDefs // reaching definitions / constant-prop facts; spec's "defs"
	PropCFG
	PropCallGraph
)

// Has reports whether p includes every bit in other.
func (p Property) Has(other Property) bool { return p&other == other }

// FunctionPass is one optimization pass over a single function. Run reports
// whether it changed the function; the driver consults Requires/Invalidates
// around the call per spec §4.3's contract.
type FunctionPass struct {
	Name        string
	Kind        Kind
	Requires    Property
	Invalidates Property
	Run         func(f *mtac.Function) bool
}

// ProgramPass is an IPA pass, run once per fixed-point iteration over the
// whole program rather than per function.
type ProgramPass struct {
	Name        string
	Requires    Property
	Invalidates Property
	Run         func(p *mtac.Program) bool
}
