package mtac

import "github.com/raymyers/ralph-cc/pkg/types"

// Loop is a natural loop: spec §3/§4.1. Blocks is the set of basic blocks
// forming the loop (header included); Header dominates every block in the
// loop and every back edge targets it.
type Loop struct {
	Header    *BasicBlock
	Blocks    map[*BasicBlock]bool
	TripCount int64 // -1 if not statically known
}

// Contains reports whether b belongs to the loop.
func (l *Loop) Contains(b *BasicBlock) bool { return l.Blocks[b] }

// Param describes one function parameter by its declared variable, which
// carries the parameter's type and position; the middle-end's lowering
// stage turns this into a concrete register or stack slot.
type Param struct {
	Var *types.Variable
}

// Function is a single EDDI function: spec §3. Functions own their blocks,
// their Context (and thus their Variables), and their Loops collection
// (populated on demand by flowgraph.FindLoops, nil until then).
type Function struct {
	Name       string
	ReturnType *types.Type
	Params     []Param
	Context    *types.Context

	Blocks []*BasicBlock // does not include the ENTRY/EXIT sentinels
	EntryBlock *BasicBlock
	ExitBlock  *BasicBlock

	Loops []*Loop // nil until FindLoops runs; invalidated by structural CFG edits

	// Dirty bits tracked by the optimizer's pass manager (pkg/optimize);
	// mirrored here so analyses can cheaply check staleness without an
	// import cycle back into pkg/optimize.
	CFGStale       bool
	LoopsStale     bool
	DominatorsStale bool
}

// NewFunction creates a function with initialized ENTRY/EXIT sentinels.
func NewFunction(name string, returnType *types.Type, ctx *types.Context) *Function {
	entry := &BasicBlock{Index: Entry}
	exit := &BasicBlock{Index: Exit}
	return &Function{
		Name:       name,
		ReturnType: returnType,
		Context:    ctx,
		EntryBlock: entry,
		ExitBlock:  exit,
	}
}

// BlockByLabel finds a non-sentinel block by its Label, or nil.
func (f *Function) BlockByLabel(label string) *BasicBlock {
	for _, b := range f.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

// AllBlocks returns ENTRY, every block in Blocks, then EXIT — the order
// flowgraph/dataflow iterate over when a stable full traversal is needed.
func (f *Function) AllBlocks() []*BasicBlock {
	out := make([]*BasicBlock, 0, len(f.Blocks)+2)
	out = append(out, f.EntryBlock)
	out = append(out, f.Blocks...)
	out = append(out, f.ExitBlock)
	return out
}

// SweepDead removes every block MarkDead flagged, clearing their residual
// edges. Part of "remove dead basic blocks" (spec §4.3).
func (f *Function) SweepDead() (removed int) {
	kept := f.Blocks[:0]
	for _, b := range f.Blocks {
		if b.Dead() {
			b.ClearEdges()
			removed++
			continue
		}
		kept = append(kept, b)
	}
	f.Blocks = kept
	return removed
}

// InvalidateCFG marks the CFG, loop set, and dominator tree stale, per
// spec §5's structural-edit invalidation rule.
func (f *Function) InvalidateCFG() {
	f.CFGStale = true
	f.LoopsStale = true
	f.DominatorsStale = true
}

// GlobVar is a global variable declaration.
type GlobVar struct {
	Name string
	Type *types.Type
}

// Program is the whole compilation unit: spec §3.
type Program struct {
	Global    *types.GlobalContext
	Globals   []GlobVar
	Functions []*Function
}
