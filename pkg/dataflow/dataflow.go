// Package dataflow implements the generic forward/backward meet-over-paths
// solver spec §4.2 requires, parameterized over a Lattice and a Problem's
// transfer function. Concrete analyses (pkg/analysis) and some optimization
// passes (pkg/optimize) plug in their own Lattice implementations.
//
// Per spec §9's Open Question resolution, the solver always maintains both
// block-level and statement-level IN/OUT, so every analysis (not just CSE)
// can query pre/post-statement facts uniformly.
package dataflow

import "github.com/raymyers/ralph-cc/pkg/mtac"

// Lattice is the value domain a dataflow Problem computes over. Concrete
// lattices (variable sets, expression sets, variable->constant maps) must
// provide a commutative, associative Meet and value equality; termination
// is guaranteed by monotonicity and finite lattice height (spec §4.2).
type Lattice interface {
	// Meet combines two facts reaching the same program point (intersection
	// for "must" analyses like available expressions, union for "may"
	// analyses like liveness or reaching definitions).
	Meet(other Lattice) Lattice
	// Equal reports value equality, used to detect a fixed point.
	Equal(other Lattice) bool
}

// Problem defines a single dataflow analysis: spec §4.2's
// DataFlowProblem<forward, Lattice>.
type Problem interface {
	// Forward reports the direction: true for forward (liveness is the one
	// exception and is backward; most of pkg/analysis is forward).
	Forward() bool
	// Init is the value assigned to every non-boundary block before the
	// fixed point begins.
	Init() Lattice
	// Boundary is the value at ENTRY (forward) or EXIT (backward).
	Boundary() Lattice
	// Transfer computes a block's OUT (forward) or IN (backward) from its
	// IN (forward) or OUT (backward) by folding each statement's effect in
	// order; it must also populate the statement-level facts for that
	// block via the supplied recorder.
	Transfer(block *mtac.BasicBlock, in Lattice, record StatementRecorder) Lattice
}

// StatementRecorder lets Transfer publish the fact immediately before/after
// each statement it processes, keyed by the statement's stable StmtRef
// (not its value, which may compare equal to an unrelated occurrence
// elsewhere in the function), so the solver can expose statement-level
// granularity once the fixed point is reached.
type StatementRecorder interface {
	Record(ref mtac.StmtRef, before, after Lattice)
}

// Result holds the solved IN/OUT at block and statement granularity.
type Result struct {
	BlockIn  map[*mtac.BasicBlock]Lattice
	BlockOut map[*mtac.BasicBlock]Lattice
	StmtIn   map[mtac.StmtRef]Lattice
	StmtOut  map[mtac.StmtRef]Lattice
}

type recorder struct {
	in, out map[mtac.StmtRef]Lattice
}

func (r *recorder) Record(ref mtac.StmtRef, before, after Lattice) {
	r.in[ref] = before
	r.out[ref] = after
}

// Solve runs Problem p to a fixed point over every block of f (ENTRY/EXIT
// included), per spec §4.2:
//
//	forward:  IN[B]  = meet over predecessors of OUT[P]
//	          OUT[B] = transfer(B, IN[B])
//	backward: dual
func Solve(f *mtac.Function, p Problem) *Result {
	blocks := f.AllBlocks()

	in := make(map[*mtac.BasicBlock]Lattice, len(blocks))
	out := make(map[*mtac.BasicBlock]Lattice, len(blocks))
	stmtIn := make(map[mtac.StmtRef]Lattice)
	stmtOut := make(map[mtac.StmtRef]Lattice)
	rec := &recorder{in: stmtIn, out: stmtOut}

	boundaryBlock := f.EntryBlock
	if !p.Forward() {
		boundaryBlock = f.ExitBlock
	}

	for _, b := range blocks {
		if b == boundaryBlock {
			if p.Forward() {
				in[b] = p.Boundary()
			} else {
				out[b] = p.Boundary()
			}
		} else {
			if p.Forward() {
				in[b] = p.Init()
			} else {
				out[b] = p.Init()
			}
		}
	}

	changed := true
	for changed {
		changed = false
		for _, b := range blocks {
			if p.Forward() {
				if b != boundaryBlock {
					in[b] = meetNeighbors(p, out, b.Pred)
				}
				newOut := p.Transfer(b, in[b], rec)
				if out[b] == nil || !newOut.Equal(out[b]) {
					out[b] = newOut
					changed = true
				}
			} else {
				if b != boundaryBlock {
					out[b] = meetNeighbors(p, in, b.Succ)
				}
				newIn := p.Transfer(b, out[b], rec)
				if in[b] == nil || !newIn.Equal(in[b]) {
					in[b] = newIn
					changed = true
				}
			}
		}
	}

	return &Result{BlockIn: in, BlockOut: out, StmtIn: stmtIn, StmtOut: stmtOut}
}

// meetNeighbors merges the already-solved facts of the given neighboring
// blocks (predecessors for a forward problem, successors for a backward
// one), using the Problem's own Init as the identity when a neighbor hasn't
// been visited yet.
func meetNeighbors(p Problem, facts map[*mtac.BasicBlock]Lattice, neighbors []*mtac.BasicBlock) Lattice {
	var acc Lattice
	for _, n := range neighbors {
		v := facts[n]
		if v == nil {
			v = p.Init()
		}
		if acc == nil {
			acc = v
			continue
		}
		acc = acc.Meet(v)
	}
	if acc == nil {
		acc = p.Init()
	}
	return acc
}
