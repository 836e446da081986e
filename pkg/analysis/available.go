package analysis

import (
	"github.com/raymyers/ralph-cc/pkg/dataflow"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// Expr is a CSE fingerprint: spec §4.2 says two expressions are equivalent
// iff their op and both arguments compare equal. Arg is an interface, so we
// can't use it directly as a map key when it wraps a *types.Variable that
// might alias across occurrences incorrectly — but VarArg/IntConst/etc are
// all plain comparable structs, so the Arg values themselves are safe map
// keys as long as every implementation stays comparable (none holds a
// slice or map).
type Expr struct {
	Op   mtac.Operator
	Arg1 mtac.Arg
	Arg2 mtac.Arg
}

// ExprOf builds the canonical fingerprint for a quadruple, normalizing
// commutative operators so that a+b and b+a collide.
func ExprOf(q mtac.Quadruple) Expr {
	a1, a2 := q.Arg1, q.Arg2
	if q.Op.IsCommutative() && exprLess(a2, a1) {
		a1, a2 = a2, a1
	}
	return Expr{Op: q.Op, Arg1: a1, Arg2: a2}
}

// exprLess gives Args an arbitrary but stable order so commutative operands
// can be canonicalized; only used to pick a consistent ordering, not to
// compare for equality (mtac.ArgsEqual remains the equality source of truth
// elsewhere).
func exprLess(a, b mtac.Arg) bool {
	if a == nil || b == nil {
		return false
	}
	return a.String() < b.String()
}

// ExprSet is a set-of-Expr lattice. Available expressions is a "must"
// analysis: Meet is intersection and Init is "all expressions seen so far
// in the function" (approximated here as the universal set passed in by
// the caller), per spec §4.2.
type ExprSet struct {
	all   map[Expr]bool // universe, shared across the whole analysis
	avail map[Expr]bool // this lattice value's members
	top   bool          // true means "every expr in all is available" (the Init value of every block but ENTRY)
}

func newExprSet(all map[Expr]bool, top bool) ExprSet {
	return ExprSet{all: all, avail: make(map[Expr]bool), top: top}
}

func (s ExprSet) has(e Expr) bool {
	if s.top {
		return s.all[e]
	}
	return s.avail[e]
}

func (s ExprSet) members() map[Expr]bool {
	if s.top {
		out := make(map[Expr]bool, len(s.all))
		for e := range s.all {
			out[e] = true
		}
		return out
	}
	return s.avail
}

func (s ExprSet) with(add, kill map[Expr]bool) ExprSet {
	out := newExprSet(s.all, false)
	for e := range s.members() {
		if !kill[e] {
			out.avail[e] = true
		}
	}
	for e := range add {
		out.avail[e] = true
	}
	return out
}

func (s ExprSet) Meet(other dataflow.Lattice) dataflow.Lattice {
	o := other.(ExprSet)
	out := newExprSet(s.all, false)
	sm, om := s.members(), o.members()
	for e := range sm {
		if om[e] {
			out.avail[e] = true
		}
	}
	return out
}

func (s ExprSet) Equal(other dataflow.Lattice) bool {
	o := other.(ExprSet)
	sm, om := s.members(), o.members()
	if len(sm) != len(om) {
		return false
	}
	for e := range sm {
		if !om[e] {
			return false
		}
	}
	return true
}

// Contains reports whether e is available.
func (s ExprSet) Contains(e Expr) bool { return s.has(e) }

type availableExprProblem struct {
	all map[Expr]bool
}

func (availableExprProblem) Forward() bool { return true }
func (p availableExprProblem) Init() dataflow.Lattice { return newExprSet(p.all, true) }
func (p availableExprProblem) Boundary() dataflow.Lattice {
	return newExprSet(p.all, false)
}

// Transfer kills every expression that mentions a variable the statement
// redefines, then (for a Quadruple) adds that statement's own expression
// back in, since the assignment just made it available again.
func (p availableExprProblem) Transfer(b *mtac.BasicBlock, in dataflow.Lattice, rec dataflow.StatementRecorder) dataflow.Lattice {
	cur := in.(ExprSet)
	for i, s := range b.Stmts {
		before := cur
		defs := mtac.DefinesAll(s)
		if len(defs) > 0 {
			kill := make(map[Expr]bool)
			for e := range cur.members() {
				if mentions(e, defs) {
					kill[e] = true
				}
			}
			add := map[Expr]bool{}
			if q, ok := s.(mtac.Quadruple); ok && !q.Op.IsMemoryAccess() && q.Op != mtac.NOP {
				e := ExprOf(q)
				if !mentions(e, defs) {
					add[e] = true
				}
			}
			cur = cur.with(add, kill)
		}
		rec.Record(mtac.StmtRef{Block: b, Index: i}, before, cur)
	}
	return cur
}

func mentions(e Expr, vars []*types.Variable) bool {
	for _, v := range vars {
		if argMentions(e.Arg1, v) || argMentions(e.Arg2, v) {
			return true
		}
	}
	return false
}

func argMentions(a mtac.Arg, v *types.Variable) bool {
	vv, ok := mtac.AsVariable(a)
	return ok && vv == v
}

// AvailableExprs holds the solved available-expressions facts, used by the
// common-subexpression-elimination pass.
type AvailableExprs struct {
	res *dataflow.Result
}

// ComputeAvailableExprs collects every quadruple's fingerprint in f as the
// analysis universe, then solves the forward must-analysis.
func ComputeAvailableExprs(f *mtac.Function) *AvailableExprs {
	all := map[Expr]bool{}
	for _, b := range f.Blocks {
		for _, s := range b.Stmts {
			if q, ok := s.(mtac.Quadruple); ok && !q.Op.IsMemoryAccess() && q.Op != mtac.NOP {
				all[ExprOf(q)] = true
			}
		}
	}
	return &AvailableExprs{res: dataflow.Solve(f, availableExprProblem{all: all})}
}

// AvailableIn returns the set of expressions available immediately before
// ref.
func (a *AvailableExprs) AvailableIn(ref mtac.StmtRef) ExprSet {
	if v, ok := a.res.StmtIn[ref]; ok {
		return v.(ExprSet)
	}
	return newExprSet(nil, false)
}
