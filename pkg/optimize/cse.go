package optimize

import (
	"sort"

	"github.com/raymyers/ralph-cc/pkg/analysis"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// CommonSubexpressionElimination is spec §4.3's function-level CSE pass.
// Per its implementation discipline: when a duplicate of an already-computed
// (op, arg1, arg2) is found at site B, and the first computation at site A
// dominates B, a fresh temporary is introduced, A's quadruple is rewritten
// to store into it (with a trailing ASSIGN/FASSIGN restoring A's original
// result), and B's quadruple becomes a bare ASSIGN/FASSIGN of the temporary.
//
// Dominance over "which earlier computation can site B reuse" is enforced
// by numbering expressions along a preorder walk of the dominator tree
// (every site visited before B on that walk dominates B), rather than by
// querying the general available-expressions dataflow result directly —
// this keeps the site recorded for each expression exactly the one that
// provably dominates every later site that reuses it. An expression is
// dropped from the active set the moment a later statement on the walk
// writes to a variable it mentions (spec §4.2's kill rule), and again when
// a CALL is reached while the expression mentions a variable that has
// escaped, since the callee may retarget it through an alias no write in
// this function ever names directly.
var CommonSubexpressionElimination = FunctionPass{
	Name:        "common-subexpression elimination",
	Kind:        FunctionKind,
	Requires:    PropEscape | PropDominators,
	Invalidates: PropDefs,
	Run: func(f *mtac.Function) bool {
		analysis.ComputeEscape(f)

		first := map[analysis.Expr]mtac.StmtRef{}
		redirect := map[analysis.Expr][]mtac.StmtRef{}

		children := childrenByIDom(f)
		active := map[analysis.Expr]mtac.StmtRef{}
		var walk func(b *mtac.BasicBlock)
		walk = func(b *mtac.BasicBlock) {
			var added []analysis.Expr
			for i, s := range b.Stmts {
				if defs := mtac.DefinesAll(s); len(defs) > 0 {
					killExprsMentioning(active, defs)
				}
				if _, ok := s.(mtac.Call); ok {
					killEscapedExprs(active)
				}
				q, ok := s.(mtac.Quadruple)
				if !ok || q.Op.IsMemoryAccess() || q.Op == mtac.NOP || q.Result == nil {
					continue
				}
				e := analysis.ExprOf(q)
				ref := mtac.StmtRef{Block: b, Index: i}
				if _, seen := active[e]; seen {
					redirect[e] = append(redirect[e], ref)
					continue
				}
				active[e] = ref
				first[e] = ref
				added = append(added, e)
			}
			for _, c := range children[b] {
				walk(c)
			}
			for _, e := range added {
				delete(active, e)
			}
		}
		walk(f.EntryBlock)

		if len(redirect) == 0 {
			return false
		}

		type insertion struct {
			index int
			stmt  mtac.Statement
		}
		byBlock := map[*mtac.BasicBlock][]insertion{}

		for e, sites := range redirect {
			a := first[e]
			q := a.Get().(mtac.Quadruple)
			temp := f.Context.NewTemporary(q.Result.Type)
			assignOp := mtac.ASSIGN
			if q.Result.Type.Kind() == types.KindFloat {
				assignOp = mtac.FASSIGN
			}
			a.Set(mtac.Quadruple{Result: temp, Op: q.Op, Arg1: q.Arg1, Arg2: q.Arg2})
			byBlock[a.Block] = append(byBlock[a.Block], insertion{
				index: a.Index,
				stmt:  mtac.Quadruple{Result: q.Result, Op: assignOp, Arg1: mtac.VarArg{Var: temp}},
			})
			for _, b := range sites {
				orig := b.Get().(mtac.Quadruple)
				b.Set(mtac.Quadruple{Result: orig.Result, Op: assignOp, Arg1: mtac.VarArg{Var: temp}})
			}
		}

		for blk, ins := range byBlock {
			sort.Slice(ins, func(i, j int) bool { return ins[i].index > ins[j].index })
			for _, in := range ins {
				blk.Stmts = insertAfter(blk.Stmts, in.index, in.stmt)
			}
		}
		return true
	},
}

// killExprsMentioning drops every active expression that reads one of defs,
// since a fresh write makes that expression's recorded site no longer
// provably equal to a later occurrence.
func killExprsMentioning(active map[analysis.Expr]mtac.StmtRef, defs []*types.Variable) {
	for e := range active {
		for _, v := range defs {
			if mentionsVar(e.Arg1, v) || mentionsVar(e.Arg2, v) {
				delete(active, e)
				break
			}
		}
	}
}

// killEscapedExprs drops every active expression that mentions an escaped
// variable, called at a CALL statement: the callee may reach that variable
// through an alias and mutate it without this function ever writing to it
// directly.
func killEscapedExprs(active map[analysis.Expr]mtac.StmtRef) {
	for e := range active {
		if escapedVar(e.Arg1) || escapedVar(e.Arg2) {
			delete(active, e)
		}
	}
}

func escapedVar(a mtac.Arg) bool {
	v, ok := mtac.AsVariable(a)
	return ok && v.Escaped
}

func mentionsVar(a mtac.Arg, v *types.Variable) bool {
	vv, ok := mtac.AsVariable(a)
	return ok && vv == v
}

// childrenByIDom groups f's reachable blocks by their immediate dominator,
// giving a dominator-tree adjacency list rooted at ENTRY.
func childrenByIDom(f *mtac.Function) map[*mtac.BasicBlock][]*mtac.BasicBlock {
	children := map[*mtac.BasicBlock][]*mtac.BasicBlock{}
	for _, b := range f.Blocks {
		// b.IDom is nil for ENTRY itself and for unreachable blocks; a block
		// immediately dominated only by ENTRY has b.IDom == f.EntryBlock,
		// which already groups it under children[f.EntryBlock] below.
		if b.IDom != nil {
			children[b.IDom] = append(children[b.IDom], b)
		}
	}
	return children
}

// insertAfter returns stmts with s inserted immediately after position idx.
func insertAfter(stmts []mtac.Statement, idx int, s mtac.Statement) []mtac.Statement {
	out := make([]mtac.Statement, 0, len(stmts)+1)
	out = append(out, stmts[:idx+1]...)
	out = append(out, s)
	out = append(out, stmts[idx+1:]...)
	return out
}
