package optimize

import "github.com/raymyers/ralph-cc/pkg/mtac"

// ArithmeticIdentities rewrites `r := a op b` quadruples whose shape makes
// the result trivially equal to one operand, zero, or a unary negation
// (spec §4.3's rewrite-rule table), statement by statement.
var ArithmeticIdentities = FunctionPass{
	Name: "arithmetic identities",
	Kind: Local,
	Run: func(f *mtac.Function) bool {
		changed := false
		for _, b := range f.Blocks {
			for i, s := range b.Stmts {
				q, ok := s.(mtac.Quadruple)
				if !ok || q.Result == nil {
					continue
				}
				if nq, ok := simplifyIdentity(q); ok {
					b.Stmts[i] = nq
					changed = true
				}
			}
		}
		return changed
	},
}

func simplifyIdentity(q mtac.Quadruple) (mtac.Quadruple, bool) {
	switch q.Op {
	case mtac.ADD:
		if isIntConst(q.Arg1, 0) {
			return mtac.Quadruple{Result: q.Result, Op: mtac.ASSIGN, Arg1: q.Arg2}, true
		}
		if isIntConst(q.Arg2, 0) {
			return mtac.Quadruple{Result: q.Result, Op: mtac.ASSIGN, Arg1: q.Arg1}, true
		}
	case mtac.SUB:
		if isIntConst(q.Arg1, 0) {
			return mtac.Quadruple{Result: q.Result, Op: mtac.MINUS, Arg1: q.Arg2}, true
		}
		if isIntConst(q.Arg2, 0) {
			return mtac.Quadruple{Result: q.Result, Op: mtac.ASSIGN, Arg1: q.Arg1}, true
		}
		if mtac.ArgsEqual(q.Arg1, q.Arg2) {
			return mtac.Quadruple{Result: q.Result, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: 0}}, true
		}
	case mtac.MUL:
		if isIntConst(q.Arg1, 0) || isIntConst(q.Arg2, 0) {
			return mtac.Quadruple{Result: q.Result, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: 0}}, true
		}
		if isIntConst(q.Arg1, 1) {
			return mtac.Quadruple{Result: q.Result, Op: mtac.ASSIGN, Arg1: q.Arg2}, true
		}
		if isIntConst(q.Arg2, 1) {
			return mtac.Quadruple{Result: q.Result, Op: mtac.ASSIGN, Arg1: q.Arg1}, true
		}
		if isIntConst(q.Arg1, -1) {
			return mtac.Quadruple{Result: q.Result, Op: mtac.MINUS, Arg1: q.Arg2}, true
		}
		if isIntConst(q.Arg2, -1) {
			return mtac.Quadruple{Result: q.Result, Op: mtac.MINUS, Arg1: q.Arg1}, true
		}
	case mtac.DIV:
		if isIntConst(q.Arg2, 1) {
			return mtac.Quadruple{Result: q.Result, Op: mtac.ASSIGN, Arg1: q.Arg1}, true
		}
		if isIntConst(q.Arg2, -1) {
			return mtac.Quadruple{Result: q.Result, Op: mtac.MINUS, Arg1: q.Arg1}, true
		}
		if mtac.ArgsEqual(q.Arg1, q.Arg2) {
			return mtac.Quadruple{Result: q.Result, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: 1}}, true
		}
	}
	return mtac.Quadruple{}, false
}

func isIntConst(a mtac.Arg, v int64) bool {
	n, ok := mtac.AsInt(a)
	return ok && n == v
}
