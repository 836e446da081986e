package optimize

import "github.com/raymyers/ralph-cc/pkg/mtac"

// ConstantFolding evaluates any quadruple whose inputs are both integer
// constants (or both float constants for the FASSIGN family), and resolves
// an IF/IF_FALSE whose operands are both constants to a GOTO or a NOP
// (spec §4.3, end-to-end scenario 1).
var ConstantFolding = FunctionPass{
	Name: "constant folding",
	Kind: Local,
	// Folding IF_FALSE const relop const to GOTO or NOP changes which
	// successor edges are live even though the block's Succ slice isn't
	// touched here; CFG is marked stale so a later CFG-requiring pass
	// recomputes it before trusting edges again (see DESIGN.md's Open
	// Question decisions for the rationale, since spec.md's own pass table
	// lists constant folding as invalidating nothing).
	Invalidates: PropCFG,
	Run: func(f *mtac.Function) bool {
		changed := false
		for _, b := range f.Blocks {
			for i, s := range b.Stmts {
				switch st := s.(type) {
				case mtac.Quadruple:
					if nq, ok := foldQuadruple(st); ok {
						b.Stmts[i] = nq
						changed = true
					}
				case mtac.If:
					if nst, ok := foldBranch(st); ok {
						b.Stmts[i] = nst
						changed = true
					}
				}
			}
		}
		return changed
	},
}

func foldQuadruple(q mtac.Quadruple) (mtac.Quadruple, bool) {
	if q.Op.IsComparison() {
		a, aok := mtac.AsInt(q.Arg1)
		bv, bok := mtac.AsInt(q.Arg2)
		if !aok || !bok {
			return mtac.Quadruple{}, false
		}
		return mtac.Quadruple{Result: q.Result, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: boolToInt(evalCompare(q.Op, a, bv))}}, true
	}
	if fa, faok := mtac.AsFloat(q.Arg1); faok {
		if fb, fbok := mtac.AsFloat(q.Arg2); fbok {
			if v, ok := evalFloatArith(q.Op, fa, fb); ok {
				return mtac.Quadruple{Result: q.Result, Op: mtac.FASSIGN, Arg1: mtac.FloatConst{Value: v}}, true
			}
		}
	}
	a, aok := mtac.AsInt(q.Arg1)
	if !aok {
		return mtac.Quadruple{}, false
	}
	if q.Op == mtac.MINUS {
		return mtac.Quadruple{Result: q.Result, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: -a}}, true
	}
	bv, bok := mtac.AsInt(q.Arg2)
	if !bok {
		return mtac.Quadruple{}, false
	}
	v, ok := evalIntArith(q.Op, a, bv)
	if !ok {
		return mtac.Quadruple{}, false
	}
	return mtac.Quadruple{Result: q.Result, Op: mtac.ASSIGN, Arg1: mtac.IntConst{Value: v}}, true
}

func evalIntArith(op mtac.Operator, a, b int64) (int64, bool) {
	switch op {
	case mtac.ADD:
		return a + b, true
	case mtac.SUB:
		return a - b, true
	case mtac.MUL:
		return a * b, true
	case mtac.DIV:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case mtac.MOD:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	}
	return 0, false
}

func evalFloatArith(op mtac.Operator, a, b float64) (float64, bool) {
	switch op {
	case mtac.ADD:
		return a + b, true
	case mtac.SUB:
		return a - b, true
	case mtac.MUL:
		return a * b, true
	case mtac.DIV:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	}
	return 0, false
}

func evalCompare(op mtac.Operator, a, b int64) bool {
	switch op {
	case mtac.EQUAL:
		return a == b
	case mtac.NOT_EQUALS:
		return a != b
	case mtac.LESS:
		return a < b
	case mtac.LESS_EQUALS:
		return a <= b
	case mtac.GREATER:
		return a > b
	case mtac.GREATER_EQUALS:
		return a >= b
	}
	return false
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// foldBranch resolves IF/IF_FALSE whose condition is a constant comparison
// to an unconditional GOTO (branch always taken) or replaces it with a NOP
// quadruple (branch never taken, falls through).
func foldBranch(st mtac.If) (mtac.Statement, bool) {
	a, aok := mtac.AsInt(st.Arg1)
	b, bok := mtac.AsInt(st.Arg2)
	if !aok || !bok {
		return nil, false
	}
	taken := evalCompare(st.Op, a, b)
	if st.Negated {
		taken = !taken
	}
	if taken {
		return mtac.Goto{Label: st.Label, Target: st.Target}, true
	}
	return mtac.Quadruple{Op: mtac.NOP}, true
}
