package lower

import (
	"github.com/raymyers/ralph-cc/pkg/diag"
	"github.com/raymyers/ralph-cc/pkg/ltac"
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// lowerBlock emits one MTAC basic block's statements as LTAC, preceded by
// its label. Consecutive PARAM statements are buffered and only materialized
// into moves/pushes once their CALL is reached, since the calling
// convention needs to see every argument before committing any to a
// register or the stack (spec §4.4).
func (fl *funcLowering) lowerBlock(b *mtac.BasicBlock) {
	fl.out.Append(ltac.LabelMark{Lbl: fl.label(b)})
	var pending []mtac.Param
	for _, s := range b.Stmts {
		switch st := s.(type) {
		case mtac.Param:
			pending = append(pending, st)
		case mtac.Call:
			fl.lowerCall(st, pending)
			pending = nil
		case mtac.Quadruple:
			fl.lowerQuadruple(st)
		case mtac.If:
			fl.lowerIf(st)
		case mtac.Goto:
			fl.out.Append(ltac.Jump{Target: fl.label(st.Target)})
		case mtac.Return:
			fl.lowerReturn(st)
		case mtac.Label:
			// consumed by basic-block extraction; never reaches lowering
		default:
			diag.Panic("lower:"+fl.f.Name, "unrecognized MTAC statement %T", s)
		}
	}
}

// movOpFor picks MOV or FMOV for a value of type t.
func movOpFor(t *types.Type) ltac.Op {
	if t.FitsFloatRegister() {
		return ltac.FMOV
	}
	return ltac.MOV
}

// copyValue emits dst := src for a value of type t, splitting a 16-byte
// composite (string's {pointer, length} pair) into two word-sized moves
// since no single LTAC move can carry more than one machine word.
func (fl *funcLowering) copyValue(dst, src ltac.Arg, t *types.Type) {
	if t.Kind() == types.KindString {
		dstAddr, dstOK := dst.(ltac.Address)
		srcAddr, srcOK := src.(ltac.Address)
		if dstOK && srcOK {
			lo := fl.out.NewIntPseudo()
			fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: lo, Arg2: srcAddr})
			fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: dstAddr, Arg2: lo})
			hi := fl.out.NewIntPseudo()
			hiSrc := srcAddr
			hiSrc.Disp += 8
			hiDst := dstAddr
			hiDst.Disp += 8
			fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: hi, Arg2: hiSrc})
			fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: hiDst, Arg2: hi})
			return
		}
	}
	fl.out.Append(ltac.Insn{Op: movOpFor(t), Arg1: dst, Arg2: src})
}

// lowerQuadruple translates one MTAC quadruple into one or more LTAC
// instructions.
func (fl *funcLowering) lowerQuadruple(q mtac.Quadruple) {
	switch q.Op {
	case mtac.ASSIGN, mtac.FASSIGN:
		fl.copyValue(fl.argFor(q.Result), fl.operand(q.Arg1), q.Result.Type)
	case mtac.MINUS:
		dst := fl.argFor(q.Result)
		fl.copyValue(dst, fl.operand(q.Arg1), q.Result.Type)
		fl.out.Append(ltac.Insn{Op: ltac.NEG, Arg1: dst})
	case mtac.ADD, mtac.SUB, mtac.MUL, mtac.DIV, mtac.MOD:
		fl.lowerBinary(q)
	case mtac.DOT:
		addr := fl.fieldAddress(q.Arg1, q.Arg2)
		fl.copyValue(fl.argFor(q.Result), addr, q.Result.Type)
	case mtac.PDOT:
		addr := fl.pointerFieldAddress(q.Arg1, q.Arg2)
		fl.copyValue(fl.argFor(q.Result), addr, q.Result.Type)
	case mtac.DOT_ASSIGN:
		addr := fl.fieldAddress(mtac.VarArg{Var: q.Result}, q.Arg2)
		fl.copyValue(addr, fl.operand(q.Arg1), valueType(q.Arg1, q.Result.Type))
	case mtac.ARRAY:
		arrayVar, ok := mtac.AsVariable(q.Arg1)
		if !ok {
			diag.Panic("lower:"+fl.f.Name, "ARRAY base %v is not a variable", q.Arg1)
		}
		addr := fl.arrayElementAddress(arrayVar, q.Arg2)
		fl.copyValue(fl.argFor(q.Result), addr, q.Result.Type)
	case mtac.ARRAY_ASSIGN:
		addr := fl.arrayElementAddress(q.Result, q.Arg2)
		fl.copyValue(addr, fl.operand(q.Arg1), q.Result.Type.Elem())
	default:
		if q.Op.IsComparison() {
			fl.lowerComparisonQuadruple(q)
			return
		}
		diag.Panic("lower:"+fl.f.Name, "quadruple operator %v has no lowering", q.Op)
	}
}

// conditionFor maps a comparison Operator to the CondJump it tests.
func conditionFor(op mtac.Operator) ltac.Condition {
	switch op {
	case mtac.EQUAL:
		return ltac.CondEqual
	case mtac.NOT_EQUALS:
		return ltac.CondNotEqual
	case mtac.LESS:
		return ltac.CondLess
	case mtac.LESS_EQUALS:
		return ltac.CondLessEqual
	case mtac.GREATER:
		return ltac.CondGreater
	case mtac.GREATER_EQUALS:
		return ltac.CondGreaterEqual
	}
	return ltac.CondEqual
}

// lowerComparisonQuadruple materializes a bare boolean result (`result :=
// a < b`, as opposed to a comparison feeding an IF directly) via a
// CMP/CondJump pair bracketing the two possible constant stores, since LTAC
// has no SETcc instruction.
func (fl *funcLowering) lowerComparisonQuadruple(q mtac.Quadruple) {
	dst := fl.argFor(q.Result)
	fl.out.Append(ltac.Insn{Op: ltac.CMP, Arg1: fl.operand(q.Arg1), Arg2: fl.operand(q.Arg2)})
	onTrue := ltac.Label(fl.freshRawLabel())
	done := ltac.Label(fl.freshRawLabel())
	fl.out.Append(ltac.CondJump{Cond: conditionFor(q.Op), Target: onTrue})
	fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: dst, Arg2: ltac.IntImmediate{Value: 0}})
	fl.out.Append(ltac.Jump{Target: done})
	fl.out.Append(ltac.LabelMark{Lbl: onTrue})
	fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: dst, Arg2: ltac.IntImmediate{Value: 1}})
	fl.out.Append(ltac.LabelMark{Lbl: done})
}

// lowerIf lowers IF/IF_FALSE to a CMP against the two operands followed by a
// single CondJump to the resolved target; IF_FALSE (Negated) branches on the
// logical negation of Op since LTAC only ever tests "branch if true".
func (fl *funcLowering) lowerIf(st mtac.If) {
	fl.out.Append(ltac.Insn{Op: ltac.CMP, Arg1: fl.operand(st.Arg1), Arg2: fl.operand(st.Arg2)})
	cond := conditionFor(st.Op)
	if st.Negated {
		cond = cond.Negate()
	}
	fl.out.Append(ltac.CondJump{Cond: cond, Target: fl.label(st.Target)})
}

// lowerReturn materializes each returned value into its ABI-designated
// return register (IntReturn/FloatReturn for a single value, plus
// IntReturn2 for a paired return) before the function epilogue. Spec §4.4's
// calling convention fixes these registers regardless of what pkg/regalloc
// later assigns to every other pseudo-register.
func (fl *funcLowering) lowerReturn(st mtac.Return) {
	intRegs := []string{fl.desc.IntReturn, fl.desc.IntReturn2}
	floatAvailable := true
	for _, v := range st.Values {
		var regName string
		isFloat := fl.valueIsFloat(v)
		switch {
		case isFloat && floatAvailable:
			regName = fl.desc.FloatReturn
			floatAvailable = false
		case len(intRegs) > 0:
			regName, intRegs = intRegs[0], intRegs[1:]
		default:
			diag.Panic("lower:"+fl.f.Name, "function %q returns more values than the ABI has return registers", fl.f.Name)
		}
		reg, ok := ltac.ParseHardReg(regName)
		if !ok {
			diag.Panic("lower:"+fl.f.Name, "unrecognized return register %q", regName)
		}
		op := ltac.MOV
		if isFloat {
			op = ltac.FMOV
		}
		fl.out.Append(ltac.Insn{Op: op, Arg1: reg, Arg2: fl.operand(v)})
	}
	fl.out.Append(ltac.Leave{})
	fl.out.Append(ltac.Ret{})
}

// valueIsFloat reports whether an MTAC argument denotes a float-class value.
func (fl *funcLowering) valueIsFloat(a mtac.Arg) bool {
	if v, ok := mtac.AsVariable(a); ok {
		return v.Type.FitsFloatRegister()
	}
	_, ok := a.(mtac.FloatConst)
	return ok
}

// valueType reports the type to move a DOT_ASSIGN's stored value as: the
// variable's type for a VarArg, falling back to the destination field's own
// type for a constant operand (constants carry no type of their own).
func valueType(a mtac.Arg, fallback *types.Type) *types.Type {
	if v, ok := mtac.AsVariable(a); ok {
		return v.Type
	}
	return fallback
}

func binOp(op mtac.Operator) ltac.Op {
	switch op {
	case mtac.ADD:
		return ltac.ADD
	case mtac.SUB:
		return ltac.SUB
	case mtac.MUL:
		return ltac.MUL
	case mtac.DIV:
		return ltac.DIV
	case mtac.MOD:
		return ltac.MOD
	}
	return ltac.ADD
}

// lowerBinary lowers `result := arg1 op arg2` as MOV result, arg1 (skipped
// when result and arg1 are already the same operand) followed by OP result,
// arg2, the standard two-operand x86 shape.
func (fl *funcLowering) lowerBinary(q mtac.Quadruple) {
	dst := fl.argFor(q.Result)
	src1 := fl.operand(q.Arg1)
	if !sameOperand(dst, src1) {
		fl.copyValue(dst, src1, q.Result.Type)
	}
	fl.out.Append(ltac.Insn{Op: binOp(q.Op), Arg1: dst, Arg2: fl.operand(q.Arg2)})
}

func sameOperand(a, b ltac.Arg) bool {
	pa, aok := a.(ltac.PseudoReg)
	pb, bok := b.(ltac.PseudoReg)
	if aok && bok {
		return pa.ID == pb.ID && pa.Class == pb.Class
	}
	ha, aok := a.(ltac.HardReg)
	hb, bok := b.(ltac.HardReg)
	if aok && bok {
		return ha == hb
	}
	ma, aok := a.(ltac.Address)
	mb, bok := b.(ltac.Address)
	if aok && bok {
		return ma == mb
	}
	return false
}

// operand resolves an MTAC Arg to its LTAC operand: a variable's memoized
// home, or a literal immediate.
func (fl *funcLowering) operand(a mtac.Arg) ltac.Arg {
	switch v := a.(type) {
	case mtac.VarArg:
		return fl.argFor(v.Var)
	case mtac.IntConst:
		return ltac.IntImmediate{Value: v.Value}
	case mtac.FloatConst:
		return ltac.FloatImmediate{Value: v.Value}
	case mtac.StringLabel:
		return ltac.LabelArg{Name: v.Label}
	default:
		diag.Panic("lower:"+fl.f.Name, "argument %v has no operand lowering", a)
		return nil
	}
}

// fieldAddress computes the memory operand for base.field, where base names
// a record stored inline (stack/global), not through a pointer.
func (fl *funcLowering) fieldAddress(base mtac.Arg, offset mtac.Arg) ltac.Address {
	v, ok := mtac.AsVariable(base)
	if !ok {
		diag.Panic("lower:"+fl.f.Name, "DOT base %v is not a variable", base)
	}
	addr, ok := fl.argFor(v).(ltac.Address)
	if !ok {
		diag.Panic("lower:"+fl.f.Name, "record %q is not addressable", v.Name)
	}
	off, ok := offset.(mtac.Offset)
	if !ok {
		diag.Panic("lower:"+fl.f.Name, "DOT field offset %v is not a constant Offset", offset)
	}
	addr.Disp += int32(off.Value)
	return addr
}

// pointerFieldAddress computes the memory operand for (*base).field: base is
// a pointer value that must be loaded into a register before indexing
// through it.
func (fl *funcLowering) pointerFieldAddress(base mtac.Arg, offset mtac.Arg) ltac.Address {
	ptr := fl.out.NewIntPseudo()
	fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: ptr, Arg2: fl.operand(base)})
	off, ok := offset.(mtac.Offset)
	if !ok {
		diag.Panic("lower:"+fl.f.Name, "PDOT field offset %v is not a constant Offset", offset)
	}
	return ltac.NewAddress(ptr, nil, 0, int32(off.Value))
}

// arrayElementAddress computes the memory operand for arrayVar[index].
// Local arrays are stored inline (spec §4.4's fixed-array model), so the
// base address comes directly from the array variable's own storage; only
// the element offset needs computing.
func (fl *funcLowering) arrayElementAddress(arrayVar *types.Variable, index mtac.Arg) ltac.Address {
	base, ok := fl.argFor(arrayVar).(ltac.Address)
	if !ok {
		diag.Panic("lower:"+fl.f.Name, "array %q is not addressable", arrayVar.Name)
	}
	const headerSize = int32(8)
	elemSize := arrayVar.Type.Elem().Size()

	if c, ok := index.(mtac.IntConst); ok {
		base.Disp += headerSize + int32(c.Value*elemSize)
		return base
	}
	idxArg := fl.operand(index)
	idxReg, ok := idxArg.(ltac.Reg)
	if !ok {
		diag.Panic("lower:"+fl.f.Name, "array index %v is not a register-eligible value", index)
	}
	switch elemSize {
	case 1, 2, 4, 8:
		return ltac.NewAddress(base.Base, idxReg, int(elemSize), base.Disp+headerSize)
	default:
		scaled := fl.out.NewIntPseudo()
		fl.out.Append(ltac.Insn{Op: ltac.MOV, Arg1: scaled, Arg2: idxReg})
		fl.out.Append(ltac.Insn{Op: ltac.MUL, Arg1: scaled, Arg2: ltac.IntImmediate{Value: elemSize}})
		return ltac.NewAddress(base.Base, scaled, 1, base.Disp+headerSize)
	}
}
