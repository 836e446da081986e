package mtac

import (
	"fmt"

	"github.com/raymyers/ralph-cc/pkg/types"
)

// Arg is the tagged variant of MTAC quadruple operands: a Variable, an
// integer constant, a floating constant, a string-pool label, or a raw
// offset (used by DOT/ARRAY's constant-index forms). Spec §3.
type Arg interface {
	implArg()
	String() string
}

// VarArg references a variable by its stable *types.Variable handle.
type VarArg struct{ Var *types.Variable }

// IntConst is an integer literal operand.
type IntConst struct{ Value int64 }

// FloatConst is a floating literal operand.
type FloatConst struct{ Value float64 }

// StringLabel references an entry in the (out-of-scope) string pool.
type StringLabel struct{ Label string }

// Offset is a raw byte offset, used as the second operand of DOT/DOT_ASSIGN
// when the field offset is already resolved by the front end.
type Offset struct{ Value int64 }

func (VarArg) implArg()      {}
func (IntConst) implArg()    {}
func (FloatConst) implArg()  {}
func (StringLabel) implArg() {}
func (Offset) implArg()      {}

func (a VarArg) String() string      { return a.Var.Name }
func (a IntConst) String() string    { return fmt.Sprintf("%d", a.Value) }
func (a FloatConst) String() string  { return fmt.Sprintf("%g", a.Value) }
func (a StringLabel) String() string { return "@" + a.Label }
func (a Offset) String() string      { return fmt.Sprintf("+%d", a.Value) }

// ArgsEqual reports whether two Args denote the same operand, used by CSE's
// (op, arg1, arg2) fingerprinting (spec §4.2: "Two expressions are
// equivalent iff their op and both arguments compare equal").
func ArgsEqual(a, b Arg) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case VarArg:
		bv, ok := b.(VarArg)
		return ok && av.Var == bv.Var
	case IntConst:
		bv, ok := b.(IntConst)
		return ok && av.Value == bv.Value
	case FloatConst:
		bv, ok := b.(FloatConst)
		return ok && av.Value == bv.Value
	case StringLabel:
		bv, ok := b.(StringLabel)
		return ok && av.Label == bv.Label
	case Offset:
		bv, ok := b.(Offset)
		return ok && av.Value == bv.Value
	}
	return false
}

// AsVariable returns the referenced variable and true if a is a VarArg.
func AsVariable(a Arg) (*types.Variable, bool) {
	if v, ok := a.(VarArg); ok {
		return v.Var, true
	}
	return nil, false
}

// AsInt returns the constant value and true if a is an IntConst.
func AsInt(a Arg) (int64, bool) {
	if c, ok := a.(IntConst); ok {
		return c.Value, true
	}
	return 0, false
}

// AsFloat returns the constant value and true if a is a FloatConst.
func AsFloat(a Arg) (float64, bool) {
	if c, ok := a.(FloatConst); ok {
		return c.Value, true
	}
	return 0, false
}
