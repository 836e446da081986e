// Package mtac defines the medium-level three-address IR (spec §3): flat
// quadruples as produced by the (out-of-scope) AST->MTAC lowering pass,
// grouped into basic blocks, functions, and a whole program. Quadruples own
// no variables — they hold stable *types.Variable references into their
// function's Context, mirroring the teacher's Node/Reg-by-handle discipline
// in pkg/rtl/ast.go.
package mtac

// Operator enumerates every MTAC quadruple opcode from spec §3: arithmetic,
// assignment, member/array access (plus a pointer-typed DOT), and
// comparison, plus NOP. IF/GOTO/CALL/PARAM/RETURN/LABEL are not Operators —
// they are distinct Statement kinds (see statement.go) since they don't fit
// the quadruple's {result, op, arg1, arg2} shape.
type Operator int

const (
	// Arithmetic
	ADD Operator = iota
	SUB
	MUL
	DIV
	MOD
	MINUS // unary negation

	// Assignment
	ASSIGN  // integer-family
	FASSIGN // float-family

	// Member access (record.field). DOT and DOT_ASSIGN have no separate
	// integer and float forms; PDOT is the only typed variant.
	DOT
	DOT_ASSIGN
	PDOT // pointer-typed DOT

	// Array access; ARRAY and ARRAY_ASSIGN have no separate integer and
	// float forms.
	ARRAY
	ARRAY_ASSIGN

	// Comparisons, producing a bool
	EQUAL
	NOT_EQUALS
	LESS
	LESS_EQUALS
	GREATER
	GREATER_EQUALS

	NOP
)

var operatorNames = map[Operator]string{
	ADD: "+", SUB: "-", MUL: "*", DIV: "/", MOD: "%", MINUS: "-(unary)",
	ASSIGN: ":=", FASSIGN: "f:=",
	DOT: "dot", DOT_ASSIGN: "dot:=", PDOT: "pdot",
	ARRAY: "array", ARRAY_ASSIGN: "array:=",
	EQUAL: "==", NOT_EQUALS: "!=", LESS: "<", LESS_EQUALS: "<=",
	GREATER: ">", GREATER_EQUALS: ">=",
	NOP: "nop",
}

func (op Operator) String() string {
	if s, ok := operatorNames[op]; ok {
		return s
	}
	return "?"
}

// IsCommutative reports whether swapping Arg1/Arg2 yields the same result,
// used by CSE fingerprinting and by arithmetic-identity rewrites.
func (op Operator) IsCommutative() bool {
	switch op {
	case ADD, MUL, EQUAL, NOT_EQUALS:
		return true
	}
	return false
}

// IsComparison reports whether op is one of the six relational operators
// usable directly by IF/IF_FALSE.
func (op Operator) IsComparison() bool {
	switch op {
	case EQUAL, NOT_EQUALS, LESS, LESS_EQUALS, GREATER, GREATER_EQUALS:
		return true
	}
	return false
}

// Negate returns the logically-negated comparison operator, used when
// constant-folding or rewriting IF_FALSE branches.
func (op Operator) Negate() Operator {
	switch op {
	case EQUAL:
		return NOT_EQUALS
	case NOT_EQUALS:
		return EQUAL
	case LESS:
		return GREATER_EQUALS
	case LESS_EQUALS:
		return GREATER
	case GREATER:
		return LESS_EQUALS
	case GREATER_EQUALS:
		return LESS
	}
	return op
}

// IsMemoryAccess reports whether op reads through a pointer/array, which
// matters to escape analysis and to LICM (memory reads are never invariant).
func (op Operator) IsMemoryAccess() bool {
	switch op {
	case DOT, DOT_ASSIGN, PDOT, ARRAY, ARRAY_ASSIGN:
		return true
	}
	return false
}

