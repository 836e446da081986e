package mtac

import (
	"testing"

	"github.com/raymyers/ralph-cc/pkg/types"
)

func simpleFunc(name string) *Function {
	ctx := types.NewContext(name)
	return NewFunction(name, types.Int, ctx)
}

func TestExtractStraightLine(t *testing.T) {
	f := simpleFunc("f")
	x := f.Context.Declare("x", types.Int, types.StackPosition(-8))
	flat := []Statement{
		Quadruple{Result: x, Op: ASSIGN, Arg1: IntConst{Value: 1}},
		Return{Values: []Arg{VarArg{Var: x}}},
	}
	Extract(f, flat)

	if len(f.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(f.Blocks))
	}
	b := f.Blocks[0]
	if len(b.Stmts) != 2 {
		t.Fatalf("expected 2 statements in block, got %d", len(b.Stmts))
	}
	if len(f.EntryBlock.Succ) != 1 || f.EntryBlock.Succ[0] != b {
		t.Fatal("ENTRY should point to the single block")
	}
	if len(f.ExitBlock.Pred) != 1 || f.ExitBlock.Pred[0] != b {
		t.Fatal("block should point to EXIT")
	}
}

func TestExtractLoop(t *testing.T) {
	f := simpleFunc("loop")
	i := f.Context.Declare("i", types.Int, types.StackPosition(-8))
	flat := []Statement{
		Quadruple{Result: i, Op: ASSIGN, Arg1: IntConst{Value: 0}},
		Label{Name: "L1"},
		If{Op: LESS, Arg1: VarArg{Var: i}, Arg2: IntConst{Value: 10}, Negated: true, Label: "L2"},
		Quadruple{Result: i, Op: ADD, Arg1: VarArg{Var: i}, Arg2: IntConst{Value: 1}},
		Goto{Label: "L1"},
		Label{Name: "L2"},
		Return{Values: []Arg{VarArg{Var: i}}},
	}
	Extract(f, flat)

	if len(f.Blocks) != 4 {
		t.Fatalf("expected 4 blocks (init, header, body, exit), got %d", len(f.Blocks))
	}
	header := f.BlockByLabel("L1")
	if header == nil {
		t.Fatal("missing L1 block")
	}
	exitBlk := f.BlockByLabel("L2")
	if exitBlk == nil {
		t.Fatal("missing L2 block")
	}
	// header's IF should target L2 and fall through to the body.
	term := header.Terminator().(If)
	if term.Target != exitBlk {
		t.Fatal("IF target not resolved to L2 block")
	}
	// the body block (middle) should jump back to header.
	var body *BasicBlock
	for _, b := range f.Blocks {
		if b != header && b != exitBlk {
			body = b
		}
	}
	if body == nil {
		t.Fatal("missing loop body block")
	}
	g := body.Terminator().(Goto)
	if g.Target != header {
		t.Fatal("GOTO target not resolved back to header")
	}
}

func TestExtractDanglingLabelPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on dangling label")
		}
	}()
	f := simpleFunc("bad")
	flat := []Statement{Goto{Label: "nowhere"}}
	Extract(f, flat)
}

func TestOperatorNegate(t *testing.T) {
	if LESS.Negate() != GREATER_EQUALS {
		t.Errorf("LESS.Negate() = %v, want GREATER_EQUALS", LESS.Negate())
	}
	if EQUAL.Negate().Negate() != EQUAL {
		t.Error("Negate should be involutive")
	}
}

func TestArgsEqual(t *testing.T) {
	ctx := types.NewContext("f")
	v := ctx.Declare("x", types.Int, types.StackPosition(-8))
	if !ArgsEqual(VarArg{Var: v}, VarArg{Var: v}) {
		t.Error("same variable should be equal")
	}
	if ArgsEqual(IntConst{Value: 1}, IntConst{Value: 2}) {
		t.Error("different constants should not be equal")
	}
	if ArgsEqual(nil, IntConst{Value: 0}) {
		t.Error("nil should only equal nil")
	}
}
