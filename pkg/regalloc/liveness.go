// Package regalloc assigns LTAC pseudo-registers to hard registers or stack
// spill slots (spec §4.5): a single forward pass over each function's
// instruction stream that, at every point a pseudo-register needs a home,
// picks one by the eviction priority spec.md §4.5 lays out: a free register
// first, then a register whose occupant is dead, then one whose occupant is
// clean (no store needed), and only as a last resort a genuine spill.
package regalloc

import "github.com/raymyers/ralph-cc/pkg/ltac"

// pkey identifies one pseudo-register independent of its Hint, so it can key
// maps without PseudoReg's optional pointer field getting in the way.
type pkey struct {
	class ltac.RegClass
	id    int
}

func keyOf(r ltac.PseudoReg) pkey { return pkey{class: r.Class, id: r.ID} }

// regsIn returns the pseudo-registers an operand references: itself if it's
// a bare pseudo, or its base/index if it's a memory address built from one.
// Hard registers and immediates contribute nothing.
func regsIn(a ltac.Arg) []pkey {
	switch v := a.(type) {
	case ltac.PseudoReg:
		return []pkey{keyOf(v)}
	case ltac.Address:
		var out []pkey
		if p, ok := v.Base.(ltac.PseudoReg); ok {
			out = append(out, keyOf(p))
		}
		if p, ok := v.Index.(ltac.PseudoReg); ok {
			out = append(out, keyOf(p))
		}
		return out
	}
	return nil
}

// readWriteOps are the arithmetic/logical opcodes whose Arg1 is both read
// and written, mirroring x86's two-operand instruction shape.
var readWriteOps = map[ltac.Op]bool{
	ltac.ADD: true, ltac.SUB: true, ltac.MUL: true, ltac.DIV: true, ltac.MOD: true,
	ltac.AND: true, ltac.OR: true, ltac.XOR: true,
	ltac.SHL: true, ltac.SHR: true, ltac.SAR: true,
	ltac.NEG: true, ltac.NOT: true,
}

// defUse reports the pseudo-registers an instruction writes and reads.
func defUse(inst ltac.Instruction) (defs, uses []pkey) {
	switch in := inst.(type) {
	case ltac.Insn:
		if in.Op == ltac.CMP {
			return nil, append(regsIn(in.Arg1), append(regsIn(in.Arg2), regsIn(in.Arg3)...)...)
		}
		if dst, ok := in.Arg1.(ltac.PseudoReg); ok {
			defs = []pkey{keyOf(dst)}
			if readWriteOps[in.Op] {
				uses = append(uses, keyOf(dst))
			}
			uses = append(uses, regsIn(in.Arg2)...)
			uses = append(uses, regsIn(in.Arg3)...)
			return defs, uses
		}
		// Arg1 is a memory address (or a hard register, which regalloc never
		// touches): no pseudo is defined, only addressed/used.
		uses = append(uses, regsIn(in.Arg1)...)
		uses = append(uses, regsIn(in.Arg2)...)
		uses = append(uses, regsIn(in.Arg3)...)
		return nil, uses
	case ltac.JumpTable:
		return nil, regsIn(in.Index)
	case ltac.Push:
		return nil, regsIn(in.Arg)
	case ltac.Pop:
		if dst, ok := in.Arg.(ltac.PseudoReg); ok {
			return []pkey{keyOf(dst)}, nil
		}
		return nil, regsIn(in.Arg)
	case ltac.Call:
		if fr, ok := in.Callee.(ltac.FunReg); ok {
			return nil, regsIn(fr.Reg)
		}
	}
	return nil, nil
}

// succ returns the instruction indices control may flow to directly after
// index i, given a function's resolved label->index table.
func succ(code []ltac.Instruction, i int, labelAt map[ltac.Label]int) []int {
	fallthrough_ := i + 1
	hasFallthrough := fallthrough_ < len(code)
	switch in := code[i].(type) {
	case ltac.Jump:
		return []int{labelAt[in.Target]}
	case ltac.CondJump:
		out := []int{labelAt[in.Target]}
		if hasFallthrough {
			out = append(out, fallthrough_)
		}
		return out
	case ltac.JumpTable:
		out := make([]int, 0, len(in.Targets))
		for _, t := range in.Targets {
			out = append(out, labelAt[t])
		}
		return out
	case ltac.Ret:
		return nil
	}
	if hasFallthrough {
		return []int{fallthrough_}
	}
	return nil
}

// liveness holds, per instruction index, the set of pseudo-registers live
// immediately before and after that instruction.
type liveness struct {
	in, out []map[pkey]bool
}

// computeLiveness runs the standard backward dataflow fixpoint over a
// function's flat instruction stream, treating LabelMark-resolved jump
// targets as control-flow edges so a value live around a loop back-edge is
// recognized as live throughout the loop (spec §4.5 needs this to decide
// "not live after this point" correctly even across branches).
func computeLiveness(f *ltac.Function) *liveness {
	n := len(f.Code)
	labelAt := make(map[ltac.Label]int)
	for i, inst := range f.Code {
		if lm, ok := inst.(ltac.LabelMark); ok {
			labelAt[lm.Lbl] = i
		}
	}

	defs := make([][]pkey, n)
	uses := make([][]pkey, n)
	for i, inst := range f.Code {
		defs[i], uses[i] = defUse(inst)
	}

	l := &liveness{in: make([]map[pkey]bool, n), out: make([]map[pkey]bool, n)}
	for i := range l.in {
		l.in[i] = map[pkey]bool{}
		l.out[i] = map[pkey]bool{}
	}

	for changed := true; changed; {
		changed = false
		for i := n - 1; i >= 0; i-- {
			newOut := map[pkey]bool{}
			for _, s := range succ(f.Code, i, labelAt) {
				for k := range l.in[s] {
					newOut[k] = true
				}
			}
			newIn := map[pkey]bool{}
			for k := range newOut {
				newIn[k] = true
			}
			for _, d := range defs[i] {
				delete(newIn, d)
			}
			for _, u := range uses[i] {
				newIn[u] = true
			}
			if !sameSet(newIn, l.in[i]) || !sameSet(newOut, l.out[i]) {
				changed = true
			}
			l.in[i] = newIn
			l.out[i] = newOut
		}
	}
	return l
}

func sameSet(a, b map[pkey]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// liveAfter reports whether k is needed anywhere after instruction i.
func (l *liveness) liveAfter(i int, k pkey) bool {
	return l.out[i][k]
}
