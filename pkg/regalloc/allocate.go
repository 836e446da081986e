package regalloc

import (
	"sort"

	"github.com/raymyers/ralph-cc/pkg/diag"
	"github.com/raymyers/ralph-cc/pkg/ltac"
	"github.com/raymyers/ralph-cc/pkg/platform"
)

const frameAlignment = int64(16)

// role classifies how an instruction touches a register operand, since the
// same pseudo can be read, written, or both depending on where it sits.
type role int

const (
	roleRead role = iota
	roleWrite
	roleReadWrite
)

// homeTable hands out stack spill slots for pseudo-registers, extending a
// function's existing local frame downward rather than renumbering what
// lowering already placed there.
type homeTable struct {
	base  ltac.HardReg
	next  int64
	slots map[pkey]ltac.Address
}

func newHomeTable(base ltac.HardReg, stacksize int64) *homeTable {
	return &homeTable{base: base, next: -stacksize, slots: map[pkey]ltac.Address{}}
}

func (h *homeTable) lookup(k pkey) (ltac.Address, bool) {
	a, ok := h.slots[k]
	return a, ok
}

func (h *homeTable) alloc(k pkey) ltac.Address {
	if a, ok := h.slots[k]; ok {
		return a
	}
	h.next -= 8
	a := ltac.NewAddress(h.base, nil, 0, int32(h.next))
	h.slots[k] = a
	return a
}

// frameSize rounds the deepest slot handed out up to the platform's stack
// alignment, becoming the function's final Stacksize.
func (h *homeTable) frameSize() int64 {
	size := -h.next
	if rem := size % frameAlignment; rem != 0 {
		size += frameAlignment - rem
	}
	return size
}

// ctx is the per-function allocation state threaded through the pass: the
// two register banks, the spill-slot table, and the bookkeeping needed for
// call-boundary saves and the final CalleeSaveRegs/Stacksize fields.
type ctx struct {
	f    *ltac.Function
	lv   *liveness
	ib   *bank
	fb   *bank
	home *homeTable
	desc *platform.Descriptor

	callerSaved map[ltac.HardReg]bool
	usedHard    map[ltac.HardReg]bool

	// reserved holds the hard registers the instruction currently being
	// processed reads or writes; refreshed before every instruction so
	// resolving one operand can never evict the register another operand of
	// the same instruction already occupies.
	reserved map[ltac.HardReg]bool

	intReturn, intReturn2, floatReturn ltac.HardReg
}

// markReserved recomputes c.reserved for inst: the hard registers currently
// held by any pseudo-register inst itself reads or writes.
func (c *ctx) markReserved(inst ltac.Instruction) {
	reserved := map[ltac.HardReg]bool{}
	defs, uses := defUse(inst)
	for _, k := range defs {
		if reg, ok := c.bankFor(k.class).location[k]; ok {
			reserved[reg] = true
		}
	}
	for _, k := range uses {
		if reg, ok := c.bankFor(k.class).location[k]; ok {
			reserved[reg] = true
		}
	}
	c.reserved = reserved
}

// bankFor returns the register bank a pseudo's class draws from.
func (c *ctx) bankFor(class ltac.RegClass) *bank {
	if class == ltac.FloatClass {
		return c.fb
	}
	return c.ib
}

func movOpFor(class ltac.RegClass) ltac.Op {
	if class == ltac.FloatClass {
		return ltac.FMOV
	}
	return ltac.MOV
}

// pickOrEvict finds a home register for key, applying spec §4.5's eviction
// priority and emitting whatever store an eviction requires.
func (c *ctx) pickOrEvict(i int, class ltac.RegClass, hint *ltac.HardReg, out *[]ltac.Instruction) ltac.HardReg {
	b := c.bankFor(class)
	if reg, ok := b.pick(hint); ok {
		c.usedHard[reg] = true
		return reg
	}
	victim := b.chooseVictim(c.lv, i, c.reserved)
	vkey := b.occupant[victim]
	if b.dirty[vkey] {
		addr := c.home.alloc(vkey)
		*out = append(*out, ltac.Insn{Op: movOpFor(class), Arg1: addr, Arg2: victim})
	}
	b.drop(victim)
	c.usedHard[victim] = true
	return victim
}

// ensureResident returns a register holding key's current value, reloading
// it from its spill slot if it isn't already resident.
func (c *ctx) ensureResident(i int, k pkey, class ltac.RegClass, hint *ltac.HardReg, out *[]ltac.Instruction) ltac.HardReg {
	b := c.bankFor(class)
	if reg, ok := b.location[k]; ok {
		return reg
	}
	reg := c.pickOrEvict(i, class, hint, out)
	addr, ok := c.home.lookup(k)
	if !ok {
		diag.Panic(c.f.Name, "register %d used before it was ever defined", k.id)
	}
	*out = append(*out, ltac.Insn{Op: movOpFor(class), Arg1: reg, Arg2: addr})
	b.bind(reg, k, false)
	return reg
}

// allocateForDef returns a register to hold a freshly written value, never
// reloading the old one: reusing the current register if key already has
// one (a second def without an intervening use), otherwise claiming a new
// one via the same eviction priority.
func (c *ctx) allocateForDef(i int, k pkey, class ltac.RegClass, hint *ltac.HardReg, out *[]ltac.Instruction) ltac.HardReg {
	b := c.bankFor(class)
	if reg, ok := b.location[k]; ok {
		b.dirty[k] = true
		return reg
	}
	reg := c.pickOrEvict(i, class, hint, out)
	b.bind(reg, k, true)
	return reg
}

// rewriteOperand replaces every pseudo-register inside a (directly, or as an
// Address's base/index) with the hard register the allocator assigns it,
// emitting reload/spill code into out as needed.
func (c *ctx) rewriteOperand(i int, a ltac.Arg, r role, out *[]ltac.Instruction) ltac.Arg {
	switch v := a.(type) {
	case ltac.PseudoReg:
		k := keyOf(v)
		switch r {
		case roleWrite:
			reg := c.allocateForDef(i, k, v.Class, v.Hint, out)
			return reg
		case roleReadWrite:
			reg := c.ensureResident(i, k, v.Class, v.Hint, out)
			c.bankFor(v.Class).dirty[k] = true
			return reg
		default:
			return c.ensureResident(i, k, v.Class, v.Hint, out)
		}
	case ltac.Address:
		if p, ok := v.Base.(ltac.PseudoReg); ok {
			v.Base = c.rewriteOperand(i, p, roleRead, out).(ltac.Reg)
		}
		if p, ok := v.Index.(ltac.PseudoReg); ok {
			v.Index = c.rewriteOperand(i, p, roleRead, out).(ltac.Reg)
		}
		return v
	default:
		return a
	}
}

// allocateInsn rewrites one Insn's operands, working out Arg1's role from
// the opcode table shared with liveness's defUse.
func (c *ctx) allocateInsn(i int, in ltac.Insn, out *[]ltac.Instruction) ltac.Insn {
	role1 := roleWrite
	switch {
	case in.Op == ltac.CMP:
		role1 = roleRead
	case readWriteOps[in.Op]:
		role1 = roleReadWrite
	}
	arg1 := c.rewriteOperand(i, in.Arg1, role1, out)
	arg2 := c.rewriteOperand(i, in.Arg2, roleRead, out)
	arg3 := c.rewriteOperand(i, in.Arg3, roleRead, out)
	return ltac.Insn{Op: in.Op, Arg1: arg1, Arg2: arg2, Arg3: arg3}
}

// isResultMove reports whether inst is a MOV/FMOV reading straight out of one
// of the ABI return registers, the shape pkg/lower emits immediately after
// every Call that produces a value.
func (c *ctx) isResultMove(inst ltac.Instruction) bool {
	in, ok := inst.(ltac.Insn)
	if !ok || (in.Op != ltac.MOV && in.Op != ltac.FMOV) {
		return false
	}
	src, ok := in.Arg2.(ltac.HardReg)
	if !ok {
		return false
	}
	return src == c.intReturn || src == c.intReturn2 || src == c.floatReturn
}

// allocateCall handles one Call instruction (and the result-move pair that
// may follow it): caller-saved registers still live afterward are pushed
// before the call and popped after, but only once the result has been
// copied out, so a saved occupant of (say) rax is not restored on top of
// the call's own fresh return value.
func (c *ctx) allocateCall(i int, call ltac.Call, out *[]ltac.Instruction) int {
	c.markReserved(call)
	callee := call.Callee
	if fr, ok := callee.(ltac.FunReg); ok {
		reg := c.rewriteOperand(i, fr.Reg, roleRead, out)
		callee = ltac.FunReg{Reg: reg.(ltac.Reg)}
	}

	type saved struct {
		reg ltac.HardReg
		key pkey
	}
	var saves []saved
	for _, b := range []*bank{c.ib, c.fb} {
		for _, r := range b.regs {
			k, occ := b.occupant[r]
			if occ && c.callerSaved[r] && c.lv.liveAfter(i, k) {
				saves = append(saves, saved{reg: r, key: k})
			}
		}
	}
	sort.Slice(saves, func(a, bIdx int) bool { return saves[a].reg < saves[bIdx].reg })
	for _, s := range saves {
		*out = append(*out, ltac.Push{Arg: s.reg})
	}

	*out = append(*out, ltac.Call{Callee: callee, ArgBytes: call.ArgBytes})

	j := i + 1
	for j < len(c.f.Code) && c.isResultMove(c.f.Code[j]) {
		in := c.f.Code[j].(ltac.Insn)
		c.markReserved(in)
		rewritten := c.allocateInsn(j, in, out)
		*out = append(*out, rewritten)
		j++
	}

	for k := len(saves) - 1; k >= 0; k-- {
		*out = append(*out, ltac.Pop{Arg: saves[k].reg})
	}

	c.ib.expire(c.lv, i)
	c.fb.expire(c.lv, i)
	return j
}

// allocateOther rewrites the pseudo-register operands of every instruction
// shape besides Insn and Call.
func (c *ctx) allocateOther(i int, inst ltac.Instruction, out *[]ltac.Instruction) ltac.Instruction {
	switch in := inst.(type) {
	case ltac.JumpTable:
		idx := c.rewriteOperand(i, in.Index, roleRead, out)
		return ltac.JumpTable{Index: idx.(ltac.Reg), Targets: in.Targets}
	case ltac.Push:
		return ltac.Push{Arg: c.rewriteOperand(i, in.Arg, roleRead, out)}
	case ltac.Pop:
		return ltac.Pop{Arg: c.rewriteOperand(i, in.Arg, roleWrite, out)}
	default:
		return inst
	}
}

// preseedParams binds every Hint-carrying pseudo that is live at function
// entry (upward-exposed before any def reaches it) to its hint register
// before instruction 0: the ABI delivers parameters there before any LTAC
// instruction explicitly writes them, so the allocator must treat them as
// already resident rather than waiting for a def that will never come. A
// promoted parameter later reassigned in the body is still live-in at
// entry, so this is not simply "never defined anywhere".
func (c *ctx) preseedParams() {
	hints := map[pkey]*ltac.HardReg{}
	collect := func(a ltac.Arg) {
		if p, ok := a.(ltac.PseudoReg); ok && p.Hint != nil {
			hints[keyOf(p)] = p.Hint
		}
	}
	for _, inst := range c.f.Code {
		switch in := inst.(type) {
		case ltac.Insn:
			collect(in.Arg1)
			collect(in.Arg2)
			collect(in.Arg3)
		case ltac.Push:
			collect(in.Arg)
		case ltac.Pop:
			collect(in.Arg)
		case ltac.JumpTable:
			collect(in.Index)
		case ltac.Call:
			if fr, ok := in.Callee.(ltac.FunReg); ok {
				collect(fr.Reg)
			}
		}
	}
	for k, hint := range hints {
		if !c.lv.in[0][k] {
			continue
		}
		c.bankFor(k.class).bind(*hint, k, true)
		c.usedHard[*hint] = true
	}
}

// Function assigns every pseudo-register in f a hard register or spill
// slot, rewriting its instruction stream in place and filling in the
// Stacksize and CalleeSaveRegs fields that lowering left for this pass.
func Function(f *ltac.Function, desc *platform.Descriptor) {
	base, ok := ltac.ParseHardReg(desc.BasePointer)
	if !ok {
		diag.Panic(f.Name, "unrecognized base pointer register %q", desc.BasePointer)
	}
	intReturn, _ := ltac.ParseHardReg(desc.IntReturn)
	intReturn2, _ := ltac.ParseHardReg(desc.IntReturn2)
	floatReturn, _ := ltac.ParseHardReg(desc.FloatReturn)

	callerSaved := map[ltac.HardReg]bool{}
	for _, name := range desc.CallerSaved {
		if r, ok := ltac.ParseHardReg(name); ok {
			callerSaved[r] = true
		}
	}

	c := &ctx{
		f:           f,
		lv:          computeLiveness(f),
		ib:          newBank(ltac.AllocatableIntRegs),
		fb:          newBank(ltac.AllocatableFloatRegs),
		home:        newHomeTable(base, f.Stacksize),
		desc:        desc,
		callerSaved: callerSaved,
		usedHard:    map[ltac.HardReg]bool{},
		intReturn:   intReturn,
		intReturn2:  intReturn2,
		floatReturn: floatReturn,
	}
	c.preseedParams()

	out := make([]ltac.Instruction, 0, len(f.Code))
	for i := 0; i < len(f.Code); {
		switch in := f.Code[i].(type) {
		case ltac.Call:
			i = c.allocateCall(i, in, &out)
		case ltac.Insn:
			c.markReserved(in)
			rewritten := c.allocateInsn(i, in, &out)
			out = append(out, rewritten)
			c.ib.expire(c.lv, i)
			c.fb.expire(c.lv, i)
			i++
		default:
			c.markReserved(in)
			rewritten := c.allocateOther(i, in, &out)
			out = append(out, rewritten)
			c.ib.expire(c.lv, i)
			c.fb.expire(c.lv, i)
			i++
		}
	}
	f.Code = out
	f.Stacksize = c.home.frameSize()

	var calleeSaved []ltac.HardReg
	for _, r := range ltac.CalleeSavedIntRegs {
		if c.usedHard[r] {
			calleeSaved = append(calleeSaved, r)
		}
	}
	f.CalleeSaveRegs = calleeSaved

	for i, inst := range f.Code {
		if _, ok := inst.(ltac.Enter); ok {
			f.Code[i] = ltac.Enter{FrameSize: f.Stacksize}
			break
		}
	}
}

// Program assigns hard registers across every function in p.
func Program(p *ltac.Program, desc *platform.Descriptor) *ltac.Program {
	for _, f := range p.Functions {
		Function(f, desc)
	}
	return p
}
