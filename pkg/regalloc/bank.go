package regalloc

import "github.com/raymyers/ralph-cc/pkg/ltac"

// bank is the pool of hard registers of one class (int or float) the
// allocator draws from, plus the bookkeeping needed to apply spec §4.5's
// eviction priority: which pseudo currently sits in each register, and
// whether that value has been written since it was last reloaded from its
// spill slot (clean occupants can be dropped for free; dirty ones must be
// stored first).
type bank struct {
	regs     []ltac.HardReg
	occupant map[ltac.HardReg]pkey
	location map[pkey]ltac.HardReg
	dirty    map[pkey]bool
}

func newBank(regs []ltac.HardReg) *bank {
	return &bank{
		regs:     regs,
		occupant: map[ltac.HardReg]pkey{},
		location: map[pkey]ltac.HardReg{},
		dirty:    map[pkey]bool{},
	}
}

// freeReg returns an unoccupied register, if one exists.
func (b *bank) freeReg() (ltac.HardReg, bool) {
	for _, r := range b.regs {
		if _, occ := b.occupant[r]; !occ {
			return r, true
		}
	}
	return 0, false
}

// pick implements eviction priority 1: the hinted register if it happens to
// be free, otherwise any free register.
func (b *bank) pick(hint *ltac.HardReg) (ltac.HardReg, bool) {
	if hint != nil {
		if _, occ := b.occupant[*hint]; !occ {
			return *hint, true
		}
	}
	return b.freeReg()
}

// chooseVictim implements eviction priorities 2 and 3: a register whose
// occupant is dead at this point, else one whose occupant is clean. Priority
// 4 (spill) is whatever chooseVictim returns when every occupant is both
// live and dirty — the caller is responsible for emitting the store.
// reserved holds the hard registers the current instruction itself reads or
// writes; those must never be evicted to make room for one of the
// instruction's other operands (spec's "mark reserved" rule).
func (b *bank) chooseVictim(lv *liveness, i int, reserved map[ltac.HardReg]bool) ltac.HardReg {
	for _, r := range b.regs {
		if k, occ := b.occupant[r]; occ && !reserved[r] && !lv.liveAfter(i, k) {
			return r
		}
	}
	for _, r := range b.regs {
		if k, occ := b.occupant[r]; occ && !reserved[r] && !b.dirty[k] {
			return r
		}
	}
	for _, r := range b.regs {
		if _, occ := b.occupant[r]; occ && !reserved[r] {
			return r
		}
	}
	for _, r := range b.regs {
		if _, occ := b.occupant[r]; occ {
			return r // every occupied register is reserved: cannot happen with this IR's operand counts
		}
	}
	return b.regs[0]
}

// bind records that reg now holds key with the given dirty flag, emitting no
// code: used for a fresh def and for a parameter already in its hint
// register (dirty), and after a reload from the spill slot (clean).
func (b *bank) bind(reg ltac.HardReg, k pkey, dirty bool) {
	b.occupant[reg] = k
	b.location[k] = reg
	b.dirty[k] = dirty
}

// drop removes a register's occupant without emitting any code; used once
// its value has already been saved (or never needed saving).
func (b *bank) drop(reg ltac.HardReg) {
	k := b.occupant[reg]
	delete(b.occupant, reg)
	delete(b.location, k)
	delete(b.dirty, k)
}

// expire frees every occupant no longer live after instruction i — the
// proactive form of eviction priority 2, keeping registers available before
// the next instruction ever has to ask for one.
func (b *bank) expire(lv *liveness, i int) {
	for r, k := range b.occupant {
		if !lv.liveAfter(i, k) {
			delete(b.occupant, r)
			delete(b.location, k)
			delete(b.dirty, k)
		}
	}
}
