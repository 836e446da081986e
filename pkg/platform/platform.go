// Package platform holds the target descriptor spec §6 requires: primitive
// sizes/alignment, parameter register counts, caller/callee-saved register
// counts, and the sentinel (stack/base pointer) and return-value registers
// for each supported target.
package platform

// Target selects the word width the lowering stage and register allocator
// target; spec §6's --target flag is either 32 or 64, auto-detected by
// default.
type Target int

const (
	X86 Target = iota
	X86_64
)

func (t Target) String() string {
	if t == X86_64 {
		return "x86-64"
	}
	return "x86"
}

// WordSize is the native pointer/int register width in bytes.
func (t Target) WordSize() int64 {
	if t == X86_64 {
		return 8
	}
	return 4
}

// Descriptor is the full target-specific layout the lowering stage and
// register allocator consult.
type Descriptor struct {
	Target Target

	IntSize, FloatSize, BoolSize, CharSize, PointerSize int64
	StringHeaderSize                                    int64 // {pointer, length} pair

	// IntParamRegs/FloatParamRegs name the hard registers used, in order,
	// for the first N integer/float parameters before overflowing to the
	// stack (spec §4.4's calling convention).
	IntParamRegs   []string
	FloatParamRegs []string

	CallerSaved []string
	CalleeSaved []string

	StackPointer string
	BasePointer  string

	// IntReturn/FloatReturn are the designated return registers; a paired
	// return (e.g. string's {pointer,length}) uses IntReturn plus
	// IntReturn2.
	IntReturn   string
	IntReturn2  string
	FloatReturn string
}

// Descriptors keyed by Target, following the teacher's two-ABI split: X86
// passes overflow parameters right-to-left, X86_64 follows System-V order
// (spec §4.4).
var Descriptors = map[Target]*Descriptor{
	X86: {
		Target:           X86,
		IntSize:          4,
		FloatSize:        4,
		BoolSize:         1,
		CharSize:         1,
		PointerSize:      4,
		StringHeaderSize: 8,
		IntParamRegs:     nil, // X86 cdecl passes everything on the stack
		FloatParamRegs:   nil,
		CallerSaved:      []string{"eax", "ecx", "edx"},
		CalleeSaved:      []string{"ebx", "esi", "edi"},
		StackPointer:     "esp",
		BasePointer:      "ebp",
		IntReturn:        "eax",
		IntReturn2:       "edx",
		FloatReturn:      "xmm0",
	},
	X86_64: {
		Target:           X86_64,
		IntSize:          4,
		FloatSize:        4,
		BoolSize:         1,
		CharSize:         1,
		PointerSize:      8,
		StringHeaderSize: 16,
		IntParamRegs:     []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"},
		FloatParamRegs:   []string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7"},
		CallerSaved:      []string{"rax", "rcx", "rdx", "rsi", "rdi", "r8", "r9", "r10", "r11"},
		CalleeSaved:      []string{"rbx", "r12", "r13", "r14", "r15"},
		StackPointer:     "rsp",
		BasePointer:      "rbp",
		IntReturn:        "rax",
		IntReturn2:       "rdx",
		FloatReturn:      "xmm0",
	},
}

// For returns the descriptor for t.
func For(t Target) *Descriptor { return Descriptors[t] }

// NumIntParamRegs and NumFloatParamRegs report how many parameters may be
// passed in registers before the rest spill to the stack.
func (d *Descriptor) NumIntParamRegs() int   { return len(d.IntParamRegs) }
func (d *Descriptor) NumFloatParamRegs() int { return len(d.FloatParamRegs) }

// NumCallerSaved and NumCalleeSaved report the sizes of each saved-register
// class, used by the register allocator's spill-class bookkeeping.
func (d *Descriptor) NumCallerSaved() int { return len(d.CallerSaved) }
func (d *Descriptor) NumCalleeSaved() int { return len(d.CalleeSaved) }
