package ltac

// Address is an x86 memory operand: base + index*scale + displacement, or a
// bare label (for globals/statics). At least one of Base or AbsLabel must be
// present; Scale is one of {0, 1, 2, 4, 8}, with 0 meaning "no index".
type Address struct {
	Base     Reg
	Index    Reg
	Scale    int
	Disp     int32
	AbsLabel string
}

// NewAddress builds a base(+index*scale)+disp memory operand.
func NewAddress(base Reg, index Reg, scale int, disp int32) Address {
	return Address{Base: base, Index: index, Scale: scale, Disp: disp}
}

// NewAbsoluteAddress builds a label(+disp) memory operand referring to a
// global symbol rather than a register-relative location.
func NewAbsoluteAddress(label string, disp int32) Address {
	return Address{AbsLabel: label, Disp: disp}
}

func (Address) implArg() {}

// Valid reports whether a conforms to the base-or-label, valid-scale
// invariant every Address must satisfy once lowering has produced it.
func (a Address) Valid() bool {
	if a.AbsLabel == "" && a.Base == nil {
		return false
	}
	switch a.Scale {
	case 0, 1, 2, 4, 8:
	default:
		return false
	}
	if a.Index == nil && a.Scale != 0 {
		return false
	}
	return true
}
