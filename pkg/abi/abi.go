// Package abi names the runtime ABI symbols the middle-end emits CALL
// instructions against (spec §6). The middle-end makes no assumption about
// their implementation beyond the calling convention; it only needs a
// stable, typo-proof way to refer to them from pkg/lower and pkg/optimize
// (string literals scattered across passes would drift).
package abi

// CallTarget identifies one runtime entry point by name.
type CallTarget string

const (
	Alloc         CallTarget = "eddi_alloc"
	Concat        CallTarget = "concat"
	PrintInteger  CallTarget = "print_integer"
	PrintFloat    CallTarget = "print_float"
	PrintBool     CallTarget = "print_bool"
	PrintString   CallTarget = "print_string"
	Println       CallTarget = "println"
	Time          CallTarget = "time"
	Duration      CallTarget = "duration"
)

// Signature describes a runtime call's arity and whether it produces a
// paired return (used by concat's {pointer, length} result).
type Signature struct {
	NumArgs    int
	PairedRet  bool
}

// Signatures is the full table of recognized runtime calls.
var Signatures = map[CallTarget]Signature{
	Alloc:        {NumArgs: 1},
	Concat:       {NumArgs: 4, PairedRet: true},
	PrintInteger: {NumArgs: 1},
	PrintFloat:   {NumArgs: 1},
	PrintBool:    {NumArgs: 1},
	PrintString:  {NumArgs: 2}, // (pointer, length)
	Println:      {NumArgs: 0},
	Time:         {NumArgs: 0},
	Duration:     {NumArgs: 2},
}

// IsKnown reports whether name matches a recognized runtime ABI symbol.
func IsKnown(name string) bool {
	_, ok := Signatures[CallTarget(name)]
	return ok
}
