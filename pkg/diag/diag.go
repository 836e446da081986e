// Package diag implements the middle-end's error taxonomy (spec §7): every
// pass reports a bug via InvariantError (unreachable terminator, dangling
// label, malformed quadruple, a pseudo-register surviving to the code
// generator) or a recoverable CompileError (unsupported construct, resource
// exhaustion), never a bare string.
package diag

import "fmt"

// InvariantError marks a bug in the middle-end itself: something the front
// end was supposed to guarantee before MTAC ever reached this package. It
// names the offending function and, where known, the statement that broke
// the invariant.
type InvariantError struct {
	Function  string
	Statement string // human-readable rendering of the failing statement, empty if not applicable
	Message   string
}

func (e *InvariantError) Error() string {
	if e.Statement == "" {
		return fmt.Sprintf("eddic: invariant violation in %s: %s", e.Function, e.Message)
	}
	return fmt.Sprintf("eddic: invariant violation in %s at %q: %s", e.Function, e.Statement, e.Message)
}

// Invariant builds an InvariantError for panic at a call site that has no
// specific failing statement to report (e.g. a malformed Program shape
// discovered before basic-block extraction).
func Invariant(function, message string, args ...any) *InvariantError {
	return &InvariantError{Function: function, Message: fmt.Sprintf(message, args...)}
}

// InvariantAt is Invariant with a statement attached.
func InvariantAt(function, statement, message string, args ...any) *InvariantError {
	return &InvariantError{Function: function, Statement: statement, Message: fmt.Sprintf(message, args...)}
}

// Panic raises an InvariantError via panic, the uniform way every pass
// aborts compilation on a broken internal invariant (spec §7: "abort
// compilation with a structured diagnostic ... never silently continue").
func Panic(function, message string, args ...any) {
	panic(Invariant(function, message, args...))
}

// PanicAt is Panic with a statement attached.
func PanicAt(function, statement, message string, args ...any) {
	panic(InvariantAt(function, statement, message, args...))
}

// Kind distinguishes the two recoverable CompileError categories from
// spec §7.
type Kind int

const (
	// Unsupported marks a construct the lowering or allocator doesn't yet
	// handle — the front end should have rejected it earlier.
	Unsupported Kind = iota
	// ResourceExhausted marks allocator failure or unbounded recursion over
	// deeply nested expressions.
	ResourceExhausted
)

func (k Kind) String() string {
	switch k {
	case Unsupported:
		return "unsupported construct"
	case ResourceExhausted:
		return "resource exhausted"
	}
	return "compile error"
}

// CompileError is a recoverable, user-facing compilation failure: the
// pipeline stops and produces no output, but the process does not panic.
type CompileError struct {
	Kind     Kind
	Function string
	Err      error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("eddic: %s in %s: %v", e.Kind, e.Function, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Unsupportedf builds a CompileError of kind Unsupported.
func Unsupportedf(function, format string, args ...any) *CompileError {
	return &CompileError{Kind: Unsupported, Function: function, Err: fmt.Errorf(format, args...)}
}

// Exhaustedf builds a CompileError of kind ResourceExhausted.
func Exhaustedf(function, format string, args ...any) *CompileError {
	return &CompileError{Kind: ResourceExhausted, Function: function, Err: fmt.Errorf(format, args...)}
}
