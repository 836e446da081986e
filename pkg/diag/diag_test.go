package diag

import (
	"errors"
	"testing"
)

func TestInvariantErrorMessage(t *testing.T) {
	err := InvariantAt("f", "GOTO L1", "dangling label %q", "L1")
	want := `eddic: invariant violation in f at "GOTO L1": dangling label "L1"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestInvariantErrorWithoutStatement(t *testing.T) {
	err := Invariant("f", "malformed program")
	want := "eddic: invariant violation in f: malformed program"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestPanicRaisesInvariantError(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected Panic to panic")
		}
		if _, ok := r.(*InvariantError); !ok {
			t.Fatalf("expected *InvariantError, got %T", r)
		}
	}()
	Panic("f", "unreachable terminator")
}

func TestCompileErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := Unsupportedf("lower", "cannot lower: %w", inner)
	if !errors.Is(err, inner) {
		t.Error("CompileError should unwrap to its inner error")
	}
	if err.Kind != Unsupported {
		t.Errorf("Kind = %v, want Unsupported", err.Kind)
	}
}
