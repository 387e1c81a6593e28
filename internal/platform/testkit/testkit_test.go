package testkit

import (
	"errors"
	"testing"
)

func TestMustPanic_ReturnsValue(t *testing.T) {
	t.Parallel()

	if got := MustPanic(t, func() { panic("boom") }); got != "boom" {
		t.Fatalf("msg = %q", got)
	}
	if got := MustPanic(t, func() { panic(errors.New("bad wiring")) }); got != "bad wiring" {
		t.Fatalf("msg = %q", got)
	}
}

func TestMustNotPanic(t *testing.T) {
	t.Parallel()

	MustNotPanic(t, func() {})
}

func TestMustContain(t *testing.T) {
	t.Parallel()

	MustContain(t, `{"surface":"fui","lemma":"ir"}`, `"lemma":"ir"`)
}
