// Package testkit provides testing helpers
package testkit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MustPanic asserts that fn panics and returns the recovered value as text
func MustPanic(t *testing.T, fn func()) (msg string) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic, got none")
		}
		msg = fmt.Sprint(r)
	}()
	fn()
	return ""
}

// MustNotPanic asserts that fn does not panic
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	fn()
}

// MustContain asserts that haystack contains needle. Long haystacks are
// written to a temp file instead of the failure message
func MustContain(t *testing.T, haystack, needle string) {
	t.Helper()
	if strings.Contains(haystack, needle) {
		return
	}
	if len(haystack) <= 512 {
		t.Fatalf("expected %q in:\n%s", needle, haystack)
	}
	out := filepath.Join(t.TempDir(), "haystack.txt")
	_ = os.WriteFile(out, []byte(haystack), 0o600)
	t.Fatalf("expected %q, full output (%d bytes) written to %s", needle, len(haystack), out)
}
