package repokit

import "testing"

type counter struct{ n int }

func TestBindFunc(t *testing.T) {
	t.Parallel()

	calls := 0
	var b Binder[*counter] = BindFunc[*counter](func(q Queryer) *counter {
		calls++
		if q != nil {
			t.Fatalf("expected nil queryer")
		}
		return &counter{n: calls}
	})

	if got := b.Bind(nil); got.n != 1 {
		t.Fatalf("first bind = %d", got.n)
	}
	if got := b.Bind(nil); got.n != 2 {
		t.Fatalf("binders should not cache, got %d", got.n)
	}
}
