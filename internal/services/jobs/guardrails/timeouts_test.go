package guardrails

import (
	"context"
	"testing"
	"time"
)

func TestForChunk_NeverExtendsParent(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ctx, c2 := ForChunk(parent, Timeouts{Chunk: time.Hour})
	defer c2()
	if rem := Remaining(ctx); rem <= 0 || rem > 50*time.Millisecond {
		t.Fatalf("remaining = %v", rem)
	}
}

func TestForDB_ZeroInheritsParent(t *testing.T) {
	t.Parallel()

	ctx, cancel := ForDB(context.Background(), Timeouts{})
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatal("zero budget should not add a deadline")
	}
}

func TestDetached_SurvivesParentCancel(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())
	cancel()
	ctx, c2 := Detached(parent, time.Second)
	defer c2()
	if ctx.Err() != nil {
		t.Fatalf("detached ctx err = %v", ctx.Err())
	}
	if rem := Remaining(ctx); rem <= 0 || rem > time.Second {
		t.Fatalf("remaining = %v", rem)
	}
}

func TestRemaining_NoDeadline(t *testing.T) {
	t.Parallel()
	if Remaining(context.Background()) != 0 {
		t.Fatal("want zero")
	}
}
