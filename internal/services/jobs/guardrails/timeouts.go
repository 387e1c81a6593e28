// Package guardrails bounds the phases of one job continuation
package guardrails

import (
	"context"
	"time"
)

// Timeouts is the budget bundle for one continuation.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Chunk caps fetching, annotating and persisting one chunk
	Chunk time.Duration
	// DB caps each state transition
	DB time.Duration
	// Trigger caps one delivery attempt of the next continuation
	Trigger time.Duration
}

// ForChunk returns a context for the work phase bounded by Chunk without extending any parent deadline
func ForChunk(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Chunk)
}

// ForDB returns a context for a state transition bounded by DB and any remaining parent budget
func ForDB(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.DB)
}

// Detached returns a context that survives cancellation of parent, bounded by d.
// Used for bookkeeping that must land after the work context expired
func Detached(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return withChildTimeout(context.WithoutCancel(parent), d)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout takes the tighter of d and the parent remainder, never extending the parent
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
