// Package time holds the clock seam and the small time helpers jobs share
package time

import (
	"context"
	"time"
)

// Ptr returns &t, or nil for the zero time so it binds as NULL
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Sleep waits d unless ctx ends first, returning ctx's error then
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Clock returns the current time, swapped in tests
type Clock func() time.Time

// Now is the wall clock in UTC
func Now() time.Time { return time.Now().UTC() }
